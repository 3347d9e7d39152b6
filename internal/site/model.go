package site

import (
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
)

// Site is immutable reference data. Rows are seeded by an administrator
// outside this service; the API only ever reads them.
type Site struct {
	SiteID    int64
	SiteULID  string
	Name      string
	CenterLat float64
	CenterLng float64
	RadiusM   float64
	CreatedAt time.Time
}

func (s Site) Fence() geo.Fence {
	return geo.Fence{Lat: s.CenterLat, Lng: s.CenterLng, RadiusMeters: s.RadiusM}
}
