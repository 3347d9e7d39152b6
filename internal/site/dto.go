package site

import "time"

type SiteResponse struct {
	SiteULID  string    `json:"site_id"`
	Name      string    `json:"name"`
	CenterLat float64   `json:"center_lat"`
	CenterLng float64   `json:"center_lng"`
	RadiusM   float64   `json:"radius_m"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Site) toDTO() SiteResponse {
	return SiteResponse{
		SiteULID:  s.SiteULID,
		Name:      s.Name,
		CenterLat: s.CenterLat,
		CenterLng: s.CenterLng,
		RadiusM:   s.RadiusM,
		CreatedAt: s.CreatedAt,
	}
}
