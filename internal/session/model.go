package session

import (
	"database/sql"
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
)

// Session is one attendance session. A row with a NULL ended_at is the
// worker's open session; the schema guarantees at most one of those per
// worker. Once ended_at is set the row is never touched again.
type Session struct {
	SessionID     int64
	SessionULID   string
	WorkerID      string
	SiteULID      string
	StartedAt     time.Time
	EndedAt       sql.NullTime
	SecondsInside sql.NullInt64
	LastLat       sql.NullFloat64
	LastLng       sql.NullFloat64
}

func (s Session) Open() bool { return !s.EndedAt.Valid }

// LastPosition returns the close position, or nil when none was stored.
func (s Session) LastPosition() *geo.Position {
	if !s.LastLat.Valid || !s.LastLng.Valid {
		return nil
	}
	return &geo.Position{Lat: s.LastLat.Float64, Lng: s.LastLng.Float64}
}

// CommittedSeconds is the authoritative duration of a closed session:
// floor(ended_at - started_at) in whole seconds, always recomputed from
// the durable timestamps rather than trusting any client counter.
func CommittedSeconds(startedAt, endedAt time.Time) int64 {
	d := endedAt.Sub(startedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// DayStart returns midnight of t's calendar day in t's location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
