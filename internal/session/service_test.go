package session

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
	"github.com/ASTXRTYS/picket-mvp/internal/site"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("01SESSION%04d", g.n), nil
}

type stubSites struct{ sites map[string]site.Site }

func (s *stubSites) GetByULID(_ context.Context, ulid string) (*site.Site, error) {
	if st, ok := s.sites[ulid]; ok {
		return &st, nil
	}
	return nil, site.ErrNotFound("site not found")
}

// memStore mirrors the database semantics the service relies on: one
// open session per worker, close-once.
type memStore struct {
	rows   []*Session
	nextID int64
}

func (m *memStore) Create(_ context.Context, s *Session) error {
	for _, r := range m.rows {
		if r.WorkerID == s.WorkerID && r.Open() {
			return ErrConflict("an open session already exists for this worker")
		}
	}
	m.nextID++
	s.SessionID = m.nextID
	cp := *s
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memStore) GetByULID(_ context.Context, ulid string) (*Session, error) {
	for _, r := range m.rows {
		if r.SessionULID == ulid {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Close(_ context.Context, ulid string, endedAt time.Time, seconds int64, last *geo.Position) (int64, error) {
	for _, r := range m.rows {
		if r.SessionULID == ulid && r.Open() {
			r.EndedAt = sql.NullTime{Time: endedAt, Valid: true}
			r.SecondsInside = sql.NullInt64{Int64: seconds, Valid: true}
			if last != nil {
				r.LastLat = sql.NullFloat64{Float64: last.Lat, Valid: true}
				r.LastLng = sql.NullFloat64{Float64: last.Lng, Valid: true}
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) FindOpen(_ context.Context, workerID string) (*Session, error) {
	for _, r := range m.rows {
		if r.WorkerID == workerID && r.Open() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListOnOrAfter(_ context.Context, workerID string, dayStart time.Time) ([]Session, error) {
	var out []Session
	for _, r := range m.rows {
		if r.WorkerID == workerID && !r.StartedAt.Before(dayStart) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) ListOpenBySite(_ context.Context, siteULID string) ([]WorkerRow, error) {
	var out []WorkerRow
	for _, r := range m.rows {
		if r.SiteULID == siteULID && r.Open() {
			out = append(out, WorkerRow{Session: *r, Email: r.WorkerID + "@test"})
		}
	}
	return out, nil
}

func (m *memStore) ListClosedBySiteOnOrAfter(_ context.Context, siteULID string, dayStart time.Time) ([]WorkerRow, error) {
	var out []WorkerRow
	for _, r := range m.rows {
		if r.SiteULID == siteULID && !r.Open() && !r.StartedAt.Before(dayStart) {
			out = append(out, WorkerRow{Session: *r, Email: r.WorkerID + "@test"})
		}
	}
	return out, nil
}

func newTestService(now time.Time) (*Service, *memStore, *fakeClock) {
	store := &memStore{}
	clock := &fakeClock{now: now}
	sites := &stubSites{sites: map[string]site.Site{
		"01SITEA": {SiteULID: "01SITEA", Name: "West Gate", RadiusM: 100},
	}}
	return NewServiceWith(store, sites, clock, &seqIDGen{}), store, clock
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)

	res, err := svc.CheckIn(ctx, "worker-1", "01SITEA")
	require.NoError(t, err)
	assert.Equal(t, "01SITEA", res.SiteID)
	assert.Equal(t, "worker-1", res.WorkerID)
	assert.Equal(t, now, res.StartedAt)
	assert.Nil(t, res.EndedAt)

	t.Run("second open session is rejected", func(t *testing.T) {
		_, err := svc.CheckIn(ctx, "worker-1", "01SITEA")
		var api *APIError
		require.ErrorAs(t, err, &api)
		assert.Equal(t, CodeConflict, api.Code)
		assert.True(t, IsConflict(err))
	})

	t.Run("unknown site", func(t *testing.T) {
		_, err := svc.CheckIn(ctx, "worker-2", "nope")
		var api *APIError
		require.ErrorAs(t, err, &api)
		assert.Equal(t, CodeNotFound, api.Code)
	})
}

func TestClockOut(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _, clock := newTestService(start)

	res, err := svc.CheckIn(ctx, "worker-1", "01SITEA")
	require.NoError(t, err)

	// 09:00:00 -> 09:45:30 commits exactly 2730 seconds regardless of
	// any client-side counting.
	clock.now = time.Date(2025, 3, 10, 9, 45, 30, 0, time.UTC)
	closed, err := svc.ClockOut(ctx, "worker-1", res.SessionULID, ClockOutRequest{
		LastPosition: &geo.Position{Lat: 40.0, Lng: -74.0},
	})
	require.NoError(t, err)
	require.NotNil(t, closed.SecondsInside)
	assert.Equal(t, int64(2730), *closed.SecondsInside)
	require.NotNil(t, closed.EndedAt)
	assert.Equal(t, clock.now, *closed.EndedAt)
	require.NotNil(t, closed.LastPosition)
	assert.Equal(t, 40.0, closed.LastPosition.Lat)

	t.Run("closing twice is a conflict", func(t *testing.T) {
		_, err := svc.ClockOut(ctx, "worker-1", res.SessionULID, ClockOutRequest{})
		assert.True(t, IsConflict(err))
	})

	t.Run("someone else's session is not found", func(t *testing.T) {
		_, err := svc.ClockOut(ctx, "worker-2", res.SessionULID, ClockOutRequest{})
		var api *APIError
		require.ErrorAs(t, err, &api)
		assert.Equal(t, CodeNotFound, api.Code)
	})
}

func TestCommittedSecondsFloors(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(59), CommittedSeconds(start, start.Add(59*time.Second+900*time.Millisecond)))
	assert.Equal(t, int64(0), CommittedSeconds(start, start))
	// Clock skew never yields a negative duration.
	assert.Equal(t, int64(0), CommittedSeconds(start, start.Add(-time.Minute)))
}

func TestToday(t *testing.T) {
	ctx := context.Background()
	morning := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	svc, _, clock := newTestService(morning)

	// A completed morning session: 08:00 -> 09:00.
	res1, err := svc.CheckIn(ctx, "worker-1", "01SITEA")
	require.NoError(t, err)
	clock.now = morning.Add(time.Hour)
	_, err = svc.ClockOut(ctx, "worker-1", res1.SessionULID, ClockOutRequest{})
	require.NoError(t, err)

	// An open afternoon session started at 13:00, read at 13:30.
	clock.now = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	_, err = svc.CheckIn(ctx, "worker-1", "01SITEA")
	require.NoError(t, err)
	clock.now = clock.now.Add(30 * time.Minute)

	today, err := svc.Today(ctx, "worker-1")
	require.NoError(t, err)
	assert.Len(t, today.Sessions, 2)
	assert.Equal(t, int64(3600+1800), today.TotalSeconds)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	morning := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	svc, _, clock := newTestService(morning)

	// worker-1 completes two sessions today.
	res1, err := svc.CheckIn(ctx, "worker-1", "01SITEA")
	require.NoError(t, err)
	clock.now = morning.Add(time.Hour)
	_, err = svc.ClockOut(ctx, "worker-1", res1.SessionULID, ClockOutRequest{})
	require.NoError(t, err)

	clock.now = morning.Add(2 * time.Hour)
	res2, err := svc.CheckIn(ctx, "worker-1", "01SITEA")
	require.NoError(t, err)
	clock.now = morning.Add(3 * time.Hour)
	_, err = svc.ClockOut(ctx, "worker-1", res2.SessionULID, ClockOutRequest{})
	require.NoError(t, err)

	// worker-2 is on duty, checked in at 10:00, read at 11:15.
	clock.now = morning.Add(2 * time.Hour)
	_, err = svc.CheckIn(ctx, "worker-2", "01SITEA")
	require.NoError(t, err)
	clock.now = morning.Add(3*time.Hour + 15*time.Minute)

	dash, err := svc.Dashboard(ctx, "01SITEA")
	require.NoError(t, err)
	require.Len(t, dash.OnDuty, 1)
	assert.Equal(t, "worker-2", dash.OnDuty[0].Session.WorkerID)
	assert.Equal(t, int64(75*60), dash.OnDuty[0].ElapsedSeconds)

	// Completed sessions are grouped per worker with summed seconds.
	require.Len(t, dash.Completed, 1)
	assert.Equal(t, "worker-1", dash.Completed[0].WorkerID)
	assert.Equal(t, int64(2*3600), dash.Completed[0].SecondsInside)
}

func TestDayStart(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	at := time.Date(2025, 3, 10, 23, 59, 59, 0, loc)
	ds := DayStart(at)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), ds)
	assert.Equal(t, loc.String(), ds.Location().String())
}
