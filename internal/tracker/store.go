package tracker

import (
	"context"
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
	"github.com/ASTXRTYS/picket-mvp/internal/profile"
	"github.com/ASTXRTYS/picket-mvp/internal/session"
	"github.com/ASTXRTYS/picket-mvp/internal/site"
)

// Store is the durable record store as seen from the client core. Every
// call is a fallible remote operation; the tracker never mutates local
// state on a failed call. The "at most one open session per worker"
// invariant lives behind this interface, not in the tracker.
type Store interface {
	EnsureProfile(ctx context.Context, email string) (*profile.Profile, error)
	ListSites(ctx context.Context) ([]site.SiteResponse, error)
	// CreateSession opens a session; a CONFLICT means another device or
	// tab won the race and the caller must reconcile.
	CreateSession(ctx context.Context, workerID, siteID string, startedAt time.Time) (session.SessionResponse, error)
	// CloseSession closes it exactly once; CONFLICT means it is
	// already closed. durationSeconds is advisory, the store recomputes
	// from its own timestamps.
	CloseSession(ctx context.Context, workerID, sessionID string, endedAt time.Time, durationSeconds int64, last *geo.Position) (session.SessionResponse, error)
	FindOpenSession(ctx context.Context, workerID string) (*session.SessionResponse, error)
	ListSessionsOnOrAfter(ctx context.Context, workerID string, dayStart time.Time) ([]session.SessionResponse, error)
}

// ServiceStore adapts the in-process services to the Store contract.
type ServiceStore struct {
	Profiles *profile.Service
	Sites    *site.Service
	Sessions *session.Service
}

func (s *ServiceStore) EnsureProfile(ctx context.Context, email string) (*profile.Profile, error) {
	return s.Profiles.EnsureProfile(ctx, email)
}

func (s *ServiceStore) ListSites(ctx context.Context) ([]site.SiteResponse, error) {
	return s.Sites.List(ctx)
}

// CreateSession ignores startedAt: the session service stamps the start
// from its own clock, which is the durable notion of "now".
func (s *ServiceStore) CreateSession(ctx context.Context, workerID, siteID string, _ time.Time) (session.SessionResponse, error) {
	return s.Sessions.CheckIn(ctx, workerID, siteID)
}

func (s *ServiceStore) CloseSession(ctx context.Context, workerID, sessionID string, endedAt time.Time, durationSeconds int64, last *geo.Position) (session.SessionResponse, error) {
	return s.Sessions.ClockOut(ctx, workerID, sessionID, session.ClockOutRequest{
		EndedAt:       &endedAt,
		SecondsInside: &durationSeconds,
		LastPosition:  last,
	})
}

func (s *ServiceStore) FindOpenSession(ctx context.Context, workerID string) (*session.SessionResponse, error) {
	return s.Sessions.FindOpen(ctx, workerID)
}

func (s *ServiceStore) ListSessionsOnOrAfter(ctx context.Context, workerID string, dayStart time.Time) ([]session.SessionResponse, error) {
	return s.Sessions.ListOnOrAfter(ctx, workerID, dayStart)
}
