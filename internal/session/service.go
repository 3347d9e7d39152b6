package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ASTXRTYS/picket-mvp/internal/site"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SiteResolver is satisfied by the site service.
type SiteResolver interface {
	GetByULID(ctx context.Context, ulid string) (*site.Site, error)
}

type Service struct {
	store SessionStore
	sites SiteResolver
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB, sites SiteResolver) *Service {
	return &Service{
		store: NewStore(db),
		sites: sites,
		clock: realClock{},
		id:    ulidGen{},
	}
}

func NewServiceWith(store SessionStore, sites SiteResolver, clock Clock, id IDGen) *Service {
	return &Service{store: store, sites: sites, clock: clock, id: id}
}

// CheckIn opens a new session bound to (worker, site, now). The start
// timestamp is this service's clock, not anything client-supplied. A
// worker with an open session gets CONFLICT straight from the store.
func (s *Service) CheckIn(ctx context.Context, workerID, siteULID string) (SessionResponse, error) {
	if workerID == "" {
		return SessionResponse{}, ErrInvalid("worker id is required")
	}
	st, err := s.sites.GetByULID(ctx, siteULID)
	if err != nil {
		var siteErr *site.APIError
		if errors.As(err, &siteErr) {
			return SessionResponse{}, &APIError{Code: Code(siteErr.Code), Message: siteErr.Message}
		}
		return SessionResponse{}, err
	}

	idStr, err := s.id.New()
	if err != nil {
		return SessionResponse{}, err
	}

	sess := &Session{
		SessionULID: idStr,
		WorkerID:    workerID,
		SiteULID:    st.SiteULID,
		StartedAt:   s.clock.Now().UTC(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return SessionResponse{}, err
	}
	return sess.toDTO(), nil
}

// ClockOut closes the session exactly once. The committed duration is
// floor(ended_at - started_at) from the durable timestamps; the values
// in req are advisory. An already-closed session yields CONFLICT so the
// caller knows to re-reconcile.
func (s *Service) ClockOut(ctx context.Context, workerID, sessionULID string, req ClockOutRequest) (SessionResponse, error) {
	sess, err := s.store.GetByULID(ctx, sessionULID)
	if err != nil {
		return SessionResponse{}, err
	}
	if sess == nil || sess.WorkerID != workerID {
		return SessionResponse{}, ErrNotFound("session not found")
	}
	if !sess.Open() {
		return SessionResponse{}, ErrConflict("session is already closed")
	}

	endedAt := s.clock.Now().UTC()
	seconds := CommittedSeconds(sess.StartedAt, endedAt)

	aff, err := s.store.Close(ctx, sessionULID, endedAt, seconds, req.LastPosition)
	if err != nil {
		return SessionResponse{}, err
	}
	if aff == 0 {
		return SessionResponse{}, ErrConflict("session is already closed")
	}

	closed, err := s.store.GetByULID(ctx, sessionULID)
	if err != nil {
		return SessionResponse{}, err
	}
	if closed == nil {
		return SessionResponse{}, ErrInternal("closed session not found")
	}
	return closed.toDTO(), nil
}

// FindOpen returns the worker's open session, or nil.
func (s *Service) FindOpen(ctx context.Context, workerID string) (*SessionResponse, error) {
	sess, err := s.store.FindOpen(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	dto := sess.toDTO()
	return &dto, nil
}

// ListOnOrAfter returns the worker's sessions whose start falls on or
// after dayStart, oldest first.
func (s *Service) ListOnOrAfter(ctx context.Context, workerID string, dayStart time.Time) ([]SessionResponse, error) {
	sessions, err := s.store.ListOnOrAfter(ctx, workerID, dayStart)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.toDTO())
	}
	return out, nil
}

// Today lists the worker's sessions started today and the total:
// committed seconds of the closed ones plus the live duration of an
// open one, all recomputed from timestamps.
func (s *Service) Today(ctx context.Context, workerID string) (TodayResponse, error) {
	now := s.clock.Now()
	sessions, err := s.store.ListOnOrAfter(ctx, workerID, DayStart(now))
	if err != nil {
		return TodayResponse{}, err
	}

	var resp TodayResponse
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, sess.toDTO())
		if sess.Open() {
			resp.TotalSeconds += CommittedSeconds(sess.StartedAt, now)
		} else if sess.SecondsInside.Valid {
			resp.TotalSeconds += sess.SecondsInside.Int64
		}
	}
	return resp, nil
}

// Dashboard is the coordinator read model for one site: who is on duty
// right now (live elapsed from started_at) and who completed sessions
// today (committed seconds, summed per worker). Read-only.
func (s *Service) Dashboard(ctx context.Context, siteULID string) (DashboardResponse, error) {
	if _, err := s.sites.GetByULID(ctx, siteULID); err != nil {
		var siteErr *site.APIError
		if errors.As(err, &siteErr) {
			return DashboardResponse{}, &APIError{Code: Code(siteErr.Code), Message: siteErr.Message}
		}
		return DashboardResponse{}, err
	}

	now := s.clock.Now()
	resp := DashboardResponse{SiteID: siteULID}

	open, err := s.store.ListOpenBySite(ctx, siteULID)
	if err != nil {
		return DashboardResponse{}, err
	}
	for _, r := range open {
		resp.OnDuty = append(resp.OnDuty, OnDutyWorker{
			Session:        r.Session.toDTO(),
			FullName:       nullableString(r.FullName),
			Phone:          nullableString(r.Phone),
			Email:          r.Email,
			ElapsedSeconds: CommittedSeconds(r.StartedAt, now),
		})
	}

	closed, err := s.store.ListClosedBySiteOnOrAfter(ctx, siteULID, DayStart(now))
	if err != nil {
		return DashboardResponse{}, err
	}
	byWorker := make(map[string]*CompletedWorker)
	var order []string
	for _, r := range closed {
		w, ok := byWorker[r.WorkerID]
		if !ok {
			w = &CompletedWorker{
				WorkerID:   r.WorkerID,
				FullName:   nullableString(r.FullName),
				Phone:      nullableString(r.Phone),
				Email:      r.Email,
				FirstStart: r.StartedAt,
			}
			byWorker[r.WorkerID] = w
			order = append(order, r.WorkerID)
		}
		if r.SecondsInside.Valid {
			w.SecondsInside += r.SecondsInside.Int64
		}
	}
	for _, id := range order {
		resp.Completed = append(resp.Completed, *byWorker[id])
	}
	return resp, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
