package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
	"github.com/ASTXRTYS/picket-mvp/internal/profile"
	"github.com/ASTXRTYS/picket-mvp/internal/session"
	"github.com/ASTXRTYS/picket-mvp/internal/site"
)

// State of the attendance tracker.
//
//	Idle   - nobody signed in
//	Ready  - signed in, no open session
//	Active - open session, inside the fence, time accruing
//	Paused - open session, outside the fence or membership not yet
//	         known, time frozen
//	Closed - the last session was clocked out; a new check-in starts a
//	         fresh cycle
type State string

const (
	StateIdle   State = "idle"
	StateReady  State = "ready"
	StateActive State = "active"
	StatePaused State = "paused"
	StateClosed State = "closed"
)

var (
	ErrNotReady            = errors.New("not reconciled yet; sign in first")
	ErrNoSiteSelected      = errors.New("no site selected")
	ErrNoOpenSession       = errors.New("no open session")
	ErrAlreadyOpen         = errors.New("a session is already open")
	ErrPositionUnavailable = errors.New("current position unavailable")
)

const defaultPositionTimeout = 10 * time.Second

type Config struct {
	// PositionTimeout bounds the one-shot position fix for check-in,
	// clock-out and resume. Defaults to 10s.
	PositionTimeout time.Duration
}

// Tracker is the client-side attendance state machine. One instance per
// signed-in client. All durable effects go through Store before any
// local state changes; position samples and the UI tick arrive through
// HandleSample and Tick, driven by thin platform adapters.
type Tracker struct {
	store   Store
	sampler Sampler
	lock    ScreenLock
	clock   Clock
	cfg     Config

	mu          sync.Mutex
	state       State
	worker      *profile.Profile
	sites       []site.SiteResponse
	selected    *site.SiteResponse
	open        *session.SessionResponse
	membership  geo.Membership
	lastPos     *geo.Position
	elapsed     int64     // displayed counter, seconds
	doneToday   int64     // committed seconds of today's closed sessions
	day         time.Time // the local midnight doneToday belongs to
	watchCancel func()
}

func New(store Store, sampler Sampler, lock ScreenLock, cfg Config) *Tracker {
	return NewWithClock(store, sampler, lock, cfg, realClock{})
}

func NewWithClock(store Store, sampler Sampler, lock ScreenLock, cfg Config, clock Clock) *Tracker {
	if cfg.PositionTimeout <= 0 {
		cfg.PositionTimeout = defaultPositionTimeout
	}
	if lock == nil {
		lock = NopScreenLock{}
	}
	return &Tracker{
		store:   store,
		sampler: sampler,
		lock:    lock,
		clock:   clock,
		cfg:     cfg,
		state:   StateIdle,
	}
}

// ---------- accessors ----------

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Elapsed is the displayed counter: today's committed total plus ticks
// accrued while Active. A UI affordance, not the value of record.
func (t *Tracker) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Membership is the latest geofence decision. Known is false until a
// sample has arrived.
func (t *Tracker) Membership() geo.Membership {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.membership
}

// LastPosition is the most recent fix seen, or nil before any sample.
func (t *Tracker) LastPosition() *geo.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastPos == nil {
		return nil
	}
	cp := *t.lastPos
	return &cp
}

func (t *Tracker) Sites() []site.SiteResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]site.SiteResponse, len(t.sites))
	copy(out, t.sites)
	return out
}

func (t *Tracker) SelectedSite() *site.SiteResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected == nil {
		return nil
	}
	cp := *t.selected
	return &cp
}

func (t *Tracker) OpenSession() *session.SessionResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open == nil {
		return nil
	}
	cp := *t.open
	return &cp
}

func (t *Tracker) Worker() *profile.Profile {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.worker == nil {
		return nil
	}
	cp := *t.worker
	return &cp
}

// ---------- actions ----------

// SelectSite picks the site for the next check-in. Not allowed while a
// session is open: the site is fixed at creation.
func (t *Tracker) SelectSite(siteID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateReady, StateClosed:
	case StateIdle:
		return ErrNotReady
	default:
		return ErrAlreadyOpen
	}
	for i := range t.sites {
		if t.sites[i].SiteULID == siteID {
			cp := t.sites[i]
			t.selected = &cp
			return nil
		}
	}
	return fmt.Errorf("unknown site %q", siteID)
}

// CheckIn opens a new session. It needs a selected site and a fresh
// position fix; without either the action fails and nothing changes.
// The store write happens before any local transition, and a CONFLICT
// (another device already checked in) forces a reconciliation.
func (t *Tracker) CheckIn(ctx context.Context) error {
	t.mu.Lock()
	if err := t.checkInReadyLocked(); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	// The fix can block for up to PositionTimeout; the lock stays free
	// so samples, ticks and reads are not stalled behind it.
	pos, err := t.currentPosition(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// State may have moved while the fix was in flight.
	if err := t.checkInReadyLocked(); err != nil {
		return err
	}

	resp, err := t.store.CreateSession(ctx, t.worker.ProfileID, t.selected.SiteULID, t.clock.Now())
	if err != nil {
		if session.IsConflict(err) {
			if rerr := t.reconcileSessions(ctx); rerr != nil {
				return fmt.Errorf("check-in conflict, reconciliation failed: %w", rerr)
			}
		}
		return err
	}

	t.open = &resp
	t.refreshElapsedLocked()
	t.state = StateActive
	t.startWatch()
	_ = t.lock.Acquire() // best-effort
	t.applySample(pos)
	return nil
}

// mu held.
func (t *Tracker) checkInReadyLocked() error {
	switch t.state {
	case StateReady, StateClosed:
	case StateIdle:
		return ErrNotReady
	default:
		return ErrAlreadyOpen
	}
	if t.selected == nil {
		return ErrNoSiteSelected
	}
	return nil
}

// ClockOut closes the open session. A position fix is required within
// the same timeout as check-in; on timeout the action fails and the
// session stays open. CONFLICT (already closed elsewhere) forces a
// reconciliation.
func (t *Tracker) ClockOut(ctx context.Context) error {
	t.mu.Lock()
	if (t.state != StateActive && t.state != StatePaused) || t.open == nil {
		t.mu.Unlock()
		return ErrNoOpenSession
	}
	openULID := t.open.SessionULID
	t.mu.Unlock()

	pos, err := t.currentPosition(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// The session may have been closed or swapped while unlocked.
	if (t.state != StateActive && t.state != StatePaused) || t.open == nil || t.open.SessionULID != openULID {
		return ErrNoOpenSession
	}

	endedAt := t.clock.Now()
	dur := session.CommittedSeconds(t.open.StartedAt, endedAt)

	resp, err := t.store.CloseSession(ctx, t.worker.ProfileID, t.open.SessionULID, endedAt, dur, &pos)
	if err != nil {
		if session.IsConflict(err) {
			if rerr := t.reconcileSessions(ctx); rerr != nil {
				return fmt.Errorf("clock-out conflict, reconciliation failed: %w", rerr)
			}
		}
		return err
	}

	if resp.SecondsInside != nil {
		t.doneToday += *resp.SecondsInside
	} else {
		t.doneToday += dur
	}
	t.open = nil
	t.refreshElapsedLocked()
	t.stopWatch()
	t.lock.Release()
	t.state = StateClosed
	return nil
}

// Resume restarts tracking on a session recovered by reconciliation: it
// takes a fresh fix, re-acquires the screen lock and lets the sample
// decide Active vs Paused. Accrual never resumes on stale membership.
func (t *Tracker) Resume(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StatePaused || t.open == nil {
		t.mu.Unlock()
		return ErrNoOpenSession
	}
	t.mu.Unlock()

	pos, err := t.currentPosition(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePaused || t.open == nil {
		return ErrNoOpenSession
	}
	_ = t.lock.Acquire()
	t.startWatch()
	t.applySample(pos)
	return nil
}

// SignOut tears down subscriptions and local state. An open session is
// deliberately left open in the store for later resumption.
func (t *Tracker) SignOut() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopWatch()
	t.lock.Release()
	t.state = StateIdle
	t.worker = nil
	t.sites = nil
	t.selected = nil
	t.open = nil
	t.membership = geo.Membership{}
	t.lastPos = nil
	t.elapsed = 0
	t.doneToday = 0
	t.day = time.Time{}
}

// ---------- events ----------

// HandleSample feeds one position fix into the machine. Membership on
// the latest sample alone decides Active vs Paused; repeated samples on
// the same side of the fence change nothing.
func (t *Tracker) HandleSample(pos geo.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive && t.state != StatePaused {
		return
	}
	t.applySample(pos)
}

// Tick advances the displayed counter by one second while Active. The
// caller provides the cadence; calls in any other state are no-ops.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateActive {
		t.elapsed++
	}
}

// RefreshElapsed recomputes the displayed counter from durable
// timestamps, discarding any tick drift from a suspended page.
func (t *Tracker) RefreshElapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshElapsedLocked()
	return t.elapsed
}

// ---------- internals (mu held) ----------

func (t *Tracker) applySample(pos geo.Position) {
	p := pos
	t.lastPos = &p
	if t.selected == nil {
		t.membership = geo.Membership{}
		return
	}
	m := geo.Evaluate(&p, geo.Fence{
		Lat:          t.selected.CenterLat,
		Lng:          t.selected.CenterLng,
		RadiusMeters: t.selected.RadiusM,
	})
	t.membership = m
	if !m.Known {
		return
	}
	switch {
	case m.Inside && t.state == StatePaused:
		t.state = StateActive
		_ = t.lock.Acquire()
	case !m.Inside && t.state == StateActive:
		// Freeze the counter at its current value.
		t.state = StatePaused
	}
}

func (t *Tracker) currentPosition(ctx context.Context) (geo.Position, error) {
	posCtx, cancel := context.WithTimeout(ctx, t.cfg.PositionTimeout)
	defer cancel()
	pos, err := t.sampler.Current(posCtx)
	if err != nil {
		return geo.Position{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	return pos, nil
}

func (t *Tracker) refreshElapsedLocked() {
	now := t.clock.Now()
	// Day rollover while the app stays open: yesterday's committed
	// seconds leave the displayed total.
	if ds := session.DayStart(now); !ds.Equal(t.day) {
		t.day = ds
		t.doneToday = 0
	}
	if t.open != nil {
		t.elapsed = t.doneToday + session.CommittedSeconds(t.open.StartedAt, now)
	} else {
		t.elapsed = t.doneToday
	}
}

func (t *Tracker) startWatch() {
	if t.watchCancel != nil {
		return
	}
	cancel, err := t.sampler.Watch(t.HandleSample)
	if err != nil {
		// No watch means membership stays on the last one-shot fix
		// until the next explicit action; accrual state is unaffected.
		return
	}
	t.watchCancel = cancel
}

func (t *Tracker) stopWatch() {
	if t.watchCancel != nil {
		t.watchCancel()
		t.watchCancel = nil
	}
}

func (t *Tracker) siteByULID(ulid string) *site.SiteResponse {
	for i := range t.sites {
		if t.sites[i].SiteULID == ulid {
			cp := t.sites[i]
			return &cp
		}
	}
	return nil
}
