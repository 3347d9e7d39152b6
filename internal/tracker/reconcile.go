package tracker

import (
	"context"
	"fmt"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
	"github.com/ASTXRTYS/picket-mvp/internal/session"
)

// Bootstrap reconciles local state with the store after sign-in or a
// page reload. If an open session exists it is adopted in Paused, never
// Active: accrual only resumes once a fresh sample proves the worker is
// inside the fence. The displayed counter is seeded from durable
// timestamps so a client that died mid-session still shows the right
// total.
func (t *Tracker) Bootstrap(ctx context.Context, email string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	worker, err := t.store.EnsureProfile(ctx, email)
	if err != nil {
		return fmt.Errorf("bootstrap profile: %w", err)
	}
	sites, err := t.store.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap sites: %w", err)
	}

	t.worker = worker
	t.sites = sites
	t.selected = nil
	if worker.SiteULID.Valid {
		t.selected = t.siteByULID(worker.SiteULID.String)
	}

	if err := t.reconcileSessions(ctx); err != nil {
		return err
	}

	if t.open != nil {
		t.state = StatePaused
		t.membership = geo.Membership{}
		t.startWatch()
	} else {
		t.state = StateReady
	}
	return nil
}

// reconcileSessions re-reads the open session and today's history from
// the store and rebuilds the local view. Called from Bootstrap and
// whenever a CONFLICT reveals that another device changed the record.
// mu held.
func (t *Tracker) reconcileSessions(ctx context.Context) error {
	open, err := t.store.FindOpenSession(ctx, t.worker.ProfileID)
	if err != nil {
		return fmt.Errorf("reconcile open session: %w", err)
	}
	now := t.clock.Now()
	today, err := t.store.ListSessionsOnOrAfter(ctx, t.worker.ProfileID, session.DayStart(now))
	if err != nil {
		return fmt.Errorf("reconcile today's sessions: %w", err)
	}

	t.day = session.DayStart(now)
	t.doneToday = SumCompleted(today)
	if open != nil {
		cp := *open
		t.open = &cp
		// The open session pins the site; a stale local selection must
		// not survive reconciliation.
		if s := t.siteByULID(open.SiteID); s != nil {
			t.selected = s
		}
		if t.state != StateIdle {
			t.state = StatePaused
			t.startWatch()
		}
	} else {
		t.open = nil
		if t.state == StateActive || t.state == StatePaused {
			t.stopWatch()
			t.lock.Release()
			t.state = StateClosed
		}
	}
	t.elapsed = TodayTotal(today, now)
	return nil
}
