package tracker

import (
	"context"
	"time"

	"github.com/ASTXRTYS/picket-mvp/internal/geo"
)

// Sampler abstracts the device position source. Both methods are thin
// shims over whatever the platform provides (browser geolocation,
// mobile SDK, a fixture in tests); the state machine itself never talks
// to hardware.
type Sampler interface {
	// Current returns a single fresh fix, honoring ctx cancellation and
	// deadline.
	Current(ctx context.Context) (geo.Position, error)
	// Watch delivers fixes to fn until the returned cancel func is
	// called. fn may be invoked from another goroutine.
	Watch(fn func(geo.Position)) (cancel func(), err error)
}

// ScreenLock keeps the device display awake so sampling is not stalled
// by sleep. It is strictly best-effort: acquisition failures are
// tolerated and never block a transition.
type ScreenLock interface {
	Acquire() error
	Release()
}

// NopScreenLock is for platforms without a wake-lock facility.
type NopScreenLock struct{}

func (NopScreenLock) Acquire() error { return nil }
func (NopScreenLock) Release()       {}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
