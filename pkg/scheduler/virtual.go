package scheduler

import "time"

// VirtualClock is a Clock whose Now() only advances when told to,
// letting tests assert on timer ordering without real sleeps (spec
// §9: "poller is an interface so tests can drive virtual time").
type VirtualClock struct {
	now time.Time
}

// NewVirtualClock starts the clock at an arbitrary fixed instant.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{now: time.Unix(0, 0)}
}

func (c *VirtualClock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// ManualPoller pairs with VirtualClock: Wait advances the clock by d
// instead of actually sleeping, so Scheduler.Run drains timers
// deterministically.
type ManualPoller struct {
	Clock *VirtualClock
}

func (p ManualPoller) Wait(d time.Duration) {
	if d > 0 {
		p.Clock.Advance(d)
	}
}
