package services

import (
	"sync"
	"time"
)

// CoalescingStarter folds bursts of Start calls into a single Start on the
// wrapped runner once no call has arrived for delay.
type CoalescingStarter struct {
	runner RunStarter
	delay  time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewCoalescingStarter(runner RunStarter, delay time.Duration) *CoalescingStarter {
	return &CoalescingStarter{runner: runner, delay: delay}
}

// Start schedules a run and returns immediately.
func (c *CoalescingStarter) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil {
		c.timer = time.AfterFunc(c.delay, c.runner.Start)
		return
	}
	c.timer.Reset(c.delay)
}

// Stop drops a pending Start. It reports whether one was pending.
func (c *CoalescingStarter) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil {
		return false
	}
	return c.timer.Stop()
}
