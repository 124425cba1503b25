/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package countdown runs the discussion timer.
package countdown

import (
	"sync"
	"time"
)

// Countdown counts whole seconds down to zero. It can be paused and reset at any
// time; onExpire runs once when the count reaches zero and the countdown then stays
// idle until it is reset and started again.
type Countdown struct {
	tick     time.Duration
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	stop      chan struct{}
}

// New returns a stopped countdown. A tick of zero means one second. Either
// callback may be nil; both are called without internal locks held.
func New(tick time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	if tick <= 0 {
		tick = time.Second
	}
	if onTick == nil {
		onTick = func(int) {}
	}
	if onExpire == nil {
		onExpire = func() {}
	}

	return &Countdown{
		tick:     tick,
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Start resumes counting. It does nothing if already running or at zero.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil || c.remaining <= 0 {
		return
	}

	c.stop = make(chan struct{})
	go c.run(c.stop)
}

func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.halt()
}

// Reset stops the countdown and sets it to seconds.
func (c *Countdown) Reset(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.halt()
	c.remaining = max(seconds, 0)
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remaining
}

func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stop != nil
}

func (c *Countdown) halt() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) run(stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		// A tick that raced with Pause or Reset belongs to a stale run.
		if c.stop != stop {
			c.mu.Unlock()
			return
		}
		c.remaining--
		remaining := c.remaining
		expired := remaining <= 0
		if expired {
			c.remaining = 0
			c.stop = nil
		}
		c.mu.Unlock()

		c.onTick(remaining)

		if expired {
			c.onExpire()
			return
		}
	}
}
