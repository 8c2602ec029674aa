package quiz

import (
	"sync"
	"time"
)

// Ticker abstracts time.Ticker so sessions can run against a fake clock in
// tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type NewTickerFunc func(d time.Duration) Ticker

// NewTicker returns a Ticker backed by time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Countdown is a per-question countdown: one decrement per interval while
// running. The expire callback fires at most once per run; no tick or
// expiry is delivered after Stop returns the run cancelled.
type Countdown struct {
	newTicker NewTickerFunc
	interval  time.Duration

	mu        sync.Mutex
	remaining int
	stop      chan struct{}
}

func NewCountdown(newTicker NewTickerFunc, interval time.Duration) *Countdown {
	if newTicker == nil {
		newTicker = NewTicker
	}
	return &Countdown{
		newTicker: newTicker,
		interval:  interval,
	}
}

// Start (re)initializes the countdown to units and begins ticking. A
// previous run, if any, is cancelled first. onTick receives the remaining
// units after each decrement that leaves time on the clock; onExpire fires
// once when the count reaches zero.
func (c *Countdown) Start(units int, onTick func(remaining int), onExpire func()) {
	stop := make(chan struct{})

	c.mu.Lock()
	c.cancelLocked()
	c.remaining = units
	c.stop = stop
	c.mu.Unlock()

	t := c.newTicker(c.interval)
	go c.run(t, stop, onTick, onExpire)
}

func (c *Countdown) run(t Ticker, stop chan struct{}, onTick func(int), onExpire func()) {
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C():
			c.mu.Lock()
			if c.stop != stop {
				// Cancelled between the tick firing and the lock.
				c.mu.Unlock()
				return
			}
			c.remaining--
			remaining := c.remaining
			expired := remaining <= 0
			if expired {
				c.stop = nil
			}
			c.mu.Unlock()

			if !expired {
				if onTick != nil {
					onTick(remaining)
				}
				continue
			}

			if onExpire != nil {
				onExpire()
			}
			return
		}
	}
}

// Stop cancels the current run. Safe to call multiple times and when no
// run is active.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()
}

func (c *Countdown) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Remaining returns the units left on the clock.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
