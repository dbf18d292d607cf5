package player

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sharetube/syncroom/internal/domain"
)

const DefaultTickInterval = time.Second

// Controller is a room's logical playback clock. While playing the position is
// (now - start) + offset, while paused it is offset. It is not safe for
// concurrent use; the owning room loop drives it.
type Controller struct {
	clock  clock.Clock
	ticker *clock.Ticker

	start  time.Time
	offset time.Duration

	playing bool
	// dirty marks a change that must go out as a Fix before the next Tick.
	dirty bool
}

func NewController(clk clock.Clock, tickInterval time.Duration) *Controller {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}

	return &Controller{
		clock:  clk,
		ticker: clk.Ticker(tickInterval),
		start:  clk.Now(),
	}
}

func (c *Controller) State() (time.Duration, bool) {
	if c.playing {
		return c.clock.Since(c.start) + c.offset, true
	}

	return c.offset, false
}

func (c *Controller) Play() {
	if c.playing {
		return
	}

	c.playing = true
	c.start = c.clock.Now()
	c.dirty = true
}

func (c *Controller) Pause() {
	if !c.playing {
		return
	}

	c.playing = false
	c.offset += c.clock.Since(c.start)
	c.dirty = true
}

// Set moves the position to d without changing play state.
func (c *Controller) Set(d time.Duration) {
	if d < 0 {
		d = 0
	}

	c.offset = d
	if c.playing {
		c.start = c.clock.Now()
	}
	c.dirty = true
}

func (c *Controller) Reset() {
	c.playing = false
	c.Set(0)
}

// Pending returns the Fix for an unsent change, clearing it.
func (c *Controller) Pending() (domain.PlayerEvent, bool) {
	if !c.dirty {
		return domain.PlayerEvent{}, false
	}

	c.dirty = false
	pos, playing := c.State()
	return domain.FixEvent(playing, pos), true
}

func (c *Controller) Ticks() <-chan time.Time {
	return c.ticker.C
}

func (c *Controller) Tick() domain.PlayerEvent {
	pos, _ := c.State()
	return domain.TickEvent(pos)
}

// NextUpdate returns a pending Fix immediately, otherwise waits for the next
// heartbeat and returns a Tick.
func (c *Controller) NextUpdate(ctx context.Context) (domain.PlayerEvent, error) {
	if ev, ok := c.Pending(); ok {
		return ev, nil
	}

	select {
	case <-c.ticker.C:
		return c.Tick(), nil
	case <-ctx.Done():
		return domain.PlayerEvent{}, ctx.Err()
	}
}

func (c *Controller) Stop() {
	c.ticker.Stop()
}
