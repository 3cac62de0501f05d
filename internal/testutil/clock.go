// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"slices"
	"sync"
	"time"
)

// epoch is the start time of a FakeClock created from the zero time.
var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type (
	// FakeClock is a manually driven clock. Channels returned by After fire
	// only once Advance moves the clock to their deadline.
	FakeClock struct {
		mu     sync.Mutex
		now    time.Time
		timers []timer
	}

	timer struct {
		deadline time.Time
		ch       chan time.Time
	}
)

// NewFakeClock returns a clock reading start, or a fixed epoch for the zero
// time.
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = epoch
	}
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After mirrors time.After. A non-positive d fires immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.timers = append(c.timers, timer{deadline: c.now.Add(d), ch: ch})
	return ch
}

// Pending reports how many After channels have not fired yet.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves the clock forward by d and fires every due timer.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	c.timers = slices.DeleteFunc(c.timers, func(t timer) bool {
		if t.deadline.After(c.now) {
			return false
		}
		t.ch <- c.now
		return true
	})
}
