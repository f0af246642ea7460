package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is the first instant a StepClock reports.
var Epoch = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

// StepClock is a fake wall clock for tests. Every call to Now advances it by
// a fixed step, so a step measured between two Now calls always lasts
// exactly one step.
//
// Thread-safety: All methods are safe for concurrent use.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at Epoch that advances by step.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{now: Epoch, step: step}
}

// Now returns the current instant and then advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}

// SequentialIDs generates predictable run ids: prefix-0001, prefix-0002, ...
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
