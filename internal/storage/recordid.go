package storage

import (
	"sync"
	"time"
)

// IDGenerator hands out record IDs.
type IDGenerator interface {
	NextID() int64
}

// ClockIDGenerator issues millisecond-timestamp IDs that never repeat
// within a process: when the clock has not advanced past the last issued
// ID, the next ID is last+1.
type ClockIDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClockIDGenerator returns a generator reading the given clock.
// A nil clock means time.Now.
func NewClockIDGenerator(now func() time.Time) *ClockIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &ClockIDGenerator{now: now}
}

// NextID returns the next record ID.
func (g *ClockIDGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
