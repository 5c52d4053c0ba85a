package resource

import (
	"sync/atomic"
	"time"
)

// IDGenerator issues strictly increasing, time-derived record IDs. IDs are
// Unix milliseconds, bumped by one when two calls land in the same millisecond.
type IDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

// NewIDGenerator creates an IDGenerator backed by the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns an ID greater than every ID previously returned. Safe for
// concurrent use.
func (g *IDGenerator) Next() int64 {
	for {
		prev := g.last.Load()
		next := g.now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if g.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
