package services

import (
	"sync"
	"time"
)

// IDGenerator issues ids for locally authored comments. Ids are the current
// Unix time in milliseconds, bumped past the previous id when the clock has
// not advanced (or went backwards), so they are strictly increasing within a
// process and sit far above the small integer ids used by the catalog.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator backed by the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Observe records an id issued elsewhere, typically one loaded from the
// store, so later ids are strictly greater than it.
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now
	if g.now != nil {
		now = g.now
	}
	id := now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
