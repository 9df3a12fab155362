// Package ids generates client-assigned order identifiers.
package ids

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// OrderIDGenerator produces order IDs derived from the creation timestamp.
// A per-millisecond sequence disambiguates orders placed in the same
// millisecond, so IDs are unique and never reused for the process lifetime.
type OrderIDGenerator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence int
}

var globalGen = &OrderIDGenerator{}

// NewOrderID returns an ID of the form {unix_ms}{seq3} for the given
// creation time, e.g. "1702468800123001".
func NewOrderID(createdAt time.Time) string {
	return globalGen.Generate(createdAt)
}

// Generate returns the next ID for the given creation time.
func (g *OrderIDGenerator) Generate(createdAt time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := createdAt.UnixMilli()
	if ms != g.lastMs {
		g.lastMs = ms
		g.sequence = 0
	}
	g.sequence++

	return fmt.Sprintf("%d%03d", ms, g.sequence)
}

// CreationTime recovers the creation timestamp embedded in an order ID.
func CreationTime(orderID string) (time.Time, bool) {
	if len(orderID) < 16 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(orderID[:len(orderID)-3], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
