package sequence

import (
	"context"
	"sync"
)

// MemoryCounter keeps counters in process memory. Values restart from 1
// when the process restarts. It is safe for concurrent use.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

// NewMemoryCounter creates an empty in-memory counter set.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]uint64)}
}

// Increment implements Counter.
func (c *MemoryCounter) Increment(ctx context.Context, name string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name]++
	return c.values[name], nil
}

// Current returns the last value issued for name without incrementing.
func (c *MemoryCounter) Current(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}
