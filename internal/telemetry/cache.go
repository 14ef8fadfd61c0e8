package telemetry

import (
	"sort"
	"sync"
)

// SnapshotCache keeps the most recent sample per printer. Writers win in
// arrival order; no ordering guarantee is made between samples arriving from
// different transports, which is accepted fleet policy since telemetry is
// best-effort.
type SnapshotCache struct {
	mu      sync.RWMutex
	samples map[string]Sample
}

// NewSnapshotCache returns an empty cache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{samples: make(map[string]Sample)}
}

// Update stores s as the live snapshot for its printer.
func (c *SnapshotCache) Update(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples[s.PrinterID] = s
}

// FindByPrinterID returns the live snapshot for one printer.
func (c *SnapshotCache) FindByPrinterID(printerID string) (Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.samples[printerID]
	return s, ok
}

// FindAll returns all live snapshots ordered by printer id.
func (c *SnapshotCache) FindAll() []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Sample, 0, len(c.samples))
	for _, s := range c.samples {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrinterID < out[j].PrinterID })
	return out
}

// Len reports how many printers currently have a live snapshot.
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples)
}
