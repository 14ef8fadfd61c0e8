package telemetry

import (
	"fmt"
	"sync"
	"testing"
)

func TestSnapshotCacheLastWriterWins(t *testing.T) {
	c := NewSnapshotCache()
	c.Update(Sample{PrinterID: "p1", PressureKPa: 100})
	c.Update(Sample{PrinterID: "p1", PressureKPa: 120})

	s, ok := c.FindByPrinterID("p1")
	if !ok {
		t.Fatal("expected snapshot for p1")
	}
	if s.PressureKPa != 120 {
		t.Errorf("expected latest sample, got pressure %f", s.PressureKPa)
	}
	if c.Len() != 1 {
		t.Errorf("updates for one printer must not grow the cache, len=%d", c.Len())
	}
}

func TestSnapshotCacheFindAllSorted(t *testing.T) {
	c := NewSnapshotCache()
	for _, id := range []string{"line-b-2", "line-a-1", "line-a-3"} {
		c.Update(Sample{PrinterID: id})
	}
	all := c.FindAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(all))
	}
	want := []string{"line-a-1", "line-a-3", "line-b-2"}
	for i, s := range all {
		if s.PrinterID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, s.PrinterID, want[i])
		}
	}
}

func TestSnapshotCacheMiss(t *testing.T) {
	c := NewSnapshotCache()
	if _, ok := c.FindByPrinterID("nope"); ok {
		t.Error("unknown printer should miss")
	}
}

func TestSnapshotCacheConcurrentUpdates(t *testing.T) {
	c := NewSnapshotCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Update(Sample{PrinterID: fmt.Sprintf("p%d", n%4), PressureKPa: float64(j)})
				c.FindAll()
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 4 {
		t.Errorf("expected 4 printers after concurrent updates, got %d", c.Len())
	}
}
