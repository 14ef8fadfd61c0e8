package feed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"bioprintctl/internal/config"
	"bioprintctl/internal/control"
	"bioprintctl/internal/logging"
	"bioprintctl/internal/pipeline"
	"bioprintctl/internal/telemetry"
	"bioprintctl/internal/twin"
)

// DecisionWriter observes each decision the harness drives through the
// pipeline. Writers must tolerate concurrent ticks not happening; the
// harness calls them from its single loop goroutine.
type DecisionWriter interface {
	WriteDecision(cmd control.Command, state twin.State) error
}

// Harness drives the real pipeline with synthetic fleet telemetry. It is a
// development and soak-test tool; production ingestion adapters are separate
// transports feeding the same pipeline.
type Harness struct {
	tenantID string
	printers []*PrinterState
	gen      *Generator
	proc     *pipeline.Processor
	writer   DecisionWriter
	tick     time.Duration

	mu    sync.Mutex
	chaos bool
	rand  *rand.Rand
}

// NewHarness builds virtual printers from the configured fleets. Printer ids
// follow the "<fleet>-<n>" convention, 1-based, so seeded sessions can
// reference them.
func NewHarness(tenantID string, fleets []config.Fleet, proc *pipeline.Processor, writer DecisionWriter, tick time.Duration, seed int64) *Harness {
	h := &Harness{
		tenantID: tenantID,
		gen:      NewGenerator(seed),
		proc:     proc,
		writer:   writer,
		tick:     tick,
		rand:     rand.New(rand.NewSource(seed + 1)),
	}
	for _, f := range fleets {
		for i := 1; i <= f.Count; i++ {
			id := fmt.Sprintf("%s-%d", f.Name, i)
			h.printers = append(h.printers, NewPrinterState(id, f.Model, uuid.NewString(), f.Behavior))
		}
	}
	return h
}

// Printers returns how many virtual printers the harness drives.
func (h *Harness) Printers() int {
	return len(h.printers)
}

// ToggleChaos flips chaos mode and returns the new state.
func (h *Harness) ToggleChaos() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chaos = !h.chaos
	return h.chaos
}

// Chaos reports whether chaos mode is on.
func (h *Harness) Chaos() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.chaos
}

// Run starts the feed loop and stops when the context is done.
func (h *Harness) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting feed harness", "printers", len(h.printers), "tick", h.tick)
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.step(ctx)
		case <-ctx.Done():
			log.Info("stopping feed harness")
			return
		}
	}
}

// step emits one sample per printer and pushes it through the pipeline.
func (h *Harness) step(ctx context.Context) {
	log := logging.FromContext(ctx)
	for _, p := range h.printers {
		sample, ok := h.gen.Next(p)
		if !ok {
			continue
		}
		if h.Chaos() {
			h.injectChaos(p, &sample)
		}
		cmd, state, err := h.proc.Process(ctx, h.tenantID, sample, "feed-harness", "feed")
		if err != nil {
			log.Error("pipeline pass failed", "printer_id", p.ID, "err", err)
			continue
		}
		if h.writer != nil {
			if err := h.writer.WriteDecision(cmd, state); err != nil {
				log.Error("decision write failed", "printer_id", p.ID, "err", err)
			}
		}
	}
}

// injectChaos pushes a printer out of its safe envelope so halts and plan
// overrides actually fire during soak runs.
func (h *Harness) injectChaos(p *PrinterState, s *telemetry.Sample) {
	switch h.rand.Intn(3) {
	case 0:
		p.Viability = 0.5 + h.rand.Float64()*0.2
		s.CellViability = p.Viability
	case 1:
		p.Pressure = 240 + h.rand.Float64()*60
		s.PressureKPa = p.Pressure
	default:
		s.DefectProbability = 0.35 + h.rand.Float64()*0.3
	}
}
