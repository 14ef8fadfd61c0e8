// Per-sample closed-loop decision pipeline
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bioprintctl/internal/audit"
	"bioprintctl/internal/biosim"
	"bioprintctl/internal/control"
	"bioprintctl/internal/latency"
	"bioprintctl/internal/logging"
	"bioprintctl/internal/metrics"
	"bioprintctl/internal/telemetry"
	"bioprintctl/internal/twin"
)

// collapseOverrideThreshold is independent of any plan's minimum viability.
// The two limits are deliberately layered safety nets; do not unify them.
const collapseOverrideThreshold = 0.82

// TelemetryEventStore persists raw samples append-only.
type TelemetryEventStore interface {
	Append(ctx context.Context, tenantID string, s telemetry.Sample) error
	Recent(ctx context.Context, tenantID string, limit int) ([]telemetry.Sample, error)
}

// CommandStore persists decided commands append-only.
type CommandStore interface {
	Append(ctx context.Context, c control.Command) error
	Recent(ctx context.Context, tenantID string, limit int) ([]control.Command, error)
}

// Processor composes the whole per-sample pipeline. It is stateless per call
// except through its injected stores and is safe to invoke concurrently for
// any mix of printers and transports.
type Processor struct {
	cache    *telemetry.SnapshotCache
	events   TelemetryEventStore
	commands CommandStore
	loop     *control.ClosedLoop
	sim      *biosim.Simulator
	twins    *twin.Service
	trail    *audit.Trail
	budget   *latency.Budget
	metrics  *metrics.Metrics
	tags     []string // compliance requirement ids stamped on decision records
	now      func() time.Time
}

// NewProcessor wires the pipeline. metrics may be nil; tags may be empty.
func NewProcessor(
	cache *telemetry.SnapshotCache,
	events TelemetryEventStore,
	commands CommandStore,
	loop *control.ClosedLoop,
	sim *biosim.Simulator,
	twins *twin.Service,
	trail *audit.Trail,
	budget *latency.Budget,
	m *metrics.Metrics,
	tags []string,
) *Processor {
	return &Processor{
		cache:    cache,
		events:   events,
		commands: commands,
		loop:     loop,
		sim:      sim,
		twins:    twins,
		trail:    trail,
		budget:   budget,
		metrics:  m,
		tags:     tags,
		now:      time.Now,
	}
}

// Process runs one sample through the full pipeline and returns the final
// command plus the updated twin state. Every side effect happens even when a
// halt is decided early: the audit trail must contain the full decision for
// catastrophic outcomes too. Store failures propagate to the caller, whose
// transport decides whether to drop, nack, or retry.
func (p *Processor) Process(ctx context.Context, tenantID string, s telemetry.Sample, source, actor string) (control.Command, twin.State, error) {
	start := p.now()
	log := logging.FromContext(ctx)

	p.cache.Update(s)
	if p.metrics != nil {
		p.metrics.SetLivePrinters(p.cache.Len())
	}

	if err := p.events.Append(ctx, tenantID, s); err != nil {
		return control.Command{}, twin.State{}, fmt.Errorf("append telemetry: %w", err)
	}

	cmd, err := p.loop.Decide(ctx, tenantID, s)
	if err != nil {
		return control.Command{}, twin.State{}, err
	}

	sim := p.sim.Simulate(s)
	if sim.PredictedViability < collapseOverrideThreshold && cmd.Action != control.ActionEmergencyHalt {
		log.Warn("simulated collapse overrides command",
			"printer_id", s.PrinterID, "predicted_viability", sim.PredictedViability, "was", cmd.Action)
		cmd.Action = control.ActionEmergencyHalt
		cmd.AdjustPressureKPa = 0
		cmd.AdjustSpeed = 0
		cmd.Reason = fmt.Sprintf("simulated collapse: predicted viability %.3f below %.2f", sim.PredictedViability, collapseOverrideThreshold)
	}

	if err := p.commands.Append(ctx, cmd); err != nil {
		return control.Command{}, twin.State{}, fmt.Errorf("append command: %w", err)
	}

	state, err := p.twins.UpdateFromTelemetry(ctx, tenantID, s, cmd, &sim)
	if err != nil {
		return control.Command{}, twin.State{}, err
	}

	if _, err := p.trail.Record(ctx, audit.Event{
		TenantID:       tenantID,
		Actor:          actor,
		Action:         "telemetry.process",
		ResourceType:   "printer",
		ResourceID:     s.PrinterID,
		Outcome:        audit.OutcomeSuccess,
		RequirementIDs: p.tags,
		Details: map[string]string{
			"source":              source,
			"command_id":          cmd.CommandID,
			"action":              string(cmd.Action),
			"shear_stress_kpa":    strconv.FormatFloat(sim.ShearStressKPa, 'f', 2, 64),
			"predicted_viability": strconv.FormatFloat(sim.PredictedViability, 'f', 4, 64),
			"collapse_risk":       strconv.FormatFloat(state.CollapseRisk, 'f', 4, 64),
		},
	}); err != nil {
		return control.Command{}, twin.State{}, err
	}

	elapsed := p.now().Sub(start)
	if p.metrics != nil {
		p.metrics.ObservePipeline(elapsed.Seconds())
		if cmd.Action == control.ActionEmergencyHalt {
			p.metrics.IncEmergencyHalt()
		}
		if float64(elapsed.Nanoseconds())/1e6 > p.budget.ThresholdMs() {
			p.metrics.IncLatencyBreach()
		}
	}
	if err := p.budget.Observe(ctx, tenantID, s.PrinterID, source, elapsed); err != nil {
		return control.Command{}, twin.State{}, err
	}

	return cmd, state, nil
}

// Snapshot returns the live sample for one printer.
func (p *Processor) Snapshot(printerID string) (telemetry.Sample, bool) {
	return p.cache.FindByPrinterID(printerID)
}

// Snapshots returns all live samples ordered by printer id.
func (p *Processor) Snapshots() []telemetry.Sample {
	return p.cache.FindAll()
}

// RecentCommands exposes the command log for presentation layers.
func (p *Processor) RecentCommands(ctx context.Context, tenantID string, limit int) ([]control.Command, error) {
	return p.commands.Recent(ctx, tenantID, limit)
}

// RecentTelemetry exposes the telemetry log for presentation layers.
func (p *Processor) RecentTelemetry(ctx context.Context, tenantID string, limit int) ([]telemetry.Sample, error) {
	return p.events.Recent(ctx, tenantID, limit)
}
