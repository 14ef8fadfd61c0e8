package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"bioprintctl/internal/audit"
	"bioprintctl/internal/biosim"
	"bioprintctl/internal/config"
	"bioprintctl/internal/control"
	"bioprintctl/internal/latency"
	"bioprintctl/internal/logging"
	"bioprintctl/internal/metrics"
	"bioprintctl/internal/pipeline"
	"bioprintctl/internal/plan"
	"bioprintctl/internal/store"
	"bioprintctl/internal/telemetry"
	"bioprintctl/internal/twin"
)

// app bundles the wired control plane for the CLI entry points.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	trail    *audit.Trail
	twins    *twin.Service
	proc     *pipeline.Processor
}

// buildApp wires stores and services from config. Stores default to memory;
// GreptimeDB and Postgres back the telemetry log and audit chain when
// configured.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logging.FromContext(ctx)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var events pipeline.TelemetryEventStore = store.NewMemoryTelemetryStore()
	if cfg.GreptimeDBEndpoint != "" {
		gs, err := store.NewGreptimeTelemetryStore(cfg.GreptimeDBEndpoint, cfg.GreptimeDBDatabase)
		if err != nil {
			return nil, fmt.Errorf("init greptime store: %w", err)
		}
		events = gs
		log.Info("telemetry log backed by GreptimeDB", "endpoint", cfg.GreptimeDBEndpoint)
	}

	var auditStore audit.Store = store.NewMemoryAuditStore()
	if cfg.PostgresDSN != "" {
		ps, err := store.OpenPostgresAuditStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres audit store: %w", err)
		}
		auditStore = ps
		log.Info("audit chain backed by Postgres")
	}

	plans := store.NewMemoryPlanStore()
	sessions := store.NewMemorySessionStore()
	lifecycle := plan.NewService(plans, sessions)

	trail := audit.NewTrail(auditStore, cfg.TenantID, m)
	twins := twin.NewService(store.NewMemoryTwinStore())
	budget := latency.NewBudget(store.NewMemoryBreachStore(), trail, cfg.LatencyBudgetMs)
	loop := control.NewClosedLoop(sessions, plans)

	proc := pipeline.NewProcessor(
		telemetry.NewSnapshotCache(),
		events,
		store.NewMemoryCommandStore(),
		loop,
		biosim.NewSimulator(),
		twins,
		trail,
		budget,
		m,
		cfg.ComplianceTags,
	)

	if err := seed(ctx, cfg, lifecycle); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, registry: registry, trail: trail, twins: twins, proc: proc}, nil
}

// seed registers configured plans and sessions so the closed-loop controller
// has constraints to enforce from the first sample.
func seed(ctx context.Context, cfg *config.Config, lifecycle *plan.Service) error {
	log := logging.FromContext(ctx)
	for _, sp := range cfg.Plans {
		p := plan.Plan{
			ID:               sp.ID,
			PatientID:        sp.PatientID,
			BlueprintVersion: sp.BlueprintVersion,
			Layers:           sp.Layers,
			Constraints:      sp.Constraints,
		}
		if _, err := lifecycle.CreatePlan(ctx, p); err != nil {
			return fmt.Errorf("seed plan %s: %w", sp.ID, err)
		}
		log.Info("seeded plan", "plan_id", sp.ID)
	}
	for _, ss := range cfg.Sessions {
		sess, err := lifecycle.CreateSession(ctx, cfg.TenantID, ss.PrinterID, ss.PlanID)
		if err != nil {
			return fmt.Errorf("seed session for %s: %w", ss.PrinterID, err)
		}
		if ss.Activate {
			if _, err := lifecycle.ActivateSession(ctx, cfg.TenantID, sess.ID); err != nil {
				return fmt.Errorf("activate seeded session for %s: %w", ss.PrinterID, err)
			}
		}
		log.Info("seeded session", "session_id", sess.ID, "printer_id", ss.PrinterID, "active", ss.Activate)
	}
	return nil
}
