// Latency budget watchdog for the per-sample pipeline
package latency

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bioprintctl/internal/audit"
	"bioprintctl/internal/logging"
)

// BreachEvent records one pipeline pass that exceeded the configured budget.
type BreachEvent struct {
	TenantID    string    `json:"tenant_id"`
	PrinterID   string    `json:"printer_id"`
	Source      string    `json:"source"`
	DurationMs  float64   `json:"duration_ms"`
	ThresholdMs float64   `json:"threshold_ms"`
	Timestamp   time.Time `json:"ts"`
}

// BreachStore persists breach events append-only.
type BreachStore interface {
	Append(ctx context.Context, e BreachEvent) error
}

// AuditRecorder is the slice of the audit trail the watchdog needs.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Event) (audit.Event, error)
}

// Budget watches processing duration. A breach is reported, never corrected:
// it persists an event and writes a warning-outcome audit entry, but does
// not block or retry.
type Budget struct {
	store       BreachStore
	trail       AuditRecorder
	thresholdMs float64
	now         func() time.Time
}

// NewBudget wires a watchdog with a millisecond threshold.
func NewBudget(store BreachStore, trail AuditRecorder, thresholdMs float64) *Budget {
	return &Budget{store: store, trail: trail, thresholdMs: thresholdMs, now: time.Now}
}

// ThresholdMs returns the configured budget in milliseconds.
func (b *Budget) ThresholdMs() float64 {
	return b.thresholdMs
}

// Observe checks one measured duration against the budget. Within budget it
// does nothing.
func (b *Budget) Observe(ctx context.Context, tenantID, printerID, source string, elapsed time.Duration) error {
	ms := float64(elapsed.Nanoseconds()) / 1e6
	if ms <= b.thresholdMs {
		return nil
	}

	logging.FromContext(ctx).Warn("latency budget exceeded",
		"printer_id", printerID, "source", source, "duration_ms", ms, "threshold_ms", b.thresholdMs)

	breach := BreachEvent{
		TenantID:    tenantID,
		PrinterID:   printerID,
		Source:      source,
		DurationMs:  ms,
		ThresholdMs: b.thresholdMs,
		Timestamp:   b.now().UTC(),
	}
	if err := b.store.Append(ctx, breach); err != nil {
		return fmt.Errorf("append latency breach: %w", err)
	}

	_, err := b.trail.Record(ctx, audit.Event{
		TenantID:     tenantID,
		Actor:        "latency-budget",
		Action:       "latency.breach",
		ResourceType: "printer",
		ResourceID:   printerID,
		Outcome:      audit.OutcomeWarning,
		Details: map[string]string{
			"source":       source,
			"duration_ms":  strconv.FormatFloat(ms, 'f', 3, 64),
			"threshold_ms": strconv.FormatFloat(b.thresholdMs, 'f', 0, 64),
		},
	})
	if err != nil {
		return fmt.Errorf("record latency breach: %w", err)
	}
	return nil
}
