package control

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bioprintctl/internal/logging"
	"bioprintctl/internal/plan"
	"bioprintctl/internal/telemetry"
)

// Plan-relative correction limits.
const (
	maxPlanPressureDeltaKPa = 12.0
	planSpeedStep           = 0.10
)

// SessionLookup resolves the active session for a printer, if any.
type SessionLookup interface {
	FindActiveByPrinterID(ctx context.Context, tenantID, printerID string) (plan.Session, error)
}

// PlanLookup resolves a print plan by id.
type PlanLookup interface {
	FindByPlanID(ctx context.Context, planID string) (plan.Plan, error)
}

// ClosedLoop refines the baseline safety command with plan-specific
// constraints when the printer is running a session.
type ClosedLoop struct {
	sessions SessionLookup
	plans    PlanLookup
	now      func() time.Time
}

// NewClosedLoop wires a closed-loop controller over the given lookups.
func NewClosedLoop(sessions SessionLookup, plans PlanLookup) *ClosedLoop {
	return &ClosedLoop{sessions: sessions, plans: plans, now: time.Now}
}

// Decide returns the command for one sample. Plan constraints are strictly
// more conservative than the global safety policy: when present they are
// checked even if the baseline said MAINTAIN, and a plan-level violation
// overrides whatever the baseline decided.
func (c *ClosedLoop) Decide(ctx context.Context, tenantID string, s telemetry.Sample) (Command, error) {
	base := EvaluateSafety(s)

	sess, err := c.sessions.FindActiveByPrinterID(ctx, tenantID, s.PrinterID)
	if errors.Is(err, plan.ErrNotFound) {
		return stamp(base, tenantID, c.now()), nil
	}
	if err != nil {
		return Command{}, fmt.Errorf("lookup active session for %s: %w", s.PrinterID, err)
	}

	p, err := c.plans.FindByPlanID(ctx, sess.PlanID)
	if errors.Is(err, plan.ErrNotFound) {
		logging.FromContext(ctx).Warn("active session has no plan", "session_id", sess.ID, "plan_id", sess.PlanID)
		base.Reason = fmt.Sprintf("no plan for session %s; %s", sess.ID, base.Reason)
		return stamp(base, tenantID, c.now()), nil
	}
	if err != nil {
		return Command{}, fmt.Errorf("lookup plan %s: %w", sess.PlanID, err)
	}

	if reason, violated := planViolation(p.Constraints, s); violated {
		halt := Command{
			PrinterID: s.PrinterID,
			Action:    ActionEmergencyHalt,
			Reason:    fmt.Sprintf("plan constraint violated in session %s: %s", sess.ID, reason),
		}
		return stamp(halt, tenantID, c.now()), nil
	}

	pressureDelta, speedDelta := planCorrections(p.Constraints, s)
	if pressureDelta != 0 || speedDelta != 0 {
		adj := Command{
			PrinterID:         s.PrinterID,
			Action:            ActionAdjust,
			AdjustPressureKPa: pressureDelta,
			AdjustSpeed:       speedDelta,
			Reason:            fmt.Sprintf("correcting toward plan %s targets in session %s", p.ID, sess.ID),
		}
		return stamp(adj, tenantID, c.now()), nil
	}

	base.Reason = fmt.Sprintf("constraints satisfied for session %s; %s", sess.ID, base.Reason)
	return stamp(base, tenantID, c.now()), nil
}

func planViolation(c plan.Constraints, s telemetry.Sample) (string, bool) {
	switch {
	case s.CellViability < c.MinCellViability:
		return fmt.Sprintf("viability %.2f below plan minimum %.2f", s.CellViability, c.MinCellViability), true
	case s.DefectProbability > c.MaxDefectProbability:
		return fmt.Sprintf("defect probability %.2f above plan maximum %.2f", s.DefectProbability, c.MaxDefectProbability), true
	case s.NIRTempC > c.MaxNIRTempC:
		return fmt.Sprintf("NIR-II temperature %.1f°C above plan maximum %.1f°C", s.NIRTempC, c.MaxNIRTempC), true
	case math.Abs(s.PH-c.PHTarget) > c.PHTolerance:
		return fmt.Sprintf("pH %.2f outside plan band %.2f±%.2f", s.PH, c.PHTarget, c.PHTolerance), true
	}
	return "", false
}

// planCorrections computes plan-relative deltas. The raw pressure delta is
// target minus measured; it is applied only when it exceeds the plan
// tolerance and is clamped to ±12 kPa. The speed nudge counteracts a nozzle
// temperature deviation beyond tolerance: too hot speeds up, too cold slows
// down, matching the baseline policy's sign convention.
func planCorrections(c plan.Constraints, s telemetry.Sample) (pressureDelta, speedDelta float64) {
	raw := c.PressureTargetKPa - s.PressureKPa
	if math.Abs(raw) > c.PressureToleranceKPa {
		pressureDelta = math.Max(-maxPlanPressureDeltaKPa, math.Min(maxPlanPressureDeltaKPa, raw))
	}
	if math.Abs(c.NozzleTempTargetC-s.NozzleTempC) > c.NozzleTempToleranceC {
		if s.NozzleTempC > c.NozzleTempTargetC {
			speedDelta = planSpeedStep
		} else {
			speedDelta = -planSpeedStep
		}
	}
	return pressureDelta, speedDelta
}
