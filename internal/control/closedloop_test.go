package control

import (
	"context"
	"strings"
	"testing"

	"bioprintctl/internal/plan"
)

type fakeSessions struct {
	sessions map[string]plan.Session // keyed by printer id
}

func (f *fakeSessions) FindActiveByPrinterID(_ context.Context, _, printerID string) (plan.Session, error) {
	s, ok := f.sessions[printerID]
	if !ok {
		return plan.Session{}, plan.ErrNotFound
	}
	return s, nil
}

type fakePlans struct {
	plans map[string]plan.Plan
}

func (f *fakePlans) FindByPlanID(_ context.Context, planID string) (plan.Plan, error) {
	p, ok := f.plans[planID]
	if !ok {
		return plan.Plan{}, plan.ErrNotFound
	}
	return p, nil
}

func retinalConstraints() plan.Constraints {
	return plan.Constraints{
		NozzleTempTargetC:    36.5,
		NozzleTempToleranceC: 1.5,
		PressureTargetKPa:    115,
		PressureToleranceKPa: 8,
		MinCellViability:     0.90,
		MaxDefectProbability: 0.12,
		MaxNIRTempC:          38.5,
		PHTarget:             7.35,
		PHTolerance:          0.25,
	}
}

func newLoop(sessions map[string]plan.Session, plans map[string]plan.Plan) *ClosedLoop {
	return NewClosedLoop(&fakeSessions{sessions: sessions}, &fakePlans{plans: plans})
}

func TestDecideNoSessionFallsBackToBaseline(t *testing.T) {
	loop := newLoop(nil, nil)
	cmd, err := loop.Decide(context.Background(), "t1", healthySample())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionMaintain {
		t.Fatalf("expected MAINTAIN, got %s", cmd.Action)
	}
	if cmd.TenantID != "t1" {
		t.Errorf("expected tenant t1, got %q", cmd.TenantID)
	}
	if cmd.CommandID == "" || cmd.CreatedAt.IsZero() {
		t.Errorf("command must be stamped with id and timestamp, got %+v", cmd)
	}
}

func TestDecideSessionWithoutPlanAnnotates(t *testing.T) {
	loop := newLoop(map[string]plan.Session{
		"p1": {ID: "sess-1", PrinterID: "p1", PlanID: "gone", Status: plan.SessionActive},
	}, nil)
	cmd, err := loop.Decide(context.Background(), "t1", healthySample())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionMaintain {
		t.Fatalf("expected baseline MAINTAIN, got %s", cmd.Action)
	}
	if !strings.HasPrefix(cmd.Reason, "no plan for session sess-1") {
		t.Errorf("reason should note the missing plan, got %q", cmd.Reason)
	}
}

func TestDecidePlanViolationOverridesBaseline(t *testing.T) {
	// Baseline MAINTAIN: defect 0.20 is below the global 0.30 halt threshold.
	// The plan's 0.12 maximum is stricter and must force a halt.
	loop := newLoop(map[string]plan.Session{
		"p1": {ID: "sess-1", PrinterID: "p1", PlanID: "plan-1", Status: plan.SessionActive},
	}, map[string]plan.Plan{
		"plan-1": {ID: "plan-1", Constraints: retinalConstraints()},
	})

	s := healthySample()
	s.DefectProbability = 0.20
	if base := EvaluateSafety(s); base.Action != ActionMaintain {
		t.Fatalf("precondition: baseline should MAINTAIN, got %s", base.Action)
	}

	cmd, err := loop.Decide(context.Background(), "t1", s)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionEmergencyHalt {
		t.Fatalf("expected plan-driven EMERGENCY_HALT, got %s (%s)", cmd.Action, cmd.Reason)
	}
	if !strings.Contains(cmd.Reason, "sess-1") {
		t.Errorf("halt reason should reference the session, got %q", cmd.Reason)
	}
}

func TestDecidePlanCorrectionClampsPressure(t *testing.T) {
	c := retinalConstraints()
	c.PressureTargetKPa = 150
	c.PressureToleranceKPa = 5
	loop := newLoop(map[string]plan.Session{
		"p1": {ID: "sess-1", PrinterID: "p1", PlanID: "plan-1", Status: plan.SessionActive},
	}, map[string]plan.Plan{
		"plan-1": {ID: "plan-1", Constraints: c},
	})

	s := healthySample() // pressure 110, 40 kPa under target
	cmd, err := loop.Decide(context.Background(), "t1", s)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionAdjust {
		t.Fatalf("expected ADJUST, got %s (%s)", cmd.Action, cmd.Reason)
	}
	if cmd.AdjustPressureKPa != 12 {
		t.Errorf("pressure delta should clamp at 12, got %f", cmd.AdjustPressureKPa)
	}
	if cmd.AdjustSpeed != 0 {
		t.Errorf("temperature is on target, speed delta should be 0, got %f", cmd.AdjustSpeed)
	}
}

func TestDecidePlanCorrectionSpeedSigns(t *testing.T) {
	loop := newLoop(map[string]plan.Session{
		"p1": {ID: "sess-1", PrinterID: "p1", PlanID: "plan-1", Status: plan.SessionActive},
	}, map[string]plan.Plan{
		"plan-1": {ID: "plan-1", Constraints: retinalConstraints()},
	})

	hot := healthySample()
	hot.NozzleTempC = 38.2 // 1.7 above target, beyond 1.5 tolerance
	cmd, err := loop.Decide(context.Background(), "t1", hot)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionAdjust || cmd.AdjustSpeed != planSpeedStep {
		t.Errorf("hot nozzle should speed up by %v, got %s speed=%f", planSpeedStep, cmd.Action, cmd.AdjustSpeed)
	}

	cold := healthySample()
	cold.NozzleTempC = 34.8
	cmd, err = loop.Decide(context.Background(), "t1", cold)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionAdjust || cmd.AdjustSpeed != -planSpeedStep {
		t.Errorf("cold nozzle should slow down by %v, got %s speed=%f", planSpeedStep, cmd.Action, cmd.AdjustSpeed)
	}
}

func TestDecideWithinToleranceAnnotatesBaseline(t *testing.T) {
	loop := newLoop(map[string]plan.Session{
		"p1": {ID: "sess-1", PrinterID: "p1", PlanID: "plan-1", Status: plan.SessionActive},
	}, map[string]plan.Plan{
		"plan-1": {ID: "plan-1", Constraints: retinalConstraints()},
	})

	cmd, err := loop.Decide(context.Background(), "t1", healthySample())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionMaintain {
		t.Fatalf("expected MAINTAIN, got %s", cmd.Action)
	}
	if !strings.HasPrefix(cmd.Reason, "constraints satisfied for session sess-1") {
		t.Errorf("reason should note plan compliance, got %q", cmd.Reason)
	}
}

func TestDecidePressureWithinToleranceNotCorrected(t *testing.T) {
	loop := newLoop(map[string]plan.Session{
		"p1": {ID: "sess-1", PrinterID: "p1", PlanID: "plan-1", Status: plan.SessionActive},
	}, map[string]plan.Plan{
		"plan-1": {ID: "plan-1", Constraints: retinalConstraints()},
	})

	s := healthySample()
	s.PressureKPa = 109 // 6 under target, inside ±8 tolerance
	cmd, err := loop.Decide(context.Background(), "t1", s)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if cmd.Action != ActionMaintain {
		t.Errorf("deviation inside tolerance must not trigger a correction, got %s (%+v)", cmd.Action, cmd)
	}
}
