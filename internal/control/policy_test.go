package control

import (
	"testing"

	"bioprintctl/internal/telemetry"
)

// healthySample sits well inside every nominal band.
func healthySample() telemetry.Sample {
	return telemetry.Sample{
		PrinterID:         "p1",
		NozzleTempC:       36.8,
		PressureKPa:       110,
		CellViability:     0.95,
		ViscosityIndex:    0.8,
		PH:                7.35,
		NIRTempC:          37.2,
		DefectProbability: 0.02,
	}
}

func TestEvaluateSafetyMaintain(t *testing.T) {
	cmd := EvaluateSafety(healthySample())
	if cmd.Action != ActionMaintain {
		t.Fatalf("expected MAINTAIN, got %s (%s)", cmd.Action, cmd.Reason)
	}
	if cmd.AdjustPressureKPa != 0 || cmd.AdjustSpeed != 0 {
		t.Errorf("maintain command must carry zero deltas, got %+v", cmd)
	}
	if cmd.PrinterID != "p1" {
		t.Errorf("expected printer id p1, got %s", cmd.PrinterID)
	}
}

func TestEvaluateSafetyEmergencyHalt(t *testing.T) {
	cases := map[string]func(*telemetry.Sample){
		"low viability":      func(s *telemetry.Sample) { s.CellViability = 0.84 },
		"nozzle too cold":    func(s *telemetry.Sample) { s.NozzleTempC = 19.9 },
		"nozzle too hot":     func(s *telemetry.Sample) { s.NozzleTempC = 42.1 },
		"pressure too low":   func(s *telemetry.Sample) { s.PressureKPa = 29 },
		"pressure too high":  func(s *telemetry.Sample) { s.PressureKPa = 221 },
		"defect probability": func(s *telemetry.Sample) { s.DefectProbability = 0.31 },
		"acidic ink":         func(s *telemetry.Sample) { s.PH = 6.7 },
		"alkaline ink":       func(s *telemetry.Sample) { s.PH = 7.9 },
	}
	for name, mutate := range cases {
		s := healthySample()
		mutate(&s)
		cmd := EvaluateSafety(s)
		if cmd.Action != ActionEmergencyHalt {
			t.Errorf("%s: expected EMERGENCY_HALT, got %s (%s)", name, cmd.Action, cmd.Reason)
		}
	}
}

func TestEvaluateSafetyHaltWinsOverAdjust(t *testing.T) {
	// Pressure both below the adjust band and below the hard floor.
	s := healthySample()
	s.PressureKPa = 25
	cmd := EvaluateSafety(s)
	if cmd.Action != ActionEmergencyHalt {
		t.Fatalf("halt must win over adjust, got %s", cmd.Action)
	}
}

func TestEvaluateSafetyAdjust(t *testing.T) {
	cases := []struct {
		name         string
		mutate       func(*telemetry.Sample)
		wantPressure float64
		wantSpeed    float64
	}{
		{"low pressure", func(s *telemetry.Sample) { s.PressureKPa = 85 }, 6, 0},
		{"high pressure", func(s *telemetry.Sample) { s.PressureKPa = 145 }, -6, 0},
		{"cold nozzle", func(s *telemetry.Sample) { s.NozzleTempC = 33 }, 0, -0.08},
		{"hot nozzle", func(s *telemetry.Sample) { s.NozzleTempC = 40 }, 0, 0.08},
		{"low pressure and cold nozzle", func(s *telemetry.Sample) {
			s.PressureKPa = 85
			s.NozzleTempC = 33
		}, 6, -0.08},
	}
	for _, tc := range cases {
		s := healthySample()
		tc.mutate(&s)
		cmd := EvaluateSafety(s)
		if cmd.Action != ActionAdjust {
			t.Errorf("%s: expected ADJUST, got %s (%s)", tc.name, cmd.Action, cmd.Reason)
			continue
		}
		if cmd.AdjustPressureKPa != tc.wantPressure {
			t.Errorf("%s: pressure delta got %f, want %f", tc.name, cmd.AdjustPressureKPa, tc.wantPressure)
		}
		if cmd.AdjustSpeed != tc.wantSpeed {
			t.Errorf("%s: speed delta got %f, want %f", tc.name, cmd.AdjustSpeed, tc.wantSpeed)
		}
	}
}

func TestEvaluateSafetyBandEdges(t *testing.T) {
	// Exactly on the adjust band edges no nudge fires.
	s := healthySample()
	s.PressureKPa = 90
	if cmd := EvaluateSafety(s); cmd.Action != ActionMaintain {
		t.Errorf("pressure 90 is inside the band, got %s", cmd.Action)
	}
	s = healthySample()
	s.PressureKPa = 140
	if cmd := EvaluateSafety(s); cmd.Action != ActionMaintain {
		t.Errorf("pressure 140 is inside the band, got %s", cmd.Action)
	}
	s = healthySample()
	s.NozzleTempC = 34
	if cmd := EvaluateSafety(s); cmd.Action != ActionMaintain {
		t.Errorf("temp 34 is inside the band, got %s", cmd.Action)
	}
}
