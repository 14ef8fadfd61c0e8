package control

import (
	"fmt"
	"strings"

	"bioprintctl/internal/telemetry"
)

// Global safety thresholds. These are device-agnostic hard limits; plans
// carry tighter per-patient bounds on top of them.
const (
	MinCellViability     = 0.85
	MinNozzleTempC       = 20.0
	MaxNozzleTempC       = 42.0
	MinPressureKPa       = 30.0
	MaxPressureKPa       = 220.0
	MaxDefectProbability = 0.30
	MinPH                = 6.8
	MaxPH                = 7.8

	lowPressureKPa  = 90.0
	highPressureKPa = 140.0
	pressureStepKPa = 6.0
	lowNozzleTempC  = 34.0
	highNozzleTempC = 39.0
	speedStep       = 0.08
)

// EvaluateSafety maps one sample to a baseline command. It is a pure, total
// function: no error path, no I/O. Decision order is halt, adjust, maintain;
// the first match wins.
func EvaluateSafety(s telemetry.Sample) Command {
	if reasons := hardViolations(s); len(reasons) > 0 {
		return Command{
			PrinterID: s.PrinterID,
			Action:    ActionEmergencyHalt,
			Reason:    "safety threshold violated: " + strings.Join(reasons, "; "),
		}
	}

	var pressureDelta, speedDelta float64
	switch {
	case s.PressureKPa < lowPressureKPa:
		pressureDelta = pressureStepKPa
	case s.PressureKPa > highPressureKPa:
		pressureDelta = -pressureStepKPa
	}
	switch {
	case s.NozzleTempC < lowNozzleTempC:
		speedDelta = -speedStep
	case s.NozzleTempC > highNozzleTempC:
		speedDelta = speedStep
	}
	if pressureDelta != 0 || speedDelta != 0 {
		return Command{
			PrinterID:         s.PrinterID,
			Action:            ActionAdjust,
			AdjustPressureKPa: pressureDelta,
			AdjustSpeed:       speedDelta,
			Reason:            fmt.Sprintf("nudging toward nominal band: pressure %+.1f kPa, speed %+.2f", pressureDelta, speedDelta),
		}
	}

	return Command{
		PrinterID: s.PrinterID,
		Action:    ActionMaintain,
		Reason:    "all readings within nominal band",
	}
}

func hardViolations(s telemetry.Sample) []string {
	var reasons []string
	if s.CellViability < MinCellViability {
		reasons = append(reasons, fmt.Sprintf("cell viability %.2f below %.2f", s.CellViability, MinCellViability))
	}
	if s.NozzleTempC < MinNozzleTempC || s.NozzleTempC > MaxNozzleTempC {
		reasons = append(reasons, fmt.Sprintf("nozzle temperature %.1f°C outside [%.0f, %.0f]", s.NozzleTempC, MinNozzleTempC, MaxNozzleTempC))
	}
	if s.PressureKPa < MinPressureKPa || s.PressureKPa > MaxPressureKPa {
		reasons = append(reasons, fmt.Sprintf("extrusion pressure %.1f kPa outside [%.0f, %.0f]", s.PressureKPa, MinPressureKPa, MaxPressureKPa))
	}
	if s.DefectProbability > MaxDefectProbability {
		reasons = append(reasons, fmt.Sprintf("defect probability %.2f above %.2f", s.DefectProbability, MaxDefectProbability))
	}
	if s.PH < MinPH || s.PH > MaxPH {
		reasons = append(reasons, fmt.Sprintf("bio-ink pH %.2f outside [%.1f, %.1f]", s.PH, MinPH, MaxPH))
	}
	return reasons
}
