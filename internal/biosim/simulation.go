// Closed-form bio-physical extrusion model
package biosim

import (
	"math"

	"bioprintctl/internal/telemetry"
)

// Ostwald-de Waele parameters and model bounds. The constants are
// numerically sensitive; the clamps keep degenerate sensor input from
// producing non-physical stress values.
const (
	DefaultConsistencyIndex = 0.42
	DefaultFlowIndex        = 0.68
	DefaultShearSensitivity = 0.002
	DefaultResidenceTimeMs  = 400.0

	minConsistencyIndex = 0.01
	minFlowIndex        = 0.05
	maxFlowIndex        = 1.5
	maxShearStressKPa   = 2000.0

	// Below this stress the model treats extrusion as non-damaging and
	// passes viability through unchanged.
	damageThresholdKPa = 1.0
)

// Snapshot is the result of one simulation pass.
type Snapshot struct {
	ShearStressKPa     float64 `json:"shear_stress_kpa"`
	ShearRate          float64 `json:"shear_rate"`
	PredictedViability float64 `json:"predicted_viability"`
}

// Simulator evaluates shear stress and viability decay for a bio-ink
// described by a power-law fluid model.
type Simulator struct {
	consistencyIndex float64 // K
	flowIndex        float64 // n
	shearSensitivity float64
	residenceTimeMs  float64
}

// NewSimulator returns a simulator with the default ink parameters.
func NewSimulator() *Simulator {
	return NewSimulatorWithParams(DefaultConsistencyIndex, DefaultFlowIndex, DefaultShearSensitivity, DefaultResidenceTimeMs)
}

// NewSimulatorWithParams builds a simulator with explicit ink parameters,
// clamping them into their physical domain.
func NewSimulatorWithParams(k, n, sensitivity, residenceTimeMs float64) *Simulator {
	if k < minConsistencyIndex {
		k = minConsistencyIndex
	}
	if n < minFlowIndex {
		n = minFlowIndex
	} else if n > maxFlowIndex {
		n = maxFlowIndex
	}
	return &Simulator{
		consistencyIndex: k,
		flowIndex:        n,
		shearSensitivity: sensitivity,
		residenceTimeMs:  residenceTimeMs,
	}
}

// Simulate runs the closed-form model for one sample. Predicted viability is
// never greater than the measured input viability.
func (s *Simulator) Simulate(t telemetry.Sample) Snapshot {
	shearRate := math.Pow(t.PressureKPa/s.consistencyIndex, 1/s.flowIndex)
	stress := s.consistencyIndex * math.Pow(shearRate, s.flowIndex)
	if stress < 0 {
		stress = 0
	} else if stress > maxShearStressKPa {
		stress = maxShearStressKPa
	}

	viability := t.CellViability
	if stress >= damageThresholdKPa {
		survival := math.Exp(-s.shearSensitivity * stress * (s.residenceTimeMs / 1000))
		viability = t.CellViability * survival
	}
	if viability < 0 {
		viability = 0
	} else if viability > 1 {
		viability = 1
	}

	return Snapshot{
		ShearStressKPa:     stress,
		ShearRate:          shearRate,
		PredictedViability: viability,
	}
}
