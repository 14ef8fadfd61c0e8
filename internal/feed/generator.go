// Synthetic printer telemetry for the feed harness
package feed

import (
	"math/rand"
	"time"

	"bioprintctl/internal/config"
	"bioprintctl/internal/telemetry"
)

// Nominal operating point new virtual printers start from.
const (
	nominalPressureKPa = 110.0
	nominalTempC       = 36.8
	nominalViability   = 0.97
	nominalPH          = 7.35
	nominalViscosity   = 0.80
	nominalNIRTempC    = 37.0
)

// PrinterState holds runtime state for one virtual printer.
type PrinterState struct {
	ID        string
	Model     string
	JobID     string
	Pressure  float64
	TempC     float64
	Viability float64
	PH        float64
	Viscosity float64
	NIRTempC  float64
	Behavior  config.Behavior
}

// NewPrinterState starts a printer at the nominal operating point.
func NewPrinterState(id, model, jobID string, b config.Behavior) *PrinterState {
	return &PrinterState{
		ID:        id,
		Model:     model,
		JobID:     jobID,
		Pressure:  nominalPressureKPa,
		TempC:     nominalTempC,
		Viability: nominalViability,
		PH:        nominalPH,
		Viscosity: nominalViscosity,
		NIRTempC:  nominalNIRTempC,
		Behavior:  b,
	}
}

// Generator drifts virtual printers and emits samples.
type Generator struct {
	rand *rand.Rand
	now  func() time.Time
}

// NewGenerator creates a generator with its own rand source.
func NewGenerator(seed int64) *Generator {
	return &Generator{rand: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Next advances a printer's drift state and returns its sample. ok is false
// when the reading dropped out this tick.
func (g *Generator) Next(p *PrinterState) (telemetry.Sample, bool) {
	b := p.Behavior

	p.Pressure += g.rand.NormFloat64() * b.PressureDriftKPa
	p.TempC += g.rand.NormFloat64() * b.TempWanderC
	p.Viability -= b.ViabilityDecay * (1 + g.rand.Float64())
	p.PH += g.rand.NormFloat64() * 0.01
	p.Viscosity += g.rand.NormFloat64() * 0.005
	p.NIRTempC = p.TempC + 0.3 + g.rand.NormFloat64()*0.2

	p.Pressure = clampRange(p.Pressure, 0, 400)
	p.TempC = clampRange(p.TempC, 10, 60)
	p.Viability = clampRange(p.Viability, 0, 1)
	p.PH = clampRange(p.PH, 5.5, 9.0)
	p.Viscosity = clampRange(p.Viscosity, 0.1, 2.0)

	defect := 0.01 + g.rand.Float64()*0.02
	if g.rand.Float64() < b.DefectSpikeRate {
		defect = 0.2 + g.rand.Float64()*0.3
	}

	if g.rand.Float64() < b.DropoutRate {
		return telemetry.Sample{}, false
	}

	return telemetry.Sample{
		PrinterID:         p.ID,
		NozzleTempC:       p.TempC,
		PressureKPa:       p.Pressure,
		CellViability:     p.Viability,
		ViscosityIndex:    p.Viscosity,
		PH:                p.PH,
		NIRTempC:          p.NIRTempC,
		DefectProbability: defect,
		PrintJobID:        p.JobID,
		TissueType:        "retinal",
		Timestamp:         g.now().UTC(),
	}, true
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
