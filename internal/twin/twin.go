// Digital twin risk model: one derived risk snapshot per physical printer
package twin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bioprintctl/internal/biosim"
	"bioprintctl/internal/control"
	"bioprintctl/internal/telemetry"
)

// ErrNotFound is returned when a printer has no twin state yet.
var ErrNotFound = errors.New("twin state not found")

// State is the risk snapshot for one printer. Upserted on every sample, one
// row per (tenant, printer); history lives in the event log, not here.
type State struct {
	TenantID             string         `json:"tenant_id"`
	PrinterID            string         `json:"printer_id"`
	CurrentViability     float64        `json:"current_viability"`
	PredictedViability5m float64        `json:"predicted_viability_5m"`
	CollapseRisk         float64        `json:"collapse_risk"`
	RecommendedAction    control.Action `json:"recommended_action"`
	Confidence           float64        `json:"confidence"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Store persists twin states keyed by (tenant, printer).
type Store interface {
	Upsert(ctx context.Context, s State) error
	FindByPrinterID(ctx context.Context, tenantID, printerID string) (State, error)
	FindAll(ctx context.Context, tenantID string) ([]State, error)
}

// Reference operating points and penalty scales for the risk model.
const (
	refNozzleTempC   = 37.0
	refPressureKPa   = 110.0
	refPH            = 7.35
	refViscosity     = 0.8
	nirOnsetC        = 37.0
	tempScale        = 20.0
	pressureScale    = 180.0
	phScale          = 1.2
	nirScale         = 5.0
	viscosityScale   = 0.8
	shearScale       = 450.0
	emergencyPenalty = 0.25

	minConfidence = 0.2
	maxConfidence = 0.99
)

// Fixed collapse-risk weights.
const (
	wViability     = 0.34
	wPhysViability = 0.10
	wTemp          = 0.12
	wPressure      = 0.08
	wMorphology    = 0.15
	wPH            = 0.08
	wNIR           = 0.08
	wViscosity     = 0.05
	wShear         = 0.07

	riskViabilityDrag = 0.16
)

// Service derives and persists twin states.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wires a twin service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// UpdateFromTelemetry computes the risk snapshot for one sample and upserts
// it. sim may be nil when no physics pass ran; the measured viability then
// stands in for the physics prediction and shear contributes nothing.
func (s *Service) UpdateFromTelemetry(ctx context.Context, tenantID string, t telemetry.Sample, cmd control.Command, sim *biosim.Snapshot) (State, error) {
	physViability := t.CellViability
	shearStress := 0.0
	if sim != nil {
		physViability = sim.PredictedViability
		shearStress = sim.ShearStressKPa
	}

	tempPenalty := clamp01(math.Abs(t.NozzleTempC-refNozzleTempC) / tempScale)
	pressurePenalty := clamp01(math.Abs(t.PressureKPa-refPressureKPa) / pressureScale)
	morphologyPenalty := clamp01(t.DefectProbability)
	phPenalty := clamp01(math.Abs(t.PH-refPH) / phScale)
	nirPenalty := clamp01(math.Max(0, t.NIRTempC-nirOnsetC) / nirScale)
	viscosityPenalty := clamp01(math.Abs(t.ViscosityIndex-refViscosity) / viscosityScale)
	shearPenalty := clamp01(shearStress / shearScale)

	emergency := 0.0
	if cmd.Action == control.ActionEmergencyHalt {
		emergency = emergencyPenalty
	}

	risk := wViability*(1-t.CellViability) +
		wPhysViability*(1-physViability) +
		wTemp*tempPenalty +
		wPressure*pressurePenalty +
		wMorphology*morphologyPenalty +
		wPH*phPenalty +
		wNIR*nirPenalty +
		wViscosity*viscosityPenalty +
		wShear*shearPenalty +
		emergency
	risk = clamp01(risk)

	predicted := clamp01((physViability+t.CellViability)/2 - riskViabilityDrag*risk)

	// Confidence degrades with how far the printer sits from its nominal
	// operating point; it is never allowed to claim certainty.
	meanPenalty := (tempPenalty + pressurePenalty + morphologyPenalty + phPenalty + nirPenalty + viscosityPenalty + shearPenalty) / 7
	confidence := 1 - meanPenalty
	if confidence < minConfidence {
		confidence = minConfidence
	} else if confidence > maxConfidence {
		confidence = maxConfidence
	}

	state := State{
		TenantID:             tenantID,
		PrinterID:            t.PrinterID,
		CurrentViability:     t.CellViability,
		PredictedViability5m: predicted,
		CollapseRisk:         risk,
		RecommendedAction:    cmd.Action,
		Confidence:           confidence,
		UpdatedAt:            s.now().UTC(),
	}
	if err := s.store.Upsert(ctx, state); err != nil {
		return State{}, fmt.Errorf("upsert twin state: %w", err)
	}
	return state, nil
}

// FindByPrinterID exposes the stored snapshot for presentation layers.
func (s *Service) FindByPrinterID(ctx context.Context, tenantID, printerID string) (State, error) {
	return s.store.FindByPrinterID(ctx, tenantID, printerID)
}

// FindAll exposes all snapshots for a tenant.
func (s *Service) FindAll(ctx context.Context, tenantID string) ([]State, error) {
	return s.store.FindAll(ctx, tenantID)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
