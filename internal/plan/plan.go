// Print plans derived from clinical imaging, plus their control constraints
package plan

import "time"

// LayerSpec describes one ordered layer of a retinal print plan.
type LayerSpec struct {
	Name              string  `json:"name" yaml:"name"`
	ThicknessMicrons  float64 `json:"thickness_microns" yaml:"thickness_microns"`
	TargetCellDensity float64 `json:"target_cell_density" yaml:"target_cell_density"`
	ViscosityIndex    float64 `json:"viscosity_index" yaml:"viscosity_index"`
}

// Constraints holds the per-patient tolerance bounds the closed-loop
// controller enforces. These are strictly tighter than the global safety
// policy and always win when a plan is present.
type Constraints struct {
	NozzleTempTargetC    float64 `json:"nozzle_temp_target_c" yaml:"nozzle_temp_target_c"`
	NozzleTempToleranceC float64 `json:"nozzle_temp_tolerance_c" yaml:"nozzle_temp_tolerance_c"`
	PressureTargetKPa    float64 `json:"pressure_target_kpa" yaml:"pressure_target_kpa"`
	PressureToleranceKPa float64 `json:"pressure_tolerance_kpa" yaml:"pressure_tolerance_kpa"`
	MinCellViability     float64 `json:"min_cell_viability" yaml:"min_cell_viability"`
	MaxDefectProbability float64 `json:"max_defect_probability" yaml:"max_defect_probability"`
	MaxNIRTempC          float64 `json:"max_nir_temp_c" yaml:"max_nir_temp_c"`
	PHTarget             float64 `json:"ph_target" yaml:"ph_target"`
	PHTolerance          float64 `json:"ph_tolerance" yaml:"ph_tolerance"`
}

// Plan is a per-patient print plan. Created once when derived from clinical
// imaging, read-only thereafter.
type Plan struct {
	ID               string      `json:"id"`
	PatientID        string      `json:"patient_id"`
	SourceDocumentID string      `json:"source_document_id"`
	BlueprintVersion string      `json:"blueprint_version"`
	Layers           []LayerSpec `json:"layers"`
	Constraints      Constraints `json:"constraints"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Session lifecycle statuses.
const (
	SessionCreated   = "CREATED"
	SessionActive    = "ACTIVE"
	SessionPaused    = "PAUSED"
	SessionCompleted = "COMPLETED"
	SessionAborted   = "ABORTED"
)

// Session links a printer to a plan for the duration of one print job. At
// most one session per printer per tenant is ACTIVE at any time.
type Session struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	PrinterID string    `json:"printer_id"`
	PlanID    string    `json:"plan_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
