// Telemetry structs shared across the control plane
package telemetry

import (
	"os"
	"time"
)

// Sample is one validated sensor reading from a bioprinter mid-job. Samples
// are immutable once constructed; the ingestion adapter builds them, the
// pipeline consumes each exactly once.
type Sample struct {
	PrinterID         string    `json:"printer_id"`  // TAG
	NozzleTempC       float64   `json:"nozzle_temp_c"`
	PressureKPa       float64   `json:"pressure_kpa"`
	CellViability     float64   `json:"cell_viability"`     // 0..1
	ViscosityIndex    float64   `json:"viscosity_index"`
	PH                float64   `json:"ph"`
	NIRTempC          float64   `json:"nir_temp_c"`
	DefectProbability float64   `json:"defect_probability"` // 0..1
	PrintJobID        string    `json:"print_job_id"`
	TissueType        string    `json:"tissue_type"`
	EncryptedImage    []byte    `json:"encrypted_image,omitempty"` // opaque, never decoded here
	Timestamp         time.Time `json:"ts"`                        // TIME INDEX
}

// SampleTableName holds the table name used when writing samples to
// GreptimeDB. It defaults to "printer_telemetry" but can be overridden via
// the GREPTIMEDB_TABLE environment variable.
var SampleTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "printer_telemetry"
}()

func (Sample) TableName() string {
	return SampleTableName
}

// Printer models one physical print head known to the fleet. Runtime state
// lives in the digital twin; this is identity plus coarse status.
type Printer struct {
	ID        string
	Model     string
	Status    string
	LastSeen  time.Time
}

// Printer status constants.
const (
	StatusIdle     = "idle"
	StatusPrinting = "printing"
	StatusHalted   = "halted"
)
