// Control commands emitted by the decision pipeline
package control

import (
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of things the control plane can tell a printer
// to do. There is no representable "undecided" state.
type Action string

const (
	ActionMaintain      Action = "MAINTAIN"
	ActionAdjust        Action = "ADJUST"
	ActionEmergencyHalt Action = "EMERGENCY_HALT"
)

// Command is the pipeline's output for one telemetry sample. Created fresh
// per decision, never mutated, persisted append-only.
type Command struct {
	TenantID          string    `json:"tenant_id"`
	CommandID         string    `json:"command_id"`
	PrinterID         string    `json:"printer_id"`
	Action            Action    `json:"action"`
	AdjustPressureKPa float64   `json:"adjust_pressure_kpa"` // zero unless Action is ADJUST
	AdjustSpeed       float64   `json:"adjust_speed"`        // zero unless Action is ADJUST
	Reason            string    `json:"reason"`
	CreatedAt         time.Time `json:"created_at"`
}

// stamp fills the identity fields the pure policy leaves blank.
func stamp(c Command, tenantID string, now time.Time) Command {
	c.TenantID = tenantID
	c.CommandID = uuid.NewString()
	c.CreatedAt = now.UTC()
	return c
}
