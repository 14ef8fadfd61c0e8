// Tamper-evident audit trail shared by every state-changing decision
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Outcome values recorded per event.
const (
	OutcomeSuccess = "success"
	OutcomeWarning = "warning"
	OutcomeFailure = "failure"
)

// Event is one append-only audit record. Events are never updated or
// deleted; Hash commits to the event content plus the previous event's
// commitment, per tenant, so any out-of-band mutation is detectable by
// replaying the chain.
type Event struct {
	ID             string            `json:"id"`
	TenantID       string            `json:"tenant_id"`
	Actor          string            `json:"actor"`
	Action         string            `json:"action"`
	ResourceType   string            `json:"resource_type"`
	ResourceID     string            `json:"resource_id"`
	Outcome        string            `json:"outcome"`
	RequirementIDs []string          `json:"requirement_ids,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Hash           string            `json:"hash"`
	PrevHash       string            `json:"prev_hash"`
}

// ChainVerification is the result of replaying a tenant's chain.
type ChainVerification struct {
	Valid            bool   `json:"valid"`
	CheckedEvents    int    `json:"checked_events"`
	FirstBrokenIndex int    `json:"first_broken_index"` // -1 when valid
	Reason           string `json:"reason,omitempty"`
}

// Store persists audit events, tenant-scoped and append-only.
type Store interface {
	Append(ctx context.Context, e Event) error
	// Recent returns the tenant's latest events, most-recent-first.
	Recent(ctx context.Context, tenantID string, limit int) ([]Event, error)
	// Chain returns up to limit events in creation order from the start of
	// the tenant's chain.
	Chain(ctx context.Context, tenantID string, limit int) ([]Event, error)
}

// chainPayload fixes the field set and order that the commitment covers.
// map values are fine: encoding/json sorts map keys, so marshaling is
// deterministic for reproducible hashing.
type chainPayload struct {
	ID             string            `json:"id"`
	TenantID       string            `json:"tenant_id"`
	Actor          string            `json:"actor"`
	Action         string            `json:"action"`
	ResourceType   string            `json:"resource_type"`
	ResourceID     string            `json:"resource_id"`
	Outcome        string            `json:"outcome"`
	RequirementIDs []string          `json:"requirement_ids"`
	Details        map[string]string `json:"details"`
	CreatedAt      string            `json:"created_at"`
	PrevHash       string            `json:"prev_hash"`
}

// ComputeHash derives the integrity commitment for an event given the
// previous event's commitment. It is a pure function of event content.
func ComputeHash(e Event, prevHash string) string {
	payload := chainPayload{
		ID:             e.ID,
		TenantID:       e.TenantID,
		Actor:          e.Actor,
		Action:         e.Action,
		ResourceType:   e.ResourceType,
		ResourceID:     e.ResourceID,
		Outcome:        e.Outcome,
		RequirementIDs: e.RequirementIDs,
		Details:        e.Details,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339Nano),
		PrevHash:       prevHash,
	}
	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
