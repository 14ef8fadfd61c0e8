package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OutcomeCounter receives one increment per recorded event, tagged by
// outcome. Implemented by the metrics registry; may be nil.
type OutcomeCounter interface {
	IncAuditEvent(outcome string)
}

// Trail is the single choke point through which every state-changing
// decision passes. It seals each event into the tenant's hash chain before
// appending it to the store.
type Trail struct {
	store         Store
	counter       OutcomeCounter
	defaultTenant string

	mu       sync.Mutex
	lastHash map[string]string // tenant -> latest sealed commitment
	now      func() time.Time
}

// NewTrail wires an audit trail over the given store. defaultTenant is used
// by read paths when the caller leaves the tenant unset.
func NewTrail(store Store, defaultTenant string, counter OutcomeCounter) *Trail {
	return &Trail{
		store:         store,
		counter:       counter,
		defaultTenant: defaultTenant,
		lastHash:      make(map[string]string),
		now:           time.Now,
	}
}

// Record seals and appends one event, returning it with id, timestamp, and
// chain commitment filled in.
func (t *Trail) Record(ctx context.Context, e Event) (Event, error) {
	if e.TenantID == "" {
		e.TenantID = t.defaultTenant
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	e.CreatedAt = t.now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, err := t.lastHashLocked(ctx, e.TenantID)
	if err != nil {
		return Event{}, err
	}
	e.PrevHash = prev
	e.Hash = ComputeHash(e, prev)

	if err := t.store.Append(ctx, e); err != nil {
		return Event{}, fmt.Errorf("append audit event: %w", err)
	}
	t.lastHash[e.TenantID] = e.Hash

	if t.counter != nil {
		t.counter.IncAuditEvent(e.Outcome)
	}
	return e, nil
}

// lastHashLocked seeds the in-memory chain head from the store on first use
// per tenant, so a restarted service continues an existing chain.
func (t *Trail) lastHashLocked(ctx context.Context, tenantID string) (string, error) {
	if h, ok := t.lastHash[tenantID]; ok {
		return h, nil
	}
	latest, err := t.store.Recent(ctx, tenantID, 1)
	if err != nil {
		return "", fmt.Errorf("seed chain head: %w", err)
	}
	if len(latest) == 0 {
		t.lastHash[tenantID] = ""
		return "", nil
	}
	t.lastHash[tenantID] = latest[0].Hash
	return latest[0].Hash, nil
}

// Recent returns the tenant's latest events, most-recent-first. An empty
// tenant defaults to the trail's configured tenant.
func (t *Trail) Recent(ctx context.Context, tenantID string, limit int) ([]Event, error) {
	if tenantID == "" {
		tenantID = t.defaultTenant
	}
	return t.store.Recent(ctx, tenantID, limit)
}

// VerifyChain replays up to limit events in creation order and recomputes
// the commitment chain. A broken chain is a detection result, not an error:
// verification is diagnostic and never blocks ingestion.
func (t *Trail) VerifyChain(ctx context.Context, tenantID string, limit int) (ChainVerification, error) {
	if tenantID == "" {
		tenantID = t.defaultTenant
	}
	events, err := t.store.Chain(ctx, tenantID, limit)
	if err != nil {
		return ChainVerification{}, fmt.Errorf("load chain: %w", err)
	}

	prev := ""
	for i, e := range events {
		if e.PrevHash != prev {
			return ChainVerification{
				Valid:            false,
				CheckedEvents:    len(events),
				FirstBrokenIndex: i,
				Reason:           fmt.Sprintf("event %d links to %q, chain head is %q", i, e.PrevHash, prev),
			}, nil
		}
		if got := ComputeHash(e, prev); got != e.Hash {
			return ChainVerification{
				Valid:            false,
				CheckedEvents:    len(events),
				FirstBrokenIndex: i,
				Reason:           fmt.Sprintf("event %d content does not match its commitment", i),
			}, nil
		}
		prev = e.Hash
	}
	return ChainVerification{Valid: true, CheckedEvents: len(events), FirstBrokenIndex: -1}, nil
}
