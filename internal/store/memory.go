// In-memory store implementations used by default and in tests
package store

import (
	"context"
	"sort"
	"sync"

	"bioprintctl/internal/audit"
	"bioprintctl/internal/control"
	"bioprintctl/internal/latency"
	"bioprintctl/internal/plan"
	"bioprintctl/internal/telemetry"
	"bioprintctl/internal/twin"
)

// MemoryTelemetryStore keeps raw samples per tenant, append-only.
type MemoryTelemetryStore struct {
	mu      sync.Mutex
	samples map[string][]telemetry.Sample
}

func NewMemoryTelemetryStore() *MemoryTelemetryStore {
	return &MemoryTelemetryStore{samples: make(map[string][]telemetry.Sample)}
}

func (m *MemoryTelemetryStore) Append(_ context.Context, tenantID string, s telemetry.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[tenantID] = append(m.samples[tenantID], s)
	return nil
}

func (m *MemoryTelemetryStore) Recent(_ context.Context, tenantID string, limit int) ([]telemetry.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.samples[tenantID]
	return lastNReversed(all, limit), nil
}

// MemoryCommandStore keeps decided commands per tenant, append-only.
type MemoryCommandStore struct {
	mu       sync.Mutex
	commands map[string][]control.Command
}

func NewMemoryCommandStore() *MemoryCommandStore {
	return &MemoryCommandStore{commands: make(map[string][]control.Command)}
}

func (m *MemoryCommandStore) Append(_ context.Context, c control.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[c.TenantID] = append(m.commands[c.TenantID], c)
	return nil
}

func (m *MemoryCommandStore) Recent(_ context.Context, tenantID string, limit int) ([]control.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastNReversed(m.commands[tenantID], limit), nil
}

// MemoryAuditStore keeps sealed audit events per tenant in append order.
type MemoryAuditStore struct {
	mu     sync.Mutex
	events map[string][]audit.Event
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{events: make(map[string][]audit.Event)}
}

func (m *MemoryAuditStore) Append(_ context.Context, e audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.TenantID] = append(m.events[e.TenantID], e)
	return nil
}

func (m *MemoryAuditStore) Recent(_ context.Context, tenantID string, limit int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastNReversed(m.events[tenantID], limit), nil
}

func (m *MemoryAuditStore) Chain(_ context.Context, tenantID string, limit int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.events[tenantID]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]audit.Event, len(all))
	copy(out, all)
	return out, nil
}

// Tamper overwrites one stored event in place. Only chain-verification tests
// use it; production code never mutates the log.
func (m *MemoryAuditStore) Tamper(tenantID string, index int, mutate func(*audit.Event)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.events[tenantID]
	if index < 0 || index >= len(events) {
		return false
	}
	mutate(&events[index])
	return true
}

// MemoryTwinStore keeps one state per (tenant, printer).
type MemoryTwinStore struct {
	mu     sync.Mutex
	states map[string]map[string]twin.State
}

func NewMemoryTwinStore() *MemoryTwinStore {
	return &MemoryTwinStore{states: make(map[string]map[string]twin.State)}
}

func (m *MemoryTwinStore) Upsert(_ context.Context, s twin.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[s.TenantID] == nil {
		m.states[s.TenantID] = make(map[string]twin.State)
	}
	m.states[s.TenantID][s.PrinterID] = s
	return nil
}

func (m *MemoryTwinStore) FindByPrinterID(_ context.Context, tenantID, printerID string) (twin.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[tenantID][printerID]
	if !ok {
		return twin.State{}, twin.ErrNotFound
	}
	return s, nil
}

func (m *MemoryTwinStore) FindAll(_ context.Context, tenantID string) ([]twin.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]twin.State, 0, len(m.states[tenantID]))
	for _, s := range m.states[tenantID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrinterID < out[j].PrinterID })
	return out, nil
}

// MemoryPlanStore keeps print plans by id.
type MemoryPlanStore struct {
	mu    sync.Mutex
	plans map[string]plan.Plan
}

func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{plans: make(map[string]plan.Plan)}
}

func (m *MemoryPlanStore) Save(_ context.Context, p plan.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = p
	return nil
}

func (m *MemoryPlanStore) FindByPlanID(_ context.Context, planID string) (plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planID]
	if !ok {
		return plan.Plan{}, plan.ErrNotFound
	}
	return p, nil
}

// MemorySessionStore keeps print sessions per tenant.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]plan.Session // tenant -> session id -> session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]map[string]plan.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, s plan.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.TenantID] == nil {
		m.sessions[s.TenantID] = make(map[string]plan.Session)
	}
	m.sessions[s.TenantID][s.ID] = s
	return nil
}

func (m *MemorySessionStore) FindByID(_ context.Context, tenantID, sessionID string) (plan.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tenantID][sessionID]
	if !ok {
		return plan.Session{}, plan.ErrNotFound
	}
	return s, nil
}

func (m *MemorySessionStore) FindActiveByPrinterID(_ context.Context, tenantID, printerID string) (plan.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions[tenantID] {
		if s.PrinterID == printerID && s.Status == plan.SessionActive {
			return s, nil
		}
	}
	return plan.Session{}, plan.ErrNotFound
}

// MemoryBreachStore keeps latency breach events append-only.
type MemoryBreachStore struct {
	mu       sync.Mutex
	breaches []latency.BreachEvent
}

func NewMemoryBreachStore() *MemoryBreachStore {
	return &MemoryBreachStore{}
}

func (m *MemoryBreachStore) Append(_ context.Context, e latency.BreachEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaches = append(m.breaches, e)
	return nil
}

// All returns a copy of the recorded breaches.
func (m *MemoryBreachStore) All() []latency.BreachEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]latency.BreachEvent, len(m.breaches))
	copy(out, m.breaches)
	return out
}

// lastNReversed returns up to limit trailing elements, newest first.
func lastNReversed[T any](all []T, limit int) []T {
	n := len(all)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]T, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, all[i])
	}
	return out
}
