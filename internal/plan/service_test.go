package plan

import (
	"context"
	"errors"
	"testing"
)

type memPlans struct {
	plans map[string]Plan
}

func (m *memPlans) Save(_ context.Context, p Plan) error {
	if m.plans == nil {
		m.plans = map[string]Plan{}
	}
	m.plans[p.ID] = p
	return nil
}

func (m *memPlans) FindByPlanID(_ context.Context, planID string) (Plan, error) {
	p, ok := m.plans[planID]
	if !ok {
		return Plan{}, ErrNotFound
	}
	return p, nil
}

type memSessions struct {
	sessions map[string]Session
}

func (m *memSessions) Save(_ context.Context, s Session) error {
	if m.sessions == nil {
		m.sessions = map[string]Session{}
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessions) FindByID(_ context.Context, _, sessionID string) (Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memSessions) FindActiveByPrinterID(_ context.Context, _, printerID string) (Session, error) {
	for _, s := range m.sessions {
		if s.PrinterID == printerID && s.Status == SessionActive {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

func newTestService() (*Service, *memSessions) {
	sessions := &memSessions{}
	svc := NewService(&memPlans{}, sessions)
	return svc, sessions
}

func TestCreatePlanGeneratesID(t *testing.T) {
	svc, _ := newTestService()
	p, err := svc.CreatePlan(context.Background(), Plan{PatientID: "patient-1"})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if p.ID == "" {
		t.Error("expected a generated plan id")
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected a creation timestamp")
	}
}

func TestCreatePlanKeepsGivenID(t *testing.T) {
	svc, _ := newTestService()
	p, err := svc.CreatePlan(context.Background(), Plan{ID: "plan-demo-001"})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if p.ID != "plan-demo-001" {
		t.Errorf("given id must be kept, got %s", p.ID)
	}
}

func TestCreateSessionRequiresPlan(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.CreateSession(context.Background(), "t1", "p1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown plan, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p, err := svc.CreatePlan(ctx, Plan{})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	sess, err := svc.CreateSession(ctx, "t1", "p1", p.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Status != SessionCreated {
		t.Fatalf("new session should be CREATED, got %s", sess.Status)
	}

	sess, err = svc.ActivateSession(ctx, "t1", sess.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if sess.Status != SessionActive {
		t.Fatalf("expected ACTIVE, got %s", sess.Status)
	}

	sess, err = svc.CompleteSession(ctx, "t1", sess.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if sess.Status != SessionCompleted {
		t.Fatalf("expected COMPLETED, got %s", sess.Status)
	}

	// A finished session stays finished.
	if _, err := svc.ActivateSession(ctx, "t1", sess.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reactivating a completed session should fail, got %v", err)
	}
	if _, err := svc.AbortSession(ctx, "t1", sess.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("aborting a completed session should fail, got %v", err)
	}
}

func TestActivatePausesPreviousSession(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()
	p, err := svc.CreatePlan(ctx, Plan{})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	first, err := svc.CreateSession(ctx, "t1", "p1", p.ID)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.ActivateSession(ctx, "t1", first.ID); err != nil {
		t.Fatalf("activate first: %v", err)
	}

	second, err := svc.CreateSession(ctx, "t1", "p1", p.ID)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := svc.ActivateSession(ctx, "t1", second.ID); err != nil {
		t.Fatalf("activate second: %v", err)
	}

	got, err := sessions.FindByID(ctx, "t1", first.ID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if got.Status != SessionPaused {
		t.Errorf("previous session should be paused, got %s", got.Status)
	}

	active, err := sessions.FindActiveByPrinterID(ctx, "t1", "p1")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("only the second session should be active, got %s", active.ID)
	}
}

func TestAbortFromPaused(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.CreatePlan(ctx, Plan{})
	sess, err := svc.CreateSession(ctx, "t1", "p1", p.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ActivateSession(ctx, "t1", sess.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Pause by activating a sibling, then abort the paused one.
	sibling, _ := svc.CreateSession(ctx, "t1", "p1", p.ID)
	if _, err := svc.ActivateSession(ctx, "t1", sibling.ID); err != nil {
		t.Fatalf("activate sibling: %v", err)
	}
	got, err := svc.AbortSession(ctx, "t1", sess.ID)
	if err != nil {
		t.Fatalf("abort paused: %v", err)
	}
	if got.Status != SessionAborted {
		t.Errorf("expected ABORTED, got %s", got.Status)
	}
}

func TestCompleteCreatedSessionRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.CreatePlan(ctx, Plan{})
	sess, err := svc.CreateSession(ctx, "t1", "p1", p.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CompleteSession(ctx, "t1", sess.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completing a never-activated session should fail, got %v", err)
	}
}
