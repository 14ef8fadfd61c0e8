package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bioprintctl/internal/logging"
)

// ErrNotFound is returned when a plan or session id is unknown.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned for lifecycle moves the state machine
// does not allow (e.g. completing a session that was never activated).
var ErrInvalidTransition = errors.New("invalid session transition")

// PlanStore persists print plans.
type PlanStore interface {
	Save(ctx context.Context, p Plan) error
	FindByPlanID(ctx context.Context, planID string) (Plan, error)
}

// SessionStore persists print sessions.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	FindByID(ctx context.Context, tenantID, sessionID string) (Session, error)
	FindActiveByPrinterID(ctx context.Context, tenantID, printerID string) (Session, error)
}

// Service manages plan registration and session lifecycle.
type Service struct {
	plans    PlanStore
	sessions SessionStore
	now      func() time.Time
}

// NewService wires a lifecycle service over the given stores.
func NewService(plans PlanStore, sessions SessionStore) *Service {
	return &Service{plans: plans, sessions: sessions, now: time.Now}
}

// CreatePlan registers a new plan and returns it with a generated id.
func (s *Service) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = s.now().UTC()
	if err := s.plans.Save(ctx, p); err != nil {
		return Plan{}, fmt.Errorf("save plan: %w", err)
	}
	return p, nil
}

// CreateSession registers a CREATED session binding a printer to a plan.
func (s *Service) CreateSession(ctx context.Context, tenantID, printerID, planID string) (Session, error) {
	if _, err := s.plans.FindByPlanID(ctx, planID); err != nil {
		return Session{}, fmt.Errorf("lookup plan %s: %w", planID, err)
	}
	sess := Session{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		PrinterID: printerID,
		PlanID:    planID,
		Status:    SessionCreated,
		CreatedAt: s.now().UTC(),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// ActivateSession moves a session to ACTIVE. Any other session currently
// ACTIVE for the same printer is paused first, so the one-active-per-printer
// invariant holds.
func (s *Service) ActivateSession(ctx context.Context, tenantID, sessionID string) (Session, error) {
	log := logging.FromContext(ctx)
	sess, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return Session{}, err
	}
	switch sess.Status {
	case SessionCreated, SessionPaused:
	default:
		return Session{}, fmt.Errorf("%w: %s -> ACTIVE", ErrInvalidTransition, sess.Status)
	}

	if prev, err := s.sessions.FindActiveByPrinterID(ctx, tenantID, sess.PrinterID); err == nil && prev.ID != sess.ID {
		prev.Status = SessionPaused
		prev.UpdatedAt = s.now().UTC()
		if err := s.sessions.Save(ctx, prev); err != nil {
			return Session{}, fmt.Errorf("pause session %s: %w", prev.ID, err)
		}
		log.Info("paused previously active session", "session_id", prev.ID, "printer_id", prev.PrinterID)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	sess.Status = SessionActive
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("activate session: %w", err)
	}
	return sess, nil
}

// CompleteSession moves an ACTIVE or PAUSED session to COMPLETED.
func (s *Service) CompleteSession(ctx context.Context, tenantID, sessionID string) (Session, error) {
	return s.finish(ctx, tenantID, sessionID, SessionCompleted)
}

// AbortSession moves an ACTIVE or PAUSED session to ABORTED.
func (s *Service) AbortSession(ctx context.Context, tenantID, sessionID string) (Session, error) {
	return s.finish(ctx, tenantID, sessionID, SessionAborted)
}

func (s *Service) finish(ctx context.Context, tenantID, sessionID, status string) (Session, error) {
	sess, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return Session{}, err
	}
	switch sess.Status {
	case SessionActive, SessionPaused:
	default:
		return Session{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, status)
	}
	sess.Status = status
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("finish session: %w", err)
	}
	return sess, nil
}
