// Package session starts and tracks time-boxed learning activities. An
// activity gets a freshly minted plan ID and a persisted creation
// timestamp; status checks evaluate the remaining budget and latch the
// expired fact so it is never recomputed differently later.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlohq/parlo-server/internal/cooldown"
	"github.com/parlohq/parlo-server/internal/entitlement"
	"github.com/parlohq/parlo-server/internal/storage"
)

// ActivityKind identifies the type of time-boxed activity.
type ActivityKind string

const (
	ActivityAssessment   ActivityKind = "assessment"
	ActivityConversation ActivityKind = "conversation"
)

var (
	// ErrUnknownActivity is returned for an unrecognized activity kind.
	ErrUnknownActivity = errors.New("unknown activity kind")

	// ErrStartInProgress is returned when the same tab races two starts.
	ErrStartInProgress = errors.New("activity start already in progress")

	// ErrPlanNotFound is returned when no creation timestamp exists for
	// the given plan ID.
	ErrPlanNotFound = errors.New("learning plan not found")
)

// CooldownActiveError signals that a guest is inside the lockout window.
type CooldownActiveError struct {
	RemainingMinutes int
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("guest cooldown active, %d minutes remaining", e.RemainingMinutes)
}

// startLocks prevents concurrent starts for the same device and tab.
var startLocks sync.Map

// Service owns the activity lifecycle for a single storage backend.
type Service struct {
	store     storage.Store
	evaluator *entitlement.Evaluator
	clock     func() time.Time
}

// NewService creates a Service using the wall clock.
func NewService(store storage.Store) *Service {
	return NewServiceWithClock(store, time.Now)
}

// NewServiceWithClock creates a Service with an injected clock. The
// evaluator and the guest cooldown tracker share the same clock.
func NewServiceWithClock(store storage.Store, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:     store,
		evaluator: entitlement.NewEvaluatorWithClock(clock),
		clock:     clock,
	}
}

// StartResult describes a freshly started activity.
type StartResult struct {
	PlanID        string    `json:"plan_id"`
	Kind          string    `json:"kind"`
	BudgetSeconds int       `json:"budget_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusResult describes the current state of an activity window.
type StatusResult struct {
	PlanID           string `json:"plan_id"`
	Valid            bool   `json:"valid"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Expired          bool   `json:"expired"`
}

// StartActivity mints a new plan for the given scope. Guests inside the
// cooldown window are refused with a CooldownActiveError. Restarting an
// activity always writes a fresh creation timestamp.
func (s *Service) StartActivity(ctx context.Context, scope storage.Scope, kind ActivityKind, authenticated bool) (StartResult, error) {
	budget, err := s.budget(kind, authenticated)
	if err != nil {
		return StartResult{}, err
	}

	lockKey := scope.DeviceID + "/" + scope.TabID
	lock, _ := startLocks.LoadOrStore(lockKey, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	if !mutex.TryLock() {
		slog.Warn("Activity start already in progress", "device_id", scope.DeviceID, "tab_id", scope.TabID)
		return StartResult{}, ErrStartInProgress
	}
	defer func() {
		mutex.Unlock()
		startLocks.Delete(lockKey)
	}()

	bag := storage.NewBag(s.store, scope)

	if !authenticated {
		tracker := cooldown.NewTrackerWithClock(bag, s.clock)
		if tracker.IsExpired(ctx) {
			remaining := tracker.RemainingMinutes(ctx)
			slog.Info("Guest start refused during cooldown",
				"device_id", scope.DeviceID,
				"remaining_minutes", remaining,
			)
			return StartResult{}, &CooldownActiveError{RemainingMinutes: remaining}
		}
	}

	planID := uuid.NewString()
	now := s.clock()
	bag.SetTime(ctx, storage.PlanCreationTimeKey(planID), now)
	bag.Set(ctx, storage.KeyPendingLearningPlanID, planID)

	slog.Info("Activity started",
		"plan_id", planID,
		"kind", kind,
		"authenticated", authenticated,
		"budget_seconds", int(budget/time.Second),
	)

	return StartResult{
		PlanID:        planID,
		Kind:          string(kind),
		BudgetSeconds: int(budget / time.Second),
		CreatedAt:     now,
	}, nil
}

// ActivityStatus evaluates the remaining budget for a plan. The first time
// an exhausted budget is observed the expired fact is latched per plan,
// and for guests the cooldown window starts.
func (s *Service) ActivityStatus(ctx context.Context, scope storage.Scope, planID string, kind ActivityKind, authenticated bool) (StatusResult, error) {
	budget, err := s.budget(kind, authenticated)
	if err != nil {
		return StatusResult{}, err
	}

	bag := storage.NewBag(s.store, scope)

	// An already latched plan never becomes valid again.
	if bag.Flag(ctx, storage.PlanExpiredKey(planID)) == storage.FlagTrue {
		return StatusResult{PlanID: planID, Expired: true}, nil
	}

	createdAt, ok := bag.Time(ctx, storage.PlanCreationTimeKey(planID))
	if !ok {
		return StatusResult{}, ErrPlanNotFound
	}

	var valid bool
	var remaining int
	if kind == ActivityConversation {
		valid = s.evaluator.IsValid(authenticated, createdAt)
		remaining = s.evaluator.RemainingSeconds(authenticated, createdAt)
	} else {
		valid, remaining = s.withinBudget(budget, createdAt)
	}

	if valid {
		return StatusResult{PlanID: planID, Valid: true, RemainingSeconds: remaining}, nil
	}

	s.latchExpired(ctx, bag, planID, authenticated)
	return StatusResult{PlanID: planID, Expired: true}, nil
}

// latchExpired records the expired fact for the plan and, for guests,
// starts the cooldown window.
func (s *Service) latchExpired(ctx context.Context, bag *storage.Bag, planID string, authenticated bool) {
	bag.SetFlag(ctx, storage.PlanExpiredKey(planID), true)
	slog.Info("Activity expired", "plan_id", planID, "authenticated", authenticated)

	if !authenticated {
		tracker := cooldown.NewTrackerWithClock(bag, s.clock)
		tracker.SetExpired(ctx)
	}
}

// withinBudget applies the same fail-closed flooring as the evaluator
// against an arbitrary budget.
func (s *Service) withinBudget(budget time.Duration, createdAt time.Time) (bool, int) {
	if createdAt.IsZero() {
		return false, 0
	}
	ms := s.clock().Sub(createdAt).Milliseconds()
	if ms < 0 {
		return false, 0
	}
	elapsed := ms / 1000
	remaining := int64(budget/time.Second) - elapsed
	if remaining <= 0 {
		return false, 0
	}
	return true, int(remaining)
}

func (s *Service) budget(kind ActivityKind, authenticated bool) (time.Duration, error) {
	switch kind {
	case ActivityAssessment:
		return entitlement.AssessmentDuration(authenticated), nil
	case ActivityConversation:
		return entitlement.ConversationDuration(authenticated), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownActivity, kind)
	}
}

// PendingPlanID returns the plan the tab is about to resume, if any.
func (s *Service) PendingPlanID(ctx context.Context, scope storage.Scope) (string, bool) {
	bag := storage.NewBag(s.store, scope)
	return bag.Get(ctx, storage.KeyPendingLearningPlanID)
}
