package navigation

import (
	"context"

	"github.com/parlohq/parlo-server/internal/storage"
)

// FlowState is the visitor's position in the language -> level -> topic ->
// conversation flow. Empty fields mean the step has not happened yet.
type FlowState struct {
	Language      string `json:"language,omitempty"`
	Level         string `json:"level,omitempty"`
	Topic         string `json:"topic,omitempty"`
	PendingPlanID string `json:"pending_plan_id,omitempty"`
}

// FlowState reads the persisted flow position. Absent keys read as empty,
// which every consumer treats as "step not taken yet".
func (s *Service) FlowState(ctx context.Context) FlowState {
	var f FlowState
	f.Language, _ = s.bag.Get(ctx, storage.KeySelectedLanguage)
	f.Level, _ = s.bag.Get(ctx, storage.KeySelectedLevel)
	f.Topic, _ = s.bag.Get(ctx, storage.KeySelectedTopic)
	f.PendingPlanID, _ = s.bag.Get(ctx, storage.KeyPendingLearningPlanID)
	return f
}

// SaveFlowState persists the non-empty fields of f. Selections are only
// ever replaced, never blanked, so a partial update cannot lose a step the
// visitor already completed.
func (s *Service) SaveFlowState(ctx context.Context, f FlowState) {
	if f.Language != "" {
		s.bag.Set(ctx, storage.KeySelectedLanguage, f.Language)
	}
	if f.Level != "" {
		s.bag.Set(ctx, storage.KeySelectedLevel, f.Level)
	}
	if f.Topic != "" {
		s.bag.Set(ctx, storage.KeySelectedTopic, f.Topic)
	}
	if f.PendingPlanID != "" {
		s.bag.Set(ctx, storage.KeyPendingLearningPlanID, f.PendingPlanID)
	}
}

// ClearFlow drops the flow position and in-flight navigation state, used on
// reaching home or completing the flow.
func (s *Service) ClearFlow(ctx context.Context) {
	s.bag.Delete(ctx, storage.KeySelectedLanguage)
	s.bag.Delete(ctx, storage.KeySelectedLevel)
	s.bag.Delete(ctx, storage.KeySelectedTopic)
	s.bag.Delete(ctx, storage.KeyPendingLearningPlanID)
	s.bag.Delete(ctx, storage.KeyNavigationState)
}
