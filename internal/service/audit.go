package service

import (
	"context"
	"time"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	"github.com/google/uuid"
)

type AuditPublisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// ModerationAuditService records detection and remediation outcomes on the
// audit trail. All methods are nil-safe so the pipeline runs unchanged when
// no publisher is configured.
type ModerationAuditService struct {
	publisher AuditPublisher
}

func NewModerationAuditService(publisher AuditPublisher) *ModerationAuditService {
	return &ModerationAuditService{publisher: publisher}
}

func (s *ModerationAuditService) RecordMaliciousEditDetected(ctx context.Context, record *domain.CreatorEditHistory, verdict *domain.EditAnalysis) error {
	if s == nil || s.publisher == nil || record == nil {
		return nil
	}

	event := s.newEvent(domain.AuditMaliciousEditDetected, record)
	event.Payload["risk_score"] = verdict.RiskScore
	event.Payload["reason"] = verdict.Reason
	if len(verdict.FlaggedContent) > 0 {
		event.Payload["flagged_content"] = verdict.FlaggedContent
	}
	if verdict.Scores != nil {
		event.Payload["scores"] = verdict.Scores
	}

	return s.publisher.Publish(ctx, event)
}

func (s *ModerationAuditService) RecordEditReverted(ctx context.Context, record *domain.CreatorEditHistory, reason string) error {
	if s == nil || s.publisher == nil || record == nil {
		return nil
	}

	event := s.newEvent(domain.AuditEditReverted, record)
	event.Payload["reason"] = reason

	return s.publisher.Publish(ctx, event)
}

func (s *ModerationAuditService) RecordRevertFailed(ctx context.Context, record *domain.CreatorEditHistory, revertError string) error {
	if s == nil || s.publisher == nil || record == nil {
		return nil
	}

	event := s.newEvent(domain.AuditRevertFailed, record)
	event.Payload["error"] = revertError

	return s.publisher.Publish(ctx, event)
}

func (s *ModerationAuditService) newEvent(eventType string, record *domain.CreatorEditHistory) domain.AuditEvent {
	return domain.AuditEvent{
		EventID:    uuid.NewString(),
		Service:    "illumefy-guardian",
		EventType:  eventType,
		EntityID:   record.CreatorID,
		Actor:      record.UserID,
		OccurredAt: time.Now().UTC(),
		Payload: map[string]interface{}{
			"edit_history_id": record.ID,
			"creator_name":    record.CreatorName,
		},
	}
}
