package service

import (
	"context"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/config"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// actRiskThreshold gates remediation: a malicious verdict below it is
// reported clean enough to leave alone.
const actRiskThreshold = 0.5

// Outcome actions
const (
	ActionRevert = "revert"
	ActionClean  = "clean"
)

type Analyzer interface {
	AnalyzeSingle(ctx context.Context, record *domain.CreatorEditHistory) *domain.EditAnalysis
}

type Reverter interface {
	Revert(ctx context.Context, record *domain.CreatorEditHistory, reason string) domain.RevertResult
}

type EventPublisher interface {
	Publish(event domain.NotificationEvent)
}

// DetectionDetail carries everything delivery needs to render one acted
// record.
type DetectionDetail struct {
	EditHistoryID     string                `json:"edit_history_id"`
	CreatorID         string                `json:"creator_id"`
	CreatorName       string                `json:"creator_name"`
	EditorID          string                `json:"editor_id"`
	EditorPhoneNumber string                `json:"editor_phone_number"`
	Verdict           domain.EditAnalysis   `json:"verdict"`
	AutoRevertSuccess bool                  `json:"auto_revert_success"`
	RevertError       string                `json:"revert_error,omitempty"`
	ChangedFields     []domain.ChangedField `json:"changed_fields,omitempty"`
	TagsAdded         []string              `json:"tags_added,omitempty"`
	TagsRemoved       []string              `json:"tags_removed,omitempty"`
}

type Outcome struct {
	Action        string            `json:"action"`
	AnalyzedCount int               `json:"analyzed_count"`
	Detections    []DetectionDetail `json:"detections,omitempty"`
}

// DetectionService orchestrates one batch of newly added edit history
// records: analysis, decision, revert, notification.
type DetectionService struct {
	analyzer Analyzer
	reverter Reverter
	bus      EventPublisher
	audit    *ModerationAuditService

	failMode         string
	revertAllInBatch bool
}

func NewDetectionService(analyzer Analyzer, reverter Reverter, bus EventPublisher, audit *ModerationAuditService, policy config.Guardian) *DetectionService {
	return &DetectionService{
		analyzer:         analyzer,
		reverter:         reverter,
		bus:              bus,
		audit:            audit,
		failMode:         policy.ClassifierFailMode,
		revertAllInBatch: policy.RevertAllInBatch,
	}
}

// HandleBatch evaluates records in order. A record is acted on when its
// verdict is malicious with risk score >= 0.5. By default the loop stops at
// the first acted record: remaining records are not analyzed in this
// invocation. With RevertAllInBatch every record is evaluated and every
// malicious one is acted on.
func (s *DetectionService) HandleBatch(ctx context.Context, records []domain.CreatorEditHistory) (*Outcome, error) {
	outcome := &Outcome{Action: ActionClean}

	for i := range records {
		record := &records[i]
		outcome.AnalyzedCount++

		if !record.HasChanges() {
			log.WithField("edit_history_id", record.ID).Debug("Edit history has no changes, treating as clean")
			continue
		}

		verdict := s.analyzer.AnalyzeSingle(ctx, record)

		if verdict.Indeterminate {
			s.handleIndeterminate(ctx, record, verdict)
			continue
		}

		if !verdict.IsMalicious || verdict.RiskScore < actRiskThreshold {
			log.WithFields(log.Fields{
				"edit_history_id": record.ID,
				"risk_score":      verdict.RiskScore,
			}).Debug("Edit history analyzed, no action")
			continue
		}

		detail := s.act(ctx, record, verdict)
		outcome.Action = ActionRevert
		outcome.Detections = append(outcome.Detections, detail)

		if !s.revertAllInBatch {
			break
		}
	}

	return outcome, nil
}

// act reverts one malicious record and publishes the resulting events. The
// notification goes out even when the revert fails, so a human can step in.
func (s *DetectionService) act(ctx context.Context, record *domain.CreatorEditHistory, verdict *domain.EditAnalysis) DetectionDetail {
	if err := s.audit.RecordMaliciousEditDetected(ctx, record, verdict); err != nil {
		log.WithError(err).Warn("Failed to publish detection audit event")
	}

	result := s.reverter.Revert(ctx, record, verdict.Reason)

	detail := DetectionDetail{
		EditHistoryID:     record.ID,
		CreatorID:         record.CreatorID,
		CreatorName:       record.CreatorName,
		EditorID:          record.UserID,
		EditorPhoneNumber: record.UserPhoneNumber,
		Verdict:           *verdict,
		AutoRevertSuccess: result.IsSuccess,
		RevertError:       result.Error,
		ChangedFields:     record.ChangedFields(),
	}
	if record.TagsChanges != nil {
		detail.TagsAdded = record.TagsChanges.Added
		detail.TagsRemoved = record.TagsChanges.Removed
	}

	if result.IsSuccess {
		if err := s.audit.RecordEditReverted(ctx, record, verdict.Reason); err != nil {
			log.WithError(err).Warn("Failed to publish revert audit event")
		}
	} else {
		if err := s.audit.RecordRevertFailed(ctx, record, result.Error); err != nil {
			log.WithError(err).Warn("Failed to publish revert-failure audit event")
		}
	}

	s.bus.Publish(domain.NotificationEvent{
		Kind:    domain.EventDiscordNotification,
		Message: "🚨 Malicious edit detected: " + verdict.Reason,
		AdditionalData: map[string]interface{}{
			"detection": &detail,
		},
	})

	if !result.IsSuccess {
		s.bus.Publish(domain.NotificationEvent{
			Kind:    domain.EventEmergencyAlert,
			Message: "🔥 Auto-revert failed for edit " + record.ID + ": " + result.Error,
			AdditionalData: map[string]interface{}{
				"detection": &detail,
			},
		})
	}

	return detail
}

// handleIndeterminate applies the classifier failure policy. Fail-open
// treats the record as clean. Fail-closed never auto-reverts on a verdict
// that scored nothing, but raises an emergency alert for human review.
func (s *DetectionService) handleIndeterminate(ctx context.Context, record *domain.CreatorEditHistory, verdict *domain.EditAnalysis) {
	logger := log.WithFields(log.Fields{
		"edit_history_id": record.ID,
		"reason":          verdict.Reason,
	})

	if s.failMode == config.FailModeClosed {
		logger.Warn("Classification failed, escalating for human review")
		s.bus.Publish(domain.NotificationEvent{
			Kind:    domain.EventEmergencyAlert,
			Message: "🔥 Classification unavailable for edit " + record.ID + ", manual review required",
			AdditionalData: map[string]interface{}{
				"edit_history_id": record.ID,
				"creator_id":      record.CreatorID,
				"reason":          verdict.Reason,
			},
		})
		return
	}

	logger.Warn("Classification failed, treating edit as clean (fail-open)")
}

// OnDetect adapts HandleBatch to the watcher's handler contract and logs a
// batch summary.
func (s *DetectionService) OnDetect(ctx context.Context, records []domain.CreatorEditHistory) error {
	batchID := uuid.NewString()

	outcome, err := s.HandleBatch(ctx, records)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"batch_id": batchID,
		"action":   outcome.Action,
		"analyzed": outcome.AnalyzedCount,
		"acted":    len(outcome.Detections),
	}).Info("Edit history batch processed")

	return nil
}
