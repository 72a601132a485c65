package service

import (
	"context"
	"strings"
	"testing"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/config"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	analyzed []string
	fn       func(record *domain.CreatorEditHistory) *domain.EditAnalysis
}

func (f *fakeAnalyzer) AnalyzeSingle(_ context.Context, record *domain.CreatorEditHistory) *domain.EditAnalysis {
	f.analyzed = append(f.analyzed, record.ID)
	return f.fn(record)
}

type fakeReverter struct {
	reverted []string
	fn       func(record *domain.CreatorEditHistory, reason string) domain.RevertResult
}

func (f *fakeReverter) Revert(_ context.Context, record *domain.CreatorEditHistory, reason string) domain.RevertResult {
	f.reverted = append(f.reverted, record.ID)
	if f.fn != nil {
		return f.fn(record, reason)
	}
	return domain.RevertResult{IsSuccess: true}
}

type fakeBus struct {
	events []domain.NotificationEvent
}

func (f *fakeBus) Publish(event domain.NotificationEvent) {
	f.events = append(f.events, event)
}

func (f *fakeBus) byKind(kind domain.EventKind) []domain.NotificationEvent {
	var events []domain.NotificationEvent
	for _, e := range f.events {
		if e.Kind == kind {
			events = append(events, e)
		}
	}
	return events
}

type fakeAuditPublisher struct {
	events []domain.AuditEvent
}

func (f *fakeAuditPublisher) Publish(_ context.Context, event domain.AuditEvent) error {
	f.events = append(f.events, event)
	return nil
}

func maliciousVerdict(risk float64) *domain.EditAnalysis {
	return &domain.EditAnalysis{
		IsMalicious:    true,
		RiskScore:      risk,
		Reason:         "toxic content detected in description",
		FlaggedContent: []string{"bad text"},
		Scores:         &domain.ToxicityScore{Toxicity: risk},
	}
}

func cleanVerdict() *domain.EditAnalysis {
	return &domain.EditAnalysis{IsMalicious: false, RiskScore: 0.1, Reason: "content appears clean"}
}

func editRecord(id string) domain.CreatorEditHistory {
	return domain.CreatorEditHistory{
		ID:              id,
		CreatorID:       "c-" + id,
		CreatorName:     "Creator " + id,
		UserID:          "u1",
		UserPhoneNumber: "+81000000000",
		BasicInfoChanges: &domain.BasicInfoChanges{
			Description: &domain.FieldChange{Before: "Hello", After: "bad text"},
		},
	}
}

func newDetection(analyzer *fakeAnalyzer, reverter *fakeReverter, bus *fakeBus, audit *ModerationAuditService, policy config.Guardian) *DetectionService {
	if policy.ClassifierFailMode == "" {
		policy.ClassifierFailMode = config.FailModeOpen
	}
	return NewDetectionService(analyzer, reverter, bus, audit, policy)
}

func TestHandleBatchRevertsMaliciousRecord(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return maliciousVerdict(0.95)
	}}
	reverter := &fakeReverter{}
	bus := &fakeBus{}
	svc := newDetection(analyzer, reverter, bus, nil, config.Guardian{})

	outcome, err := svc.HandleBatch(context.Background(), []domain.CreatorEditHistory{editRecord("e1")})
	require.NoError(t, err)

	assert.Equal(t, ActionRevert, outcome.Action)
	assert.Equal(t, []string{"e1"}, reverter.reverted)
	require.Len(t, outcome.Detections, 1)

	detail := outcome.Detections[0]
	assert.Equal(t, "e1", detail.EditHistoryID)
	assert.Equal(t, "c-e1", detail.CreatorID)
	assert.Equal(t, "Creator e1", detail.CreatorName)
	assert.Equal(t, "u1", detail.EditorID)
	assert.Equal(t, "+81000000000", detail.EditorPhoneNumber)
	assert.True(t, detail.AutoRevertSuccess)
	require.Len(t, detail.ChangedFields, 1)
	assert.Equal(t, "Hello", detail.ChangedFields[0].Before)
	assert.Equal(t, "bad text", detail.ChangedFields[0].After)

	notifications := bus.byKind(domain.EventDiscordNotification)
	require.Len(t, notifications, 1)
	assert.True(t, strings.HasPrefix(notifications[0].Message, "🚨 Malicious edit detected"))
	published, ok := notifications[0].AdditionalData["detection"].(*DetectionDetail)
	require.True(t, ok)
	assert.Equal(t, "e1", published.EditHistoryID)
	assert.InDelta(t, 0.95, published.Verdict.RiskScore, 1e-9)
	assert.Empty(t, bus.byKind(domain.EventEmergencyAlert))
}

func TestHandleBatchDefaultStopsAtFirstAction(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return maliciousVerdict(0.9)
	}}
	reverter := &fakeReverter{}
	bus := &fakeBus{}
	svc := newDetection(analyzer, reverter, bus, nil, config.Guardian{})

	batch := []domain.CreatorEditHistory{editRecord("e1"), editRecord("e2")}
	outcome, err := svc.HandleBatch(context.Background(), batch)
	require.NoError(t, err)

	// the second malicious record is neither analyzed nor reverted
	assert.Equal(t, []string{"e1"}, analyzer.analyzed)
	assert.Equal(t, []string{"e1"}, reverter.reverted)
	assert.Len(t, outcome.Detections, 1)
	assert.Len(t, bus.byKind(domain.EventDiscordNotification), 1)
}

func TestHandleBatchRevertAllMode(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return maliciousVerdict(0.9)
	}}
	reverter := &fakeReverter{}
	bus := &fakeBus{}
	svc := newDetection(analyzer, reverter, bus, nil, config.Guardian{RevertAllInBatch: true})

	batch := []domain.CreatorEditHistory{editRecord("e1"), editRecord("e2")}
	outcome, err := svc.HandleBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, []string{"e1", "e2"}, reverter.reverted)
	assert.Len(t, outcome.Detections, 2)
	assert.Len(t, bus.byKind(domain.EventDiscordNotification), 2)
}

func TestHandleBatchCleanOutcome(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return cleanVerdict()
	}}
	reverter := &fakeReverter{}
	bus := &fakeBus{}
	svc := newDetection(analyzer, reverter, bus, nil, config.Guardian{})

	batch := []domain.CreatorEditHistory{editRecord("e1"), editRecord("e2")}
	outcome, err := svc.HandleBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, ActionClean, outcome.Action)
	assert.Equal(t, 2, outcome.AnalyzedCount)
	assert.Empty(t, outcome.Detections)
	assert.Empty(t, reverter.reverted)
	assert.Empty(t, bus.events)
}

func TestHandleBatchNoChangeRecordSkipsAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		t.Fatal("analyzer must not be called for a no-op record")
		return nil
	}}
	svc := newDetection(analyzer, &fakeReverter{}, &fakeBus{}, nil, config.Guardian{})

	outcome, err := svc.HandleBatch(context.Background(), []domain.CreatorEditHistory{{ID: "e0"}})
	require.NoError(t, err)

	assert.Equal(t, ActionClean, outcome.Action)
	assert.Equal(t, 1, outcome.AnalyzedCount)
}

func TestHandleBatchRiskBelowThresholdNotActed(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return maliciousVerdict(0.4)
	}}
	reverter := &fakeReverter{}
	svc := newDetection(analyzer, reverter, &fakeBus{}, nil, config.Guardian{})

	outcome, err := svc.HandleBatch(context.Background(), []domain.CreatorEditHistory{editRecord("e1")})
	require.NoError(t, err)

	assert.Equal(t, ActionClean, outcome.Action)
	assert.Empty(t, reverter.reverted)
}

func TestHandleBatchRevertFailureStillNotifies(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return maliciousVerdict(0.95)
	}}
	reverter := &fakeReverter{fn: func(*domain.CreatorEditHistory, string) domain.RevertResult {
		return domain.RevertResult{IsSuccess: false, Error: "creator not found"}
	}}
	bus := &fakeBus{}
	svc := newDetection(analyzer, reverter, bus, nil, config.Guardian{})

	outcome, err := svc.HandleBatch(context.Background(), []domain.CreatorEditHistory{editRecord("e1")})
	require.NoError(t, err)

	require.Len(t, outcome.Detections, 1)
	assert.False(t, outcome.Detections[0].AutoRevertSuccess)
	assert.Equal(t, "creator not found", outcome.Detections[0].RevertError)

	// notification still goes out so a human can intervene
	assert.Len(t, bus.byKind(domain.EventDiscordNotification), 1)
	assert.Len(t, bus.byKind(domain.EventEmergencyAlert), 1)
}

func TestHandleBatchIndeterminateFailOpen(t *testing.T) {
	verdicts := map[string]*domain.EditAnalysis{
		"e1": {Indeterminate: true, Reason: "failed to analyze description: classification unavailable"},
		"e2": maliciousVerdict(0.9),
	}
	analyzer := &fakeAnalyzer{fn: func(record *domain.CreatorEditHistory) *domain.EditAnalysis {
		return verdicts[record.ID]
	}}
	reverter := &fakeReverter{}
	bus := &fakeBus{}
	svc := newDetection(analyzer, reverter, bus, nil, config.Guardian{ClassifierFailMode: config.FailModeOpen})

	batch := []domain.CreatorEditHistory{editRecord("e1"), editRecord("e2")}
	outcome, err := svc.HandleBatch(context.Background(), batch)
	require.NoError(t, err)

	// fail-open: the indeterminate record is passed over, later records still run
	assert.Equal(t, []string{"e2"}, reverter.reverted)
	assert.Len(t, outcome.Detections, 1)
	assert.Empty(t, bus.byKind(domain.EventEmergencyAlert))
}

func TestHandleBatchIndeterminateFailClosed(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return &domain.EditAnalysis{Indeterminate: true, Reason: "failed to analyze description: classification unavailable"}
	}}
	reverter := &fakeReverter{}
	bus := &fakeBus{}
	svc := newDetection(analyzer, reverter, bus, nil, config.Guardian{ClassifierFailMode: config.FailModeClosed})

	outcome, err := svc.HandleBatch(context.Background(), []domain.CreatorEditHistory{editRecord("e1")})
	require.NoError(t, err)

	// fail-closed escalates for review but never auto-reverts unscored content
	assert.Empty(t, reverter.reverted)
	assert.Equal(t, ActionClean, outcome.Action)

	alerts := bus.byKind(domain.EventEmergencyAlert)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "manual review required")
}

func TestHandleBatchPublishesAuditTrail(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return maliciousVerdict(0.95)
	}}
	auditPublisher := &fakeAuditPublisher{}
	svc := newDetection(analyzer, &fakeReverter{}, &fakeBus{}, NewModerationAuditService(auditPublisher), config.Guardian{})

	_, err := svc.HandleBatch(context.Background(), []domain.CreatorEditHistory{editRecord("e1")})
	require.NoError(t, err)

	require.Len(t, auditPublisher.events, 2)
	assert.Equal(t, domain.AuditMaliciousEditDetected, auditPublisher.events[0].EventType)
	assert.Equal(t, domain.AuditEditReverted, auditPublisher.events[1].EventType)
	assert.Equal(t, "c-e1", auditPublisher.events[0].EntityID)
	assert.Equal(t, "u1", auditPublisher.events[0].Actor)
	assert.NotEmpty(t, auditPublisher.events[0].EventID)
}

func TestOnDetect(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(*domain.CreatorEditHistory) *domain.EditAnalysis {
		return cleanVerdict()
	}}
	svc := newDetection(analyzer, &fakeReverter{}, &fakeBus{}, nil, config.Guardian{})

	err := svc.OnDetect(context.Background(), []domain.CreatorEditHistory{editRecord("e1")})
	assert.NoError(t, err)
}
