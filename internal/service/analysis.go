package service

import (
	"context"
	"fmt"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/classifier"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ToxicityClassifier scores one text over the fixed attribute set.
type ToxicityClassifier interface {
	AnalyzeToxicity(ctx context.Context, text string) (*classifier.ToxicityAnalysis, error)
}

type AnalysisService struct {
	classifier ToxicityClassifier
}

func NewAnalysisService(c ToxicityClassifier) *AnalysisService {
	return &AnalysisService{classifier: c}
}

type textField struct {
	field string
	text  string
}

// AnalyzeSingle extracts the after-value of every changed free-text field
// (display name, description; URLs and tags are not classified), scores each
// concurrently, and aggregates: the first malicious field verdict wins
// verbatim, otherwise the first indeterminate one, otherwise the first
// field's clean verdict. Never returns an error: a failed classification
// becomes an indeterminate verdict.
func (s *AnalysisService) AnalyzeSingle(ctx context.Context, record *domain.CreatorEditHistory) *domain.EditAnalysis {
	fields := extractTextFields(record)
	if len(fields) == 0 {
		return cleanAnalysis("no text content to analyze")
	}

	results := make([]*domain.EditAnalysis, len(fields))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range fields {
		g.Go(func() error {
			results[i] = s.analyzeText(ctx, f.field, f.text)
			return nil
		})
	}
	// Workers never return errors; Wait is only a join point.
	_ = g.Wait()

	return aggregate(results)
}

func extractTextFields(record *domain.CreatorEditHistory) []textField {
	var fields []textField

	if b := record.BasicInfoChanges; b != nil {
		if b.Name != nil && b.Name.After != "" {
			fields = append(fields, textField{field: "name", text: b.Name.After})
		}
		if b.Description != nil && b.Description.After != "" {
			fields = append(fields, textField{field: "description", text: b.Description.After})
		}
	}

	return fields
}

func (s *AnalysisService) analyzeText(ctx context.Context, field, text string) *domain.EditAnalysis {
	analysis, err := s.classifier.AnalyzeToxicity(ctx, text)
	if err != nil {
		log.WithError(err).WithField("field", field).Warn("Toxicity classification failed")
		return &domain.EditAnalysis{
			IsMalicious:   false,
			RiskScore:     0,
			Reason:        fmt.Sprintf("failed to analyze %s: classification unavailable", field),
			Details:       err.Error(),
			Indeterminate: true,
		}
	}

	scores := analysis.Scores

	if !analysis.IsToxic {
		return &domain.EditAnalysis{
			IsMalicious: false,
			RiskScore:   scores.Toxicity,
			Reason:      "content appears clean",
			Scores:      &scores,
		}
	}

	return &domain.EditAnalysis{
		IsMalicious:    true,
		RiskScore:      scores.Toxicity,
		Reason:         fmt.Sprintf("toxic content detected in %s", field),
		Details:        fmt.Sprintf("toxicity score: %.2f", scores.Toxicity),
		FlaggedContent: []string{text},
		Scores:         &scores,
	}
}

// aggregate keeps the first malicious verdict verbatim. Field order (name
// before description) decides ties between two malicious fields.
func aggregate(results []*domain.EditAnalysis) *domain.EditAnalysis {
	for _, r := range results {
		if r.IsMalicious {
			return r
		}
	}
	for _, r := range results {
		if r.Indeterminate {
			return r
		}
	}
	return results[0]
}

func cleanAnalysis(reason string) *domain.EditAnalysis {
	return &domain.EditAnalysis{
		IsMalicious: false,
		RiskScore:   0,
		Reason:      reason,
	}
}
