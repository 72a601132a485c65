package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"
)

// ToxicThreshold is the fixed policy cutoff: a text is toxic when its
// toxicity attribute score exceeds it.
const ToxicThreshold = 0.7

const analyzeEndpoint = "/v1alpha1/comments:analyze"

// ToxicityAnalysis is the classification result for one text.
type ToxicityAnalysis struct {
	Scores     domain.ToxicityScore `json:"scores"`
	IsToxic    bool                 `json:"is_toxic"`
	Confidence float64              `json:"confidence"`
}

// PerspectiveClient calls the Google Perspective API comment analyzer.
type PerspectiveClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
}

func NewPerspectiveClient(apiKey, baseURL, language string) *PerspectiveClient {
	return &PerspectiveClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		language:   language,
	}
}

type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
	} `json:"comment"`
	Languages           []string            `json:"languages"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
}

type attributeScore struct {
	SummaryScore struct {
		Value      float64 `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"summaryScore"`
}

type analyzeResponse struct {
	AttributeScores map[string]attributeScore `json:"attributeScores"`
}

// AnalyzeToxicity scores a single text over the fixed attribute set.
func (c *PerspectiveClient) AnalyzeToxicity(ctx context.Context, text string) (*ToxicityAnalysis, error) {
	reqBody := analyzeRequest{
		Languages: []string{c.language},
		RequestedAttributes: map[string]struct{}{
			"TOXICITY":        {},
			"SEVERE_TOXICITY": {},
			"IDENTITY_ATTACK": {},
			"INSULT":          {},
			"PROFANITY":       {},
			"THREAT":          {},
		},
	}
	reqBody.Comment.Text = text

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	url := fmt.Sprintf("%s%s?key=%s", c.baseURL, analyzeEndpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call perspective api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("perspective api error: status %d: %s", resp.StatusCode, string(body))
	}

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode perspective response: %w", err)
	}

	scores := domain.ToxicityScore{
		Toxicity:       result.AttributeScores["TOXICITY"].SummaryScore.Value,
		SevereToxicity: result.AttributeScores["SEVERE_TOXICITY"].SummaryScore.Value,
		IdentityAttack: result.AttributeScores["IDENTITY_ATTACK"].SummaryScore.Value,
		Insult:         result.AttributeScores["INSULT"].SummaryScore.Value,
		Profanity:      result.AttributeScores["PROFANITY"].SummaryScore.Value,
		Threat:         result.AttributeScores["THREAT"].SummaryScore.Value,
	}

	confidence := result.AttributeScores["TOXICITY"].SummaryScore.Confidence
	if confidence == 0 {
		confidence = 0.5
	}

	return &ToxicityAnalysis{
		Scores:     scores,
		IsToxic:    scores.Toxicity > ToxicThreshold,
		Confidence: confidence,
	}, nil
}
