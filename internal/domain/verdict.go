package domain

// ToxicityScore holds the per-attribute scores returned by the
// classification provider, each in [0,1].
type ToxicityScore struct {
	Toxicity       float64 `json:"toxicity"`
	SevereToxicity float64 `json:"severe_toxicity"`
	IdentityAttack float64 `json:"identity_attack"`
	Insult         float64 `json:"insult"`
	Profanity      float64 `json:"profanity"`
	Threat         float64 `json:"threat"`
}

// EditAnalysis is the verdict for one analyzed text field or one aggregated
// edit record. Indeterminate marks a verdict produced from a failed
// classification call: the content was never actually scored.
type EditAnalysis struct {
	IsMalicious    bool           `json:"is_malicious"`
	RiskScore      float64        `json:"risk_score"`
	Reason         string         `json:"reason"`
	Details        string         `json:"details,omitempty"`
	FlaggedContent []string       `json:"flagged_content,omitempty"`
	Scores         *ToxicityScore `json:"scores,omitempty"`
	Indeterminate  bool           `json:"indeterminate,omitempty"`
}
