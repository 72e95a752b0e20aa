package signal

import (
	"fmt"
	"math"
	"strings"
)

// Label is the intent class assigned to a call transcript.
type Label string

const (
	LabelSpam     Label = "spam"
	LabelBusiness Label = "business"
	LabelSafe     Label = "safe"
	LabelUnknown  Label = "unknown"
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelSpam, LabelBusiness, LabelSafe, LabelUnknown:
		return true
	}
	return false
}

// RiskTier is the deepfake layer's own risk grading.
type RiskTier string

const (
	TierLow     RiskTier = "Low"
	TierHigh    RiskTier = "High"
	TierUnknown RiskTier = "Unknown"
)

// ParseRiskTier matches s against the known tiers, ignoring case and
// surrounding space.
func ParseRiskTier(s string) (RiskTier, bool) {
	s = strings.TrimSpace(s)
	for _, t := range []RiskTier{TierLow, TierHigh, TierUnknown} {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

// Intent is the text-intent layer output for one call.
type Intent struct {
	Label              Label    `json:"intent"`
	Confidence         float64  `json:"confidence"`
	Keywords           []string `json:"keywords"`
	SpamIndicators     int      `json:"spam_indicators"`
	BusinessIndicators int      `json:"business_indicators"`
	SentimentScore     float64  `json:"sentiment_score"`
	SentimentMagnitude float64  `json:"sentiment_magnitude"`
	Entities           []string `json:"entities,omitempty"`
	// Error is set when the signal was degraded because an upstream call failed.
	Error string `json:"error,omitempty"`
}

// Validate checks the fields the fusion engine depends on.
func (i *Intent) Validate() error {
	if i == nil {
		return fmt.Errorf("missing intent signal")
	}
	if !i.Label.Valid() {
		return fmt.Errorf("unknown intent label %q", i.Label)
	}
	if err := checkPercent("intent confidence", i.Confidence); err != nil {
		return err
	}
	if i.SpamIndicators < 0 || i.BusinessIndicators < 0 {
		return fmt.Errorf("negative indicator count")
	}
	return nil
}

// Deepfake is the voice-authenticity layer output for one call.
type Deepfake struct {
	IsDeepfake       bool            `json:"is_deepfake"`
	Confidence       float64         `json:"confidence"`
	RiskTier         RiskTier        `json:"risk_level"`
	FeaturesAnalyzed map[string]bool `json:"features_analyzed,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// Validate checks the fields the fusion engine depends on. The tier is
// informational and not checked.
func (d *Deepfake) Validate() error {
	if d == nil {
		return fmt.Errorf("missing deepfake signal")
	}
	return checkPercent("deepfake confidence", d.Confidence)
}

func checkPercent(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not a number", name)
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("%s %.2f outside [0,100]", name, v)
	}
	return nil
}
