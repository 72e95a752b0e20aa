package classification

import (
	"time"

	"github.com/phantomx-ai/phantomx/internal/signal"
)

const (
	maxResultKeywords = 5
	layerCompleted    = "Completed"
)

// Layers lists the analysis stages reported on every completed result.
var Layers = []string{"speech_to_text", "intent_detection", "deepfake_analysis", "final_classification"}

// Scores is the per-layer breakdown attached to a result.
type Scores struct {
	IntentConfidence   float64 `json:"intent_confidence" msgpack:"intent_confidence"`
	DeepfakeConfidence float64 `json:"deepfake_confidence" msgpack:"deepfake_confidence"`
	SpamIndicators     int     `json:"spam_indicators" msgpack:"spam_indicators"`
	BusinessIndicators int     `json:"business_indicators" msgpack:"business_indicators"`
}

// Feedback records whether the user agreed with a result.
type Feedback struct {
	IsCorrect   bool      `json:"is_correct" msgpack:"is_correct"`
	SubmittedAt time.Time `json:"submitted_at" msgpack:"submitted_at"`
}

// Result is the serialized classification returned to clients and persisted.
type Result struct {
	ID             string            `json:"id,omitempty" msgpack:"id,omitempty"`
	Type           signal.Label      `json:"type" msgpack:"type"`
	Confidence     float64           `json:"confidence" msgpack:"confidence"`
	RiskLevel      string            `json:"risk_level" msgpack:"risk_level"`
	Intent         string            `json:"intent" msgpack:"intent"`
	Recommendation string            `json:"recommendation" msgpack:"recommendation"`
	Details        string            `json:"details" msgpack:"details"`
	Keywords       []string          `json:"keywords" msgpack:"keywords"`
	Timestamp      string            `json:"timestamp" msgpack:"timestamp"`
	AnalysisLayers map[string]string `json:"analysis_layers,omitempty" msgpack:"analysis_layers,omitempty"`
	Scores         *Scores           `json:"scores,omitempty" msgpack:"scores,omitempty"`
	Transcript     string            `json:"transcript,omitempty" msgpack:"transcript,omitempty"`
	Feedback       *Feedback         `json:"feedback,omitempty" msgpack:"feedback,omitempty"`
}

// Failed reports whether the result came from the degraded path.
func (r Result) Failed() bool { return r.Type == signal.LabelUnknown }

// Build wraps a verdict in the result envelope stamped at now.
func Build(v Verdict, now time.Time) Result {
	kw := v.Keywords
	if len(kw) > maxResultKeywords {
		kw = kw[:maxResultKeywords]
	}
	out := make([]string, len(kw))
	copy(out, kw)

	r := Result{
		Type:           v.Type,
		Confidence:     v.Confidence,
		RiskLevel:      v.RiskLevel,
		Intent:         v.Message,
		Recommendation: v.Recommendation,
		Details:        v.Details,
		Keywords:       out,
		Timestamp:      now.UTC().Format(time.RFC3339Nano),
	}
	if v.Failed {
		return r
	}

	r.AnalysisLayers = make(map[string]string, len(Layers))
	for _, l := range Layers {
		r.AnalysisLayers[l] = layerCompleted
	}
	r.Scores = &Scores{
		IntentConfidence:   v.IntentConfidence,
		DeepfakeConfidence: v.DeepfakeConfidence,
		SpamIndicators:     v.SpamIndicators,
		BusinessIndicators: v.BusinessIndicators,
	}
	return r
}

// Classify decides and builds in one step.
func Classify(in *signal.Intent, df *signal.Deepfake, now time.Time) Result {
	return Build(Decide(in, df), now)
}
