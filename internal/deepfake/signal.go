// Package deepfake scores call audio for synthetic (cloned) voices and turns
// the raw probability into a signal for the classifier.
package deepfake

import (
	"fmt"
	"math"

	"github.com/phantomx-ai/phantomx/internal/signal"
)

const (
	// Threshold is the probability above which a voice is treated as synthetic.
	Threshold = 0.5

	degradedConfidence = 50.0
)

// Outcome is the result of scoring one clip.
type Outcome struct {
	Probability float64
	Err         error
}

// Scored wraps a probability from a successful scoring call.
func Scored(p float64) Outcome { return Outcome{Probability: p} }

// Failed wraps a scoring error.
func Failed(err error) Outcome { return Outcome{Err: err} }

// Signal converts the outcome into a deepfake signal. Failures and
// probabilities outside [0,1] yield the degraded signal.
func (o Outcome) Signal() signal.Deepfake {
	if o.Err != nil {
		return Degraded(o.Err)
	}
	p := o.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Degraded(fmt.Errorf("probability %v outside [0,1]", p))
	}
	return FromProbability(p)
}

// FromProbability maps p in [0,1] to a verdict, confidence and tier.
func FromProbability(p float64) signal.Deepfake {
	isDeepfake := p > Threshold
	conf := 1 - p
	tier := signal.TierLow
	if isDeepfake {
		conf = p
		tier = signal.TierHigh
	}
	return signal.Deepfake{
		IsDeepfake:       isDeepfake,
		Confidence:       round2(conf * 100),
		RiskTier:         tier,
		FeaturesAnalyzed: analyzedFeatures(),
	}
}

// Degraded is the non-alarming default used when scoring failed.
func Degraded(err error) signal.Deepfake {
	out := signal.Deepfake{
		IsDeepfake: false,
		Confidence: degradedConfidence,
		RiskTier:   signal.TierUnknown,
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func analyzedFeatures() map[string]bool {
	return map[string]bool{
		"mfcc":               true,
		"spectral_features":  true,
		"pitch_analysis":     true,
		"zero_crossing_rate": true,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
