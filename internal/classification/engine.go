// Package classification fuses the intent and deepfake signals into a single
// call verdict and wraps it in the result envelope returned to clients.
package classification

import (
	"fmt"
	"math"

	"github.com/phantomx-ai/phantomx/internal/signal"
)

// Blend weights for the overall confidence.
const (
	IntentWeight   = 0.6
	DeepfakeWeight = 0.4
)

// Risk levels shown to the user.
const (
	RiskHigh    = "High Risk"
	RiskSafe    = "Safe"
	RiskLow     = "Low Risk"
	RiskUnknown = "Unknown"
)

// Intent messages.
const (
	MessageFinancialFraud = "Financial Fraud Attempt"
	MessagePrizeScam      = "Prize/Lottery Scam"
	MessageSuspicious     = "Suspicious Call Activity"
	MessageDelivery       = "Delivery Service Call"
	MessageBusiness       = "Business Communication"
	MessageGeneral        = "General Call"
	MessageFailed         = "Analysis Failed"
)

const (
	recommendBlock   = "Block and report this call immediately"
	recommendAnswer  = "Safe to answer - appears to be a legitimate delivery/business call"
	recommendCaution = "Proceed with caution"
	recommendFailed  = "Unable to analyze call"

	detailsDeepfake = "AI-generated voice detected. Likely voice cloning scam."
	detailsSpam     = "Spam keywords and suspicious patterns detected."
	detailsBusiness = "Delivery or business-related call detected."
	detailsSafe     = "No clear spam indicators detected."
)

// Verdict is the fusion engine's decision for one call.
type Verdict struct {
	Type           signal.Label
	Confidence     float64
	RiskLevel      string
	Message        string
	Recommendation string
	Details        string
	Keywords       []string

	IntentConfidence   float64
	DeepfakeConfidence float64
	SpamIndicators     int
	BusinessIndicators int

	// Failed marks a verdict produced from missing or malformed signals.
	Failed bool
}

// Decide applies the decision table to the two signals. It never panics and
// never returns an error: bad input produces a failed verdict.
func Decide(in *signal.Intent, df *signal.Deepfake) Verdict {
	if err := in.Validate(); err != nil {
		return FailedVerdict(err)
	}
	if err := df.Validate(); err != nil {
		return FailedVerdict(err)
	}

	v := Verdict{
		Confidence:         blend(in.Confidence, df.Confidence),
		Keywords:           in.Keywords,
		IntentConfidence:   in.Confidence,
		DeepfakeConfidence: df.Confidence,
		SpamIndicators:     in.SpamIndicators,
		BusinessIndicators: in.BusinessIndicators,
	}
	if v.Keywords == nil {
		v.Keywords = []string{}
	}

	switch {
	case in.Label == signal.LabelSpam || df.IsDeepfake:
		v.Type = signal.LabelSpam
		v.RiskLevel = RiskHigh
		v.Recommendation = recommendBlock
		v.Details = detailsSpam
		if df.IsDeepfake {
			v.Details = detailsDeepfake
		}
	case in.Label == signal.LabelBusiness:
		v.Type = signal.LabelBusiness
		v.RiskLevel = RiskSafe
		v.Recommendation = recommendAnswer
		v.Details = detailsBusiness
	default:
		v.Type = signal.LabelSafe
		v.RiskLevel = RiskLow
		v.Recommendation = recommendCaution
		v.Details = detailsSafe
	}

	v.Message = message(v.Type, v.Keywords)
	return v
}

// FailedVerdict is the degraded verdict carrying cause in its details.
func FailedVerdict(cause error) Verdict {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return Verdict{
		Type:           signal.LabelUnknown,
		Confidence:     0,
		RiskLevel:      RiskUnknown,
		Message:        MessageFailed,
		Recommendation: recommendFailed,
		Details:        fmt.Sprintf("Error: %s", msg),
		Keywords:       []string{},
		Failed:         true,
	}
}

func message(t signal.Label, kw []string) string {
	switch t {
	case signal.LabelSpam:
		switch {
		case contains(kw, "otp", "verify"):
			return MessageFinancialFraud
		case contains(kw, "prize", "lottery"):
			return MessagePrizeScam
		}
		return MessageSuspicious
	case signal.LabelBusiness:
		if contains(kw, "delivery", "order") {
			return MessageDelivery
		}
		return MessageBusiness
	}
	return MessageGeneral
}

// contains reports whether any of terms is an exact element of kw.
func contains(kw []string, terms ...string) bool {
	for _, k := range kw {
		for _, t := range terms {
			if k == t {
				return true
			}
		}
	}
	return false
}

func blend(intentConf, deepfakeConf float64) float64 {
	return round2(IntentWeight*intentConf + DeepfakeWeight*deepfakeConf)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
