// Package intent turns a transcript and optional sentiment hints into an
// intent signal.
package intent

import (
	"math"
	"unicode"

	"github.com/phantomx-ai/phantomx/internal/keywords"
	"github.com/phantomx-ai/phantomx/internal/signal"
)

const (
	minTextRunes = 3
	maxKeywords  = 10
	maxEntities  = 5

	baseConfidence = 60
	stepConfidence = 10
	capConfidence  = 90
	safeConfidence = 50
)

// Hints carries the externally computed sentiment and entities for a text.
type Hints struct {
	SentimentScore     float64  `json:"score"`
	SentimentMagnitude float64  `json:"magnitude"`
	Entities           []string `json:"entities,omitempty"`
}

// Outcome is the result of asking the NLP capability about a text.
type Outcome struct {
	Hints Hints
	Err   error
}

// Succeeded wraps hints from a successful NLP call.
func Succeeded(h Hints) Outcome { return Outcome{Hints: h} }

// Failed wraps an NLP error.
func Failed(err error) Outcome { return Outcome{Err: err} }

// Signal converts the outcome into an intent signal for text. A failed
// outcome yields the degraded unknown signal.
func (o Outcome) Signal(text string) signal.Intent {
	if o.Err != nil {
		return Degraded(o.Err)
	}
	return Aggregate(text, o.Hints)
}

// TooShort reports whether text has fewer than minTextRunes non-whitespace
// runes.
func TooShort(text string) bool {
	n := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		n++
		if n >= minTextRunes {
			return false
		}
	}
	return true
}

// Unknown is the signal for text that is empty or too short to analyze.
func Unknown() signal.Intent {
	return signal.Intent{
		Label:    signal.LabelUnknown,
		Keywords: []string{},
	}
}

// Degraded is the signal used when the NLP capability failed.
func Degraded(err error) signal.Intent {
	out := Unknown()
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// Aggregate scores text against the keyword lists and folds in the hints.
func Aggregate(text string, h Hints) signal.Intent {
	if TooShort(text) {
		return Unknown()
	}

	m := keywords.Extract(text)
	spam, business := m.SpamCount(), m.BusinessCount()

	label := signal.LabelSafe
	confidence := float64(safeConfidence)
	switch {
	case spam > business && spam > 0:
		label = signal.LabelSpam
		confidence = scoreConfidence(spam)
	case business > spam && business > 0:
		label = signal.LabelBusiness
		confidence = scoreConfidence(business)
	}

	kw := m.All()
	if len(kw) > maxKeywords {
		kw = kw[:maxKeywords]
	}
	entities := h.Entities
	if len(entities) > maxEntities {
		entities = entities[:maxEntities]
	}

	return signal.Intent{
		Label:              label,
		Confidence:         confidence,
		Keywords:           kw,
		SpamIndicators:     spam,
		BusinessIndicators: business,
		SentimentScore:     round3(h.SentimentScore),
		SentimentMagnitude: round3(h.SentimentMagnitude),
		Entities:           entities,
	}
}

func scoreConfidence(score int) float64 {
	return math.Min(capConfidence, float64(baseConfidence+stepConfidence*score))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
