// Package nlp defines the natural-language capability used for sentiment and
// entity analysis of call transcripts.
package nlp

import (
	"context"
	"sync"
)

// Analysis is the capability's view of one text.
type Analysis struct {
	SentimentScore     float64
	SentimentMagnitude float64
	Entities           []string
}

// Client analyzes text with an external NLP service.
type Client interface {
	Name() string
	Analyze(ctx context.Context, text string) (Analysis, error)
}

// Fake returns a fixed analysis or error. Used by tests and offline runs.
type Fake struct {
	Result Analysis
	Err    error

	mu    sync.Mutex
	Calls int
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Analyze(ctx context.Context, text string) (Analysis, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return Analysis{}, f.Err
	}
	return f.Result, nil
}
