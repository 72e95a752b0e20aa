package intent

import (
	"context"

	"github.com/phantomx-ai/phantomx/internal/logger"
	"github.com/phantomx-ai/phantomx/internal/nlp"
	"github.com/phantomx-ai/phantomx/internal/signal"
)

// Analyzer produces intent signals, consulting an NLP client when present.
type Analyzer struct {
	client nlp.Client
	log    *logger.Logger
}

// NewAnalyzer returns an analyzer. A nil client means keyword-only scoring
// with neutral sentiment.
func NewAnalyzer(client nlp.Client, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{client: client, log: log.WithComponent("intent")}
}

// Detect asks the NLP client about text and returns the resulting outcome.
// Short text never reaches the client.
func (a *Analyzer) Detect(ctx context.Context, text string) Outcome {
	if TooShort(text) || a.client == nil {
		return Succeeded(Hints{})
	}
	res, err := a.client.Analyze(ctx, text)
	if err != nil {
		a.log.WithError(err).Warn("nlp analysis failed; intent degraded", logger.Fields("provider", a.client.Name()))
		return Failed(err)
	}
	return Succeeded(Hints{
		SentimentScore:     res.SentimentScore,
		SentimentMagnitude: res.SentimentMagnitude,
		Entities:           res.Entities,
	})
}

// Analyze returns the intent signal for text. It never fails.
func (a *Analyzer) Analyze(ctx context.Context, text string) signal.Intent {
	return a.Detect(ctx, text).Signal(text)
}

// HasClient reports whether an NLP client is configured.
func (a *Analyzer) HasClient() bool { return a != nil && a.client != nil }
