package deepfake

import (
	"context"
	"errors"
	"sync"

	"github.com/phantomx-ai/phantomx/internal/audio"
	"github.com/phantomx-ai/phantomx/internal/logger"
)

// ErrNoScorer is returned when no deepfake backend is configured.
var ErrNoScorer = errors.New("deepfake scorer not configured")

// Scorer returns the probability that a clip contains a synthetic voice.
type Scorer interface {
	Score(ctx context.Context, clip audio.Clip) (float64, error)
}

// Predictor is the inference half of a scorer.
type Predictor interface {
	Predict(features Features) (float64, error)
}

// ModelScorer pairs a feature extractor with a model.
type ModelScorer struct {
	extractor FeatureExtractor
	model     Predictor
}

// NewModelScorer builds a scorer from an extractor and a predictor.
func NewModelScorer(extractor FeatureExtractor, model Predictor) *ModelScorer {
	return &ModelScorer{extractor: extractor, model: model}
}

func (s *ModelScorer) Score(ctx context.Context, clip audio.Clip) (float64, error) {
	if s == nil || s.extractor == nil || s.model == nil {
		return 0, ErrNoScorer
	}
	features, err := s.extractor.Extract(ctx, clip)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.model.Predict(features)
}

// Detector wraps a scorer and never fails: errors degrade the signal.
type Detector struct {
	scorer Scorer
	log    *logger.Logger
}

// NewDetector returns a detector. A nil scorer always yields the degraded signal.
func NewDetector(scorer Scorer, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{scorer: scorer, log: log.WithComponent("deepfake")}
}

// Detect scores the clip and returns the outcome.
func (d *Detector) Detect(ctx context.Context, clip audio.Clip) Outcome {
	if d.scorer == nil {
		return Failed(ErrNoScorer)
	}
	if clip.Empty() {
		return Failed(audio.ErrEmpty)
	}
	p, err := d.scorer.Score(ctx, clip)
	if err != nil {
		d.log.WithError(err).Warn("deepfake scoring failed; signal degraded")
		return Failed(err)
	}
	return Scored(p)
}

// Fake is a Scorer for tests.
type Fake struct {
	Probability float64
	Err         error

	mu    sync.Mutex
	Calls int
}

func (f *Fake) Score(ctx context.Context, clip audio.Clip) (float64, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Probability, nil
}

// StaticExtractor returns fixed features. Useful with a real model in benchmarks.
type StaticExtractor struct {
	Features Features
}

func (s StaticExtractor) Extract(ctx context.Context, clip audio.Clip) (Features, error) {
	if clip.Empty() {
		return Features{}, audio.ErrEmpty
	}
	return s.Features, nil
}
