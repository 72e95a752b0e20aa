package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phantomx-ai/phantomx/internal/audio"
	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
	"github.com/phantomx-ai/phantomx/internal/events"
	"github.com/phantomx-ai/phantomx/internal/intent"
	"github.com/phantomx-ai/phantomx/internal/logger"
	"github.com/phantomx-ai/phantomx/internal/nlp"
	"github.com/phantomx-ai/phantomx/internal/signal"
	"github.com/phantomx-ai/phantomx/internal/speech"
	"github.com/phantomx-ai/phantomx/internal/store"
	"github.com/phantomx-ai/phantomx/internal/telemetry"
)

// Layer names reported when a signal was degraded.
const (
	LayerSpeech   = "speech_to_text"
	LayerIntent   = "intent_detection"
	LayerDeepfake = "deepfake_analysis"
)

// Options wires the pipeline's collaborators. Only Store is required to be
// meaningful; nil capabilities degrade the corresponding layer.
type Options struct {
	Transcriber speech.Transcriber
	NLP         nlp.Client
	Scorer      deepfake.Scorer
	Store       store.Store
	Emitter     *events.Emitter
	Telemetry   *telemetry.Provider
	Logger      *logger.Logger
	// IncludeTranscriptPreview attaches a redacted transcript excerpt to events.
	IncludeTranscriptPreview bool
	Now                      func() time.Time
}

// Pipeline orchestrates one classification end to end.
type Pipeline struct {
	transcriber speech.Transcriber
	analyzer    *intent.Analyzer
	detector    *deepfake.Detector
	store       store.Store
	emitter     *events.Emitter
	tel         *telemetry.Provider
	log         *logger.Logger
	preview     bool
	now         func() time.Time
}

// New builds a pipeline. A nil store falls back to an in-memory store.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	st := opts.Store
	if st == nil {
		st = store.NewMemory()
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		transcriber: opts.Transcriber,
		analyzer:    intent.NewAnalyzer(opts.NLP, log),
		detector:    deepfake.NewDetector(opts.Scorer, log),
		store:       st,
		emitter:     opts.Emitter,
		tel:         tel,
		log:         log.WithComponent("pipeline"),
		preview:     opts.IncludeTranscriptPreview,
		now:         now,
	}
}

// Store exposes the persistence capability for read-side operations.
func (p *Pipeline) Store() store.Store { return p.store }

// Transcribe runs the speech capability. Unlike the other layers it returns
// errors, since the standalone speech operation reports them to the caller.
func (p *Pipeline) Transcribe(ctx context.Context, clip audio.Clip) (speech.Transcript, error) {
	if p.transcriber == nil {
		return speech.Transcript{}, speech.ErrNoTranscriber
	}
	ctx, span := p.tel.StartSpan(ctx, "phantomx.transcribe", map[string]interface{}{
		"backend":     p.transcriber.Name(),
		"audio_bytes": len(clip.Data),
	})
	defer span.End()

	start := time.Now()
	t, err := p.transcriber.Transcribe(ctx, clip)
	p.tel.RecordCapability(ctx, "speech", err == nil, events.Millis(time.Since(start)))
	if err != nil {
		span.RecordError(err)
		return speech.Transcript{}, err
	}
	return t, nil
}

// DetectIntent returns the intent signal for text. It never fails.
func (p *Pipeline) DetectIntent(ctx context.Context, text string) signal.Intent {
	ctx, span := p.tel.StartSpan(ctx, "phantomx.intent", nil)
	defer span.End()

	start := time.Now()
	out := p.analyzer.Detect(ctx, text)
	if p.analyzer.HasClient() && !intent.TooShort(text) {
		p.tel.RecordCapability(ctx, "nlp", out.Err == nil, events.Millis(time.Since(start)))
	}
	return out.Signal(text)
}

// DetectDeepfake scores the clip. It never fails.
func (p *Pipeline) DetectDeepfake(ctx context.Context, clip audio.Clip) signal.Deepfake {
	ctx, span := p.tel.StartSpan(ctx, "phantomx.deepfake", map[string]interface{}{"audio_bytes": len(clip.Data)})
	defer span.End()

	start := time.Now()
	out := p.detector.Detect(ctx, clip)
	p.tel.RecordCapability(ctx, "deepfake", out.Err == nil, events.Millis(time.Since(start)))
	return out.Signal()
}

// Submission is a fully prepared classification request.
type Submission struct {
	Transcript string
	Intent     *signal.Intent
	Deepfake   *signal.Deepfake
	Source     string
	RequestID  string
	Degraded   []string
	Timing     events.TimingMs
}

// Classify fuses the submitted signals, persists the result and publishes
// an event. The returned result carries its storage id. A storage failure is
// returned together with the unsaved result.
func (p *Pipeline) Classify(ctx context.Context, sub Submission) (classification.Result, error) {
	start := time.Now()
	ctx, span := p.tel.StartSpan(ctx, "phantomx.classify", map[string]interface{}{"source": sub.Source})
	defer span.End()

	res := classification.Classify(sub.Intent, sub.Deepfake, p.now())
	res.Transcript = sub.Transcript

	id, err := p.store.Save(ctx, res)
	if err != nil {
		span.RecordError(err)
		return res, fmt.Errorf("save result: %w", err)
	}
	res.ID = id

	degraded := sub.Degraded
	if res.Failed() {
		p.log.Warn("classification failed", logger.Fields(logger.FieldResultID, id, "details", res.Details))
	}

	timing := sub.Timing
	timing.Total += events.Millis(time.Since(start))
	p.tel.RecordClassification(ctx, string(res.Type), sub.Source, len(degraded) > 0 || res.Failed(), timing.Total)
	p.emitter.Emit(events.Build(events.BuildParams{
		Result:         res,
		RequestID:      sub.RequestID,
		Source:         sub.Source,
		Degraded:       degraded,
		Timing:         timing,
		IncludePreview: p.preview,
	}))

	p.log.Debug("call classified", logger.Fields(
		logger.FieldResultID, id,
		"type", string(res.Type),
		"confidence", res.Confidence,
		"source", sub.Source,
	))
	return res, nil
}

// AnalyzeCall runs the full pipeline over one recording. Transcription (then
// intent) and deepfake scoring run concurrently; each branch degrades on its
// own and never cancels the other.
func (p *Pipeline) AnalyzeCall(ctx context.Context, clip audio.Clip, requestID string) (classification.Result, error) {
	start := time.Now()

	var (
		transcript speech.Transcript
		in         signal.Intent
		df         signal.Deepfake
		timing     events.TimingMs
		speechErr  error
	)

	var g errgroup.Group
	g.Go(func() error {
		t0 := time.Now()
		transcript, speechErr = p.Transcribe(ctx, clip)
		if speechErr != nil {
			p.log.WithError(speechErr).Warn("transcription failed; continuing without transcript",
				logger.Fields(logger.FieldRequestID, requestID))
		}
		timing.Transcription = events.Millis(time.Since(t0))

		t1 := time.Now()
		in = p.DetectIntent(ctx, transcript.Text)
		timing.Intent = events.Millis(time.Since(t1))
		return nil
	})
	g.Go(func() error {
		t0 := time.Now()
		df = p.DetectDeepfake(ctx, clip)
		timing.Deepfake = events.Millis(time.Since(t0))
		return nil
	})
	_ = g.Wait()

	var degraded []string
	if speechErr != nil {
		degraded = append(degraded, LayerSpeech)
	}
	if in.Error != "" {
		degraded = append(degraded, LayerIntent)
	}
	if df.RiskTier == signal.TierUnknown {
		degraded = append(degraded, LayerDeepfake)
	}

	timing.Total = events.Millis(time.Since(start))
	return p.Classify(ctx, Submission{
		Transcript: transcript.Text,
		Intent:     &in,
		Deepfake:   &df,
		Source:     events.SourceAnalyzeCall,
		RequestID:  requestID,
		Degraded:   degraded,
		Timing:     timing,
	})
}

// Result returns one stored result by id.
func (p *Pipeline) Result(ctx context.Context, id string) (classification.Result, error) {
	return p.store.Get(ctx, id)
}

// History returns the newest stored results.
func (p *Pipeline) History(ctx context.Context, limit int) ([]classification.Result, error) {
	return p.store.History(ctx, limit)
}

// SubmitFeedback records whether the user agreed with a stored result.
func (p *Pipeline) SubmitFeedback(ctx context.Context, id string, correct bool) error {
	if err := p.store.SaveFeedback(ctx, id, correct); err != nil {
		return err
	}
	p.log.Info("feedback saved", logger.Fields(logger.FieldResultID, id, "is_correct", correct))
	return nil
}

// Stats returns the aggregate counters.
func (p *Pipeline) Stats(ctx context.Context) (store.Stats, error) {
	return p.store.Stats(ctx)
}
