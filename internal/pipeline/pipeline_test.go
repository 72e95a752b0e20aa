package pipeline

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/phantomx-ai/phantomx/internal/audio"
	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
	"github.com/phantomx-ai/phantomx/internal/events"
	"github.com/phantomx-ai/phantomx/internal/intent"
	"github.com/phantomx-ai/phantomx/internal/nlp"
	"github.com/phantomx-ai/phantomx/internal/signal"
	"github.com/phantomx-ai/phantomx/internal/speech"
	"github.com/phantomx-ai/phantomx/internal/store"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestClassifyTextScenarios(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		p          float64
		typ        signal.Label
		message    string
		risk       string
		confidence float64
	}{
		{"A", "Your OTP is needed urgently, verify now", 0.2, signal.LabelSpam, classification.MessageFinancialFraud, classification.RiskHigh, 86},
		{"B", "Your Swiggy order is arriving, please come to the gate", 0.1, signal.LabelBusiness, classification.MessageDelivery, classification.RiskSafe, 90},
		{"C", "Hello how are you", 0.9, signal.LabelSpam, classification.MessageSuspicious, classification.RiskHigh, 66},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := ClassifyText(tc.text, intent.Hints{}, deepfake.Scored(tc.p), fixedNow)
			if r.Type != tc.typ || r.Intent != tc.message || r.RiskLevel != tc.risk {
				t.Fatalf("unexpected result %+v", r)
			}
			if math.Abs(r.Confidence-tc.confidence) > 1e-9 {
				t.Fatalf("expected confidence %v, got %v", tc.confidence, r.Confidence)
			}
		})
	}
}

func TestClassifyTextDegradedInputs(t *testing.T) {
	r := ClassifyText("", intent.Hints{}, deepfake.Failed(errors.New("no model")), fixedNow)
	if r.Type != signal.LabelSafe || r.Confidence != 20 {
		t.Fatalf("expected safe/20 from unknown intent and degraded deepfake, got %s/%v", r.Type, r.Confidence)
	}
	if r.Scores == nil || r.Scores.DeepfakeConfidence != 50 || r.Scores.IntentConfidence != 0 {
		t.Fatalf("unexpected scores %+v", r.Scores)
	}
}

func TestClassifyTextIdempotent(t *testing.T) {
	a := ClassifyText("Congratulations you won a prize", intent.Hints{SentimentScore: 0.7}, deepfake.Scored(0.4), fixedNow)
	b := ClassifyText("Congratulations you won a prize", intent.Hints{SentimentScore: 0.7}, deepfake.Scored(0.4), fixedNow)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical results:\n%+v\n%+v", a, b)
	}
}

type recordingSink struct {
	ch chan *events.Event
}

func (s *recordingSink) Name() string { return "recording" }
func (s *recordingSink) Deliver(_ context.Context, ev *events.Event) error {
	s.ch <- ev
	return nil
}
func (s *recordingSink) Close(context.Context) error { return nil }

func newPipeline(t *testing.T, opts Options) (*Pipeline, *recordingSink) {
	t.Helper()
	sink := &recordingSink{ch: make(chan *events.Event, 16)}
	em := events.NewEmitter(events.EmitterConfig{QueueSize: 16}, []events.Sink{sink}, nil)
	t.Cleanup(func() { em.Close(context.Background()) })
	opts.Emitter = em
	opts.Now = func() time.Time { return fixedNow }
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	return New(opts), sink
}

func waitEvent(t *testing.T, sink *recordingSink) *events.Event {
	t.Helper()
	select {
	case ev := <-sink.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return nil
	}
}

func TestAnalyzeCall(t *testing.T) {
	tr := &speech.Fake{Result: speech.Transcript{Text: "Sir your bank account is blocked, share the OTP to verify", Language: "en-IN"}}
	scorer := &deepfake.Fake{Probability: 0.2}
	p, sink := newPipeline(t, Options{Transcriber: tr, NLP: &nlp.Fake{}, Scorer: scorer})

	res, err := p.AnalyzeCall(context.Background(), audio.Clip{Data: []byte("webm")}, "req-1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.ID == "" || res.Transcript == "" {
		t.Fatalf("expected id and transcript, got %+v", res)
	}
	if res.Type != signal.LabelSpam || res.Intent != classification.MessageFinancialFraud {
		t.Fatalf("unexpected verdict %+v", res)
	}
	if res.Scores.DeepfakeConfidence != 80 {
		t.Fatalf("expected deepfake confidence 80, got %v", res.Scores.DeepfakeConfidence)
	}
	if tr.Calls != 1 || scorer.Calls != 1 {
		t.Fatalf("expected each capability once, got %d/%d", tr.Calls, scorer.Calls)
	}

	ev := waitEvent(t, sink)
	if ev.ResultID != res.ID || ev.RequestID != "req-1" || ev.Source != events.SourceAnalyzeCall || len(ev.Degraded) != 0 {
		t.Fatalf("unexpected event %+v", ev)
	}

	stored, err := p.Store().Get(context.Background(), res.ID)
	if err != nil || stored.Type != signal.LabelSpam {
		t.Fatalf("result not stored: %+v (%v)", stored, err)
	}
}

func TestAnalyzeCallDegradesEachLayer(t *testing.T) {
	p, sink := newPipeline(t, Options{
		Transcriber: &speech.Fake{Err: errors.New("speech quota exceeded")},
		Scorer:      &deepfake.Fake{Err: errors.New("feature sidecar down")},
	})

	res, err := p.AnalyzeCall(context.Background(), audio.Clip{Data: []byte("webm")}, "req-2")
	if err != nil {
		t.Fatalf("degraded layers must not fail the call: %v", err)
	}
	if res.Type != signal.LabelSafe || res.Scores.DeepfakeConfidence != 50 || res.Scores.IntentConfidence != 0 {
		t.Fatalf("expected schema-valid degraded result, got %+v", res)
	}
	if len(res.AnalysisLayers) != 4 {
		t.Fatalf("expected static layers, got %v", res.AnalysisLayers)
	}

	ev := waitEvent(t, sink)
	want := []string{LayerSpeech, LayerDeepfake}
	if !reflect.DeepEqual(ev.Degraded, want) {
		t.Fatalf("expected degraded %v, got %v", want, ev.Degraded)
	}
}

func TestAnalyzeCallNLPFailure(t *testing.T) {
	p, sink := newPipeline(t, Options{
		Transcriber: &speech.Fake{Result: speech.Transcript{Text: "Your parcel is at the gate"}},
		NLP:         &nlp.Fake{Err: errors.New("nlp 503")},
		Scorer:      &deepfake.Fake{Probability: 0.1},
	})

	res, err := p.AnalyzeCall(context.Background(), audio.Clip{Data: []byte("webm")}, "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Type != signal.LabelSafe || res.Scores.IntentConfidence != 0 {
		t.Fatalf("expected degraded intent, got %+v", res)
	}
	if ev := waitEvent(t, sink); !reflect.DeepEqual(ev.Degraded, []string{LayerIntent}) {
		t.Fatalf("expected intent degraded, got %v", ev.Degraded)
	}
}

func TestTranscribeWithoutBackend(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	if _, err := p.Transcribe(context.Background(), audio.Clip{Data: []byte("x")}); !errors.Is(err, speech.ErrNoTranscriber) {
		t.Fatalf("expected ErrNoTranscriber, got %v", err)
	}
}

func TestClassifyMalformedSubmission(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	res, err := p.Classify(context.Background(), Submission{Source: events.SourceClassifyCall})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !res.Failed() || res.Details != "Error: missing intent signal" || res.ID == "" {
		t.Fatalf("expected stored failed result, got %+v", res)
	}
}

type failingStore struct{ store.Store }

func (failingStore) Save(context.Context, classification.Result) (string, error) {
	return "", errors.New("redis unavailable")
}

func TestClassifyStorageFailure(t *testing.T) {
	p, _ := newPipeline(t, Options{Store: failingStore{store.NewMemory()}})
	in := intent.Aggregate("hello there", intent.Hints{})
	df := deepfake.FromProbability(0.1)
	res, err := p.Classify(context.Background(), Submission{Intent: &in, Deepfake: &df})
	if err == nil {
		t.Fatalf("expected storage error")
	}
	if res.ID != "" || res.Type != signal.LabelSafe {
		t.Fatalf("expected unsaved result, got %+v", res)
	}
}

func TestFeedbackAndStats(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	ctx := context.Background()

	in := intent.Aggregate("Your amazon delivery is here", intent.Hints{})
	df := deepfake.FromProbability(0.1)
	res, err := p.Classify(ctx, Submission{Intent: &in, Deepfake: &df})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if err := p.SubmitFeedback(ctx, res.ID, true); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if err := p.SubmitFeedback(ctx, "nope", true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stats, err := p.Stats(ctx)
	if err != nil || stats.Total != 1 || stats.Business != 1 {
		t.Fatalf("unexpected stats %+v (%v)", stats, err)
	}
	hist, err := p.History(ctx, 10)
	if err != nil || len(hist) != 1 || hist[0].Feedback == nil || !hist[0].Feedback.IsCorrect {
		t.Fatalf("unexpected history %+v (%v)", hist, err)
	}
}
