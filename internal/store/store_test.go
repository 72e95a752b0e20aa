package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
	"github.com/phantomx-ai/phantomx/internal/intent"
	"github.com/phantomx-ai/phantomx/internal/signal"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	s := newRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  newTestRedis(t),
	}
}

func result(text string, p float64) classification.Result {
	in := intent.Aggregate(text, intent.Hints{})
	df := deepfake.FromProbability(p)
	return classification.Classify(&in, &df, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestStoreSaveAndHistory(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			texts := []string{"Your OTP is needed", "Your parcel is arriving", "Hello how are you"}
			ids := make([]string, len(texts))
			for i, text := range texts {
				id, err := s.Save(ctx, result(text, 0.1))
				if err != nil {
					t.Fatalf("save: %v", err)
				}
				if id == "" {
					t.Fatalf("expected generated id")
				}
				ids[i] = id
			}

			hist, err := s.History(ctx, 2)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(hist) != 2 || hist[0].ID != ids[2] || hist[1].ID != ids[1] {
				t.Fatalf("expected newest first, got %+v", hist)
			}
			if hist[1].Type != signal.LabelBusiness || hist[1].Scores == nil || hist[1].AnalysisLayers["final_classification"] != "Completed" {
				t.Fatalf("result not round-tripped: %+v", hist[1])
			}

			all, err := s.History(ctx, 0)
			if err != nil || len(all) != 3 {
				t.Fatalf("expected default limit to return all 3, got %d (%v)", len(all), err)
			}

			got, err := s.Get(ctx, ids[0])
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Type != signal.LabelSpam || got.Keywords[0] != "otp" {
				t.Fatalf("unexpected result %+v", got)
			}
		})
	}
}

func TestStoreStats(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, r := range []classification.Result{
				result("Your OTP is needed", 0.1),
				result("Hello how are you", 0.9),
				result("Your parcel is arriving", 0.1),
				result("Hello how are you", 0.1),
				classification.Classify(nil, nil, time.Now()),
			} {
				if _, err := s.Save(ctx, r); err != nil {
					t.Fatalf("save: %v", err)
				}
			}
			got, err := s.Stats(ctx)
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			want := Stats{Total: 5, Spam: 2, Business: 1, Safe: 1}
			if got != want {
				t.Fatalf("expected %+v, got %+v", want, got)
			}
		})
	}
}

func TestStoreFeedback(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.Save(ctx, result("Congratulations, lottery winner", 0.2))
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := s.SaveFeedback(ctx, id, false); err != nil {
				t.Fatalf("feedback: %v", err)
			}

			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Feedback == nil || got.Feedback.IsCorrect || got.Feedback.SubmittedAt.IsZero() {
				t.Fatalf("feedback not attached: %+v", got.Feedback)
			}

			log, err := s.Feedback(ctx)
			if err != nil {
				t.Fatalf("feedback log: %v", err)
			}
			if len(log) != 1 || log[0].ResultID != id || log[0].IsCorrect {
				t.Fatalf("unexpected feedback log %+v", log)
			}

			if err := s.SaveFeedback(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStoreEmptyHistory(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			hist, err := s.History(context.Background(), 10)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if hist == nil || len(hist) != 0 {
				t.Fatalf("expected empty non-nil history, got %v", hist)
			}
			if err := s.Ping(context.Background()); err != nil {
				t.Fatalf("ping: %v", err)
			}
		})
	}
}
