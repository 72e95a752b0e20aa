package intent

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/phantomx-ai/phantomx/internal/nlp"
	"github.com/phantomx-ai/phantomx/internal/signal"
)

func TestAggregateShortText(t *testing.T) {
	for _, text := range []string{"", "  ", "hi", " a b ", "\t\nok\n", "a b", " o k ", "a\tb"} {
		got := Aggregate(text, Hints{SentimentScore: 0.9})
		if got.Label != signal.LabelUnknown || got.Confidence != 0 || len(got.Keywords) != 0 {
			t.Fatalf("text %q: expected unknown/0/[], got %+v", text, got)
		}
	}
}

func TestTooShortCountsNonWhitespace(t *testing.T) {
	cases := map[string]bool{
		"a b":      true,
		"a\tb":     true,
		"\u00a0ok": true,
		" a b c ":  false,
		"abc":      false,
	}
	for text, want := range cases {
		if got := TooShort(text); got != want {
			t.Fatalf("TooShort(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestAggregateScenarios(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		label      signal.Label
		confidence float64
		spam       int
		business   int
	}{
		{"financial fraud", "Your OTP is needed urgently, verify now", signal.LabelSpam, 90, 3, 0},
		{"single spam term", "You are a winner", signal.LabelSpam, 70, 1, 0},
		{"delivery", "Your Swiggy order is arriving, please come to the gate", signal.LabelBusiness, 90, 0, 4},
		{"two business terms", "The courier has your parcel", signal.LabelBusiness, 80, 0, 2},
		{"greeting", "Hello how are you", signal.LabelSafe, 50, 0, 0},
		{"tie", "Verify your order", signal.LabelSafe, 50, 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Aggregate(tc.text, Hints{})
			if got.Label != tc.label || got.Confidence != tc.confidence {
				t.Fatalf("expected %s/%v, got %s/%v", tc.label, tc.confidence, got.Label, got.Confidence)
			}
			if got.SpamIndicators != tc.spam || got.BusinessIndicators != tc.business {
				t.Fatalf("expected counts %d/%d, got %d/%d", tc.spam, tc.business, got.SpamIndicators, got.BusinessIndicators)
			}
		})
	}
}

func TestAggregateKeywordsSpamFirstAndCapped(t *testing.T) {
	text := "urgent: verify your otp, bank account blocked, prize lottery winner, click here, act now. Your delivery order package"
	got := Aggregate(text, Hints{})
	if len(got.Keywords) != maxKeywords {
		t.Fatalf("expected %d keywords, got %d (%v)", maxKeywords, len(got.Keywords), got.Keywords)
	}
	if got.Keywords[0] != "otp" {
		t.Fatalf("expected list-order keywords starting with otp, got %v", got.Keywords)
	}
	for _, kw := range got.Keywords {
		if kw == "delivery" {
			t.Fatalf("business keyword should come after spam terms and be truncated: %v", got.Keywords)
		}
	}
}

func TestAggregatePassesSentimentThrough(t *testing.T) {
	got := Aggregate("Your parcel is here", Hints{
		SentimentScore:     -0.12345,
		SentimentMagnitude: 1.5,
		Entities:           []string{"a", "b", "c", "d", "e", "f"},
	})
	if got.SentimentScore != -0.123 || got.SentimentMagnitude != 1.5 {
		t.Fatalf("unexpected sentiment %v/%v", got.SentimentScore, got.SentimentMagnitude)
	}
	if !reflect.DeepEqual(got.Entities, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("expected 5 entities, got %v", got.Entities)
	}
}

func TestOutcomeFailureDegrades(t *testing.T) {
	got := Failed(errors.New("quota exceeded")).Signal("Your OTP is needed urgently")
	if got.Label != signal.LabelUnknown || got.Confidence != 0 || len(got.Keywords) != 0 {
		t.Fatalf("expected degraded signal, got %+v", got)
	}
	if got.Error != "quota exceeded" {
		t.Fatalf("expected error text, got %q", got.Error)
	}
}

func TestAnalyzerSkipsClientForShortText(t *testing.T) {
	fake := &nlp.Fake{}
	a := NewAnalyzer(fake, nil)
	got := a.Analyze(context.Background(), "ok")
	if got.Label != signal.LabelUnknown {
		t.Fatalf("expected unknown, got %s", got.Label)
	}
	if fake.Calls != 0 {
		t.Fatalf("expected no nlp call, got %d", fake.Calls)
	}
}

func TestAnalyzerDegradesOnClientError(t *testing.T) {
	a := NewAnalyzer(&nlp.Fake{Err: errors.New("unavailable")}, nil)
	got := a.Analyze(context.Background(), "Please verify your OTP")
	if got.Label != signal.LabelUnknown || got.Confidence != 0 {
		t.Fatalf("expected degraded intent, got %+v", got)
	}
}

func TestAnalyzerUsesClientHints(t *testing.T) {
	fake := &nlp.Fake{Result: nlp.Analysis{SentimentScore: 0.3, SentimentMagnitude: 0.6, Entities: []string{"Amazon"}}}
	a := NewAnalyzer(fake, nil)
	got := a.Analyze(context.Background(), "Your amazon parcel is arriving")
	if got.Label != signal.LabelBusiness || got.Confidence != 90 {
		t.Fatalf("expected business/90, got %s/%v", got.Label, got.Confidence)
	}
	if got.SentimentScore != 0.3 || len(got.Entities) != 1 {
		t.Fatalf("expected hints to pass through, got %+v", got)
	}
}

func TestAnalyzerWithoutClient(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	got := a.Analyze(context.Background(), "Congratulations, you won a lottery prize")
	if got.Label != signal.LabelSpam {
		t.Fatalf("expected spam, got %s", got.Label)
	}
	if got.SentimentScore != 0 {
		t.Fatalf("expected neutral sentiment, got %v", got.SentimentScore)
	}
}
