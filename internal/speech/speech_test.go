package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phantomx-ai/phantomx/internal/audio"
)

func TestGoogleTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/speech:recognize") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") != "k" {
			http.Error(w, "missing key", http.StatusForbidden)
			return
		}
		var req recognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Config.Encoding != "WEBM_OPUS" || req.Config.SampleRateHertz != 48000 || req.Config.LanguageCode != "en-IN" {
			t.Errorf("unexpected config %+v", req.Config)
		}
		if len(req.Config.AlternativeLanguageCodes) != 5 || !req.Config.EnableAutomaticPunctuation || !req.Config.UseEnhanced {
			t.Errorf("unexpected recognition options %+v", req.Config)
		}
		raw, _ := base64.StdEncoding.DecodeString(req.Audio.Content)
		if string(raw) != "opus-bytes" {
			t.Errorf("unexpected audio payload %q", raw)
		}
		_, _ = w.Write([]byte(`{"results":[
			{"alternatives":[{"transcript":"Hello sir, ","confidence":0.9}],"languageCode":"en-in"},
			{"alternatives":[]},
			{"alternatives":[{"transcript":"your OTP please"}]}
		]}`))
	}))
	defer srv.Close()

	g, err := NewGoogle(GoogleConfig{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("new google: %v", err)
	}
	got, err := g.Transcribe(context.Background(), audio.Clip{Data: []byte("opus-bytes")})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got.Text != "Hello sir, your OTP please" {
		t.Fatalf("unexpected transcript %q", got.Text)
	}
	if got.Language != "en-in" {
		t.Fatalf("unexpected language %q", got.Language)
	}
}

func TestGoogleTranscribeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g, _ := NewGoogle(GoogleConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err := g.Transcribe(context.Background(), audio.Clip{Data: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := g.Transcribe(context.Background(), audio.Clip{}); !errors.Is(err, audio.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestNewGoogleRequiresKey(t *testing.T) {
	if _, err := NewGoogle(GoogleConfig{}); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/transcribe":
			if got := r.FormValue("model"); got != "small" {
				t.Errorf("expected model small, got %q", got)
			}
			f, _, err := r.FormFile("audio")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			if string(data) != "wav" {
				t.Errorf("unexpected audio %q", data)
			}
			_, _ = w.Write([]byte(`{"text":"","language":"hi","segments":[{"text":" aapka "},{"text":"parcel"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	wsp := NewWhisper(WhisperConfig{URL: srv.URL, Model: "small"})
	if !wsp.Available(context.Background()) {
		t.Fatalf("expected sidecar to be available")
	}
	got, err := wsp.Transcribe(context.Background(), audio.Clip{Data: []byte("wav"), Filename: "call.wav"})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got.Text != "aapka parcel" || got.Language != "hi" {
		t.Fatalf("unexpected transcript %+v", got)
	}
}

func TestWhisperError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wsp := NewWhisper(WhisperConfig{URL: srv.URL})
	if wsp.Available(context.Background()) {
		t.Fatalf("expected sidecar to be unavailable")
	}
	if _, err := wsp.Transcribe(context.Background(), audio.Clip{Data: []byte("x")}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTranscriptEmpty(t *testing.T) {
	if !(Transcript{Text: "  \n"}).Empty() {
		t.Fatalf("whitespace transcript should be empty")
	}
	if (Transcript{Text: "hi"}).Empty() {
		t.Fatalf("non-empty transcript reported empty")
	}
}
