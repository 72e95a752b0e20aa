package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGoogleAnalyze(t *testing.T) {
	var gotKeys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKeys = append(gotKeys, r.URL.Query().Get("key"))

		var req googleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Document.Content != "Your parcel is outside" || req.Document.Type != "PLAIN_TEXT" {
			t.Errorf("unexpected document %+v", req.Document)
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "documents:analyzeSentiment"):
			_, _ = w.Write([]byte(`{"documentSentiment":{"magnitude":0.8,"score":-0.4}}`))
		case strings.HasSuffix(r.URL.Path, "documents:analyzeEntities"):
			_, _ = w.Write([]byte(`{"entities":[{"name":"parcel"},{"name":"gate"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewGoogle(GoogleConfig{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	got, err := client.Analyze(context.Background(), "Your parcel is outside")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.SentimentScore != -0.4 || got.SentimentMagnitude != 0.8 {
		t.Fatalf("unexpected sentiment %+v", got)
	}
	if len(got.Entities) != 2 || got.Entities[0] != "parcel" {
		t.Fatalf("unexpected entities %v", got.Entities)
	}
	if len(gotKeys) != 2 || gotKeys[0] != "test-key" {
		t.Fatalf("expected api key on both calls, got %v", gotKeys)
	}
}

func TestGoogleAnalyzeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	client, err := NewGoogle(GoogleConfig{BaseURL: srv.URL, APIKey: "bad"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Analyze(context.Background(), "hello there")
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewGoogleRequiresKey(t *testing.T) {
	if _, err := NewGoogle(GoogleConfig{}); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}
