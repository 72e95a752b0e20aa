package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGoogleBaseURL = "https://language.googleapis.com/v1"
	defaultGoogleTimeout = 15 * time.Second
	defaultLanguage      = "en"
)

// GoogleConfig configures the Cloud Natural Language REST client.
type GoogleConfig struct {
	BaseURL  string
	APIKey   string
	Language string
	Timeout  time.Duration
}

// Google calls documents:analyzeSentiment and documents:analyzeEntities.
type Google struct {
	cfg    GoogleConfig
	client *http.Client
}

// NewGoogle creates a Cloud Natural Language client.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("google nlp: api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGoogleBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGoogleTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Google{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (g *Google) Name() string { return "google" }

type googleDocument struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

type googleRequest struct {
	Document     googleDocument `json:"document"`
	EncodingType string         `json:"encodingType"`
}

type sentimentResponse struct {
	DocumentSentiment struct {
		Magnitude float64 `json:"magnitude"`
		Score     float64 `json:"score"`
	} `json:"documentSentiment"`
}

type entitiesResponse struct {
	Entities []struct {
		Name string `json:"name"`
	} `json:"entities"`
}

// Analyze runs sentiment then entity analysis on text.
func (g *Google) Analyze(ctx context.Context, text string) (Analysis, error) {
	req := googleRequest{
		Document: googleDocument{
			Type:     "PLAIN_TEXT",
			Content:  text,
			Language: g.cfg.Language,
		},
		EncodingType: "UTF8",
	}

	var sent sentimentResponse
	if err := g.call(ctx, "documents:analyzeSentiment", req, &sent); err != nil {
		return Analysis{}, fmt.Errorf("analyze sentiment: %w", err)
	}

	var ents entitiesResponse
	if err := g.call(ctx, "documents:analyzeEntities", req, &ents); err != nil {
		return Analysis{}, fmt.Errorf("analyze entities: %w", err)
	}

	names := make([]string, 0, len(ents.Entities))
	for _, e := range ents.Entities {
		names = append(names, e.Name)
	}

	return Analysis{
		SentimentScore:     sent.DocumentSentiment.Score,
		SentimentMagnitude: sent.DocumentSentiment.Magnitude,
		Entities:           names,
	}, nil
}

func (g *Google) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := g.cfg.BaseURL + "/" + method + "?key=" + url.QueryEscape(g.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
