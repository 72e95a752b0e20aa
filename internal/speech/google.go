package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phantomx-ai/phantomx/internal/audio"
)

const (
	defaultGoogleBaseURL    = "https://speech.googleapis.com/v1p1beta1"
	defaultGoogleTimeout    = 60 * time.Second
	defaultGoogleLanguage   = "en-IN"
	defaultGoogleEncoding   = "WEBM_OPUS"
	defaultGoogleSampleRate = 48000
	defaultGoogleModel      = "latest_long"
)

// DefaultAlternativeLanguages are the Indian languages tried after the primary one.
var DefaultAlternativeLanguages = []string{"hi-IN", "ta-IN", "te-IN", "bn-IN", "mr-IN"}

// GoogleConfig configures the Cloud Speech-to-Text REST client.
type GoogleConfig struct {
	BaseURL              string
	APIKey               string
	Language             string
	AlternativeLanguages []string
	Encoding             string
	SampleRateHertz      int
	Model                string
	Timeout              time.Duration
}

// Google calls speech:recognize on the v1p1beta1 REST API.
type Google struct {
	cfg    GoogleConfig
	client *http.Client
}

// NewGoogle creates a Speech-to-Text client.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("google speech: api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGoogleBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = defaultGoogleLanguage
	}
	if cfg.AlternativeLanguages == nil {
		cfg.AlternativeLanguages = DefaultAlternativeLanguages
	}
	if cfg.Encoding == "" {
		cfg.Encoding = defaultGoogleEncoding
	}
	if cfg.SampleRateHertz == 0 {
		cfg.SampleRateHertz = defaultGoogleSampleRate
	}
	if cfg.Model == "" {
		cfg.Model = defaultGoogleModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGoogleTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Google{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (g *Google) Name() string { return "google" }

type recognitionConfig struct {
	Encoding                   string   `json:"encoding"`
	SampleRateHertz            int      `json:"sampleRateHertz"`
	LanguageCode               string   `json:"languageCode"`
	AlternativeLanguageCodes   []string `json:"alternativeLanguageCodes,omitempty"`
	EnableAutomaticPunctuation bool     `json:"enableAutomaticPunctuation"`
	EnableWordTimeOffsets      bool     `json:"enableWordTimeOffsets"`
	Model                      string   `json:"model"`
	UseEnhanced                bool     `json:"useEnhanced"`
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
		LanguageCode string `json:"languageCode"`
	} `json:"results"`
}

// Transcribe sends the clip inline and joins the top alternative of every result.
func (g *Google) Transcribe(ctx context.Context, clip audio.Clip) (Transcript, error) {
	if clip.Empty() {
		return Transcript{}, audio.ErrEmpty
	}

	var body recognizeRequest
	body.Config = recognitionConfig{
		Encoding:                   g.cfg.Encoding,
		SampleRateHertz:            g.cfg.SampleRateHertz,
		LanguageCode:               g.cfg.Language,
		AlternativeLanguageCodes:   g.cfg.AlternativeLanguages,
		EnableAutomaticPunctuation: true,
		Model:                      g.cfg.Model,
		UseEnhanced:                true,
	}
	body.Audio.Content = base64.StdEncoding.EncodeToString(clip.Data)

	payload, err := json.Marshal(body)
	if err != nil {
		return Transcript{}, fmt.Errorf("encode request: %w", err)
	}

	endpoint := g.cfg.BaseURL + "/speech:recognize?key=" + url.QueryEscape(g.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Transcript{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to transcribe audio: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Transcript{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Transcript{}, fmt.Errorf("failed to transcribe audio: status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var out recognizeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Transcript{}, fmt.Errorf("decode response: %w", err)
	}

	parts := make([]string, 0, len(out.Results))
	lang := g.cfg.Language
	for _, r := range out.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
		if r.LanguageCode != "" {
			lang = r.LanguageCode
		}
	}
	return Transcript{Text: joinSegments(parts), Language: lang}, nil
}

func truncate(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
