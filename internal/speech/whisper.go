package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/phantomx-ai/phantomx/internal/audio"
)

const (
	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
)

// WhisperConfig configures the faster-whisper sidecar client.
type WhisperConfig struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
}

// Whisper transcribes through a faster-whisper HTTP sidecar.
type Whisper struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisper creates a sidecar client.
func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Whisper{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (w *Whisper) Name() string { return "whisper" }

// Available checks the sidecar health endpoint.
func (w *Whisper) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the clip to /transcribe.
func (w *Whisper) Transcribe(ctx context.Context, clip audio.Clip) (Transcript, error) {
	if clip.Empty() {
		return Transcript{}, audio.ErrEmpty
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	name := clip.Filename
	if name == "" {
		name = "audio.webm"
	}
	part, err := mw.CreateFormFile("audio", name)
	if err != nil {
		return Transcript{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return Transcript{}, fmt.Errorf("write audio data: %w", err)
	}
	_ = mw.WriteField("model", w.cfg.Model)
	if w.cfg.Language != "" {
		_ = mw.WriteField("language", w.cfg.Language)
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return Transcript{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return Transcript{}, fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(body))
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transcript{}, fmt.Errorf("decode whisper response: %w", err)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" && len(out.Segments) > 0 {
		parts := make([]string, len(out.Segments))
		for i, s := range out.Segments {
			parts[i] = s.Text
		}
		text = joinSegments(parts)
	}
	lang := out.Language
	if lang == "" {
		lang = w.cfg.Language
	}
	return Transcript{Text: text, Language: lang}, nil
}
