// Package events publishes one event per classified call to configured sinks
// (JSONL file, webhook) without blocking the request path.
package events

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/redact"
	"github.com/phantomx-ai/phantomx/internal/signal"
)

// EventVersion is bumped when the event schema changes incompatibly.
const EventVersion = "1"

// Sources of a classification.
const (
	SourceAnalyzeCall  = "analyze_call"
	SourceClassifyCall = "classify_call"
)

const maxPreviewRunes = 160

// Verdict is the subset of a result carried by an event.
type Verdict struct {
	Type       signal.Label `json:"type"`
	Confidence float64      `json:"confidence"`
	RiskLevel  string       `json:"risk_level"`
	Intent     string       `json:"intent"`
	Keywords   []string     `json:"keywords,omitempty"`
}

// TimingMs holds per-stage latencies in milliseconds.
type TimingMs struct {
	Transcription float64 `json:"transcription,omitempty"`
	Intent        float64 `json:"intent,omitempty"`
	Deepfake      float64 `json:"deepfake,omitempty"`
	Total         float64 `json:"total"`
}

// Event is the payload delivered to sinks.
type Event struct {
	Version   string    `json:"version"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	ResultID  string    `json:"result_id,omitempty"`
	Source    string    `json:"source"`
	Verdict   Verdict   `json:"verdict"`
	// Degraded lists the layers that fell back to their default signal.
	Degraded          []string `json:"degraded,omitempty"`
	TranscriptPreview string   `json:"transcript_preview,omitempty"`
	TimingMs          TimingMs `json:"timing_ms"`
}

// BuildParams collects what the pipeline knows about one classification.
type BuildParams struct {
	Result         classification.Result
	RequestID      string
	Source         string
	Degraded       []string
	Timing         TimingMs
	IncludePreview bool
}

// Build assembles an event. The transcript preview is only attached when
// IncludePreview is set, and is always redacted and truncated.
func Build(p BuildParams) *Event {
	ev := &Event{
		Version:   EventVersion,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		RequestID: p.RequestID,
		ResultID:  p.Result.ID,
		Source:    p.Source,
		Verdict: Verdict{
			Type:       p.Result.Type,
			Confidence: p.Result.Confidence,
			RiskLevel:  p.Result.RiskLevel,
			Intent:     p.Result.Intent,
			Keywords:   cloneStrings(p.Result.Keywords),
		},
		Degraded: cloneStrings(p.Degraded),
		TimingMs: p.Timing,
	}
	if p.IncludePreview && p.Result.Transcript != "" {
		ev.TranscriptPreview = preview(redact.Transcript(p.Result.Transcript))
	}
	return ev
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= maxPreviewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxPreviewRunes]) + "..."
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
