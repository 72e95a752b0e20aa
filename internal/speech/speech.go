// Package speech transcribes call recordings through a pluggable backend.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/phantomx-ai/phantomx/internal/audio"
)

// NoSpeech is returned in place of an empty transcript by the speech endpoint.
const NoSpeech = "No speech detected in audio"

// ErrNoTranscriber is returned when no speech backend is configured.
var ErrNoTranscriber = errors.New("speech transcriber not configured")

// Transcript is the text recognized in a clip.
type Transcript struct {
	Text     string
	Language string
}

// Empty reports whether nothing was recognized.
func (t Transcript) Empty() bool { return strings.TrimSpace(t.Text) == "" }

// Transcriber converts audio into text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, clip audio.Clip) (Transcript, error)
}

// joinSegments concatenates recognized segments with single spaces.
func joinSegments(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Fake returns a fixed transcript or error.
type Fake struct {
	Result Transcript
	Err    error

	mu    sync.Mutex
	Calls int
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, clip audio.Clip) (Transcript, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return Transcript{}, f.Err
	}
	return f.Result, nil
}
