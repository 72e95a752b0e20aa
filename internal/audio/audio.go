// Package audio holds the uploaded call recording passed to capabilities.
package audio

import (
	"errors"
	"io"
)

var (
	// ErrEmpty is returned for a clip with no bytes.
	ErrEmpty = errors.New("audio clip is empty")
	// ErrTooLarge is returned when a clip exceeds the configured limit.
	ErrTooLarge = errors.New("audio clip exceeds size limit")
)

// Clip is one uploaded recording.
type Clip struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Read builds a clip from r, refusing anything larger than limit bytes.
func Read(r io.Reader, filename, contentType string, limit int64) (Clip, error) {
	if limit <= 0 {
		limit = 25 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Clip{}, err
	}
	if int64(len(data)) > limit {
		return Clip{}, ErrTooLarge
	}
	if len(data) == 0 {
		return Clip{}, ErrEmpty
	}
	return Clip{Data: data, Filename: filename, ContentType: contentType}, nil
}

// Empty reports whether the clip carries no audio.
func (c Clip) Empty() bool { return len(c.Data) == 0 }
