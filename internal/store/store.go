// Package store persists classification results, user feedback and the
// aggregate counters shown on the dashboard.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/signal"
)

// DefaultHistoryLimit is used when History is called with a non-positive limit.
const DefaultHistoryLimit = 50

// ErrNotFound is returned for an unknown result id.
var ErrNotFound = errors.New("result not found")

// Stats counts stored results by call type. Unknown results only count
// towards Total.
type Stats struct {
	Total    int64 `json:"total" msgpack:"total"`
	Spam     int64 `json:"spam" msgpack:"spam"`
	Business int64 `json:"business" msgpack:"business"`
	Safe     int64 `json:"safe" msgpack:"safe"`
}

func (s *Stats) add(t signal.Label) {
	s.Total++
	switch t {
	case signal.LabelSpam:
		s.Spam++
	case signal.LabelBusiness:
		s.Business++
	case signal.LabelSafe:
		s.Safe++
	}
}

// FeedbackRecord is one entry in the feedback log kept for retraining.
type FeedbackRecord struct {
	ResultID  string    `json:"result_id" msgpack:"result_id"`
	IsCorrect bool      `json:"is_correct" msgpack:"is_correct"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Store is the persistence capability.
type Store interface {
	// Save stores r and returns its generated id.
	Save(ctx context.Context, r classification.Result) (string, error)
	Get(ctx context.Context, id string) (classification.Result, error)
	// History returns the most recent results, newest first.
	History(ctx context.Context, limit int) ([]classification.Result, error)
	// SaveFeedback attaches feedback to a stored result and appends it to the
	// feedback log.
	SaveFeedback(ctx context.Context, id string, correct bool) error
	Feedback(ctx context.Context) ([]FeedbackRecord, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
