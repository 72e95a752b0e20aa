// Package pipeline runs a call through transcription, intent detection,
// deepfake scoring and fusion, then persists and publishes the result.
package pipeline

import (
	"time"

	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
	"github.com/phantomx-ai/phantomx/internal/intent"
)

// ClassifyText is the pure classification entry point: keyword intent over
// text with the given sentiment hints, fused with the deepfake outcome.
func ClassifyText(text string, hints intent.Hints, df deepfake.Outcome, now time.Time) classification.Result {
	in := intent.Aggregate(text, hints)
	d := df.Signal()
	return classification.Classify(&in, &d, now)
}
