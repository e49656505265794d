package engine

import (
	"context"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/llm"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Classifier defines the contract for the external batch classifier.
// It is called at most once per orchestration run.
type Classifier interface {
	ClassifyBatch(ctx context.Context, req llm.BatchRequest) (llm.BatchResponse, error)
}

// Recorder receives orchestration metrics.
type Recorder interface {
	Categorized(source model.Source, n int)
	AICall(status string)
	BatchDuration(d time.Duration)
	PersistError()
}

// AI call statuses reported to the Recorder.
const (
	AIStatusOK        = "ok"
	AIStatusError     = "error"
	AIStatusTimeout   = "timeout"
	AIStatusMalformed = "malformed"
)

// ProgressFunc is called after each category is seeded.
type ProgressFunc func(done, total int, category model.Category)
