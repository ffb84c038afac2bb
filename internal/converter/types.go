package converter

import (
	"context"
	"time"

	"pic/internal/imageio"
	"pic/internal/ledger"
)

// Transform selects the pipeline applied to every image of a run.
type Transform int

const (
	TransformPaintable Transform = iota
	TransformChalk
)

func (t Transform) String() string {
	switch t {
	case TransformPaintable:
		return "paintable"
	case TransformChalk:
		return "chalk"
	default:
		return "unknown"
	}
}

// ImageRef identifies a discovered source image.
type ImageRef = imageio.ImageRef

// Result is the outcome of converting one worklist entry.
type Result struct {
	Ref    ImageRef
	Output string
	Err    error
}

// Summary describes a finished run.
type Summary struct {
	Transform Transform
	Total     int
	Converted int
	Failed    int
	Cleaned   int
	Outputs   []string
	Failures  []Result
}

// ProgressUpdate carries counter deltas to a progress display.
type ProgressUpdate struct {
	TotalDelta     int
	ProcessedDelta int
	ErrorDelta     int
	CleanedDelta   int
}

// Recorder persists run history. *ledger.Store implements it.
type Recorder interface {
	BeginRun(ctx context.Context, transform, sourceDir, targetDir string, started time.Time) (string, error)
	RecordImage(ctx context.Context, runID, source, output string, imgErr error) error
	FinishRun(ctx context.Context, runID string, finished time.Time, totals ledger.Totals) error
}

func send(updates chan<- ProgressUpdate, u ProgressUpdate) {
	if updates != nil {
		updates <- u
	}
}
