// Package converter is the conversion engine: it validates the source and
// target directories, discovers images, runs the paintable or chalk
// pipeline over them and disposes of the sources afterwards.
//
// A run is sequential. Decode and save failures are isolated per image: the
// failing image is reported and skipped, the rest of the worklist is still
// converted, and the run returns a *BatchError. Automatic cleanup is skipped
// after a run with failures so no unconverted original is removed.
package converter

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"pic/internal/config"
	"pic/internal/imageio"
	"pic/internal/ledger"
	"pic/internal/logging"
	"pic/internal/raster"
)

var errNotLoaded = errors.New("worklist is empty, load images first")

// Converter converts the images of one source directory into one target
// directory.
type Converter struct {
	cfg      config.Config
	log      *log.Logger
	codec    imageio.Codec
	format   imageio.OutputFormat
	method   raster.AdaptiveMethod
	recorder Recorder
	now      func() time.Time

	worklist []ImageRef
}

// Option customises a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithRecorder records every run, for example in a *ledger.Store.
func WithRecorder(r Recorder) Option {
	return func(c *Converter) { c.recorder = r }
}

// WithClock replaces time.Now for output names and organise folders.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

// New validates cfg and the directories it names, creating missing ones.
func New(cfg config.Config, opts ...Option) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method, err := raster.ParseAdaptiveMethod(cfg.Method)
	if err != nil {
		return nil, err
	}

	c := &Converter{
		cfg:    cfg,
		log:    logging.Discard(),
		codec:  imageio.Codec{Quality: cfg.Quality, Scale: cfg.Scale},
		format: imageio.FormatJPEG,
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log.Info("configured directories", "source", cfg.SourceDir, "target", cfg.TargetDir)
	if err := ValidateDirectories(c.log, cfg.SourceDir, cfg.TargetDir); err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the configuration the converter was built with.
func (c *Converter) Config() config.Config { return c.cfg }

// LoadImages rebuilds the worklist from the source directory and returns
// its length.
func (c *Converter) LoadImages() (int, error) {
	c.worklist = nil
	refs, err := Discover(c.cfg.SourceDir)
	if err != nil {
		var nf *NoImagesFoundError
		if errors.As(err, &nf) && nf.Err != nil {
			c.log.Error("could not list source directory", "dir", c.cfg.SourceDir, "err", nf.Err)
		} else {
			c.log.Warn("no images in source directory", "dir", c.cfg.SourceDir)
		}
		return 0, err
	}
	c.worklist = refs
	c.log.Infof("%d image(s) found!", len(refs))
	return len(refs), nil
}

// Worklist returns a copy of the current worklist.
func (c *Converter) Worklist() []ImageRef {
	return append([]ImageRef(nil), c.worklist...)
}

// ConvertToPaintable runs the paintable transform over the worklist.
func (c *Converter) ConvertToPaintable(ctx context.Context, updates chan<- ProgressUpdate) (Summary, error) {
	return c.Run(ctx, TransformPaintable, updates)
}

// ConvertToChalk runs the chalk transform over the worklist.
func (c *Converter) ConvertToChalk(ctx context.Context, updates chan<- ProgressUpdate) (Summary, error) {
	return c.Run(ctx, TransformChalk, updates)
}

// Run applies t to every worklist entry in order, then cleans up the source
// directory when automatic cleanup is configured. updates may be nil.
// Cancelling ctx stops the run between images.
func (c *Converter) Run(ctx context.Context, t Transform, updates chan<- ProgressUpdate) (Summary, error) {
	summary := Summary{Transform: t}
	if len(c.worklist) == 0 {
		return summary, &NoImagesFoundError{Dir: c.cfg.SourceDir, Err: errNotLoaded}
	}

	unlock := lockDirs(c.cfg.SourceDir, c.cfg.TargetDir)
	defer unlock()

	worklist := c.Worklist()
	summary.Total = len(worklist)
	send(updates, ProgressUpdate{TotalDelta: len(worklist)})

	runID := c.beginRun(ctx, t)

	var runErr error
	for _, ref := range worklist {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		res := c.convertOne(ref, t)
		c.recordImage(ctx, runID, res)
		if res.Err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, res)
			c.log.Error("conversion failed", "file", ref.Filename, "err", res.Err)
			send(updates, ProgressUpdate{ErrorDelta: 1})
			continue
		}
		summary.Converted++
		summary.Outputs = append(summary.Outputs, res.Output)
		send(updates, ProgressUpdate{ProcessedDelta: 1})
	}

	if runErr == nil && len(summary.Failures) > 0 {
		runErr = &BatchError{Failures: summary.Failures}
	}

	if c.cfg.AutoCleanup {
		if runErr != nil {
			c.log.Warn("skipping cleanup because the run did not complete cleanly")
		} else {
			n, err := c.cleanup()
			summary.Cleaned = n
			send(updates, ProgressUpdate{CleanedDelta: n})
			if err != nil {
				runErr = err
			}
		}
	}

	c.finishRun(ctx, runID, summary)
	return summary, runErr
}

func (c *Converter) convertOne(ref ImageRef, t Transform) Result {
	res := Result{Ref: ref}

	buf, err := c.codec.Read(ref)
	if err != nil {
		res.Err = err
		return res
	}

	out, err := t.Apply(buf, c.method)
	if err != nil {
		res.Err = &imageio.DecodeError{Path: ref.Path(), Err: err}
		return res
	}

	name := t.OutputName(c.now(), ref.Filename)
	path, err := c.codec.Save(out, name, c.cfg.TargetDir, c.format)
	if err != nil {
		res.Err = err
		return res
	}

	c.log.Info("Successfully saved file", "file", name)
	res.Output = path
	return res
}

func (c *Converter) beginRun(ctx context.Context, t Transform) string {
	if c.recorder == nil {
		return ""
	}
	id, err := c.recorder.BeginRun(ctx, t.String(), c.cfg.SourceDir, c.cfg.TargetDir, c.now())
	if err != nil {
		c.log.Warn("run will not be recorded", "err", err)
		return ""
	}
	return id
}

func (c *Converter) recordImage(ctx context.Context, runID string, res Result) {
	if runID == "" {
		return
	}
	if err := c.recorder.RecordImage(ctx, runID, res.Ref.Path(), res.Output, res.Err); err != nil {
		c.log.Warn("could not record image", "file", res.Ref.Filename, "err", err)
	}
}

func (c *Converter) finishRun(ctx context.Context, runID string, s Summary) {
	if runID == "" {
		return
	}
	totals := ledger.Totals{Total: s.Total, Converted: s.Converted, Failed: s.Failed, Cleaned: s.Cleaned}
	// Record the outcome even when the run itself was cancelled.
	if err := c.recorder.FinishRun(context.WithoutCancel(ctx), runID, c.now(), totals); err != nil {
		c.log.Warn("could not finish run record", "err", err)
	}
}
