package converter

import (
	"errors"
	"fmt"
	"strings"
)

// DirectoryCreationError reports a source or target directory that was
// missing and could not be created.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("failed to create directory %q: %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// IsDirectoryCreation reports whether err is, or wraps, a *DirectoryCreationError.
func IsDirectoryCreation(err error) bool {
	var e *DirectoryCreationError
	return errors.As(err, &e)
}

// NoImagesFoundError reports a source directory that could not be listed or
// holds no recognised images. Err is the listing failure, if any.
type NoImagesFoundError struct {
	Dir string
	Err error
}

func (e *NoImagesFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no images found in %q: %v", e.Dir, e.Err)
	}
	return fmt.Sprintf("no images found in %q", e.Dir)
}

func (e *NoImagesFoundError) Unwrap() error { return e.Err }

// IsNoImagesFound reports whether err is, or wraps, a *NoImagesFoundError.
func IsNoImagesFound(err error) bool {
	var e *NoImagesFoundError
	return errors.As(err, &e)
}

// BatchError lists the images of a run that failed to decode or save. The
// remaining images of the run were still converted.
type BatchError struct {
	Failures []Result
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Err.Error())
	}
	return fmt.Sprintf("%d image(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes the per-image errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// IsBatch reports whether err is, or wraps, a *BatchError.
func IsBatch(err error) bool {
	var e *BatchError
	return errors.As(err, &e)
}
