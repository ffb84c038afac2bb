package imageio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat marks files whose header matches no known decoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DecodeError reports a source image that could not be turned into a usable
// pixel buffer. The caller skips that image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode image %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var e *DecodeError
	return errors.As(err, &e)
}

// SaveError reports an output that could not be encoded or written.
type SaveError struct {
	Name string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("could not save file %q: %v", e.Name, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// IsSaveError reports whether err is, or wraps, a *SaveError.
func IsSaveError(err error) bool {
	var e *SaveError
	return errors.As(err, &e)
}
