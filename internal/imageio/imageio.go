// Package imageio reads source images into pixel buffers and writes
// converted buffers back to disk in the configured output format.
package imageio

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"pic/internal/raster"
	"pic/pkg/imgutil"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 95

// ImageRef identifies a discovered source image.
type ImageRef struct {
	Directory string
	Filename  string
}

// Path joins the directory and filename.
func (r ImageRef) Path() string {
	return filepath.Join(r.Directory, r.Filename)
}

// OutputFormat is the single-format output policy applied to every save.
type OutputFormat int

const (
	FormatJPEG OutputFormat = iota
)

// Extension returns the file extension, with leading dot, for the format.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	default:
		return ""
	}
}

func (f OutputFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// OutputName replaces the extension of name, if any, with the format's
// extension.
func (f OutputFormat) OutputName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + f.Extension()
}

func (f OutputFormat) encode(w io.Writer, img image.Image, quality int) error {
	switch f {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unknown output format %d", f)
	}
}

// Codec reads and writes images. The zero value reads at full size and
// writes at DefaultQuality.
type Codec struct {
	// Quality is the JPEG quality, 1-100.
	Quality int
	// Scale shrinks decoded images by this factor when 0 < Scale < 1.
	Scale float64
}

// Read decodes the image at ref into a three-channel buffer. Any failure,
// including an unrecognised header, is returned as a *DecodeError.
func (c Codec) Read(ref ImageRef) (*raster.Buffer, error) {
	path := ref.Path()
	fail := func(err error) (*raster.Buffer, error) {
		return nil, &DecodeError{Path: path, Err: err}
	}

	file, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	kind, err := imgutil.SniffReader(file)
	if err != nil {
		return fail(err)
	}
	if kind == imgutil.KindUnknown {
		return fail(ErrUnsupportedFormat)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fail(err)
	}

	img, err := imaging.Decode(file)
	if err != nil {
		return fail(err)
	}

	if kind == imgutil.KindJPEG {
		// A broken EXIF block leaves the pixels usable; keep them as stored.
		if orientation, err := readOrientation(file); err == nil {
			img = applyOrientation(img, orientation)
		}
	}

	if c.Scale > 0 && c.Scale < 1 {
		img = scale(img, c.Scale)
	}

	buf := raster.FromImage(img)
	if err := buf.Validate(); err != nil {
		return fail(err)
	}
	return buf, nil
}

// Save encodes buf as format and writes it to targetDir. The extension of
// fileName is replaced by the format's extension. The write is atomic: the
// target either holds the complete file or is untouched. It returns the
// final path.
func (c Codec) Save(buf *raster.Buffer, fileName, targetDir string, format OutputFormat) (string, error) {
	name := format.OutputName(fileName)
	fail := func(err error) (string, error) {
		return "", &SaveError{Name: name, Err: err}
	}

	if fileName == "" || filepath.Base(fileName) != fileName {
		return fail(fmt.Errorf("file name %q must be a bare file name", fileName))
	}
	img, err := buf.Image()
	if err != nil {
		return fail(err)
	}

	quality := c.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	dest := filepath.Join(targetDir, name)
	err = writeAtomic(dest, func(w io.Writer) error {
		return format.encode(w, img, quality)
	})
	if err != nil {
		return fail(err)
	}
	return dest, nil
}

func scale(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 || h < 1 {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Box)
}
