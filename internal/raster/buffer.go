// Package raster holds the in-memory pixel buffer and the pixel operations
// the conversion pipelines are built from. Operations never modify their
// input; each returns a freshly allocated buffer.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrChannels is returned when an operation receives a buffer with an
// unsupported channel count.
var ErrChannels = errors.New("raster: unsupported channel count")

// Buffer is a decoded raster: row-major, channel-interleaved 8-bit samples.
// Three-channel buffers store R, G, B in that order.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed buffer.
func New(width, height, channels int) *Buffer {
	return &Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Validate reports whether the buffer is usable by the pipeline.
func (b *Buffer) Validate() error {
	if b == nil {
		return errors.New("raster: nil buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("raster: empty buffer %dx%d", b.Width, b.Height)
	}
	if b.Channels != 1 && b.Channels != 3 {
		return fmt.Errorf("%w: %d", ErrChannels, b.Channels)
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("raster: sample count %d does not match %dx%dx%d", len(b.Pix), b.Width, b.Height, b.Channels)
	}
	return nil
}

// At returns channel c of pixel (x, y).
func (b *Buffer) At(x, y, c int) uint8 {
	return b.Pix[(y*b.Width+x)*b.Channels+c]
}

// FromImage copies img into a three-channel buffer. Alpha is dropped, the
// colour samples are taken as stored (non-premultiplied).
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := New(w, h, 3)

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride+(bounds.Min.X-src.Rect.Min.X)*4:]
			dst := out.Pix[y*w*3:]
			for x := 0; x < w; x++ {
				dst[x*3] = row[x*4]
				dst[x*3+1] = row[x*4+1]
				dst[x*3+2] = row[x*4+2]
			}
		}
		return out
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.Pix[i] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			i += 3
		}
	}
	return out
}

// Image returns an image.Image view suitable for encoding: *image.Gray for
// single-channel buffers and *image.NRGBA (opaque) for colour buffers.
func (b *Buffer) Image() (image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	switch b.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
		copy(img.Pix, b.Pix)
		return img, nil
	default:
		img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
		for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
			img.Pix[j] = b.Pix[i]
			img.Pix[j+1] = b.Pix[i+1]
			img.Pix[j+2] = b.Pix[i+2]
			img.Pix[j+3] = 0xff
		}
		return img, nil
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// reflect101 maps an out-of-range index by mirroring around the edge
// sample without repeating it (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func saturate(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
