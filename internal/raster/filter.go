package raster

import (
	"fmt"
	"math"
	"slices"
)

// Fixed-point BT.601 luma weights scaled by 2^14.
const (
	lumaShift = 14
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
)

// Grayscale converts a three-channel buffer to single-channel luminance.
// A single-channel input is copied unchanged.
func Grayscale(src *Buffer) (*Buffer, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	out := New(src.Width, src.Height, 1)
	if src.Channels == 1 {
		copy(out.Pix, src.Pix)
		return out, nil
	}

	const round = 1 << (lumaShift - 1)
	for i, j := 0, 0; j < len(out.Pix); i, j = i+3, j+1 {
		r := int(src.Pix[i])
		g := int(src.Pix[i+1])
		b := int(src.Pix[i+2])
		out.Pix[j] = uint8((r*lumaR + g*lumaG + b*lumaB + round) >> lumaShift)
	}
	return out, nil
}

// MedianBlur replaces each sample with the median of its ksize×ksize
// neighbourhood. Edge samples are replicated. ksize must be odd and > 1.
func MedianBlur(src *Buffer, ksize int) (*Buffer, error) {
	if err := requireGray(src); err != nil {
		return nil, err
	}
	if ksize < 3 || ksize%2 == 0 {
		return nil, fmt.Errorf("raster: median kernel size must be odd and >= 3, got %d", ksize)
	}

	w, h := src.Width, src.Height
	r := ksize / 2
	out := New(w, h, 1)
	window := make([]uint8, ksize*ksize)
	mid := len(window) / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -r; dy <= r; dy++ {
				row := clampIndex(y+dy, h) * w
				for dx := -r; dx <= r; dx++ {
					window[n] = src.Pix[row+clampIndex(x+dx, w)]
					n++
				}
			}
			slices.Sort(window)
			out.Pix[y*w+x] = window[mid]
		}
	}
	return out, nil
}

// GaussianKernel returns a normalised 1-D Gaussian kernel of length n.
// A non-positive sigma is derived from n as 0.3*((n-1)*0.5-1)+0.8.
func GaussianKernel(n int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*((float64(n)-1)*0.5-1) + 0.8
	}
	kernel := make([]float64, n)
	center := float64(n-1) / 2
	scale := -0.5 / (sigma * sigma)
	sum := 0.0
	for i := range kernel {
		d := float64(i) - center
		kernel[i] = math.Exp(scale * d * d)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func boxKernel(n int) []float64 {
	kernel := make([]float64, n)
	for i := range kernel {
		kernel[i] = 1 / float64(n)
	}
	return kernel
}

// separable convolves a single-channel buffer with kernel horizontally then
// vertically, replicating edge samples, and rounds the result to 8 bits.
func separable(src *Buffer, kernel []float64) *Buffer {
	w, h := src.Width, src.Height
	r := len(kernel) / 2
	tmp := make([]float64, w*h)

	for y := 0; y < h; y++ {
		row := src.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			sum := 0.0
			for k, weight := range kernel {
				sum += weight * float64(row[clampIndex(x+k-r, w)])
			}
			tmp[y*w+x] = sum
		}
	}

	out := New(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k, weight := range kernel {
				sum += weight * tmp[clampIndex(y+k-r, h)*w+x]
			}
			out.Pix[y*w+x] = saturate(sum)
		}
	}
	return out
}

func requireGray(b *Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Channels != 1 {
		return fmt.Errorf("%w: want 1, got %d", ErrChannels, b.Channels)
	}
	return nil
}
