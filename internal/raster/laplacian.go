package raster

import "math"

// Plane is a single-channel float64 raster used for signed intermediate
// results.
type Plane struct {
	Width  int
	Height int
	Data   []float64
}

// laplacian3 is the 3×3 aperture Laplacian (second-derivative Sobel sum).
var laplacian3 = [3][3]float64{
	{2, 0, 2},
	{0, -8, 0},
	{2, 0, 2},
}

// Laplacian computes the 3×3 Laplacian of a single-channel buffer in float64.
// Borders are mirrored without repeating the edge sample. The result keeps
// its sign; negative responses are not clipped.
func Laplacian(src *Buffer) (*Plane, error) {
	if err := requireGray(src); err != nil {
		return nil, err
	}

	w, h := src.Width, src.Height
	out := &Plane{Width: w, Height: h, Data: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for ky := 0; ky < 3; ky++ {
				row := reflect101(y+ky-1, h) * w
				for kx := 0; kx < 3; kx++ {
					weight := laplacian3[ky][kx]
					if weight == 0 {
						continue
					}
					sum += weight * float64(src.Pix[row+reflect101(x+kx-1, w)])
				}
			}
			out.Data[y*w+x] = sum
		}
	}
	return out, nil
}

// AbsUint8 takes the absolute value of every sample and saturates it into
// the 8-bit range.
func (p *Plane) AbsUint8() *Buffer {
	out := New(p.Width, p.Height, 1)
	for i, v := range p.Data {
		out.Pix[i] = saturate(math.Abs(v))
	}
	return out
}
