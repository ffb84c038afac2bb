package raster

import (
	"fmt"
	"math"
)

// AdaptiveMethod selects how the local threshold is computed.
type AdaptiveMethod int

const (
	// AdaptiveGaussian weights the neighbourhood with a Gaussian window.
	AdaptiveGaussian AdaptiveMethod = iota
	// AdaptiveMean uses the plain neighbourhood mean.
	AdaptiveMean
)

func (m AdaptiveMethod) String() string {
	switch m {
	case AdaptiveGaussian:
		return "gaussian"
	case AdaptiveMean:
		return "mean"
	default:
		return "unknown"
	}
}

// ParseAdaptiveMethod maps "gaussian" or "mean" to an AdaptiveMethod.
func ParseAdaptiveMethod(s string) (AdaptiveMethod, error) {
	switch s {
	case "gaussian", "":
		return AdaptiveGaussian, nil
	case "mean":
		return AdaptiveMean, nil
	default:
		return AdaptiveGaussian, fmt.Errorf("unknown adaptive method %q (want gaussian or mean)", s)
	}
}

// AdaptiveThreshold binarises a single-channel buffer against a per-pixel
// threshold: the local mean over a blockSize×blockSize neighbourhood minus
// offset. Samples strictly above their threshold become maxValue, the rest 0.
func AdaptiveThreshold(src *Buffer, maxValue uint8, method AdaptiveMethod, blockSize int, offset float64) (*Buffer, error) {
	if err := requireGray(src); err != nil {
		return nil, err
	}
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, fmt.Errorf("raster: threshold block size must be odd and >= 3, got %d", blockSize)
	}

	var kernel []float64
	switch method {
	case AdaptiveGaussian:
		kernel = GaussianKernel(blockSize, 0)
	case AdaptiveMean:
		kernel = boxKernel(blockSize)
	default:
		return nil, fmt.Errorf("raster: unknown adaptive method %d", method)
	}

	mean := separable(src, kernel)
	delta := int(math.Ceil(offset))

	out := New(src.Width, src.Height, 1)
	for i, v := range src.Pix {
		if int(v)-int(mean.Pix[i]) > -delta {
			out.Pix[i] = maxValue
		}
	}
	return out, nil
}
