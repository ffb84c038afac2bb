package converter

import (
	"fmt"
	"time"

	"pic/internal/raster"
)

// SaveTimestampLayout stamps output names (Month_DD_YYYY-HH_MM_SS).
const SaveTimestampLayout = "January_02_2006-15_04_05"

const (
	paintablePrefix = "paintable-contours"
	chalkPrefix     = "chalk"

	medianKernel       = 5
	thresholdBlockSize = 9
	thresholdOffset    = 3
	binaryWhite        = 255
)

// OutputName is the file name, before extension normalisation, for a source
// named original converted at ts.
func (t Transform) OutputName(ts time.Time, original string) string {
	prefix := chalkPrefix
	if t == TransformPaintable {
		prefix = paintablePrefix
	}
	return fmt.Sprintf("%s-%s-%s", prefix, ts.Format(SaveTimestampLayout), original)
}

// Apply runs the transform's pipeline on a decoded colour buffer.
func (t Transform) Apply(src *raster.Buffer, method raster.AdaptiveMethod) (*raster.Buffer, error) {
	switch t {
	case TransformPaintable:
		return Paintable(src, method)
	case TransformChalk:
		return Chalk(src)
	default:
		return nil, fmt.Errorf("unknown transform %d", t)
	}
}

// Paintable renders line art: luminance, 5×5 median blur, then adaptive
// thresholding over a 9×9 neighbourhood with offset 3. Every output sample
// is 0 or 255.
func Paintable(src *raster.Buffer, method raster.AdaptiveMethod) (*raster.Buffer, error) {
	gray, err := raster.Grayscale(src)
	if err != nil {
		return nil, err
	}
	blurred, err := raster.MedianBlur(gray, medianKernel)
	if err != nil {
		return nil, err
	}
	return raster.AdaptiveThreshold(blurred, binaryWhite, method, thresholdBlockSize, thresholdOffset)
}

// Chalk renders edge intensity: luminance, then the absolute 3×3 Laplacian.
// The Laplacian is taken in float64 so negative responses survive until the
// absolute value is applied.
func Chalk(src *raster.Buffer) (*raster.Buffer, error) {
	gray, err := raster.Grayscale(src)
	if err != nil {
		return nil, err
	}
	lap, err := raster.Laplacian(gray)
	if err != nil {
		return nil, err
	}
	return lap.AbsUint8(), nil
}
