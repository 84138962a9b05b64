package imgkit

import (
	"fmt"
	"image/color"
)

// Resize decodes data, resamples it to bound (or to the largest size inside
// bound with the source's aspect ratio when keepRatio is set) and re-encodes
// it as a JPEG at full quality.
func Resize(ng Engine, data []byte, bound Size, keepRatio bool) ([]byte, error) {
	if bound.IsZero() {
		return nil, ErrInvalidDimension
	}

	src, err := ng.Decode(data)
	if err != nil {
		return nil, err
	}
	srcSize, err := SizeOf(src)
	if err != nil {
		return nil, ErrInvalidImageData
	}

	target := bound
	if keepRatio {
		target, err = SameRateSize(srcSize, bound)
		if err != nil {
			return nil, err
		}
	}

	dst, err := ng.Resample(src, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResizeFailed, err)
	}
	if dst == nil || dst.Bounds().Empty() {
		return nil, ErrResizeFailed
	}

	return ng.Encode(dst, JPEG, DefaultQuality)
}

// Crop cuts a size region out of the centre of the decoded image. The source
// is drawn whole onto a white canvas of size at a non-positive offset, so
// everything outside the centred window is clipped away.
func Crop(ng Engine, data []byte, size Size, quality int) ([]byte, error) {
	if size.IsZero() {
		return nil, ErrInvalidDimension
	}
	if quality < 0 || quality > 100 {
		return nil, fmt.Errorf("quality %d out of range: %w", quality, ErrInvalidArgument)
	}

	src, err := ng.Decode(data)
	if err != nil {
		return nil, err
	}
	srcSize, err := SizeOf(src)
	if err != nil {
		return nil, ErrInvalidImageData
	}
	if !srcSize.Covers(size) {
		return nil, fmt.Errorf("%w: %s larger than %s", ErrCropSize, size, srcSize)
	}

	canvas := ng.NewCanvas(size, color.White)
	ng.DrawImage(canvas, src, CenterOffset(srcSize, size))

	return ng.Encode(canvas, JPEG, quality)
}
