package media

import (
	"fmt"
	"math"
)

// NativeFrameRate returns rate, or DefaultFrameRate when rate is not a
// positive finite number.
func NativeFrameRate(rate float64) float64 {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return DefaultFrameRate
	}
	return rate
}

// Stride returns the frame-index step that down-samples a source running at
// nativeFPS to roughly fps frames per second. It is never below 1.
func Stride(nativeFPS float64, fps int) int {
	if fps <= 0 {
		return 1
	}
	stride := int(math.Round(NativeFrameRate(nativeFPS) / float64(fps)))
	if stride < 1 {
		return 1
	}
	return stride
}

// SampledFrameCount returns how many frames a source of total frames yields
// at the given stride: frames 0, stride, 2*stride, ...
func SampledFrameCount(total, stride int) int {
	if total <= 0 {
		return 0
	}
	if stride < 1 {
		stride = 1
	}
	return (total + stride - 1) / stride
}

// ScaledDimensions applies scale to w x h. When scale is not 1 each axis is
// rounded to the nearest pixel. With even set, each axis is then rounded down
// to an even value.
func ScaledDimensions(w, h int, scale float64, even bool) (int, int, error) {
	nw, nh := w, h
	if scale != 1.0 {
		nw = int(math.Round(float64(w) * scale))
		nh = int(math.Round(float64(h) * scale))
	}
	if even {
		nw -= nw % 2
		nh -= nh % 2
	}
	if nw <= 0 || nh <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d at scale %.2f gives %dx%d", ErrInvalidDimensions, w, h, scale, nw, nh)
	}
	return nw, nh, nil
}

// FrameDelayMs returns the display duration of one frame at fps.
func FrameDelayMs(fps int) int {
	if fps <= 0 {
		return 0
	}
	return 1000 / fps
}

// gifDelay converts fps into GIF delay units (hundredths of a second).
func gifDelay(fps int) int {
	d := int(math.Round(float64(FrameDelayMs(fps)) / 10))
	if d < 1 {
		return 1
	}
	return d
}
