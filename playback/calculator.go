package playback

import "math"

// FrameAtFraction maps a scroll fraction in [0,1] onto a frame in [1,n].
// Fractions outside the range are clamped.
func FrameAtFraction(fraction float64, n int) int {
	if n < 1 {
		return 1
	}
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	frame := int(math.Ceil(float64(n) * fraction))
	if frame < 1 {
		return 1
	}
	if frame > n {
		return n
	}
	return frame
}

// CurrentFrame maps a document scroll position onto a frame in [1,n]. When the
// document is no taller than the viewport it returns frame 1 and
// ErrDegenerateScrollRange.
func CurrentFrame(scrollTop, documentHeight, viewportHeight float64, n int) (int, error) {
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 {
		return 1, ErrDegenerateScrollRange
	}
	return FrameAtFraction(scrollTop/scrollable, n), nil
}

// FrameAt maps a ScrollPosition onto a frame.
func FrameAt(p ScrollPosition, n int) (int, error) {
	return CurrentFrame(p.Top, p.DocumentHeight, p.ViewportHeight, n)
}
