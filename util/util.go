package util

import (
	"fmt"

	"github.com/fogleman/ease"
)

// Easings are the named easing functions accepted by Easing.
var Easings = map[string]func(float64) float64{
	"linear":     ease.Linear,
	"inOutQuad":  ease.InOutQuad,
	"inOutCubic": ease.InOutCubic,
	"inOutSine":  ease.InOutSine,
	"outBounce":  ease.OutBounce,
}

// Easing looks up an easing function by name.
func Easing(name string) (func(float64) float64, error) {
	fn, ok := Easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", name)
	}
	return fn, nil
}

// GenerateLut builds a scroll path of length points that eases from the top of the
// page to the bottom and back again. Odd lengths reach 1 at the midpoint.
func GenerateLut(length int, easing func(float64) float64) []float64 {
	if length < 2 {
		return []float64{0}
	}

	half := float64(length-1) / 2
	lut := make([]float64, length)
	for i, j := 0, length-1; i <= j; i, j = i+1, j-1 {
		value := easing(float64(i) / half)
		lut[i] = value
		lut[j] = value
	}
	return lut
}
