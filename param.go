package main

import (
	"math/bits"

	"github.com/pkg/errors"
)

// suggestMaxM is the upper end of the search range used by SuggestM.
const suggestMaxM = 64

// ValidateM checks a Golomb parameter before it reaches the coder.
func ValidateM(m int) error {
	if m < 1 || m > maxM {
		return errors.Wrapf(ErrInvalidParameter, "golomb parameter m=%d outside [1, %d]", m, maxM)
	}
	return nil
}

// AverageIntensityM picks m as floor(log2(mean sample value)), at least 1.
//
// The stream format carries a single m, so the result is only used to
// choose that global value from one reference plane.
func AverageIntensityM(p *Plane) int {
	if p == nil || len(p.Pix) == 0 {
		return 1
	}
	sum := 0
	for _, v := range p.Pix {
		sum += int(v)
	}
	mean := sum / len(p.Pix)
	if mean < 2 {
		return 1
	}
	return bits.Len(uint(mean)) - 1
}

// SuggestM returns the m in [1, 64] that minimises the coded size of the
// residuals of the given planes. Ties go to the smaller m.
func SuggestM(planes ...*Plane) int {
	var hist [256]int
	for _, p := range planes {
		if p == nil {
			continue
		}
		for row := 0; row < p.Rows; row++ {
			for col := 0; col < p.Cols; col++ {
				res := int(p.Pix[row*p.Cols+col]) - Predict(p, row, col)
				if res < 0 {
					res = -res
				}
				hist[res]++
			}
		}
	}

	best, bestBits := 1, -1
	for m := 1; m <= suggestMaxM; m++ {
		rp := mustNewRiceParams(m)
		total := 0
		for mag, n := range hist {
			if n > 0 {
				total += n * rp.Length(mag)
			}
		}
		if bestBits < 0 || total < bestBits {
			best, bestBits = m, total
		}
	}
	return best
}
