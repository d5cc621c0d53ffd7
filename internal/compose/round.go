package compose

import "math"

// Round rounds v to the given decimal places. NULL and non-finite values become nil.
func Round(v *float64, places int) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	p := math.Pow10(places)
	r := math.Round(*v*p) / p
	return &r
}
