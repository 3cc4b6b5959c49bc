package timeline

import "math"

// Precision is the number of decimal places positions are compared at.
const Precision = 3

const scale = 1000

// Round rounds v half up to Precision decimal places.
func Round(v float64) float64 {
	return math.Floor(v*scale+0.5) / scale
}
