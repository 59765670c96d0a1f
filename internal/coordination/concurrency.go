package coordination

import "math"

// ConcurrencyBound clamps value into [1, min(10, configMax)], per spec §4.6
// and §8's boundary behaviors: fractional inputs truncate toward zero,
// non-finite inputs clamp to the minimum.
func ConcurrencyBound(value float64, configMax int) int {
	const min = 1
	max := 10
	if configMax > 0 && configMax < max {
		max = configMax
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return min
	}
	n := int(value)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
