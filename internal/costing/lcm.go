package costing

import "math"

// DefaultMinQuantity is the smallest demand quantity an evaluation is normalized to.
const DefaultMinQuantity = 1000

// Gcd returns the greatest common divisor of a and b using Euclid's algorithm.
// Gcd(a, 0) is a.
func Gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Lcm returns the least common multiple of a and b, or 0 when it does not fit in an int.
func Lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	lcm, ok := mulInt(a/Gcd(a, b), b)
	if !ok {
		return 0
	}
	return lcm
}

// FindLCM folds Lcm over values starting from 1. An empty list yields 1.
func FindLCM(values []int) int {
	result := 1
	for _, v := range values {
		result = Lcm(result, v)
	}
	return result
}

// NormalizeQuantity returns the smallest multiple of the capacities' LCM that is
// at least minimum, so cartons, pallets and trucks all divide the result evenly.
// It returns 0 when that multiple overflows int.
func NormalizeQuantity(capacities []int, minimum int) int {
	base := FindLCM(capacities)
	if base <= 0 || base >= minimum {
		return base
	}
	quantity, ok := mulInt(ceilDiv(minimum, base), base)
	if !ok {
		return 0
	}
	return quantity
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	q := a / b
	if a%b > 0 {
		q++
	}
	return q
}

// mulInt multiplies two non-negative ints and reports false on overflow.
func mulInt(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}
