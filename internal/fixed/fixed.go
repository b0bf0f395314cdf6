// Package fixed implements the signed 24.8 fixed-point number carried by
// wire messages for surface-local coordinates.
package fixed

import "fmt"

// Fixed is a signed 24.8 fixed-point value. The wire representation is the
// raw two's-complement 32-bit pattern.
type Fixed int32

// FromInt converts a whole number of units.
func FromInt(i int32) Fixed {
	return Fixed(i << 8)
}

// FromFloat converts a float, truncating toward zero past 1/256 precision.
func FromFloat(f float64) Fixed {
	return Fixed(f * 256)
}

// Int returns the integer part, rounding toward negative infinity.
func (f Fixed) Int() int32 {
	return int32(f >> 8)
}

// Float returns the value as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / 256
}

func (f Fixed) String() string {
	return fmt.Sprintf("%g", f.Float())
}
