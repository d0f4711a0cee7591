// Package fixed implements the unsigned fixed-point arithmetic used for all
// prices and quantities. Values are uint64 integers scaled by 10^8, so
// 50000.12345678 is stored as 5_000_012_345_678. Integer-only math keeps
// results bit-identical across machines, which the state root depends on.
package fixed

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Scale is the fixed-point scaling factor: 10^8, giving 8 decimal places.
const Scale uint64 = 100_000_000

// MaxValue is the largest integral value representable after scaling,
// roughly 184 billion.
const MaxValue uint64 = math.MaxUint64 / Scale

var (
	ErrNotDecimal   = errors.New("not a decimal value")
	ErrNegative     = errors.New("negative value")
	ErrOverflow     = errors.New("fixed-point overflow")
	ErrUnderflow    = errors.New("fixed-point underflow")
	ErrDivideByZero = errors.New("division by zero")
)

// ToFixed parses a non-negative decimal string into its scaled representation,
// rounding half away from zero past 8 fractional digits.
func ToFixed(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotDecimal, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q", ErrNegative, s)
	}

	scaled := d.Shift(8).Round(0)
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return bi.Uint64(), nil
}

// FromFixed renders a scaled value with exactly 8 fractional digits.
func FromFixed(v uint64) string {
	return fmt.Sprintf("%d.%08d", v/Scale, v%Scale)
}

// Add returns a+b, failing on overflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, failing on underflow.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// Mul returns the scaled product ⌊(a·b + Scale/2) / Scale⌋, rounding half
// away from zero. The intermediate product is computed in 128 bits so the
// only failure mode is a quotient that does not fit in uint64.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	lo, carry := bits.Add64(lo, Scale/2, 0)
	hi += carry
	if hi >= Scale {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, Scale)
	return q, nil
}

// Div returns the scaled quotient ⌊(a·Scale + b/2) / b⌋, rounding half away
// from zero. Fails on b = 0 or a quotient that does not fit in uint64.
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, Scale)
	lo, carry := bits.Add64(lo, b/2, 0)
	hi += carry
	if hi >= b {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, b)
	return q, nil
}
