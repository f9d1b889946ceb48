// Package fixedprice implements the market's 128-bit fixed-point price
// representation (spec §3.6): quote atoms per base atom, scaled so that
// comparison is a plain unsigned-integer compare and conversion to/from
// quote or base amounts is a single 128-bit multiply-divide.
//
// The value is carried in a github.com/holiman/uint256.Int (a 256-bit
// word used across the retrieved pack for exactly this kind of
// arbitrary-precision integer math — go-ethereum, erigon, and the luxfi
// precompiles all reach for it). The encoded value mantissa·10^(26-exponent)
// reaches about 2^178 at the smallest exponent, so it can exceed 128
// bits; the 256-bit word still leaves room for the price·base product in
// ToQuote.
package fixedprice

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Scale is 10^18, the fixed-point scale applied to both conversions
// (quote = floor(price*base/Scale), base = floor(Scale*quote/price)).
var Scale = uint256.NewInt(1_000_000_000_000_000_000)

// MantissaMin/MantissaMax bound the encodable mantissa (spec §3.6).
const (
	MantissaMin = 1
	MantissaMax = (1 << 32) - 1
)

// ExponentMin/ExponentMax bound the encodable exponent.
const (
	ExponentMin = -18
	ExponentMax = 8
)

// Price is an immutable fixed-point price.
type Price struct {
	v uint256.Int
}

// New encodes mantissa*10^(8-exponent)*10^18 per spec §3.6, validating
// the mantissa/exponent bounds.
func New(mantissa uint32, exponent int32) (Price, error) {
	if mantissa < MantissaMin || mantissa > MantissaMax {
		return Price{}, fmt.Errorf("fixedprice: mantissa %d out of range [%d,%d]", mantissa, MantissaMin, MantissaMax)
	}
	if exponent < ExponentMin || exponent > ExponentMax {
		return Price{}, fmt.Errorf("fixedprice: exponent %d out of range [%d,%d]", exponent, ExponentMin, ExponentMax)
	}
	// 10^(8-exponent) * 10^18 == 10^(26-exponent); exponent in [-18,8]
	// puts the power-of-ten in [18,44]; combined with a 32-bit mantissa the
	// value reaches about 2^178, beyond 128 bits but within the 256-bit word.
	power := 26 - int(exponent)
	pow10 := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := 0; i < power; i++ {
		pow10.Mul(pow10, ten)
	}
	v := uint256.NewInt(uint64(mantissa))
	v.Mul(v, pow10)
	return Price{v: *v}, nil
}

// FromRaw wraps an already-encoded 128-bit value (used when decoding
// account state from storage).
func FromRaw(raw *uint256.Int) Price {
	return Price{v: *raw}
}

// Raw returns the underlying 128-bit encoded value.
func (p Price) Raw() uint256.Int { return p.v }

// IsZero reports whether the price is the zero value (uninitialized).
func (p Price) IsZero() bool { return p.v.IsZero() }

// Cmp orders two prices; result <0, 0, >0 as a.Cmp(b).
func (p Price) Cmp(o Price) int { return p.v.Cmp(&o.v) }

// RoundDir selects which way a non-exact division rounds.
type RoundDir int

const (
	RoundDown RoundDir = iota
	RoundUp
)

// ToQuote converts a base-atom amount to quote atoms: floor or ceil of
// price*base/Scale, per spec §3.6.
func (p Price) ToQuote(base uint64, dir RoundDir) uint64 {
	num := new(uint256.Int).Mul(&p.v, uint256.NewInt(base))
	q, r := new(uint256.Int).DivMod(num, Scale, new(uint256.Int))
	if dir == RoundUp && !r.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		panic("fixedprice: quote amount overflows uint64")
	}
	return q.Uint64()
}

// ToBase converts a quote-atom amount to base atoms: floor or ceil of
// Scale*quote/price, per spec §3.6.
func (p Price) ToBase(quote uint64, dir RoundDir) uint64 {
	if p.v.IsZero() {
		panic("fixedprice: division by zero price")
	}
	num := new(uint256.Int).Mul(Scale, uint256.NewInt(quote))
	q, r := new(uint256.Int).DivMod(num, &p.v, new(uint256.Int))
	if dir == RoundUp && !r.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		panic("fixedprice: base amount overflows uint64")
	}
	return q.Uint64()
}

// Mid returns the midpoint of two prices, floor-rounded.
func Mid(a, b Price) Price {
	sum := new(uint256.Int).Add(&a.v, &b.v)
	two := uint256.NewInt(2)
	mid := new(uint256.Int).Div(sum, two)
	return Price{v: *mid}
}
