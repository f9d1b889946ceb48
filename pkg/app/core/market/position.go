package market

import "github.com/holiman/uint256"

// updatePosition applies one fill's effect to a seat's position and cost
// basis (spec §4.4). It returns nothing: callers keep the position from
// before the call and pass both positions to applyOIDelta to update the
// market's open-interest aggregates.
//
// signedTradeBase is positive if this seat bought base (taker bid or
// maker ask-side fill resolved from the seat's own perspective — callers
// pass the seat-relative sign, not the book side).
func updatePosition(s *Seat, signedTradeBase int64, tradeQuote uint64) {
	switch {
	case s.Position == 0:
		s.Position = signedTradeBase
		s.CostBasis = tradeQuote
	case sameSign(s.Position, signedTradeBase):
		s.Position += signedTradeBase
		s.CostBasis += tradeQuote
	default:
		oldAbs := absI64(s.Position)
		tradeAbs := absI64(signedTradeBase)
		if tradeAbs <= oldAbs {
			// Partial close: reduce, possibly to exactly zero.
			closed := tradeAbs
			closedCost := mulDivU64(s.CostBasis, uint64(closed), uint64(oldAbs))
			s.CostBasis -= closedCost
			s.Position += signedTradeBase
			if s.Position == 0 {
				s.CostBasis = 0
			}
		} else {
			// Full close + flip.
			flipBase := tradeAbs - oldAbs
			sign := int64(1)
			if signedTradeBase < 0 {
				sign = -1
			}
			s.Position = sign * flipBase
			s.CostBasis = mulDivU64(tradeQuote, uint64(flipBase), uint64(tradeAbs))
		}
	}
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// mulDivU64 computes floor(a*b/c), carrying the a*b product through a
// 256-bit uint256.Int so it never overflows even though each of a, b, c
// individually fits in 64 bits.
func mulDivU64(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	q := new(uint256.Int).Div(prod, uint256.NewInt(c))
	return q.Uint64()
}

// mulDivU64Ceil is mulDivU64 rounded up instead of down, used for the
// taker fee (spec §4.2 step 8: taker fee rounds toward the insurance
// fund) and the liquidation close size.
func mulDivU64Ceil(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	q, r := new(uint256.Int).DivMod(prod, uint256.NewInt(c), new(uint256.Int))
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q.Uint64()
}

// mulDivI64 computes trunc(a*b/c) for signed operands, used by funding
// settlement (spec §4.5: owed_quote = position * delta / FUNDING_SCALE).
// Magnitudes go through mulDivU64; the sign is tracked separately so the
// 256-bit intermediate never has to represent a negative value.
func mulDivI64(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	if c < 0 {
		neg = !neg
		c = -c
	}
	mag := mulDivU64(uint64(absI64(a)), uint64(absI64(b)), uint64(c))
	result := int64(mag)
	if neg {
		result = -result
	}
	return result
}

// applyOIDelta folds a seat's before/after position into the market's
// long/short open-interest aggregates (spec §4.4: "updated by the delta
// of signed position"). Because a fill can flip a position's sign in one
// step, the delta is applied as remove-old-bucket then add-new-bucket
// rather than a single signed add.
func applyOIDelta(h *Header, before, after int64) {
	switch {
	case before > 0:
		h.LongOpenInterest -= uint64(before)
	case before < 0:
		h.ShortOpenInterest -= uint64(-before)
	}
	switch {
	case after > 0:
		h.LongOpenInterest += uint64(after)
	case after < 0:
		h.ShortOpenInterest += uint64(-after)
	}
}
