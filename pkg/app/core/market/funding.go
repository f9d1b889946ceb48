package market

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
)

// markPrice resolves the price used for funding and margin math (spec
// §4.5 step 3): the cached oracle reading if one exists, else the
// book midpoint, else best bid, else best ask, else ErrOracleUnavailable.
func (m *Market) markPrice() (fixedprice.Price, error) {
	if m.Header.Oracle.Valid {
		return fixedprice.New(uint32(m.Header.Oracle.PriceMantissa), m.Header.Oracle.PriceExponent)
	}
	bestBid, bestAsk := m.Header.BidsBest, m.Header.AsksBest
	switch {
	case bestBid != arena.NIL && bestAsk != arena.NIL:
		return fixedprice.Mid(m.order(bestBid).Price, m.order(bestAsk).Price), nil
	case bestBid != arena.NIL:
		return m.order(bestBid).Price, nil
	case bestAsk != arena.NIL:
		return m.order(bestAsk).Price, nil
	default:
		return fixedprice.Price{}, ErrOracleUnavailable
	}
}

// CrankFunding advances the global funding state (spec §4.5, §6
// `crank_funding`). May be called by anyone; a no-op if no time has
// elapsed since the last crank.
func (m *Market) CrankFunding(now int64) error {
	if !m.Header.Oracle.Valid {
		reading, err := m.oracle.Read()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		m.Header.Oracle = OracleCache{PriceMantissa: uint64(reading.Mantissa), PriceExponent: reading.Exponent, Valid: true}
		m.Header.LastFundingTimestamp = now
		return nil
	}

	dt := now - m.Header.LastFundingTimestamp
	if dt > OneHour {
		dt = OneHour
	}
	if dt <= 0 {
		return nil
	}

	// mark_price is read against the OLD cache, per spec §4.5 step 4:
	// the cache is only refreshed after mark_price has been resolved.
	mark, err := m.markPrice()
	if err != nil {
		return err
	}

	reading, err := m.oracle.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	oraclePrice, err := reading.Price()
	if err != nil {
		return err
	}
	m.Header.Oracle = OracleCache{PriceMantissa: uint64(reading.Mantissa), PriceExponent: reading.Exponent, Valid: true}

	rate := fundingRate(mark, oraclePrice, dt)
	m.Header.CumulativeFunding += rate // wrapping i64 add, by design (spec §9)
	m.Header.LastFundingTimestamp = now

	markRaw := mark.Raw()
	oracleRaw := oraclePrice.Raw()
	m.emit(FundingCrankLog{
		Rate:              rate,
		CumulativeFunding: m.Header.CumulativeFunding,
		MarkPrice:         markRaw.Uint64(),
		OraclePrice:       oracleRaw.Uint64(),
	})
	return nil
}

// fundingRate computes the clamped per-crank rate (spec §4.5 steps 5-6):
//
//	rate = (mark - oracle) * FUNDING_SCALE * dt / (oracle * FUNDING_PERIOD)
//
// carried through uint256 on the magnitude, with the sign tracked
// separately so the intermediate product never needs a signed wide int.
func fundingRate(mark, oracle fixedprice.Price, dt int64) int64 {
	markRaw := mark.Raw()
	oracleRaw := oracle.Raw()
	if oracleRaw.IsZero() {
		return 0
	}

	var diff uint256.Int
	negative := false
	if markRaw.Cmp(&oracleRaw) >= 0 {
		diff.Sub(&markRaw, &oracleRaw)
	} else {
		diff.Sub(&oracleRaw, &markRaw)
		negative = true
	}

	num := new(uint256.Int).Mul(&diff, uint256.NewInt(uint64(FundingScale)))
	num.Mul(num, uint256.NewInt(uint64(dt)))
	denom := new(uint256.Int).Mul(&oracleRaw, uint256.NewInt(uint64(FundingPeriod)))
	rateMag := new(uint256.Int).Div(num, denom)

	maxRate := uint256.NewInt(uint64(MaxFundingRatePerPeriod))
	var rate int64
	if rateMag.Cmp(maxRate) > 0 {
		rate = MaxFundingRatePerPeriod
	} else {
		rate = int64(rateMag.Uint64())
	}
	if negative {
		rate = -rate
	}
	return rate
}

// settleFunding applies the lazy per-trader funding settlement (spec
// §4.5) to the seat at idx and stores the result immediately. Every
// public operation that reads a seat's margin or position calls this
// first (spec §5 resource discipline (b)).
func (m *Market) settleFunding(idx uint32) {
	s := m.seat(idx)
	delta := m.Header.CumulativeFunding - s.FundingCheckpoint // wrapping i64 sub
	owed := mulDivI64(s.Position, delta, FundingScale)

	if owed >= 0 {
		marginI := int64(s.Margin)
		pay := owed
		if pay > marginI {
			pay = marginI
		}
		s.Margin -= uint64(pay)
		if deficit := owed - pay; deficit > 0 {
			m.drawInsurance(uint64(deficit))
		}
	} else {
		s.Margin += uint64(-owed)
	}

	s.FundingCheckpoint = m.Header.CumulativeFunding
	m.putSeat(idx, s)
}

// drawInsurance debits up to amount from the insurance fund, floored at
// zero, and returns however much was actually drawn (spec §4.5, §4.6:
// "if insufficient, socialized loss").
func (m *Market) drawInsurance(amount uint64) uint64 {
	if amount <= m.Header.InsuranceFund {
		m.Header.InsuranceFund -= amount
		return amount
	}
	drawn := m.Header.InsuranceFund
	m.Header.InsuranceFund = 0
	return drawn
}
