package market

import (
	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
)

// anyPriceSell/anyPriceBuy are the widest encodable limit prices, used
// as the "any price" IOC limit for a forced liquidation close (spec
// §4.6 step 8): low enough to cross every resting bid, or high enough
// to cross every resting ask.
// The encoded magnitude is mantissa * 10^(26-exponent) (fixedprice.New),
// so the smallest encodable price pairs the smallest mantissa with the
// largest exponent, and the largest encodable price pairs the largest
// mantissa with the smallest exponent.
var (
	anyPriceSell = mustPrice(fixedprice.MantissaMin, fixedprice.ExponentMax)
	anyPriceBuy  = mustPrice(fixedprice.MantissaMax, fixedprice.ExponentMin)
)

func mustPrice(mantissa uint32, exponent int32) fixedprice.Price {
	p, err := fixedprice.New(mantissa, exponent)
	if err != nil {
		panic(err)
	}
	return p
}

// Liquidate executes liquidate (spec §4.6, §6): settles and validates
// the target, cancels its resting orders, closes a fraction of its
// position through the matching engine at an unconstrained price, and
// runs the insurance-fund waterfall on the resulting margin shortfall.
func (m *Market) Liquidate(liquidatorKey, targetKey Key, now int64) (closeBase, closeNotional, reward, insuranceDraw uint64, err error) {
	if liquidatorKey == targetKey {
		return 0, 0, 0, 0, ErrSelfLiquidation
	}
	targetIdx := m.findSeat(targetKey)
	if targetIdx == arena.NIL {
		return 0, 0, 0, 0, ErrSeatNotFound
	}
	liqIdx := m.findSeat(liquidatorKey)
	if liqIdx == arena.NIL {
		return 0, 0, 0, 0, ErrSeatNotFound
	}

	m.settleFunding(targetIdx)
	targetSeat := m.seat(targetIdx)
	if targetSeat.Position == 0 {
		return 0, 0, 0, 0, ErrNotLiquidatable
	}

	m.cancelAllOrders(targetIdx)

	if now-m.Header.LastFundingTimestamp > OneHour {
		return 0, 0, 0, 0, ErrOracleStale
	}

	mark, merr := m.markPrice()
	if merr != nil {
		return 0, 0, 0, 0, merr
	}
	targetSeat = m.seat(targetIdx) // re-read: cancelAllOrders may have refunded bid reservations
	equity, notional := m.equityAndNotional(targetSeat, mark)
	maint := m.maintenanceRequirement(notional)
	if equity >= int64(maint) {
		return 0, 0, 0, 0, ErrNotLiquidatable
	}

	// Partial-close fraction f = (target_bps - equity_bps) / (target_bps
	// - reward_bps); f >= 1 or a non-positive denominator forces a full
	// liquidation (spec §4.6 step 6).
	var equityBps int64
	if notional > 0 {
		equityBps = mulDivI64(equity, 10_000, int64(notional))
	}
	targetBps := int64(m.Header.MaintenanceMarginBps) + int64(m.Header.LiquidationBufferBps)
	denomBps := targetBps - LiquidationRewardBps

	absPos := uint64(absI64(targetSeat.Position))
	full := denomBps <= 0
	var closeAmt uint64
	if !full {
		numBps := targetBps - equityBps
		if numBps >= denomBps {
			full = true
		} else {
			closeAmt = mulDivU64Ceil(uint64(numBps), absPos, uint64(denomBps))
			if absPos-closeAmt < uint64(MinPositionAtoms) {
				full = true
			}
		}
	}
	if full {
		closeAmt = absPos
	}

	closeSide := SideAsk
	limit := anyPriceSell
	if targetSeat.Position < 0 {
		closeSide = SideBid
		limit = anyPriceBuy
	}

	closeBase, closeNotional, _, dirty, perr := m.matchTaker(targetIdx, closeSide == SideBid, limit, closeAmt, OrderImmediateOrCancel, 0, uint64(now))
	if perr != nil {
		return 0, 0, 0, 0, perr
	}

	targetFinal := m.seat(targetIdx)
	if s, ok := dirty[targetIdx]; ok {
		targetFinal = s
	}

	reward = mulDivU64(closeNotional, uint64(LiquidationRewardBps), 10_000)
	marginAfter := int64(targetFinal.Margin) - int64(reward)
	if marginAfter < 0 {
		deficit := uint64(-marginAfter)
		insuranceDraw = m.drawInsurance(deficit)
		if shortfall := deficit - insuranceDraw; shortfall > 0 {
			if reward > shortfall {
				reward -= shortfall
			} else {
				reward = 0
			}
		}
		marginAfter = 0
	}
	targetFinal.Margin = uint64(marginAfter)
	targetFinal.FundingCheckpoint = m.Header.CumulativeFunding

	for idx, s := range dirty {
		if idx == targetIdx {
			continue
		}
		m.putSeat(idx, s)
	}
	m.putSeat(targetIdx, targetFinal)

	liqSeat := m.seat(liqIdx)
	liqSeat.Margin += reward
	m.putSeat(liqIdx, liqSeat)

	m.emit(LiquidateLog{
		Liquidator:    liquidatorKey,
		Target:        targetKey,
		CloseBase:     closeBase,
		CloseNotional: closeNotional,
		Reward:        reward,
		InsuranceDraw: insuranceDraw,
	})

	return closeBase, closeNotional, reward, insuranceDraw, nil
}
