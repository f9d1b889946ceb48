package market

import (
	"testing"

	"go.uber.org/zap"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
	"github.com/uhyunpark/hyperlicked/pkg/custodian"
	"github.com/uhyunpark/hyperlicked/pkg/globalpool"
	"github.com/uhyunpark/hyperlicked/pkg/oracle"
)

func newLiquidationMarket(t *testing.T, mantissa uint32) (*Market, *custodian.InMemory) {
	t.Helper()
	cust := custodian.NewInMemory()
	feed := oracle.Static{ID: testKey(1001), Reading: oracle.Reading{Mantissa: mantissa, Exponent: fixedprice.ExponentMax}}
	m, err := New("TEST-USDC", testParams(), feed, cust, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SetGlobalPool(globalpool.Always(true))
	if err := m.CrankFunding(0); err != nil {
		t.Fatalf("seed CrankFunding: %v", err)
	}
	return m, cust
}

// TestLiquidatePartialClosesFractionOnly mirrors a textbook partial
// liquidation: a long position whose equity has fallen below
// maintenance but whose post-reward equity at the maintenance+buffer
// target would still be positive only closes the fraction needed to
// get back to that target, leaving the rest of the position open.
func TestLiquidatePartialClosesFractionOnly(t *testing.T) {
	m, cust := newLiquidationMarket(t, 10) // mark price = 10

	target := testKey(10)
	liquidator := testKey(11)
	counterparty := testKey(12)

	if _, err := m.ClaimSeat(target); err != nil {
		t.Fatalf("ClaimSeat(target): %v", err)
	}
	targetIdx := m.findSeat(target)
	m.putSeat(targetIdx, Seat{Trader: target, Margin: 30_000, Position: 100_000, CostBasis: 1_000_000})

	if _, err := m.ClaimSeat(liquidator); err != nil {
		t.Fatalf("ClaimSeat(liquidator): %v", err)
	}

	claimAndFund(t, m, cust, counterparty, 5_000_000)
	if _, _, rested, err := m.Place(counterparty, SideBid, priceAt(10), 200_000, OrderLimit, 0, 0); err != nil || rested != 200_000 {
		t.Fatalf("counterparty resting bid: rested=%d err=%v", rested, err)
	}

	closeBase, closeNotional, reward, insuranceDraw, err := m.Liquidate(liquidator, target, 0)
	if err != nil {
		t.Fatalf("Liquidate: %v", err)
	}
	if closeBase != 88_889 {
		t.Fatalf("closeBase = %d, want 88889", closeBase)
	}
	if closeNotional != 888_890 {
		t.Fatalf("closeNotional = %d, want 888890", closeNotional)
	}
	if reward != 22_222 {
		t.Fatalf("reward = %d, want 22222", reward)
	}
	if insuranceDraw != 0 {
		t.Fatalf("insuranceDraw = %d, want 0 (no bad debt in this scenario)", insuranceDraw)
	}

	final := m.seat(targetIdx)
	if final.Position != 11_111 {
		t.Fatalf("remaining position = %d, want 11111 (above the dust threshold, so left open)", final.Position)
	}
	if final.Margin != 896_223 {
		t.Fatalf("final margin = %d, want 896223", final.Margin)
	}

	liqSeat, _ := m.SeatView(liquidator)
	if liqSeat.Margin != 22_222 {
		t.Fatalf("liquidator reward credit = %d, want 22222", liqSeat.Margin)
	}
}

// TestLiquidateFullClosePaysThroughInsuranceWaterfall exercises a
// position so far underwater that the close is forced to be full
// rather than partial, the liquidator reward can't be paid out of the
// target's own margin, and the insurance fund can't fully cover the
// deficit either, clamping the reward down to what's left over.
func TestLiquidateFullClosePaysThroughInsuranceWaterfall(t *testing.T) {
	m, _ := newLiquidationMarket(t, 20) // mark price = 20

	target := testKey(20)
	liquidator := testKey(21)
	counterparty := testKey(22)

	if _, err := m.ClaimSeat(target); err != nil {
		t.Fatalf("ClaimSeat(target): %v", err)
	}
	targetIdx := m.findSeat(target)
	// Opened short at zero cost basis, so the entire current notional is
	// unrealised loss: deeply underwater, well past full-liquidation.
	m.putSeat(targetIdx, Seat{Trader: target, Margin: 2_000_000, Position: -100_000, CostBasis: 0})

	if _, err := m.ClaimSeat(liquidator); err != nil {
		t.Fatalf("ClaimSeat(liquidator): %v", err)
	}

	if _, err := m.ClaimSeat(counterparty); err != nil {
		t.Fatalf("ClaimSeat(counterparty): %v", err)
	}
	if _, _, rested, err := m.Place(counterparty, SideAsk, priceAt(20), 150_000, OrderLimit, 0, 0); err != nil || rested != 150_000 {
		t.Fatalf("counterparty resting ask: rested=%d err=%v", rested, err)
	}

	m.Header.InsuranceFund = 20_000

	closeBase, closeNotional, reward, insuranceDraw, err := m.Liquidate(liquidator, target, 0)
	if err != nil {
		t.Fatalf("Liquidate: %v", err)
	}
	if closeBase != 100_000 {
		t.Fatalf("closeBase = %d, want 100000 (full close)", closeBase)
	}
	if closeNotional != 2_000_000 {
		t.Fatalf("closeNotional = %d, want 2000000", closeNotional)
	}
	// The taker fee on the close (1000) lands in the insurance fund
	// before the waterfall runs, so the fund has 21000 to draw from.
	if insuranceDraw != 21_000 {
		t.Fatalf("insuranceDraw = %d, want 21000", insuranceDraw)
	}
	if reward != 20_000 {
		t.Fatalf("reward = %d, want 20000 (clamped by the remaining shortfall)", reward)
	}
	if m.Header.InsuranceFund != 0 {
		t.Fatalf("InsuranceFund after waterfall = %d, want fully drained", m.Header.InsuranceFund)
	}

	final := m.seat(targetIdx)
	if final.Position != 0 {
		t.Fatalf("final position = %d, want 0 (fully closed)", final.Position)
	}
	if final.Margin != 0 {
		t.Fatalf("final margin = %d, want 0 (bad debt absorbed by the waterfall)", final.Margin)
	}

	liqSeat, _ := m.SeatView(liquidator)
	if liqSeat.Margin != 20_000 {
		t.Fatalf("liquidator reward credit = %d, want 20000", liqSeat.Margin)
	}
}

func TestLiquidateRejectsSelfLiquidation(t *testing.T) {
	m, _ := newLiquidationMarket(t, 10)
	trader := testKey(1)
	if _, err := m.ClaimSeat(trader); err != nil {
		t.Fatalf("ClaimSeat: %v", err)
	}
	if _, _, _, _, err := m.Liquidate(trader, trader, 0); err != ErrSelfLiquidation {
		t.Fatalf("self-liquidation: err = %v, want ErrSelfLiquidation", err)
	}
}

func TestLiquidateRejectsHealthyPosition(t *testing.T) {
	m, cust := newLiquidationMarket(t, 10)
	target := testKey(1)
	liquidator := testKey(2)
	claimAndFund(t, m, cust, target, 1_000_000)
	if _, err := m.ClaimSeat(liquidator); err != nil {
		t.Fatalf("ClaimSeat(liquidator): %v", err)
	}

	idx := m.findSeat(target)
	s := m.seat(idx)
	s.Position = 1
	s.CostBasis = 10
	m.putSeat(idx, s)

	if _, _, _, _, err := m.Liquidate(liquidator, target, 0); err != ErrNotLiquidatable {
		t.Fatalf("well-collateralized target: err = %v, want ErrNotLiquidatable", err)
	}
}
