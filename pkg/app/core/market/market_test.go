package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
	"github.com/uhyunpark/hyperlicked/pkg/custodian"
	"github.com/uhyunpark/hyperlicked/pkg/globalpool"
	"github.com/uhyunpark/hyperlicked/pkg/oracle"
)

func testKey(n int64) Key {
	return common.BigToHash(big.NewInt(n))
}

func testParams() Params {
	return Params{
		QuoteMint:            testKey(1000),
		OracleFeedID:         testKey(1001),
		BaseDecimals:         9,
		QuoteDecimals:        6,
		InitialMarginBps:     1_000,
		MaintenanceMarginBps: 500,
		TakerFeeBps:          5,
		LiquidationBufferBps: 200,
	}
}

// priceAt returns the price mantissa*1 quote atom per base atom: New's
// encoding collapses to a plain integer multiply when exponent is
// ExponentMax, which keeps the arithmetic in these tests legible.
func priceAt(mantissa uint32) fixedprice.Price {
	p, err := fixedprice.New(mantissa, fixedprice.ExponentMax)
	if err != nil {
		panic(err)
	}
	return p
}

// newTestMarket builds a market with an in-memory custodian, a fixed
// oracle reading, and an always-funding global pool, mirroring the
// devnet wiring cmd/node/main.go uses.
func newTestMarket(t *testing.T, mantissa uint32) (*Market, *custodian.InMemory) {
	t.Helper()
	cust := custodian.NewInMemory()
	feed := oracle.Static{ID: testKey(1001), Reading: oracle.Reading{Mantissa: mantissa, Exponent: fixedprice.ExponentMax}}
	m, err := New("TEST-USDC", testParams(), feed, cust, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SetGlobalPool(globalpool.Always(true))
	// markPrice() (and so checkInitial/checkMaintenance) needs a resolvable
	// price before any resting order exists to fall back on; crank once to
	// seed the oracle cache with the given reading.
	if err := m.CrankFunding(0); err != nil {
		t.Fatalf("seed CrankFunding: %v", err)
	}
	return m, cust
}

func claimAndFund(t *testing.T, m *Market, cust *custodian.InMemory, trader Key, margin uint64) {
	t.Helper()
	if _, err := m.ClaimSeat(trader); err != nil {
		t.Fatalf("ClaimSeat(%v): %v", trader, err)
	}
	if margin == 0 {
		return
	}
	cust.Credit(trader, margin)
	if err := m.Deposit(trader, margin); err != nil {
		t.Fatalf("Deposit(%v, %d): %v", trader, margin, err)
	}
}

func TestNewValidatesParams(t *testing.T) {
	feed := oracle.Static{ID: testKey(1), Reading: oracle.Reading{Mantissa: 1, Exponent: fixedprice.ExponentMax}}
	cust := custodian.NewInMemory()

	bad := testParams()
	bad.MaintenanceMarginBps = 0
	if _, err := New("X", bad, feed, cust, zap.NewNop(), nil); err == nil {
		t.Fatal("expected error for zero maintenance_margin_bps")
	}

	good := testParams()
	m, err := New("X", good, feed, cust, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New with valid params: %v", err)
	}
	if m.Status != Active {
		t.Fatalf("Status = %v, want Active", m.Status)
	}
	if m.arena.Len() == 0 {
		t.Fatal("New should Expand(1) the arena")
	}
}

func TestClaimSeatRejectsDuplicate(t *testing.T) {
	m, _ := newTestMarket(t, 10)
	trader := testKey(1)
	if _, err := m.ClaimSeat(trader); err != nil {
		t.Fatalf("first ClaimSeat: %v", err)
	}
	if _, err := m.ClaimSeat(trader); err != ErrDuplicateSeat {
		t.Fatalf("second ClaimSeat: err = %v, want ErrDuplicateSeat", err)
	}
}

func TestReleaseSeatRules(t *testing.T) {
	m, cust := newTestMarket(t, 10)
	trader := testKey(1)
	claimAndFund(t, m, cust, trader, 1_000_000)

	idx := m.findSeat(trader)
	s := m.seat(idx)
	s.Position = 5
	m.putSeat(idx, s)

	if err := m.ReleaseSeat(trader); err != ErrSeatNotEmpty {
		t.Fatalf("ReleaseSeat with open position: err = %v, want ErrSeatNotEmpty", err)
	}

	s.Position = 0
	m.putSeat(idx, s)
	if err := m.ReleaseSeat(trader); err != nil {
		t.Fatalf("ReleaseSeat should now succeed: %v", err)
	}
	if m.findSeat(trader) != arena.NIL {
		t.Fatal("seat should be gone after ReleaseSeat")
	}

	if err := m.ReleaseSeat(trader); err != ErrSeatNotFound {
		t.Fatalf("ReleaseSeat on missing seat: err = %v, want ErrSeatNotFound", err)
	}
}

func TestDepositWithdraw(t *testing.T) {
	m, cust := newTestMarket(t, 10)
	trader := testKey(1)
	if _, err := m.ClaimSeat(trader); err != nil {
		t.Fatalf("ClaimSeat: %v", err)
	}

	cust.Credit(trader, 500)
	if err := m.Deposit(trader, 500); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	seat, ok := m.SeatView(trader)
	if !ok || seat.Margin != 500 {
		t.Fatalf("seat after Deposit = %+v, want Margin=500", seat)
	}

	if err := m.Withdraw(trader, 600); err != ErrInsufficientMargin {
		t.Fatalf("Withdraw more than margin: err = %v, want ErrInsufficientMargin", err)
	}

	if err := m.Withdraw(trader, 200); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	seat, _ = m.SeatView(trader)
	if seat.Margin != 300 {
		t.Fatalf("Margin after Withdraw = %d, want 300", seat.Margin)
	}
	if cust.Balance(trader) != 200 {
		t.Fatalf("external balance after Withdraw = %d, want 200", cust.Balance(trader))
	}
}

func TestDepositRequiresSeat(t *testing.T) {
	m, cust := newTestMarket(t, 10)
	trader := testKey(1)
	cust.Credit(trader, 100)
	if err := m.Deposit(trader, 100); err != ErrSeatNotFound {
		t.Fatalf("Deposit without a seat: err = %v, want ErrSeatNotFound", err)
	}
}
