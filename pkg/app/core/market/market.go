// Package market implements the core perpetual-futures matching and risk
// engine: a single mutable object holding a block arena, three red-black
// trees (bids, asks, seats) over that arena, and the funding/margin/
// liquidation bookkeeping layered on top.
package market

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/rbtree"
	"github.com/uhyunpark/hyperlicked/pkg/custodian"
	"github.com/uhyunpark/hyperlicked/pkg/globalpool"
	"github.com/uhyunpark/hyperlicked/pkg/oracle"
)

// MarketStatus is an operational lifecycle state layered on top of the
// core account (not part of spec.md's account model, which assumes a
// single always-live market; this is the control surface a process
// hosting many markets — see MarketRegistry — needs to pause or wind one
// down without touching the core matching/risk logic).
type MarketStatus uint8

const (
	Active MarketStatus = iota
	Paused
	Settling
	Settled
)

func (s MarketStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Settling:
		return "settling"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Market is the single mutable account described in spec §2: fixed
// header, block arena, and the three trees sharing it. Every exported
// method corresponds to one operation in spec §6's operation table.
type Market struct {
	Symbol string
	Status MarketStatus

	Header Header

	arena *arena.Arena
	bids  *rbtree.Tree
	asks  *rbtree.Tree
	seats *rbtree.Tree

	oracle    oracle.Feed
	custodian custodian.Custodian
	pool      globalpool.Pool
	log       *zap.Logger
	events    EventSink
}

// SetGlobalPool wires the shared cross-market pool Global-type makers
// draw against (spec §4.2). A market with no pool wired treats every
// Global maker as unfundable, matching the "ask the pool; on failure
// cancel that maker" reading of spec §9's open question 2.
func (m *Market) SetGlobalPool(p globalpool.Pool) {
	m.pool = p
}

// bidsLess and asksLess are chosen so that, for BOTH trees, the
// minimum element under tree order is the best order to match against
// next: asks ascending by (price, seq), bids ascending by (-price, seq).
// This lets insert/remove maintain both best-caches with the same
// Min()-based logic instead of mixing Min for one side and Max for the
// other.
func (m *Market) asksLess(a, b uint32) bool {
	oa, ob := m.order(a), m.order(b)
	if c := oa.Price.Cmp(ob.Price); c != 0 {
		return c < 0
	}
	return oa.SequenceNumber < ob.SequenceNumber
}

func (m *Market) bidsLess(a, b uint32) bool {
	oa, ob := m.order(a), m.order(b)
	if c := oa.Price.Cmp(ob.Price); c != 0 {
		return c > 0
	}
	return oa.SequenceNumber < ob.SequenceNumber
}

func (m *Market) seatsLess(a, b uint32) bool {
	sa, sb := m.seat(a), m.seat(b)
	return bytes.Compare(sa.Trader[:], sb.Trader[:]) < 0
}

// New creates a market with a validated set of parameters, one initial
// batch of free blocks, and the oracle/custodian capabilities it will
// call out to. This is create_market (spec §6).
func New(symbol string, p Params, feed oracle.Feed, cust custodian.Custodian, log *zap.Logger, sink EventSink) (*Market, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &Market{
		Symbol:    symbol,
		Status:    Active,
		Header:    newHeader(p),
		arena:     arena.New(),
		oracle:    feed,
		custodian: cust,
		log:       log,
		events:    sink,
	}
	m.bids = rbtree.New(m.arena, m.bidsLess)
	m.asks = rbtree.New(m.arena, m.asksLess)
	m.seats = rbtree.New(m.arena, m.seatsLess)
	m.bids.Root, m.asks.Root, m.seats.Root = arena.NIL, arena.NIL, arena.NIL

	m.Expand(1)

	if m.log != nil {
		m.log.Sugar().Infow("market_created", "symbol", symbol,
			"initial_margin_bps", p.InitialMarginBps,
			"maintenance_margin_bps", p.MaintenanceMarginBps)
	}
	m.emit(CreateMarketLog{Symbol: symbol, Params: p})
	return m, nil
}

// Expand grows the arena by n batches of BlocksPerExpand blocks each
// (spec §6 `expand()`).
func (m *Market) Expand(batches int) {
	for i := 0; i < batches; i++ {
		m.arena.Expand(BlocksPerExpand)
	}
}

// ensureCapacity grows the arena by one batch if the free list is empty,
// matching the resource discipline in spec §5 ("ensures at least one
// free block before any allocation path").
func (m *Market) ensureCapacity() {
	if m.arena.FreeHead == arena.NIL {
		m.Expand(1)
	}
}

func (m *Market) alloc(tag arena.Tag) (uint32, error) {
	m.ensureCapacity()
	idx, err := m.arena.Alloc(tag)
	if err != nil {
		return arena.NIL, fmt.Errorf("%w", ErrOutOfBlocks)
	}
	return idx, nil
}

// ClaimSeat allocates and inserts a zeroed seat for trader (spec §6
// `claim_seat`).
func (m *Market) ClaimSeat(trader Key) (uint32, error) {
	if m.findSeat(trader) != arena.NIL {
		return arena.NIL, ErrDuplicateSeat
	}
	idx, err := m.alloc(arena.TagSeat)
	if err != nil {
		return arena.NIL, err
	}
	m.putSeat(idx, Seat{Trader: trader})
	m.seats.Insert(idx)
	m.emit(ClaimSeatLog{Trader: trader})
	return idx, nil
}

// ReleaseSeat frees a trader's seat if it has no position and no open
// orders (spec §6 `release_seat`). Open orders are detected by a linear
// scan of both trees filtered on trader index — acceptable because
// release is a rare, off-hot-path operation.
func (m *Market) ReleaseSeat(trader Key) error {
	idx := m.findSeat(trader)
	if idx == arena.NIL {
		return ErrSeatNotFound
	}
	s := m.seat(idx)
	if s.Position != 0 {
		return ErrSeatNotEmpty
	}
	if m.hasOpenOrders(idx) {
		return ErrSeatHasOrders
	}
	m.seats.Remove(idx)
	m.arena.Free(idx)
	return nil
}

func (m *Market) hasOpenOrders(traderIdx uint32) bool {
	for _, root := range []uint32{m.bids.Root, m.asks.Root} {
		if m.walkFind(root, func(o Order) bool { return o.TraderIndex == traderIdx }) != arena.NIL {
			return true
		}
	}
	return false
}

// Deposit pulls qty quote atoms from the custodian vault and credits the
// trader's margin (spec §6 `deposit`).
func (m *Market) Deposit(trader Key, qty uint64) error {
	idx := m.findSeat(trader)
	if idx == arena.NIL {
		return ErrSeatNotFound
	}
	if err := m.custodian.Pull(trader, qty); err != nil {
		return err
	}
	s := m.seat(idx)
	s.Margin += qty
	m.putSeat(idx, s)
	m.emit(DepositLog{Trader: trader, Qty: qty})
	return nil
}

// Withdraw settles funding, enforces the maintenance margin check, and
// pushes qty quote atoms back out through the custodian (spec §6
// `withdraw`).
func (m *Market) Withdraw(trader Key, qty uint64) error {
	idx := m.findSeat(trader)
	if idx == arena.NIL {
		return ErrSeatNotFound
	}
	m.settleFunding(idx)
	s := m.seat(idx)
	if qty > s.Margin {
		return ErrInsufficientMargin
	}
	candidate := s
	candidate.Margin -= qty
	if err := m.checkMaintenance(candidate); err != nil {
		return err
	}
	if err := m.custodian.Push(trader, qty); err != nil {
		return err
	}
	candidate.FundingCheckpoint = m.Header.CumulativeFunding
	m.putSeat(idx, candidate)
	m.emit(WithdrawLog{Trader: trader, Qty: qty})
	return nil
}
