package market

import (
	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/rbtree"
	"github.com/uhyunpark/hyperlicked/pkg/custodian"
	"github.com/uhyunpark/hyperlicked/pkg/globalpool"
	"github.com/uhyunpark/hyperlicked/pkg/oracle"
	"go.uber.org/zap"
)

// Snapshot is the fully-serializable state of a market: the fixed
// header plus every arena block, live or free. Taking one is the
// in-memory half of crash recovery (storage.MarketStore persists the
// other half); the tree roots are folded into Header at snapshot time
// since during normal operation they live on the three Tree values, not
// on Header itself.
type Snapshot struct {
	Symbol   string
	Status   MarketStatus
	Header   Header
	Blocks   []arena.Block
	FreeHead uint32
}

// Snapshot captures the market's current state. The returned value
// shares no memory with the live market: callers may persist it at
// leisure without racing further mutation.
func (m *Market) Snapshot() Snapshot {
	m.Header.BidsRoot = m.bids.Root
	m.Header.AsksRoot = m.asks.Root
	m.Header.SeatsRoot = m.seats.Root

	blocks := make([]arena.Block, len(m.arena.Blocks))
	copy(blocks, m.arena.Blocks)

	return Snapshot{
		Symbol:   m.Symbol,
		Status:   m.Status,
		Header:   m.Header,
		Blocks:   blocks,
		FreeHead: m.arena.FreeHead,
	}
}

// Restore rebuilds a live Market from a Snapshot, rewiring the oracle,
// custodian, global pool, logger and event sink capabilities (these are
// never part of persisted state, matching spec §1's framing of them as
// externally-supplied collaborators).
func Restore(snap Snapshot, feed oracle.Feed, cust custodian.Custodian, pool globalpool.Pool, log *zap.Logger, sink EventSink) *Market {
	a := &arena.Arena{
		Blocks:   append([]arena.Block(nil), snap.Blocks...),
		FreeHead: snap.FreeHead,
	}
	m := &Market{
		Symbol:    snap.Symbol,
		Status:    snap.Status,
		Header:    snap.Header,
		arena:     a,
		oracle:    feed,
		custodian: cust,
		pool:      pool,
		log:       log,
		events:    sink,
	}
	m.bids = rbtree.New(a, m.bidsLess)
	m.bids.Root = snap.Header.BidsRoot
	m.asks = rbtree.New(a, m.asksLess)
	m.asks.Root = snap.Header.AsksRoot
	m.seats = rbtree.New(a, m.seatsLess)
	m.seats.Root = snap.Header.SeatsRoot
	return m
}
