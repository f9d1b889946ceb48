package market

import (
	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/rbtree"
)

// walkFind performs an iterative stack-based search (spec §9: keep
// tree-shaped walks off the Go call stack) over the subtree rooted at
// root, returning the first order satisfying pred, or arena.NIL.
func (m *Market) walkFind(root uint32, pred func(Order) bool) uint32 {
	if root == arena.NIL {
		return arena.NIL
	}
	stack := []uint32{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == arena.NIL {
			continue
		}
		if pred(m.order(n)) {
			return n
		}
		blk := m.arena.Get(n)
		if blk.Left != arena.NIL {
			stack = append(stack, blk.Left)
		}
		if blk.Right != arena.NIL {
			stack = append(stack, blk.Right)
		}
	}
	return arena.NIL
}

// walkCollect is walkFind's multi-match sibling: every order in the
// subtree rooted at root satisfying pred, in no particular order
// (read-only inspection paths only; the matching loop never needs more
// than the first match).
func (m *Market) walkCollect(root uint32, pred func(Order) bool) []uint32 {
	if root == arena.NIL {
		return nil
	}
	var out []uint32
	stack := []uint32{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == arena.NIL {
			continue
		}
		if pred(m.order(n)) {
			out = append(out, n)
		}
		blk := m.arena.Get(n)
		if blk.Left != arena.NIL {
			stack = append(stack, blk.Left)
		}
		if blk.Right != arena.NIL {
			stack = append(stack, blk.Right)
		}
	}
	return out
}

// OrderView is a read-only projection of one resting order, for API and
// inspection consumers.
type OrderView struct {
	SequenceNumber     uint64
	Side               Side
	Price              fixedprice.Price
	BaseAtomsRemaining uint64
	OrderType          OrderType
	LastValidSlot      uint64
}

// OpenOrders lists every resting order belonging to trader.
func (m *Market) OpenOrders(trader Key) []OrderView {
	traderIdx := m.findSeat(trader)
	if traderIdx == arena.NIL {
		return nil
	}
	var out []OrderView
	for _, side := range []struct {
		root uint32
		side Side
	}{{m.bids.Root, SideBid}, {m.asks.Root, SideAsk}} {
		for _, idx := range m.walkCollect(side.root, func(o Order) bool { return o.TraderIndex == traderIdx }) {
			o := m.order(idx)
			out = append(out, OrderView{
				SequenceNumber:     o.SequenceNumber,
				Side:               side.side,
				Price:              o.Price,
				BaseAtomsRemaining: o.BaseAtomsRemaining,
				OrderType:          o.OrderType,
				LastValidSlot:      o.LastValidSlot,
			})
		}
	}
	return out
}

func (m *Market) findOrderBySequence(traderIdx uint32, seq uint64) uint32 {
	for _, root := range []uint32{m.bids.Root, m.asks.Root} {
		if idx := m.walkFind(root, func(o Order) bool {
			return o.TraderIndex == traderIdx && o.SequenceNumber == seq
		}); idx != arena.NIL {
			return idx
		}
	}
	return arena.NIL
}

func (m *Market) firstOrderOf(traderIdx uint32) uint32 {
	for _, root := range []uint32{m.bids.Root, m.asks.Root} {
		if idx := m.walkFind(root, func(o Order) bool { return o.TraderIndex == traderIdx }); idx != arena.NIL {
			return idx
		}
	}
	return arena.NIL
}

func (m *Market) oppositeBest(isBid bool) uint32 {
	if isBid {
		return m.Header.AsksBest
	}
	return m.Header.BidsBest
}

// refreshBest recomputes a side's best-node cache from scratch (spec
// §4.1: "the best cache equals the minimum (asks) or maximum (bids)
// node"; bidsLess/asksLess are defined so tree Min is always "best" on
// both sides, so a single Min walk covers both caches).
func (m *Market) refreshBest(isBid bool) {
	if isBid {
		m.Header.BidsBest = rbtree.Min(m.bids, m.bids.Root)
	} else {
		m.Header.AsksBest = rbtree.Min(m.asks, m.asks.Root)
	}
}

func (m *Market) removeResting(idx uint32, inBids bool) {
	tree := m.asks
	if inBids {
		tree = m.bids
	}
	tree.Remove(idx)
	m.arena.Free(idx)
	m.refreshBest(inBids)
}

func (m *Market) globalFund(trader Key) bool {
	if m.pool == nil {
		return false
	}
	return m.pool.Fund(trader)
}

// matchTaker runs the matching loop (spec §4.2) for an order of baseAtoms
// on the given side against limit, without performing the final initial
// margin check: Place layers that check on top for ordinary placements,
// while Liquidate's forced close uses its own margin waterfall instead.
//
// Seat margin/position changes are accumulated in the returned dirty map
// rather than written back immediately; book-structure mutations (order
// removal/insertion, sequence numbers, insurance fund, open interest)
// commit directly. This mirrors spec §5: the execution environment, not
// this function, is what guarantees a failed operation's mutations are
// rolled back as a whole — the same external-runtime boundary spec §1
// already draws around consensus and account-commit machinery.
func (m *Market) matchTaker(takerIdx uint32, isBid bool, limit fixedprice.Price, baseAtoms uint64, orderType OrderType, lastValidSlot, currentSlot uint64) (filledBase, filledQuote, restedAtoms uint64, dirty map[uint32]Seat, err error) {
	dirty = make(map[uint32]Seat)
	get := func(idx uint32) Seat {
		if s, ok := dirty[idx]; ok {
			return s
		}
		return m.seat(idx)
	}

	// refundRestingBid reverses the up-front quote reservation a resting
	// bid made when it rested (the mirror of Cancel's refund, §6/§8),
	// for a maker pulled off the book without ever trading. Routed
	// through get/dirty rather than a direct seat write so it composes
	// correctly when the order being pulled happens to be the taker's
	// own resting order (self-trade prevention).
	refundRestingBid := func(o Order) {
		if !o.IsBid {
			return
		}
		refund := o.Price.ToQuote(o.BaseAtomsRemaining, fixedprice.RoundUp)
		s := get(o.TraderIndex)
		s.Margin += refund
		dirty[o.TraderIndex] = s
	}

	remaining := baseAtoms
	for remaining > 0 {
		bestIdx := m.oppositeBest(isBid)
		if bestIdx == arena.NIL {
			break
		}
		maker := m.order(bestIdx)

		if maker.isExpired(currentSlot) {
			refundRestingBid(maker)
			m.removeResting(bestIdx, !isBid)
			continue
		}

		if isBid {
			if maker.Price.Cmp(limit) > 0 {
				break
			}
		} else {
			if maker.Price.Cmp(limit) < 0 {
				break
			}
		}

		if orderType == OrderPostOnly {
			return 0, 0, 0, nil, ErrWouldCrossBook
		}

		if maker.OrderType == OrderGlobal && !m.globalFund(m.seat(maker.TraderIndex).Trader) {
			refundRestingBid(maker)
			m.removeResting(bestIdx, !isBid)
			continue
		}

		if maker.TraderIndex == takerIdx {
			refundRestingBid(maker)
			m.removeResting(bestIdx, !isBid)
			continue
		}

		tradeBase := remaining
		if maker.BaseAtomsRemaining < tradeBase {
			tradeBase = maker.BaseAtomsRemaining
		}
		fullConsumption := tradeBase == maker.BaseAtomsRemaining

		// Full consumption rounds in the taker's favor; a partial maker
		// fill rounds the other way, in the maker's favor (spec §4.2
		// step 5), so dust can't be exploited by splitting one side.
		dir := fixedprice.RoundUp
		if (isBid && fullConsumption) || (!isBid && !fullConsumption) {
			dir = fixedprice.RoundDown
		}
		tradeQuote := maker.Price.ToQuote(tradeBase, dir)

		takerSeat := get(takerIdx)
		makerSeat := get(maker.TraderIndex)
		takerBefore, makerBefore := takerSeat.Position, makerSeat.Position

		if isBid {
			// Taker buys fresh (never reserved); maker is an ask, whose
			// quote leg only ever moves at fill time.
			takerSeat.Margin -= tradeQuote
			makerSeat.Margin += tradeQuote
			updatePosition(&takerSeat, int64(tradeBase), tradeQuote)
			updatePosition(&makerSeat, -int64(tradeBase), tradeQuote)
		} else {
			// Maker is a resting bid that already reserved this quote
			// when it rested (see the resting-insert step below), so
			// only the taker's (seller's) credit moves here.
			takerSeat.Margin += tradeQuote
			updatePosition(&takerSeat, -int64(tradeBase), tradeQuote)
			updatePosition(&makerSeat, int64(tradeBase), tradeQuote)
		}
		applyOIDelta(&m.Header, takerBefore, takerSeat.Position)
		applyOIDelta(&m.Header, makerBefore, makerSeat.Position)

		fee := mulDivU64Ceil(tradeQuote, uint64(m.Header.TakerFeeBps), 10_000)
		takerSeat.Margin -= fee
		m.Header.InsuranceFund += fee

		makerFilled := tradeBase == maker.BaseAtomsRemaining
		if makerFilled {
			m.removeResting(bestIdx, !isBid)
		} else {
			maker.BaseAtomsRemaining -= tradeBase
			m.putOrder(bestIdx, maker)
		}

		dirty[takerIdx] = takerSeat
		dirty[maker.TraderIndex] = makerSeat

		makerPriceRaw := maker.Price.Raw()
		m.emit(FillLog{
			Taker:       m.seat(takerIdx).Trader,
			Maker:       m.seat(maker.TraderIndex).Trader,
			Price:       makerPriceRaw.Uint64(),
			BaseAtoms:   tradeBase,
			QuoteAtoms:  tradeQuote,
			TakerIsBid:  isBid,
			MakerFilled: makerFilled,
		})

		remaining -= tradeBase
		filledBase += tradeBase
		filledQuote += tradeQuote
	}

	if remaining > 0 && orderType.canRest() {
		idx, aerr := m.alloc(arena.TagOrder)
		if aerr != nil {
			return 0, 0, 0, nil, aerr
		}

		if isBid {
			// A resting bid reserves the quote its remainder could cost
			// up front; Cancel refunds whatever's left unconsumed using
			// the identical formula (spec §6, §8 round-trip property).
			reserve := limit.ToQuote(remaining, fixedprice.RoundUp)
			takerSeat := get(takerIdx)
			takerSeat.Margin -= reserve
			dirty[takerIdx] = takerSeat
		}

		seq := m.Header.OrderSequenceNumber
		m.Header.OrderSequenceNumber++
		order := Order{
			TraderIndex:        takerIdx,
			Price:              limit,
			BaseAtomsRemaining: remaining,
			SequenceNumber:     seq,
			LastValidSlot:      lastValidSlot,
			OrderType:          orderType,
			IsBid:              isBid,
		}
		m.putOrder(idx, order)

		tree := m.asks
		if isBid {
			tree = m.bids
		}
		tree.Insert(idx)
		m.refreshBest(isBid)

		restedAtoms = remaining
	}

	return filledBase, filledQuote, restedAtoms, dirty, nil
}

// Place executes place_order (spec §4.2, §6): match against the book,
// optionally rest the remainder, and enforce the taker's initial margin
// requirement against the fully-updated state before committing.
func (m *Market) Place(trader Key, side Side, price fixedprice.Price, baseAtoms uint64, orderType OrderType, lastValidSlot, currentSlot uint64) (filledBase, filledQuote, restedAtoms uint64, err error) {
	if m.Status != Active {
		return 0, 0, 0, ErrMarketNotActive
	}
	if lastValidSlot != 0 && currentSlot > lastValidSlot {
		return 0, 0, 0, ErrOrderExpired
	}
	takerIdx := m.findSeat(trader)
	if takerIdx == arena.NIL {
		return 0, 0, 0, ErrSeatNotFound
	}
	m.settleFunding(takerIdx)

	isBid := side == SideBid
	filledBase, filledQuote, restedAtoms, dirty, err := m.matchTaker(takerIdx, isBid, price, baseAtoms, orderType, lastValidSlot, currentSlot)
	if err != nil {
		return 0, 0, 0, err
	}

	takerFinal := m.seat(takerIdx)
	if s, ok := dirty[takerIdx]; ok {
		takerFinal = s
	}
	if err := m.checkInitial(takerFinal); err != nil {
		return 0, 0, 0, err
	}

	for idx, s := range dirty {
		if idx == takerIdx {
			// Only the current transaction's trader has its funding
			// checkpoint refreshed at transaction end (spec §4.3):
			// makers are settled lazily on their own next touch.
			s.FundingCheckpoint = m.Header.CumulativeFunding
		}
		m.putSeat(idx, s)
	}

	priceRaw := price.Raw()
	m.emit(PlaceOrderLog{
		Trader:      trader,
		Side:        side,
		Price:       priceRaw.Uint64(),
		OrderType:   orderType,
		FilledBase:  filledBase,
		FilledQuote: filledQuote,
		RestedAtoms: restedAtoms,
		SequenceNum: m.Header.OrderSequenceNumber,
	})
	return filledBase, filledQuote, restedAtoms, nil
}

// Cancel executes cancel (spec §6): remove a resting order, refunding
// its reserved quote if it was a bid, and no-op on the margin side if it
// was an ask (virtual base: nothing was ever committed for a sell).
func (m *Market) Cancel(trader Key, sequenceNumber uint64) error {
	traderIdx := m.findSeat(trader)
	if traderIdx == arena.NIL {
		return ErrSeatNotFound
	}
	idx := m.findOrderBySequence(traderIdx, sequenceNumber)
	if idx == arena.NIL {
		return ErrOrderNotFound
	}
	order := m.order(idx)

	var refund uint64
	if order.IsBid {
		refund = order.Price.ToQuote(order.BaseAtomsRemaining, fixedprice.RoundUp)
		seat := m.seat(traderIdx)
		seat.Margin += refund
		m.putSeat(traderIdx, seat)
	}

	m.removeResting(idx, order.IsBid)

	m.emit(CancelOrderLog{Trader: trader, SequenceNumber: sequenceNumber, RefundedQuote: refund})
	return nil
}

// cancelAllOrders removes every resting order belonging to traderIdx,
// refunding bid reservations the same way Cancel does (spec §4.6 step
// 3: "cancel all open orders of the target").
func (m *Market) cancelAllOrders(traderIdx uint32) {
	for {
		idx := m.firstOrderOf(traderIdx)
		if idx == arena.NIL {
			return
		}
		order := m.order(idx)
		if order.IsBid {
			refund := order.Price.ToQuote(order.BaseAtomsRemaining, fixedprice.RoundUp)
			seat := m.seat(traderIdx)
			seat.Margin += refund
			m.putSeat(traderIdx, seat)
		}
		m.removeResting(idx, order.IsBid)
	}
}
