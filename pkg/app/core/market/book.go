package market

import (
	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/rbtree"
)

// Level is one aggregated price level of a book snapshot.
type Level struct {
	Price     fixedprice.Price
	BaseAtoms uint64
}

// BookSnapshot walks the book from best price outward, aggregating
// resting orders at the same price into one Level each, up to depth
// levels per side. It is read-only infrastructure for API/inspection
// consumers — the matching engine itself only ever needs the best
// cache, never a full walk.
func (m *Market) BookSnapshot(depth int) (bids, asks []Level) {
	bids = m.walkLevels(m.bids, m.Header.BidsBest, depth)
	asks = m.walkLevels(m.asks, m.Header.AsksBest, depth)
	return bids, asks
}

func (m *Market) walkLevels(tree *rbtree.Tree, start uint32, depth int) []Level {
	var levels []Level
	for n := start; n != arena.NIL && len(levels) < depth; n = tree.Successor(n) {
		o := m.order(n)
		if len(levels) > 0 && levels[len(levels)-1].Price.Cmp(o.Price) == 0 {
			levels[len(levels)-1].BaseAtoms += o.BaseAtomsRemaining
			continue
		}
		levels = append(levels, Level{Price: o.Price, BaseAtoms: o.BaseAtomsRemaining})
	}
	return levels
}
