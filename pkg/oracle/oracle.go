// Package oracle exposes price-feed reading as a small capability
// interface, so the matching/funding/margin core stays pure and
// deterministic for property testing (spec §9: "oracle/custody as
// capabilities").
package oracle

import "github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"

// Reading is one oracle observation: a mantissa/exponent pair that
// encodes directly into a fixedprice.Price (spec §3.5's oracle cache).
type Reading struct {
	Mantissa uint32
	Exponent int32
}

// Price decodes the reading into a fixedprice.Price.
func (r Reading) Price() (fixedprice.Price, error) {
	return fixedprice.New(r.Mantissa, r.Exponent)
}

// Feed is the capability the market core calls to get a fresh price.
// FeedID identifies which feed this market is pinned to (spec §3.5
// oracle_feed_id). Market.CrankFunding calls Read itself and does not
// check FeedID.
type Feed interface {
	FeedID() [32]byte
	Read() (Reading, error)
}

// Static is a fixed-reading feed, useful for tests and for markets
// without a live price source wired up yet.
type Static struct {
	ID      [32]byte
	Reading Reading
	Err     error
}

func (s Static) FeedID() [32]byte { return s.ID }

func (s Static) Read() (Reading, error) {
	if s.Err != nil {
		return Reading{}, s.Err
	}
	return s.Reading, nil
}
