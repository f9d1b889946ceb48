// Package globalpool exposes the shared cross-market liquidity pool that
// Global-type makers draw against as a small capability interface (spec
// §4.2: "payment comes from a shared cross-market pool via just-in-time
// capability calls; if the pool cannot fund the maker side, that maker
// is removed and matching continues"). The exact pool semantics
// (GlobalClean / GlobalEvict) are out of scope for the reviewed
// material (spec §9 open question 2); this package only models the
// single observable effect the matching engine depends on.
package globalpool

import "github.com/uhyunpark/hyperlicked/pkg/app/core/marketkey"

// Pool is asked, once per candidate Global maker, whether that trader's
// side of the trade can be funded right now. It takes no amount because
// the matching loop calls it before the trade size is known (spec
// §4.2's step ordering puts the capability check before the trade_base
// computation).
type Pool interface {
	Fund(trader marketkey.Key) bool
}

// Always is a Pool that deterministically succeeds or fails every call;
// useful for tests and as an explicit stand-in when no live pool is
// wired.
type Always bool

func (a Always) Fund(marketkey.Key) bool { return bool(a) }
