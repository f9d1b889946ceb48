package market

import "github.com/uhyunpark/hyperlicked/pkg/app/core/marketkey"

// Key is a 32-byte identity: a trader, the quote mint, or an oracle feed
// id. Reusing go-ethereum's 32-byte common.Hash (rather than its 20-byte
// common.Address) is the natural fit for the wire-level 32-byte Key the
// spec calls for. Defined in marketkey so oracle/custodian capability
// interfaces can reference it without importing this package.
type Key = marketkey.Key

// Side is which side of the book an order sits on or crosses against.
type Side int8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// OrderType selects matching/resting semantics (spec §4.2).
type OrderType uint8

const (
	OrderLimit OrderType = iota
	OrderPostOnly
	OrderImmediateOrCancel
	OrderGlobal
	OrderReverse
	OrderReverseTight
)

func (t OrderType) String() string {
	switch t {
	case OrderLimit:
		return "limit"
	case OrderPostOnly:
		return "post_only"
	case OrderImmediateOrCancel:
		return "ioc"
	case OrderGlobal:
		return "global"
	case OrderReverse:
		return "reverse"
	case OrderReverseTight:
		return "reverse_tight"
	default:
		return "unknown"
	}
}

// canRest reports whether a fully- or partially-unfilled order of this
// type is allowed to rest on the book. IOC orders never rest; everything
// else does (PostOnly only ever rests, by construction, since it aborts
// on any cross).
func (t OrderType) canRest() bool {
	return t != OrderImmediateOrCancel
}
