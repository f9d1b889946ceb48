package market

import (
	"fmt"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
)

// FundingScale is the fixed-point scale applied to cumulative_funding
// (spec §3.5/§4.5).
const FundingScale = 1_000_000_000 // 1e9

// FundingPeriod is the nominal funding interval the per-period rate is
// expressed against (spec §2 non-goals: fixed nominal period, no dynamic
// intervals).
const FundingPeriod int64 = 3600 // ONE_HOUR, seconds

// ONE_HOUR bounds both the funding crank's dt clamp and oracle staleness
// checks (spec §4.5, §4.6).
const OneHour int64 = 3600

// MaxFundingRatePerPeriod clamps the per-crank rate to 1% (spec §4.5).
const MaxFundingRatePerPeriod int64 = FundingScale / 100

// LiquidationRewardBps is the liquidator reward rate (spec §4.6).
const LiquidationRewardBps int64 = 250

// MinPositionAtoms is the dust threshold below which a partial
// liquidation is rounded up to a full liquidation (spec §4.6).
const MinPositionAtoms int64 = 1000

// BlocksPerExpand is the batch size used by Expand when growing the
// arena (SPEC_FULL §C.5).
const BlocksPerExpand = 4096

// Params are the creation-time parameters of a market (spec §3.5).
type Params struct {
	QuoteMint              Key
	OracleFeedID           Key
	BaseDecimals           uint8
	QuoteDecimals          uint8
	InitialMarginBps       uint32
	MaintenanceMarginBps   uint32
	TakerFeeBps            uint32
	LiquidationBufferBps   uint32
}

// Validate enforces the parameter bounds from spec §3.5.
func (p Params) Validate() error {
	if p.MaintenanceMarginBps == 0 {
		return fmt.Errorf("%w: maintenance_margin_bps must be > 0", ErrInvalidParams)
	}
	if p.MaintenanceMarginBps > p.InitialMarginBps {
		return fmt.Errorf("%w: maintenance_margin_bps must be <= initial_margin_bps", ErrInvalidParams)
	}
	if p.InitialMarginBps > 50_000 {
		return fmt.Errorf("%w: initial_margin_bps must be <= 50000", ErrInvalidParams)
	}
	if p.TakerFeeBps > 1_000 {
		return fmt.Errorf("%w: taker_fee_bps must be <= 1000", ErrInvalidParams)
	}
	if p.LiquidationBufferBps >= p.MaintenanceMarginBps {
		return fmt.Errorf("%w: liquidation_buffer_bps must be < maintenance_margin_bps", ErrInvalidParams)
	}
	return nil
}

// OracleCache is the market's cached last-seen oracle reading (spec
// §3.5).
type OracleCache struct {
	PriceMantissa uint64
	PriceExponent int32
	Valid         bool
}

// Header is MarketFixed (spec §3.5): the scalar parameters, tree roots,
// sequence counters, funding/oracle cache, and insurance fund balance
// that make up the market's fixed-size prefix.
type Header struct {
	Params

	OrderSequenceNumber uint64

	BidsRoot, BidsBest uint32
	AsksRoot, AsksBest uint32
	SeatsRoot          uint32

	LongOpenInterest  uint64
	ShortOpenInterest uint64

	Oracle OracleCache

	CumulativeFunding   int64
	LastFundingTimestamp int64

	InsuranceFund uint64
}

// newHeader builds a zeroed header from validated params.
func newHeader(p Params) Header {
	return Header{
		Params:    p,
		BidsRoot:  arena.NIL,
		BidsBest:  arena.NIL,
		AsksRoot:  arena.NIL,
		AsksBest:  arena.NIL,
		SeatsRoot: arena.NIL,
	}
}
