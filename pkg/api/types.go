package api

// API request/response types for the REST and WebSocket surface over
// the matching engine.

// MarketInfo is a market's static configuration and live counters.
type MarketInfo struct {
	Symbol               string `json:"symbol"`
	Status               string `json:"status"`
	InitialMarginBps     uint32 `json:"initialMarginBps"`
	MaintenanceMarginBps uint32 `json:"maintenanceMarginBps"`
	TakerFeeBps          uint32 `json:"takerFeeBps"`
	LiquidationBufferBps uint32 `json:"liquidationBufferBps"`
	LongOpenInterest     uint64 `json:"longOpenInterest"`
	ShortOpenInterest    uint64 `json:"shortOpenInterest"`
	InsuranceFund        uint64 `json:"insuranceFund"`
	CumulativeFunding    int64  `json:"cumulativeFunding"`
}

// PriceLevel is one aggregated [price, size] book entry.
type PriceLevel struct {
	PriceMantissa uint64 `json:"priceMantissa"`
	Size          uint64 `json:"size"`
}

// OrderbookSnapshot is a depth-limited view of one market's book.
type OrderbookSnapshot struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"`
}

// AccountInfo is a trader's margin account in one market.
type AccountInfo struct {
	Trader            string `json:"trader"`
	Margin            uint64 `json:"margin"`
	Position          int64  `json:"position"`
	CostBasis         uint64 `json:"costBasis"`
	FundingCheckpoint int64  `json:"fundingCheckpoint"`
}

// OrderInfo is one resting order.
type OrderInfo struct {
	SequenceNumber uint64 `json:"sequenceNumber"`
	Side           string `json:"side"`
	PriceMantissa  uint64 `json:"priceMantissa"`
	Remaining      uint64 `json:"remaining"`
	OrderType      string `json:"orderType"`
	LastValidSlot  uint64 `json:"lastValidSlot"`
}

// PlaceOrderRequest submits a signed order intent.
type PlaceOrderRequest struct {
	Symbol        string `json:"symbol"`
	Owner         string `json:"owner"`
	IsBid         bool   `json:"isBid"`
	OrderType     uint8  `json:"orderType"`
	PriceMantissa uint32 `json:"priceMantissa"`
	PriceExponent int32  `json:"priceExponent"`
	BaseAtoms     uint64 `json:"baseAtoms"`
	LastValidSlot uint64 `json:"lastValidSlot"`
	CurrentSlot   uint64 `json:"currentSlot"`
	Nonce         uint64 `json:"nonce"`
	Signature     string `json:"signature"` // 0x-prefixed hex, 65 bytes
}

// PlaceOrderResponse reports the immediate fill outcome.
type PlaceOrderResponse struct {
	FilledBase  uint64 `json:"filledBase"`
	FilledQuote uint64 `json:"filledQuote"`
	RestedAtoms uint64 `json:"restedAtoms"`
}

// CancelOrderRequest submits a signed cancel intent.
type CancelOrderRequest struct {
	Symbol         string `json:"symbol"`
	Owner          string `json:"owner"`
	SequenceNumber uint64 `json:"sequenceNumber"`
	Nonce          uint64 `json:"nonce"`
	Signature      string `json:"signature"`
}

// DepositRequest credits a trader's margin from the custodian vault.
// Deposits need no trader signature: the custodian has already
// authorized the external pull (spec §1 custody boundary).
type DepositRequest struct {
	Qty uint64 `json:"qty"`
}

// WithdrawRequest submits a signed withdraw intent.
type WithdrawRequest struct {
	Symbol    string `json:"symbol"`
	Owner     string `json:"owner"`
	Qty       uint64 `json:"qty"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// LiquidateRequest names a liquidator/target pair for one market.
type LiquidateRequest struct {
	Symbol      string `json:"symbol"`
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	CurrentTime int64  `json:"currentTime"`
}

// CrankFundingRequest supplies the current time for crank_funding; any
// caller may submit one (spec.md §6: "may be called by anyone").
type CrankFundingRequest struct {
	CurrentTime int64 `json:"currentTime"`
}

// ClaimSeatRequest claims a trading seat for a trader in one market.
type ClaimSeatRequest struct {
	Symbol string `json:"symbol"`
	Trader string `json:"trader"`
}

// LiquidateResponse reports what the liquidation closed.
type LiquidateResponse struct {
	CloseBase     uint64 `json:"closeBase"`
	CloseNotional uint64 `json:"closeNotional"`
	Reward        uint64 `json:"reward"`
	InsuranceDraw uint64 `json:"insuranceDraw"`
}

// ErrorResponse is returned for every non-2xx REST response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WSSubscribeRequest is sent by a client to (un)subscribe to channels,
// e.g. "events:BTC-PERP", "fills:BTC-PERP".
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// WSMessage wraps every server-pushed WebSocket payload.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
