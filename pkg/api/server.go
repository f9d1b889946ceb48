// Package api exposes the matching/risk engine over REST and
// WebSocket, adapted from the teacher's pkg/api/server.go: same
// gorilla/mux + rs/cors REST surface and gorilla/websocket fan-out hub,
// now fronting a market.MarketRegistry instead of the teacher's
// consensus-backed orderbook/account app.
package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/market"
	"github.com/uhyunpark/hyperlicked/pkg/signing"
)

// Server handles REST and WebSocket access to every market in a
// registry, verifying the EIP-712 signature on every order, cancel and
// withdraw request before handing it to the core engine (spec.md §1's
// "host runtime instruction-signature verification", reintroduced here
// as ambient transport security — see SPEC_FULL.md §C.4). Seat claims
// and deposits are accepted without a signature.
type Server struct {
	registry *market.MarketRegistry
	chainID  *big.Int
	router   *mux.Router
	hub      *Hub
	log      *zap.Logger
}

// NewServer wires a Server over registry. chainID seeds the EIP-712
// domain separator so signed orders can't replay across deployments.
func NewServer(registry *market.MarketRegistry, chainID *big.Int, log *zap.Logger) *Server {
	s := &Server{
		registry: registry,
		chainID:  chainID,
		router:   mux.NewRouter(),
		hub:      NewHub(log),
		log:      log,
	}
	s.setupRoutes()
	return s
}

// Hub exposes the WebSocket fan-out hub so callers can wire it as a
// market.EventSink fanout target (see storage.NewEventSink).
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) domainFor(symbol string) signing.Domain {
	return signing.Domain{Name: "hyperlicked:" + symbol, Version: "1", ChainID: s.chainID, VerifyingContract: common.Address{}}
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/markets", s.handleListMarkets).Methods("GET")
	v1.HandleFunc("/markets/{symbol}", s.handleGetMarket).Methods("GET")
	v1.HandleFunc("/markets/{symbol}/orderbook", s.handleGetOrderbook).Methods("GET")
	v1.HandleFunc("/markets/{symbol}/accounts/{trader}", s.handleGetAccount).Methods("GET")
	v1.HandleFunc("/markets/{symbol}/accounts/{trader}/orders", s.handleGetOrders).Methods("GET")
	v1.HandleFunc("/markets/{symbol}/accounts/{trader}/claim", s.handleClaimSeat).Methods("POST")
	v1.HandleFunc("/markets/{symbol}/accounts/{trader}/deposit", s.handleDeposit).Methods("POST")

	v1.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	v1.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	v1.HandleFunc("/withdraw", s.handleWithdraw).Methods("POST")
	v1.HandleFunc("/liquidate", s.handleLiquidate).Methods("POST")
	v1.HandleFunc("/crank-funding/{symbol}", s.handleCrankFunding).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves HTTP on addr until the process exits.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	s.log.Sugar().Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// Read-only endpoints
// ==============================

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	out := make([]MarketInfo, 0)
	for _, m := range s.registry.ListMarkets() {
		out = append(out, marketInfo(m))
	}
	respondJSON(w, out)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.market(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	respondJSON(w, marketInfo(m))
}

func marketInfo(m *market.Market) MarketInfo {
	return MarketInfo{
		Symbol:               m.Symbol,
		Status:               m.Status.String(),
		InitialMarginBps:     m.Header.InitialMarginBps,
		MaintenanceMarginBps: m.Header.MaintenanceMarginBps,
		TakerFeeBps:          m.Header.TakerFeeBps,
		LiquidationBufferBps: m.Header.LiquidationBufferBps,
		LongOpenInterest:     m.Header.LongOpenInterest,
		ShortOpenInterest:    m.Header.ShortOpenInterest,
		InsuranceFund:        m.Header.InsuranceFund,
		CumulativeFunding:    m.Header.CumulativeFunding,
	}
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	m, err := s.market(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	depth := 20
	if d := r.URL.Query().Get("depth"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			depth = n
		}
	}
	bidLevels, askLevels := m.BookSnapshot(depth)
	respondJSON(w, OrderbookSnapshot{
		Symbol: mux.Vars(r)["symbol"],
		Bids:   toPriceLevels(bidLevels),
		Asks:   toPriceLevels(askLevels),
	})
}

func toPriceLevels(levels []market.Level) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, l := range levels {
		priceRaw := l.Price.Raw()
		out[i] = PriceLevel{PriceMantissa: priceRaw.Uint64(), Size: l.BaseAtoms}
	}
	return out
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	m, err := s.market(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	trader, err := traderKey(mux.Vars(r)["trader"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_trader", err.Error())
		return
	}
	seat, ok := m.SeatView(trader)
	if !ok {
		respondError(w, http.StatusNotFound, "seat_not_found", "")
		return
	}
	respondJSON(w, AccountInfo{
		Trader:            mux.Vars(r)["trader"],
		Margin:            seat.Margin,
		Position:          seat.Position,
		CostBasis:         seat.CostBasis,
		FundingCheckpoint: seat.FundingCheckpoint,
	})
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	m, err := s.market(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	trader, err := traderKey(mux.Vars(r)["trader"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_trader", err.Error())
		return
	}
	views := m.OpenOrders(trader)
	out := make([]OrderInfo, len(views))
	for i, v := range views {
		priceRaw := v.Price.Raw()
		out[i] = OrderInfo{
			SequenceNumber: v.SequenceNumber,
			Side:           v.Side.String(),
			PriceMantissa:  priceRaw.Uint64(),
			Remaining:      v.BaseAtomsRemaining,
			OrderType:      v.OrderType.String(),
			LastValidSlot:  v.LastValidSlot,
		}
	}
	respondJSON(w, out)
}

// ==============================
// Mutating endpoints
// ==============================

func (s *Server) handleClaimSeat(w http.ResponseWriter, r *http.Request) {
	m, err := s.market(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	trader, err := traderKey(mux.Vars(r)["trader"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_trader", err.Error())
		return
	}
	if _, err := m.ClaimSeat(trader); err != nil {
		respondError(w, http.StatusConflict, "claim_seat_failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "claimed"})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	m, err := s.market(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	trader, err := traderKey(mux.Vars(r)["trader"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_trader", err.Error())
		return
	}
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := m.Deposit(trader, req.Qty); err != nil {
		respondError(w, http.StatusBadRequest, "deposit_failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	m, err := s.registry.GetMarket(req.Symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	owner := common.HexToAddress(req.Owner)
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_signature_encoding", err.Error())
		return
	}
	intent := signing.OrderIntent{
		Symbol: req.Symbol, IsBid: req.IsBid, OrderType: req.OrderType,
		PriceMantissa: uint64(req.PriceMantissa), PriceExponent: req.PriceExponent,
		BaseAtoms: req.BaseAtoms, LastValidSlot: req.LastValidSlot, Nonce: req.Nonce, Owner: owner,
	}
	ok, err := signing.VerifyOrder(s.domainFor(req.Symbol), intent, sig)
	if err != nil || !ok {
		respondError(w, http.StatusUnauthorized, "bad_signature", "order intent signature does not match owner")
		return
	}

	price, err := fixedprice.New(req.PriceMantissa, req.PriceExponent)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_price", err.Error())
		return
	}
	side := market.SideAsk
	if req.IsBid {
		side = market.SideBid
	}
	filledBase, filledQuote, rested, err := m.Place(common.BytesToHash(owner.Bytes()), side, price, req.BaseAtoms, market.OrderType(req.OrderType), req.LastValidSlot, req.CurrentSlot)
	if err != nil {
		respondError(w, http.StatusBadRequest, "place_failed", err.Error())
		return
	}
	respondJSON(w, PlaceOrderResponse{FilledBase: filledBase, FilledQuote: filledQuote, RestedAtoms: rested})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	m, err := s.registry.GetMarket(req.Symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	owner := common.HexToAddress(req.Owner)
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_signature_encoding", err.Error())
		return
	}
	intent := signing.CancelIntent{Symbol: req.Symbol, SequenceNumber: req.SequenceNumber, Nonce: req.Nonce, Owner: owner}
	ok, err := signing.VerifyCancel(s.domainFor(req.Symbol), intent, sig)
	if err != nil || !ok {
		respondError(w, http.StatusUnauthorized, "bad_signature", "cancel intent signature does not match owner")
		return
	}
	if err := m.Cancel(common.BytesToHash(owner.Bytes()), req.SequenceNumber); err != nil {
		respondError(w, http.StatusBadRequest, "cancel_failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "cancelled"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	m, err := s.registry.GetMarket(req.Symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	owner := common.HexToAddress(req.Owner)
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_signature_encoding", err.Error())
		return
	}
	intent := signing.WithdrawIntent{Symbol: req.Symbol, Qty: req.Qty, Nonce: req.Nonce, Owner: owner}
	ok, err := signing.VerifyWithdraw(s.domainFor(req.Symbol), intent, sig)
	if err != nil || !ok {
		respondError(w, http.StatusUnauthorized, "bad_signature", "withdraw intent signature does not match owner")
		return
	}
	if err := m.Withdraw(common.BytesToHash(owner.Bytes()), req.Qty); err != nil {
		respondError(w, http.StatusBadRequest, "withdraw_failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req LiquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	m, err := s.registry.GetMarket(req.Symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	liq, err := traderKey(req.Liquidator)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_liquidator", err.Error())
		return
	}
	target, err := traderKey(req.Target)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_target", err.Error())
		return
	}
	closeBase, closeNotional, reward, insuranceDraw, err := m.Liquidate(liq, target, req.CurrentTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, "liquidate_failed", err.Error())
		return
	}
	respondJSON(w, LiquidateResponse{CloseBase: closeBase, CloseNotional: closeNotional, Reward: reward, InsuranceDraw: insuranceDraw})
}

func (s *Server) handleCrankFunding(w http.ResponseWriter, r *http.Request) {
	m, err := s.market(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}
	var req CrankFundingRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // a missing or unparsable body leaves CurrentTime zero, which is rejected below
	if req.CurrentTime == 0 {
		respondError(w, http.StatusBadRequest, "missing_current_time", "")
		return
	}
	if err := m.CrankFunding(req.CurrentTime); err != nil {
		respondError(w, http.StatusBadRequest, "crank_failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func (s *Server) market(r *http.Request) (*market.Market, error) {
	return s.registry.GetMarket(mux.Vars(r)["symbol"])
}

func traderKey(hexAddr string) (market.Key, error) {
	if !common.IsHexAddress(hexAddr) {
		return market.Key{}, fmt.Errorf("api: %q is not a valid address", hexAddr)
	}
	addr := common.HexToAddress(hexAddr)
	return common.BytesToHash(addr.Bytes()), nil
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: message})
}
