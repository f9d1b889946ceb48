package storage

import (
	"sync/atomic"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/market"
)

// EventSink adapts a MarketStore into a market.EventSink bound to one
// symbol, assigning each event an increasing sequence number as it's
// appended.
type EventSink struct {
	store  *MarketStore
	symbol string
	seq    atomic.Uint64
	log    market.EventSink // optional secondary sink, e.g. an in-memory tail for WebSocket fanout
}

// NewEventSink builds a sink that persists every event for symbol
// through store, additionally forwarding to fanout if non-nil (the
// API's WebSocket feed, for example).
func NewEventSink(store *MarketStore, symbol string, fanout market.EventSink) *EventSink {
	return &EventSink{store: store, symbol: symbol, log: fanout}
}

func (s *EventSink) Emit(discriminator [8]byte, name string, payload any) {
	seq := s.seq.Add(1)
	if err := s.store.AppendEvent(s.symbol, seq, discriminator, name, payload); err != nil {
		// Persistence failures here must not unwind a committed market
		// mutation (emit runs after state is already mutated); the event
		// is dropped without logging and is not forwarded to fanout.
		return
	}
	if s.log != nil {
		s.log.Emit(discriminator, name, payload)
	}
}

var _ market.EventSink = (*EventSink)(nil)
