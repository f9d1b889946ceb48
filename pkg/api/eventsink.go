package api

import "github.com/uhyunpark/hyperlicked/pkg/app/core/market"

// HubSink adapts a Hub into a market.EventSink bound to one symbol,
// broadcasting every event onto two WebSocket channels: "events:<symbol>"
// for everything, and "fills:<symbol>" additionally for FillLog, so a
// client that only cares about trade prints doesn't have to filter the
// firehose itself.
type HubSink struct {
	hub    *Hub
	symbol string
}

// NewHubSink builds a fanout sink for symbol broadcasting through hub.
// Wire it as storage.NewEventSink's fanout argument to broadcast every
// persisted event live, the way the teacher's engine.OnBlockCommit hook
// pushed consensus updates to connected clients.
func NewHubSink(hub *Hub, symbol string) *HubSink {
	return &HubSink{hub: hub, symbol: symbol}
}

func (s *HubSink) Emit(discriminator [8]byte, name string, payload any) {
	s.hub.BroadcastToChannel("events:"+s.symbol, WSMessage{Type: name, Data: payload})
	if name == "FillLog" {
		s.hub.BroadcastToChannel("fills:"+s.symbol, WSMessage{Type: name, Data: payload})
	}
}

var _ market.EventSink = (*HubSink)(nil)
