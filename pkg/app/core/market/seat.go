package market

import (
	"bytes"
	"encoding/binary"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/rbtree"
)

// Seat is the decoded ClaimedSeat payload (spec §3.4): a trader's margin,
// signed position, cost basis, and funding checkpoint. It is encoded
// bit-exact little-endian into a block's 64-byte payload (spec §6):
//
//	[0:32)  Trader             Key
//	[32:40) Margin             uint64
//	[40:48) Position           int64
//	[48:56) CostBasis          uint64
//	[56:64) FundingCheckpoint  int64
type Seat struct {
	Trader             Key
	Margin             uint64
	Position           int64
	CostBasis          uint64
	FundingCheckpoint  int64
}

func encodeSeat(s Seat) [arena.PayloadSize]byte {
	var buf [arena.PayloadSize]byte
	copy(buf[0:32], s.Trader[:])
	binary.LittleEndian.PutUint64(buf[32:40], s.Margin)
	binary.LittleEndian.PutUint64(buf[40:48], uint64(s.Position))
	binary.LittleEndian.PutUint64(buf[48:56], s.CostBasis)
	binary.LittleEndian.PutUint64(buf[56:64], uint64(s.FundingCheckpoint))
	return buf
}

func decodeSeat(buf [arena.PayloadSize]byte) Seat {
	var s Seat
	copy(s.Trader[:], buf[0:32])
	s.Margin = binary.LittleEndian.Uint64(buf[32:40])
	s.Position = int64(binary.LittleEndian.Uint64(buf[40:48]))
	s.CostBasis = binary.LittleEndian.Uint64(buf[48:56])
	s.FundingCheckpoint = int64(binary.LittleEndian.Uint64(buf[56:64]))
	return s
}

// seat decodes the seat payload at arena index idx.
func (m *Market) seat(idx uint32) Seat {
	return decodeSeat(m.arena.Get(idx).Payload)
}

// putSeat re-encodes and stores s at arena index idx.
func (m *Market) putSeat(idx uint32, s Seat) {
	m.arena.Get(idx).Payload = encodeSeat(s)
}

// findSeat looks up a trader's seat index in the seats tree, or NIL.
func (m *Market) findSeat(trader Key) uint32 {
	return rbtree.Find(m.seats, func(candidate uint32) int {
		candidateSeat := m.seat(candidate)
		return bytes.Compare(trader[:], candidateSeat.Trader[:])
	})
}

// SeatView returns a read-only copy of trader's seat for API/inspection
// consumers. The bool return is false if trader has no claimed seat.
func (m *Market) SeatView(trader Key) (Seat, bool) {
	idx := m.findSeat(trader)
	if idx == arena.NIL {
		return Seat{}, false
	}
	return m.seat(idx), true
}
