package market

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
	"github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"
)

// Order is the decoded OrderNode payload (spec §3.3), encoded bit-exact
// little-endian into a block's 64-byte payload:
//
//	[0:4)   TraderIndex         uint32
//	[4:20)  Price               128-bit fixed point
//	[20:28) BaseAtomsRemaining  uint64
//	[28:36) SequenceNumber      uint64
//	[36:44) LastValidSlot       uint64
//	[44:45) OrderType           uint8
//	[45:46) IsBid               bool
type Order struct {
	TraderIndex        uint32
	Price              fixedprice.Price
	BaseAtomsRemaining uint64
	SequenceNumber     uint64
	LastValidSlot      uint64
	OrderType          OrderType
	IsBid              bool
}

func encodeOrder(o Order) [arena.PayloadSize]byte {
	var buf [arena.PayloadSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], o.TraderIndex)
	raw := o.Price.Raw()
	rawBytes := raw.Bytes32()
	copy(buf[4:20], rawBytes[16:32]) // low 128 bits, big-endian within the slice
	binary.LittleEndian.PutUint64(buf[20:28], o.BaseAtomsRemaining)
	binary.LittleEndian.PutUint64(buf[28:36], o.SequenceNumber)
	binary.LittleEndian.PutUint64(buf[36:44], o.LastValidSlot)
	buf[44] = byte(o.OrderType)
	if o.IsBid {
		buf[45] = 1
	}
	return buf
}

func decodeOrder(buf [arena.PayloadSize]byte) Order {
	var o Order
	o.TraderIndex = binary.LittleEndian.Uint32(buf[0:4])
	var wide [32]byte
	copy(wide[16:32], buf[4:20])
	o.Price = fixedprice.FromRaw(new(uint256.Int).SetBytes32(wide[:]))
	o.BaseAtomsRemaining = binary.LittleEndian.Uint64(buf[20:28])
	o.SequenceNumber = binary.LittleEndian.Uint64(buf[28:36])
	o.LastValidSlot = binary.LittleEndian.Uint64(buf[36:44])
	o.OrderType = OrderType(buf[44])
	o.IsBid = buf[45] != 0
	return o
}

func (m *Market) order(idx uint32) Order {
	return decodeOrder(m.arena.Get(idx).Payload)
}

func (m *Market) putOrder(idx uint32, o Order) {
	m.arena.Get(idx).Payload = encodeOrder(o)
}

// isExpired reports whether an order has a nonzero last_valid_slot that
// has passed as of currentSlot (spec §4.2 step 1).
func (o Order) isExpired(currentSlot uint64) bool {
	return o.LastValidSlot != 0 && currentSlot > o.LastValidSlot
}
