package common

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"vidar/internal/fixed"
)

// TradeEncodedLen is the canonical encoded size of a Trade: eight uint64
// fields, 8 bytes each.
const TradeEncodedLen = 64

// Trade is a single match between a maker and a taker order. The maker is
// the resting order that was already on the book; the taker is the incoming
// order that removed liquidity. Price is always the maker's resting price.
type Trade struct {
	ID           uint64
	MakerOrderID uint64
	TakerOrderID uint64
	MakerUserID  uint64
	TakerUserID  uint64
	Price        uint64 // fixed-point, scaled by 10^8
	Quantity     uint64 // fixed-point, scaled by 10^8
	Timestamp    uint64
}

// EncodeTo writes the canonical 64-byte record into buf, which must hold at
// least TradeEncodedLen bytes.
func (t Trade) EncodeTo(buf []byte) {
	_ = buf[TradeEncodedLen-1]
	binary.LittleEndian.PutUint64(buf[0:8], t.ID)
	binary.LittleEndian.PutUint64(buf[8:16], t.MakerOrderID)
	binary.LittleEndian.PutUint64(buf[16:24], t.TakerOrderID)
	binary.LittleEndian.PutUint64(buf[24:32], t.MakerUserID)
	binary.LittleEndian.PutUint64(buf[32:40], t.TakerUserID)
	binary.LittleEndian.PutUint64(buf[40:48], t.Price)
	binary.LittleEndian.PutUint64(buf[48:56], t.Quantity)
	binary.LittleEndian.PutUint64(buf[56:64], t.Timestamp)
}

// Encode returns the canonical 64-byte record.
func (t Trade) Encode() []byte {
	buf := make([]byte, TradeEncodedLen)
	t.EncodeTo(buf)
	return buf
}

// DecodeTrade parses a canonical 64-byte record.
func DecodeTrade(buf []byte) (Trade, error) {
	if len(buf) < TradeEncodedLen {
		return Trade{}, ErrShortBuffer
	}
	return Trade{
		ID:           binary.LittleEndian.Uint64(buf[0:8]),
		MakerOrderID: binary.LittleEndian.Uint64(buf[8:16]),
		TakerOrderID: binary.LittleEndian.Uint64(buf[16:24]),
		MakerUserID:  binary.LittleEndian.Uint64(buf[24:32]),
		TakerUserID:  binary.LittleEndian.Uint64(buf[32:40]),
		Price:        binary.LittleEndian.Uint64(buf[40:48]),
		Quantity:     binary.LittleEndian.Uint64(buf[48:56]),
		Timestamp:    binary.LittleEndian.Uint64(buf[56:64]),
	}, nil
}

// NotionalRaw returns the 128-bit raw product price·quantity as a (hi, lo)
// pair. The result is scaled by 10^16; divide by Scale for the notional.
func (t Trade) NotionalRaw() (hi, lo uint64) {
	return bits.Mul64(t.Price, t.Quantity)
}

// Notional returns the trade's notional value price·quantity in fixed-point,
// failing if it does not fit.
func (t Trade) Notional() (uint64, error) {
	return fixed.Mul(t.Price, t.Quantity)
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"trade %d: maker %d (user %d) x taker %d (user %d) %s @ %s ts=%d",
		t.ID,
		t.MakerOrderID, t.MakerUserID,
		t.TakerOrderID, t.TakerUserID,
		fixed.FromFixed(t.Quantity),
		fixed.FromFixed(t.Price),
		t.Timestamp,
	)
}
