// Package common holds the record types shared by the book, the matching
// engine and the wire gateway: Order, Trade and ExecutionReceipt, together
// with their canonical byte encodings.
//
// The encodings are normative: fixed-size little-endian records with no
// length prefixes or tags. The state root is a digest over these exact
// bytes, so any change here breaks replay verification for every caller.
package common

import (
	"encoding/binary"
	"errors"
	"fmt"

	"vidar/internal/fixed"
)

var ErrShortBuffer = errors.New("buffer too short for record")

// Side is the order side, persisted as a single byte.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// Opposite returns the side resting orders must be on to match s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType is persisted as a single byte. Only limit orders exist in this
// revision.
type OrderType uint8

const (
	Limit OrderType = iota
)

func (t OrderType) String() string {
	if t == Limit {
		return "Limit"
	}
	return fmt.Sprintf("OrderType(%d)", uint8(t))
}

// OrderEncodedLen is the canonical encoded size of an Order:
// id(8) | user_id(8) | side(1) | price(8) | quantity(8) | remaining(8) |
// timestamp(8) | order_type(1).
const OrderEncodedLen = 50

// Order is a limit order, either incoming or resting on the book.
// Price, Quantity and Remaining are fixed-point values scaled by 10^8.
type Order struct {
	ID        uint64 // unique; 0 asks the book to assign one
	UserID    uint64
	Side      Side
	Price     uint64 // non-zero
	Quantity  uint64 // original size
	Remaining uint64 // size not yet filled; 0 <= Remaining <= Quantity
	Timestamp uint64 // caller-supplied sequencing timestamp
	Type      OrderType
}

// NewOrder builds a limit order with Remaining set to the full quantity.
func NewOrder(id, userID uint64, side Side, price, quantity, timestamp uint64) Order {
	return Order{
		ID:        id,
		UserID:    userID,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Timestamp: timestamp,
		Type:      Limit,
	}
}

// Fill consumes up to quantity from the order and returns the amount
// actually filled.
func (o *Order) Fill(quantity uint64) uint64 {
	filled := min(quantity, o.Remaining)
	o.Remaining -= filled
	return filled
}

// IsFilled reports whether no quantity remains.
func (o Order) IsFilled() bool {
	return o.Remaining == 0
}

// FilledQuantity is the portion of the original size already executed.
func (o Order) FilledQuantity() uint64 {
	return o.Quantity - o.Remaining
}

// EncodeTo writes the canonical 50-byte record into buf, which must hold at
// least OrderEncodedLen bytes.
func (o Order) EncodeTo(buf []byte) {
	_ = buf[OrderEncodedLen-1]
	binary.LittleEndian.PutUint64(buf[0:8], o.ID)
	binary.LittleEndian.PutUint64(buf[8:16], o.UserID)
	buf[16] = byte(o.Side)
	binary.LittleEndian.PutUint64(buf[17:25], o.Price)
	binary.LittleEndian.PutUint64(buf[25:33], o.Quantity)
	binary.LittleEndian.PutUint64(buf[33:41], o.Remaining)
	binary.LittleEndian.PutUint64(buf[41:49], o.Timestamp)
	buf[49] = byte(o.Type)
}

// Encode returns the canonical 50-byte record.
func (o Order) Encode() []byte {
	buf := make([]byte, OrderEncodedLen)
	o.EncodeTo(buf)
	return buf
}

// DecodeOrder parses a canonical 50-byte record.
func DecodeOrder(buf []byte) (Order, error) {
	if len(buf) < OrderEncodedLen {
		return Order{}, ErrShortBuffer
	}
	return Order{
		ID:        binary.LittleEndian.Uint64(buf[0:8]),
		UserID:    binary.LittleEndian.Uint64(buf[8:16]),
		Side:      Side(buf[16]),
		Price:     binary.LittleEndian.Uint64(buf[17:25]),
		Quantity:  binary.LittleEndian.Uint64(buf[25:33]),
		Remaining: binary.LittleEndian.Uint64(buf[33:41]),
		Timestamp: binary.LittleEndian.Uint64(buf[41:49]),
		Type:      OrderType(buf[49]),
	}, nil
}

func (o Order) String() string {
	return fmt.Sprintf(
		`ID:        %d
UserID:    %d
Side:      %v
Type:      %v
Price:     %s
Quantity:  %s (Remaining: %s)
Timestamp: %d`,
		o.ID,
		o.UserID,
		o.Side,
		o.Type,
		fixed.FromFixed(o.Price),
		fixed.FromFixed(o.Quantity),
		fixed.FromFixed(o.Remaining),
		o.Timestamp,
	)
}
