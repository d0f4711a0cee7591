// Package net is the binary TCP gateway in front of the engine. Commands
// and reports are little-endian, fixed-layout records: order payloads reuse
// the canonical 50-byte encoding, execution reports carry the canonical
// 64-byte trade record, so clients decode them with the kernel's own codec.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"

	"vidar/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	SubmitOrder
	CancelOrder
	LogBook
)

// Message format constants.
const (
	BaseMessageHeaderLen = 2
	SubmitOrderLen       = BaseMessageHeaderLen + common.OrderEncodedLen
	CancelOrderLen       = BaseMessageHeaderLen + 8
)

type Message interface {
	GetType() MessageType
}

// BaseMessage carries only the 2-byte type header.
type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

// SubmitOrderMessage carries one canonical order record.
type SubmitOrderMessage struct {
	BaseMessage
	Order common.Order
}

// CancelOrderMessage carries the id of the resting order to remove.
type CancelOrderMessage struct {
	BaseMessage
	OrderID uint64
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.LittleEndian.Uint16(msg[0:2]))
	body := msg[BaseMessageHeaderLen:]
	switch typeOf {
	case SubmitOrder:
		return parseSubmitOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case Heartbeat, LogBook:
		return BaseMessage{TypeOf: typeOf}, nil
	default:
		return BaseMessage{}, fmt.Errorf("%w: %d", ErrInvalidMessageType, typeOf)
	}
}

func parseSubmitOrder(body []byte) (SubmitOrderMessage, error) {
	order, err := common.DecodeOrder(body)
	if err != nil {
		return SubmitOrderMessage{}, ErrMessageTooShort
	}
	return SubmitOrderMessage{
		BaseMessage: BaseMessage{TypeOf: SubmitOrder},
		Order:       order,
	}, nil
}

func parseCancelOrder(body []byte) (CancelOrderMessage, error) {
	if len(body) < 8 {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		OrderID:     binary.LittleEndian.Uint64(body[0:8]),
	}, nil
}

// EncodeSubmitOrder frames an order command for the wire.
func EncodeSubmitOrder(order common.Order) []byte {
	buf := make([]byte, SubmitOrderLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(SubmitOrder))
	order.EncodeTo(buf[BaseMessageHeaderLen:])
	return buf
}

// EncodeCancelOrder frames a cancel command for the wire.
func EncodeCancelOrder(orderID uint64) []byte {
	buf := make([]byte, CancelOrderLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.LittleEndian.PutUint64(buf[BaseMessageHeaderLen:], orderID)
	return buf
}

// EncodeLogBook frames a book-dump request.
func EncodeLogBook() []byte {
	buf := make([]byte, BaseMessageHeaderLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(LogBook))
	return buf
}

// ReportType tags server-to-client report frames.
type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
)

// Report frame layout:
//
//	ExecutionReport: type(1) | trade(64)
//	ErrorReport:     type(1) | len(4) | message(len)
const (
	ReportHeaderLen    = 1
	ExecutionReportLen = ReportHeaderLen + common.TradeEncodedLen
	errorHeaderLen     = ReportHeaderLen + 4
)

// EncodeExecutionReport frames one trade for the counterparties.
func EncodeExecutionReport(trade common.Trade) []byte {
	buf := make([]byte, ExecutionReportLen)
	buf[0] = byte(ExecutionReport)
	trade.EncodeTo(buf[ReportHeaderLen:])
	return buf
}

// EncodeErrorReport frames a rejection message.
func EncodeErrorReport(err error) []byte {
	msg := err.Error()
	buf := make([]byte, errorHeaderLen+len(msg))
	buf[0] = byte(ErrorReport)
	binary.LittleEndian.PutUint32(buf[ReportHeaderLen:errorHeaderLen], uint32(len(msg)))
	copy(buf[errorHeaderLen:], msg)
	return buf
}

// DecodeExecutionReport parses the trade out of an execution report body.
func DecodeExecutionReport(body []byte) (common.Trade, error) {
	return common.DecodeTrade(body)
}
