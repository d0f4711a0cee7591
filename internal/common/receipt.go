package common

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// ReceiptEncodedLen is the canonical encoded size of an ExecutionReceipt:
// batch_id(8) | orders_processed(8) | trades_executed(8) | state_root(32) |
// timestamp(8).
const ReceiptEncodedLen = 64

// ExecutionReceipt summarises a processed batch of order commands. The state
// root is the canonical SHA-256 digest of the book after the batch, so a
// replica replaying the same commands can verify it reached the same state.
type ExecutionReceipt struct {
	BatchID         uint64
	OrdersProcessed uint64
	TradesExecuted  uint64
	StateRoot       [32]byte
	Timestamp       uint64
}

// ComputeHash returns the SHA-256 digest of data, suitable for use as a
// state root.
func ComputeHash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// EncodeTo writes the canonical 64-byte record into buf, which must hold at
// least ReceiptEncodedLen bytes.
func (r ExecutionReceipt) EncodeTo(buf []byte) {
	_ = buf[ReceiptEncodedLen-1]
	binary.LittleEndian.PutUint64(buf[0:8], r.BatchID)
	binary.LittleEndian.PutUint64(buf[8:16], r.OrdersProcessed)
	binary.LittleEndian.PutUint64(buf[16:24], r.TradesExecuted)
	copy(buf[24:56], r.StateRoot[:])
	binary.LittleEndian.PutUint64(buf[56:64], r.Timestamp)
}

// Encode returns the canonical 64-byte record.
func (r ExecutionReceipt) Encode() []byte {
	buf := make([]byte, ReceiptEncodedLen)
	r.EncodeTo(buf)
	return buf
}

// DecodeReceipt parses a canonical 64-byte record.
func DecodeReceipt(buf []byte) (ExecutionReceipt, error) {
	if len(buf) < ReceiptEncodedLen {
		return ExecutionReceipt{}, ErrShortBuffer
	}
	r := ExecutionReceipt{
		BatchID:         binary.LittleEndian.Uint64(buf[0:8]),
		OrdersProcessed: binary.LittleEndian.Uint64(buf[8:16]),
		TradesExecuted:  binary.LittleEndian.Uint64(buf[16:24]),
		Timestamp:       binary.LittleEndian.Uint64(buf[56:64]),
	}
	copy(r.StateRoot[:], buf[24:56])
	return r, nil
}

// StateRootHex renders the state root as a hex string.
func (r ExecutionReceipt) StateRootHex() string {
	return hex.EncodeToString(r.StateRoot[:])
}

// IsEmpty reports whether the batch processed no orders.
func (r ExecutionReceipt) IsEmpty() bool {
	return r.OrdersProcessed == 0
}

func (r ExecutionReceipt) String() string {
	return fmt.Sprintf(
		"batch %d: %d orders, %d trades, root %s ts=%d",
		r.BatchID, r.OrdersProcessed, r.TradesExecuted, r.StateRootHex(), r.Timestamp,
	)
}
