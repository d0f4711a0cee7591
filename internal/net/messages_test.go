package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
)

func TestParseSubmitOrder(t *testing.T) {
	order := common.NewOrder(1, 100, common.Buy, 5_000_000_000_000, 100_000_000, 7)

	msg, err := parseMessage(EncodeSubmitOrder(order))
	require.NoError(t, err)

	submit, ok := msg.(SubmitOrderMessage)
	require.True(t, ok)
	assert.Equal(t, SubmitOrder, submit.GetType())
	assert.Equal(t, order, submit.Order)
}

func TestParseCancelOrder(t *testing.T) {
	msg, err := parseMessage(EncodeCancelOrder(42))
	require.NoError(t, err)

	cancel, ok := msg.(CancelOrderMessage)
	require.True(t, ok)
	assert.Equal(t, CancelOrder, cancel.GetType())
	assert.Equal(t, uint64(42), cancel.OrderID)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := parseMessage(nil)
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = parseMessage([]byte{0xff, 0xff})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	// Truncated order body.
	truncated := EncodeSubmitOrder(common.Order{})[:SubmitOrderLen-1]
	_, err = parseMessage(truncated)
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestExecutionReportRoundTrip(t *testing.T) {
	trade := common.Trade{
		ID:           1,
		MakerOrderID: 10,
		TakerOrderID: 20,
		MakerUserID:  100,
		TakerUserID:  200,
		Price:        5_000_000_000_000,
		Quantity:     50_000_000,
		Timestamp:    3,
	}

	frame := EncodeExecutionReport(trade)
	require.Len(t, frame, ExecutionReportLen)
	assert.Equal(t, byte(ExecutionReport), frame[0])

	decoded, err := DecodeExecutionReport(frame[ReportHeaderLen:])
	require.NoError(t, err)
	assert.Equal(t, trade, decoded)
}
