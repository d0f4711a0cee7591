package common_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
)

func TestOrderCodec_RoundTrip(t *testing.T) {
	order := common.Order{
		ID:        42,
		UserID:    100,
		Side:      common.Sell,
		Price:     5_000_012_345_678,
		Quantity:  100_000_000,
		Remaining: 70_000_000,
		Timestamp: 1703577600000,
		Type:      common.Limit,
	}

	encoded := order.Encode()
	require.Len(t, encoded, common.OrderEncodedLen)

	decoded, err := common.DecodeOrder(encoded)
	require.NoError(t, err)
	assert.Equal(t, order, decoded)
}

func TestOrderCodec_Layout(t *testing.T) {
	order := common.NewOrder(1, 2, common.Sell, 3, 4, 5)
	encoded := order.Encode()

	// Little-endian field positions are part of the wire contract.
	assert.Equal(t, byte(1), encoded[0], "id")
	assert.Equal(t, byte(2), encoded[8], "user_id")
	assert.Equal(t, byte(common.Sell), encoded[16], "side")
	assert.Equal(t, byte(3), encoded[17], "price")
	assert.Equal(t, byte(4), encoded[25], "quantity")
	assert.Equal(t, byte(4), encoded[33], "remaining")
	assert.Equal(t, byte(5), encoded[41], "timestamp")
	assert.Equal(t, byte(common.Limit), encoded[49], "order_type")
}

func TestOrderCodec_ShortBuffer(t *testing.T) {
	_, err := common.DecodeOrder(make([]byte, common.OrderEncodedLen-1))
	assert.ErrorIs(t, err, common.ErrShortBuffer)
}

func TestTradeCodec_RoundTrip(t *testing.T) {
	trade := common.Trade{
		ID:           1,
		MakerOrderID: 100,
		TakerOrderID: 200,
		MakerUserID:  10,
		TakerUserID:  20,
		Price:        5_000_000_000_000,
		Quantity:     50_000_000,
		Timestamp:    1703577600000,
	}

	encoded := trade.Encode()
	require.Len(t, encoded, common.TradeEncodedLen)

	decoded, err := common.DecodeTrade(encoded)
	require.NoError(t, err)
	assert.Equal(t, trade, decoded)

	_, err = common.DecodeTrade(encoded[:common.TradeEncodedLen-1])
	assert.ErrorIs(t, err, common.ErrShortBuffer)
}

func TestReceiptCodec_RoundTrip(t *testing.T) {
	receipt := common.ExecutionReceipt{
		BatchID:         7,
		OrdersProcessed: 1000,
		TradesExecuted:  500,
		StateRoot:       common.ComputeHash([]byte("state")),
		Timestamp:       1703577600000,
	}

	encoded := receipt.Encode()
	require.Len(t, encoded, common.ReceiptEncodedLen)

	decoded, err := common.DecodeReceipt(encoded)
	require.NoError(t, err)
	assert.Equal(t, receipt, decoded)

	_, err = common.DecodeReceipt(encoded[:common.ReceiptEncodedLen-1])
	assert.ErrorIs(t, err, common.ErrShortBuffer)
}

func TestOrderFill(t *testing.T) {
	order := common.NewOrder(1, 1, common.Buy, 100, 100_000_000, 0)
	assert.Equal(t, order.Quantity, order.Remaining)
	assert.False(t, order.IsFilled())

	filled := order.Fill(30_000_000)
	assert.Equal(t, uint64(30_000_000), filled)
	assert.Equal(t, uint64(70_000_000), order.Remaining)
	assert.Equal(t, uint64(30_000_000), order.FilledQuantity())

	// Filling past remaining caps at remaining.
	filled = order.Fill(100_000_000)
	assert.Equal(t, uint64(70_000_000), filled)
	assert.True(t, order.IsFilled())
}

func TestTradeNotional(t *testing.T) {
	trade := common.Trade{Price: 5_000_000_000_000, Quantity: 50_000_000}

	// 50000 * 0.5 = 25000
	notional, err := trade.Notional()
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000_000), notional)

	// The raw product is 2.5e20, which needs the high word.
	hi, lo := trade.NotionalRaw()
	assert.Equal(t, uint64(13), hi)
	assert.Equal(t, uint64(250_000_000_000_000_000_000-13*(1<<64)), lo)
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, common.Sell, common.Buy.Opposite())
	assert.Equal(t, common.Buy, common.Sell.Opposite())
}
