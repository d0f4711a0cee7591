package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
	"vidar/internal/engine"
	"vidar/internal/metrics"
)

type recordingReporter struct {
	trades []common.Trade
}

func (r *recordingReporter) ReportTrade(trade common.Trade) error {
	r.trades = append(r.trades, trade)
	return nil
}

func TestEngine_PlaceOrderReportsTrades(t *testing.T) {
	eng := engine.New(16)
	reporter := &recordingReporter{}
	eng.SetReporter(reporter)
	eng.SetCollector(metrics.NewCollector())

	_, err := eng.PlaceOrder(sell(1, 100, px50000, qty1), 1)
	require.NoError(t, err)
	assert.Empty(t, reporter.trades)

	result, err := eng.PlaceOrder(buy(2, 200, px50000, qty1), 2)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, result.Trades, reporter.trades)
}

func TestEngine_CancelOrder(t *testing.T) {
	eng := engine.New(16)

	_, err := eng.PlaceOrder(sell(1, 100, px50000, qty1), 1)
	require.NoError(t, err)

	cancelled, ok := eng.CancelOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), cancelled.ID)

	_, ok = eng.CancelOrder(1)
	assert.False(t, ok)
}

func TestEngine_ProcessBatch(t *testing.T) {
	eng := engine.New(16)

	receipt, err := eng.ProcessBatch([]common.Order{
		sell(1, 100, px50000, qty1),
		buy(2, 200, px50000, 30_000_000),
		buy(3, 201, px50000-1_000_000_000, qty1),
	}, 42)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), receipt.BatchID)
	assert.Equal(t, uint64(3), receipt.OrdersProcessed)
	assert.Equal(t, uint64(1), receipt.TradesExecuted)
	assert.Equal(t, uint64(42), receipt.Timestamp)
	assert.Equal(t, eng.StateRoot(), receipt.StateRoot)
	assert.False(t, receipt.IsEmpty())

	// Receipts of consecutive batches are sequenced.
	receipt, err = eng.ProcessBatch(nil, 43)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.BatchID)
	assert.True(t, receipt.IsEmpty())
}

func TestEngine_ProcessBatchRejectsDuplicate(t *testing.T) {
	eng := engine.New(16)

	_, err := eng.ProcessBatch([]common.Order{
		sell(1, 100, px51000, qty1),
		sell(1, 100, px51000, qty1),
	}, 1)
	assert.Error(t, err)

	// The first command stays applied.
	assert.True(t, eng.Book().ContainsOrder(1))
}
