package exchange_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	exchange "tradegate/pkg/exchange"
	"tradegate/pkg/exchange/exchangemock"
)

func TestCollectUserTradesWalksWindows(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * 24 * time.Hour)
	window := exchange.DefaultTradeWindow

	gw := exchangemock.New()
	gw.On("GetUserTrades", ctx, exchange.TradeQuery{Symbol: "BTC", StartTime: start, EndTime: start.Add(window)}).
		Return([]exchange.UserTrade{
			{ID: "2", Time: start.Add(2 * time.Hour)},
			{ID: "1", Time: start.Add(time.Hour)},
		}, nil).Once()
	gw.On("GetUserTrades", ctx, exchange.TradeQuery{Symbol: "BTC", StartTime: start.Add(window), EndTime: end}).
		Return([]exchange.UserTrade{
			{ID: "2", Time: start.Add(2 * time.Hour)},
			{ID: "3", Time: start.Add(8 * 24 * time.Hour)},
		}, nil).Once()

	trades, err := exchange.CollectUserTrades(ctx, gw, "BTC", start, end, 0)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "1", trades[0].ID)
	assert.Equal(t, "2", trades[1].ID)
	assert.Equal(t, "3", trades[2].ID)
	gw.AssertExpectations(t)
}

func TestCollectUserTradesInvalidRange(t *testing.T) {
	gw := exchangemock.New()
	now := time.Now()
	_, err := exchange.CollectUserTrades(context.Background(), gw, "BTC", now, now, time.Hour)
	require.Error(t, err)
	gw.AssertNotCalled(t, "GetUserTrades", mock.Anything, mock.Anything)
}
