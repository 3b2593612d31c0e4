package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/config"
	"tradegate/internal/svc"
	"tradegate/pkg/exchange"
	"tradegate/pkg/exchange/sim"
)

func newSimContext(t *testing.T) (*svc.ServiceContext, *sim.Gateway) {
	t.Helper()
	sc, err := svc.New(config.Config{Env: "test"}, "/tmp/tradegate.yaml")
	require.NoError(t, err)
	t.Cleanup(sc.Close)
	return sc, sc.Gateways["sim"].(*sim.Gateway)
}

func TestRoundReportsGatewayState(t *testing.T) {
	sc, gw := newSimContext(t)
	ctx := context.Background()
	require.NoError(t, gw.SetMarkPrice(ctx, "BTC", decimal.NewFromInt(50000)))
	_, err := gw.PlaceOrder(ctx, exchange.OrderRequest{Symbol: "BTC", Side: exchange.SideBuy, Type: exchange.OrderTypeLimit, Quantity: "0.01", Price: "40000"})
	require.NoError(t, err)

	reports := newMonitor(sc, time.Second).round(ctx)
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "sim", r.Gateway)
	assert.True(t, r.Reachable)
	assert.Empty(t, r.Errors)
	assert.Equal(t, 1, r.OpenOrders)
	assert.Equal(t, 0, r.Positions)
	assert.NotEmpty(t, r.Available)
}

func TestProbeStopsWhenUnreachable(t *testing.T) {
	sc, gw := newSimContext(t)
	gw.FailNext(sim.OpGetServerTime, errors.New("connection refused"))

	engine, _, err := sc.Resolve("")
	require.NoError(t, err)
	r := newMonitor(sc, time.Second).probe(context.Background(), "sim", engine)
	assert.False(t, r.Reachable)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "connection refused")
	assert.Zero(t, r.OpenOrders)
}

func TestRoundSkipsCancelledContext(t *testing.T) {
	sc, _ := newSimContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, newMonitor(sc, time.Second).round(ctx))
}
