package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitdo/pkg/exchange"
)

type balanceAdapter struct {
	holdings []exchange.Holding
}

func (b *balanceAdapter) GetHoldings(ctx context.Context) ([]exchange.Holding, error) {
	return b.holdings, nil
}

func (b *balanceAdapter) GetOrders(ctx context.Context) ([]exchange.Order, error) {
	return nil, nil
}

func (b *balanceAdapter) GetMarkets(ctx context.Context) ([]exchange.Market, error) {
	return nil, nil
}

func (b *balanceAdapter) GetTicker(ctx context.Context, currency, relation string) (*exchange.Ticker, error) {
	return nil, nil
}

func (b *balanceAdapter) CreateLimitOrder(ctx context.Context, side exchange.Side, currency, relation string, size, price decimal.Decimal) (*exchange.OrderReceipt, error) {
	return &exchange.OrderReceipt{ID: "1"}, nil
}

func (b *balanceAdapter) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	return nil, nil
}

func (b *balanceAdapter) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func (b *balanceAdapter) GetOrderBook(ctx context.Context, currency, relation string) (*exchange.RawOrderBook, error) {
	return nil, &exchange.UnsupportedError{Exchange: "test", Op: "getOrderBook"}
}

func TestResolveAmount(t *testing.T) {
	ex := exchange.NewExchange("gdax", &balanceAdapter{holdings: []exchange.Holding{{
		ID:        "1",
		Currency:  "BTC",
		Balance:   decimal.RequireFromString("4"),
		Available: decimal.RequireFromString("2"),
	}}})
	ctx := context.Background()

	size, err := resolveAmount(ctx, ex, "BTC", "1.5")
	require.NoError(t, err)
	assert.True(t, size.Equal(decimal.RequireFromString("1.5")))

	size, err = resolveAmount(ctx, ex, "BTC", "all")
	require.NoError(t, err)
	assert.True(t, size.Equal(decimal.RequireFromString("2")), "'all' resolves to the available balance")

	size, err = resolveAmount(ctx, ex, "BTC", "25%")
	require.NoError(t, err)
	assert.True(t, size.Equal(decimal.RequireFromString("0.5")))

	_, err = resolveAmount(ctx, ex, "BTC", "half")
	assert.Error(t, err)

	_, err = resolveAmount(ctx, ex, "ETH", "all")
	assert.Error(t, err, "unknown currency cannot be resolved")
}
