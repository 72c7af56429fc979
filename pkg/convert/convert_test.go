package convert

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitdo/pkg/exchange"
)

// quoteAdapter serves a fixed set of markets and ticker prices keyed by
// "CUR-REL".
type quoteAdapter struct {
	markets     []exchange.Market
	prices      map[string]string
	tickerCalls int64
}

func (a *quoteAdapter) GetMarkets(ctx context.Context) ([]exchange.Market, error) {
	return a.markets, nil
}

func (a *quoteAdapter) GetTicker(ctx context.Context, currency, relation string) (*exchange.Ticker, error) {
	atomic.AddInt64(&a.tickerCalls, 1)
	price, ok := a.prices[exchange.FormatProduct(currency, relation)]
	if !ok {
		return nil, nil
	}
	return &exchange.Ticker{Price: decimal.RequireFromString(price)}, nil
}

func (a *quoteAdapter) GetHoldings(ctx context.Context) ([]exchange.Holding, error) { return nil, nil }
func (a *quoteAdapter) GetOrders(ctx context.Context) ([]exchange.Order, error)     { return nil, nil }
func (a *quoteAdapter) CreateLimitOrder(ctx context.Context, side exchange.Side, currency, relation string, size, price decimal.Decimal) (*exchange.OrderReceipt, error) {
	return nil, &exchange.UnsupportedError{Exchange: "quote", Op: "createLimitOrder"}
}
func (a *quoteAdapter) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	return nil, nil
}
func (a *quoteAdapter) CancelOrder(ctx context.Context, orderID string) error { return nil }
func (a *quoteAdapter) GetOrderBook(ctx context.Context, currency, relation string) (*exchange.RawOrderBook, error) {
	return nil, &exchange.UnsupportedError{Exchange: "quote", Op: "getOrderBook"}
}

func newResolver(adapter *quoteAdapter) *Resolver {
	return NewResolver([]*exchange.Exchange{exchange.NewExchange("quote", adapter)})
}

func TestIdenticalCurrenciesConvertAtOne(t *testing.T) {
	resolver := newResolver(&quoteAdapter{})

	rate, err := resolver.GetRate(context.Background(), "usd", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestDirectRate(t *testing.T) {
	resolver := newResolver(&quoteAdapter{
		markets: []exchange.Market{{Currency: "BTC", Relation: "USD"}},
		prices:  map[string]string{"BTC-USD": "6500"},
	})

	rate, err := resolver.GetRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("6500")))
}

func TestInvertedRateIsReciprocal(t *testing.T) {
	resolver := newResolver(&quoteAdapter{
		markets: []exchange.Market{{Currency: "BTC", Relation: "USD"}},
		prices:  map[string]string{"BTC-USD": "6500"},
	})

	rate, err := resolver.GetRate(context.Background(), "USD", "BTC")
	require.NoError(t, err)
	expected := decimal.NewFromInt(1).Div(decimal.RequireFromString("6500"))
	assert.True(t, rate.Equal(expected), "want 1/6500, got %s", rate)
}

func TestBridgedRateMultipliesHops(t *testing.T) {
	resolver := newResolver(&quoteAdapter{
		markets: []exchange.Market{
			{Currency: "ETH", Relation: "BTC"},
			{Currency: "BTC", Relation: "USD"},
		},
		prices: map[string]string{
			"ETH-BTC": "0.05",
			"BTC-USD": "6500",
		},
	})

	rate, err := resolver.GetRate(context.Background(), "ETH", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("325")), "want 0.05*6500, got %s", rate)
}

func TestNoPathFails(t *testing.T) {
	resolver := newResolver(&quoteAdapter{
		markets: []exchange.Market{{Currency: "BTC", Relation: "USD"}},
		prices:  map[string]string{"BTC-USD": "6500"},
	})

	_, err := resolver.GetRate(context.Background(), "DOGE", "EUR")
	assert.True(t, errors.Is(err, ErrNoConversion), "got %v", err)
}

func TestConvertAppliesRate(t *testing.T) {
	resolver := newResolver(&quoteAdapter{
		markets: []exchange.Market{{Currency: "BTC", Relation: "USD"}},
		prices:  map[string]string{"BTC-USD": "6500"},
	})

	value, err := resolver.Convert(context.Background(), decimal.RequireFromString("2"), "BTC", "USD")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("13000")))
}

func TestRatesAreCached(t *testing.T) {
	adapter := &quoteAdapter{
		markets: []exchange.Market{{Currency: "BTC", Relation: "USD"}},
		prices:  map[string]string{"BTC-USD": "6500"},
	}
	resolver := newResolver(adapter)

	for i := 0; i < 5; i++ {
		_, err := resolver.GetRate(context.Background(), "BTC", "USD")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(&adapter.tickerCalls),
		"repeated lookups within the TTL must reuse the cached rate")
}

func TestInvalidateDropsCaches(t *testing.T) {
	adapter := &quoteAdapter{
		markets: []exchange.Market{{Currency: "BTC", Relation: "USD"}},
		prices:  map[string]string{"BTC-USD": "6500"},
	}
	resolver := newResolver(adapter)

	_, err := resolver.GetRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	resolver.Invalidate()
	_, err = resolver.GetRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&adapter.tickerCalls))
}
