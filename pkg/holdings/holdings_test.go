package holdings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitdo/pkg/exchange"
)

// balanceAdapter serves fixed holdings and prices, or fails everything.
type balanceAdapter struct {
	holdings []exchange.Holding
	markets  []exchange.Market
	prices   map[string]string
	fail     bool
}

var errDown = errors.New("exchange down")

func (a *balanceAdapter) GetHoldings(ctx context.Context) ([]exchange.Holding, error) {
	if a.fail {
		return nil, errDown
	}
	return a.holdings, nil
}

func (a *balanceAdapter) GetMarkets(ctx context.Context) ([]exchange.Market, error) {
	if a.fail {
		return nil, errDown
	}
	return a.markets, nil
}

func (a *balanceAdapter) GetTicker(ctx context.Context, currency, relation string) (*exchange.Ticker, error) {
	price, ok := a.prices[exchange.FormatProduct(currency, relation)]
	if !ok {
		return nil, nil
	}
	return &exchange.Ticker{Price: decimal.RequireFromString(price)}, nil
}

func (a *balanceAdapter) GetOrders(ctx context.Context) ([]exchange.Order, error) { return nil, nil }
func (a *balanceAdapter) CreateLimitOrder(ctx context.Context, side exchange.Side, currency, relation string, size, price decimal.Decimal) (*exchange.OrderReceipt, error) {
	return nil, &exchange.UnsupportedError{Exchange: "balance", Op: "createLimitOrder"}
}
func (a *balanceAdapter) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	return nil, nil
}
func (a *balanceAdapter) CancelOrder(ctx context.Context, orderID string) error { return nil }
func (a *balanceAdapter) GetOrderBook(ctx context.Context, currency, relation string) (*exchange.RawOrderBook, error) {
	return nil, &exchange.UnsupportedError{Exchange: "balance", Op: "getOrderBook"}
}

func quoting() *balanceAdapter {
	return &balanceAdapter{
		holdings: []exchange.Holding{
			{ID: "1", Currency: "BTC", Balance: decimal.RequireFromString("2")},
		},
		markets: []exchange.Market{
			{Currency: "BTC", Relation: "USD"},
		},
		prices: map[string]string{"BTC-USD": "6500"},
	}
}

func TestGetHoldingsDecoratesValues(t *testing.T) {
	service := New([]*exchange.Exchange{exchange.NewExchange("main", quoting())}, Config{})

	holdings, err := service.GetHoldings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	h := holdings[0]
	assert.Equal(t, "BTC", h.Currency)
	assert.True(t, h.Rates.BTC.Equal(decimal.NewFromInt(1)), "BTC values itself at 1")
	assert.True(t, h.Rates.USD.Equal(decimal.RequireFromString("6500")))
	assert.True(t, h.Conversions.BTC.Equal(decimal.RequireFromString("2")))
	assert.True(t, h.Conversions.USD.Equal(decimal.RequireFromString("13000")), "2 BTC at 6500")
	require.NotNil(t, h.Exchange)
	assert.Equal(t, "MAIN", h.Exchange.Name)
}

func TestHoldingSerializesRatesAsTicker(t *testing.T) {
	data, err := json.Marshal(Holding{Rates: ValuePair{BTC: decimal.NewFromInt(1)}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ticker"`)
	assert.NotContains(t, string(data), `"rates"`)
}

func TestFailedExchangeIsSkipped(t *testing.T) {
	service := New([]*exchange.Exchange{
		exchange.NewExchange("up", quoting()),
		exchange.NewExchange("down", &balanceAdapter{fail: true}),
	}, Config{})

	holdings, err := service.GetHoldings(context.Background())
	require.NoError(t, err, "one broken exchange must not break the aggregate")
	assert.Len(t, holdings, 1)
}

func TestAllOrFailPropagatesExchangeErrors(t *testing.T) {
	service := New([]*exchange.Exchange{
		exchange.NewExchange("up", quoting()),
		exchange.NewExchange("down", &balanceAdapter{fail: true}),
	}, Config{AllOrFail: true})

	_, err := service.GetHoldings(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)
}

func TestUnconvertibleCurrencyValuesAtZero(t *testing.T) {
	adapter := quoting()
	adapter.holdings = append(adapter.holdings, exchange.Holding{
		ID: "2", Currency: "OBSCURE", Balance: decimal.RequireFromString("100"),
	})
	service := New([]*exchange.Exchange{exchange.NewExchange("main", adapter)}, Config{})

	holdings, err := service.GetHoldings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	var obscure *Holding
	for i := range holdings {
		if holdings[i].Currency == "OBSCURE" {
			obscure = &holdings[i]
		}
	}
	require.NotNil(t, obscure)
	assert.True(t, obscure.Conversions.BTC.IsZero())
	assert.True(t, obscure.Conversions.USD.IsZero())
	assert.True(t, obscure.Balance.Equal(decimal.RequireFromString("100")),
		"the raw balance survives even when it cannot be valued")
}

func TestAllOrFailPropagatesConversionErrors(t *testing.T) {
	adapter := quoting()
	adapter.holdings = []exchange.Holding{
		{ID: "2", Currency: "OBSCURE", Balance: decimal.RequireFromString("100")},
	}
	service := New([]*exchange.Exchange{exchange.NewExchange("main", adapter)}, Config{AllOrFail: true})

	_, err := service.GetHoldings(context.Background())
	require.Error(t, err)
}
