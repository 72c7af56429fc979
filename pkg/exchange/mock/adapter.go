// Package mock provides a fixed-data adapter useful for dry wiring and
// tests: one MCK-USD market quoted at a constant price, no balances.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"bitdo/pkg/exchange"
)

var (
	mockPrice  = decimal.NewFromInt(100)
	mockVolume = decimal.NewFromInt(1000)
)

// Adapter serves canned data and accepts every order without effect.
type Adapter struct {
	nextID atomic.Int64
}

// New constructs a mock adapter. Configuration is ignored.
func New() *Adapter {
	return &Adapter{}
}

func init() {
	exchange.RegisterAdapter("mock", func(name string, cfg *exchange.AdapterConfig) (exchange.Adapter, error) {
		return New(), nil
	})
}

func (a *Adapter) GetHoldings(ctx context.Context) ([]exchange.Holding, error) {
	return []exchange.Holding{}, nil
}

func (a *Adapter) GetOrders(ctx context.Context) ([]exchange.Order, error) {
	return []exchange.Order{}, nil
}

func (a *Adapter) GetMarkets(ctx context.Context) ([]exchange.Market, error) {
	return []exchange.Market{{Currency: "MCK", Relation: "USD"}}, nil
}

func (a *Adapter) GetTicker(ctx context.Context, currency, relation string) (*exchange.Ticker, error) {
	if strings.ToUpper(currency) != "MCK" || strings.ToUpper(relation) != "USD" {
		return nil, nil
	}
	volume := mockVolume
	return &exchange.Ticker{Price: mockPrice, Volume: &volume}, nil
}

func (a *Adapter) CreateLimitOrder(ctx context.Context, side exchange.Side, currency, relation string, size, price decimal.Decimal) (*exchange.OrderReceipt, error) {
	return &exchange.OrderReceipt{ID: fmt.Sprintf("mock-%d", a.nextID.Add(1))}, nil
}

func (a *Adapter) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	return nil, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func (a *Adapter) GetOrderBook(ctx context.Context, currency, relation string) (*exchange.RawOrderBook, error) {
	return nil, &exchange.UnsupportedError{Exchange: "mock", Op: "getOrderBook"}
}
