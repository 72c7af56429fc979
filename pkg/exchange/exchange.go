package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bitdo/pkg/cache"
)

// marketsTTL bounds how long a market catalog is memoized. Catalogs change
// rarely and fetching them is comparatively expensive and rate-limited.
const marketsTTL = 6 * time.Hour

// DefaultBucketSize is the order-book bucket width used when the caller
// passes zero.
var DefaultBucketSize = decimal.RequireFromString("0.01")

// Exchange is the normalising façade over a (possibly decorated) adapter.
// It attaches metadata to every result and memoizes the market catalog.
// Each Exchange exclusively owns its adapter instance.
type Exchange struct {
	Name string

	adapter Adapter
	markets *cache.Value[[]Market]
}

// NewExchange binds a named adapter into a façade. The name is uppercased
// and becomes the exchange's logical identity.
func NewExchange(name string, adapter Adapter) *Exchange {
	return &Exchange{
		Name:    strings.ToUpper(name),
		adapter: adapter,
		markets: cache.NewValue[[]Market](marketsTTL),
	}
}

// GetTicker returns the current quote for a pair with attribution metadata.
// Tickers are volatile and never cached here.
func (e *Exchange) GetTicker(ctx context.Context, currency, relation string) (*Ticker, error) {
	ticker, err := e.adapter.GetTicker(ctx, currency, relation)
	if err != nil || ticker == nil {
		return nil, err
	}
	ticker.Exchange = e
	ticker.Currency = strings.ToUpper(currency)
	ticker.Relation = strings.ToUpper(relation)
	ticker.ID = fmt.Sprintf("%s:%s-%s", e.Name, ticker.Currency, ticker.Relation)
	return ticker, nil
}

// GetHoldings returns all balances stamped with the owning exchange and the
// fetch time.
func (e *Exchange) GetHoldings(ctx context.Context) ([]Holding, error) {
	holdings, err := e.adapter.GetHoldings(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range holdings {
		holdings[i].Exchange = e
		holdings[i].UpdatedAt = now
	}
	return holdings, nil
}

// GetHolding returns the balance for one currency. It uses the adapter's
// single-holding capability when present, otherwise scans the full list.
func (e *Exchange) GetHolding(ctx context.Context, currency string) (*Holding, error) {
	currency = strings.ToUpper(currency)

	if lookup, ok := e.adapter.(HoldingLookup); ok {
		holding, err := lookup.GetHolding(ctx, currency)
		if err != nil {
			return nil, err
		}
		if holding != nil {
			holding.Exchange = e
			holding.UpdatedAt = time.Now()
			return holding, nil
		}
		return nil, &NotFoundError{Resource: "holding", ID: currency}
	}

	holdings, err := e.GetHoldings(ctx)
	if err != nil {
		return nil, err
	}
	for i := range holdings {
		if strings.ToUpper(holdings[i].Currency) == currency {
			return &holdings[i], nil
		}
	}
	return nil, &NotFoundError{Resource: "holding", ID: currency}
}

// GetOrders returns historical and open orders stamped with the owning
// exchange, sorted most recent first.
func (e *Exchange) GetOrders(ctx context.Context) ([]Order, error) {
	orders, err := e.adapter.GetOrders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Exchange = e
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Date.After(orders[j].Date)
	})
	return orders, nil
}

// GetMarkets returns the market catalog, memoized per exchange instance.
// Concurrent calls during a refresh share the in-flight fetch.
func (e *Exchange) GetMarkets(ctx context.Context) ([]Market, error) {
	return e.markets.Get(func() ([]Market, error) {
		markets, err := e.adapter.GetMarkets(ctx)
		if err != nil {
			return nil, err
		}
		for i := range markets {
			markets[i].Currency = strings.ToUpper(markets[i].Currency)
			markets[i].Relation = strings.ToUpper(markets[i].Relation)
			markets[i].Exchange = e
		}
		return markets, nil
	})
}

// CreateLimitOrder places a limit order and echoes the request parameters on
// the receipt for display.
func (e *Exchange) CreateLimitOrder(ctx context.Context, side Side, currency, relation string, size, price decimal.Decimal) (*OrderReceipt, error) {
	receipt, err := e.adapter.CreateLimitOrder(ctx, side, currency, relation, size, price)
	if err != nil {
		return nil, err
	}
	receipt.Exchange = e
	receipt.Side = side
	receipt.Currency = strings.ToUpper(currency)
	receipt.Relation = strings.ToUpper(relation)
	receipt.Size = size
	receipt.Price = price
	return receipt, nil
}

// GetOrder looks up a single order. Returns (nil, nil) when the adapter has
// no per-order lookup capability.
func (e *Exchange) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	order, err := e.adapter.GetOrder(ctx, orderID)
	if err != nil || order == nil {
		return nil, err
	}
	order.Exchange = e
	return order, nil
}

// CancelOrder cancels an order, removing it from any live consideration.
func (e *Exchange) CancelOrder(ctx context.Context, orderID string) error {
	return e.adapter.CancelOrder(ctx, orderID)
}

// GetOrderBook fetches a raw book snapshot and buckets both sides
// independently. Pass a zero bucketSize for the default. Fails with
// *UnsupportedError when the adapter lacks order-book access.
func (e *Exchange) GetOrderBook(ctx context.Context, currency, relation string, bucketSize decimal.Decimal) (*OrderBook, error) {
	if bucketSize.IsZero() {
		bucketSize = DefaultBucketSize
	}
	if bucketSize.IsNegative() {
		return nil, &ValidationError{Reason: "bucket size must be positive"}
	}

	raw, err := e.adapter.GetOrderBook(ctx, currency, relation)
	if err != nil {
		return nil, err
	}
	return &OrderBook{
		Buys:     BucketLevels(raw.Buys, bucketSize),
		Sells:    BucketLevels(raw.Sells, bucketSize),
		Exchange: e,
		Currency: strings.ToUpper(currency),
		Relation: strings.ToUpper(relation),
	}, nil
}

// BucketLevels aggregates raw levels into a price histogram: levels are
// grouped by floor(price/bucketSize)*bucketSize, sizes and order counts are
// summed, and buckets are returned ascending by price. A level without an
// order count contributes one order.
func BucketLevels(levels []BookLevel, bucketSize decimal.Decimal) []BookLevel {
	buckets := make(map[string]*BookLevel)
	for _, level := range levels {
		price := level.Price.Div(bucketSize).Floor().Mul(bucketSize)
		key := price.String()
		bucket, ok := buckets[key]
		if !ok {
			bucket = &BookLevel{Price: price}
			buckets[key] = bucket
		}
		bucket.Size = bucket.Size.Add(level.Size)
		if level.Orders > 0 {
			bucket.Orders += level.Orders
		} else {
			bucket.Orders++
		}
	}

	out := make([]BookLevel, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}
