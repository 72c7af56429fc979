package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Adapter is the capability contract every concrete exchange implements: a
// stateless-per-call translator from one exchange's wire protocol to the
// normalised schema. Authentication and signing are internal adapter state,
// invisible to the rest of the system.
//
// Adapters fill only the data fields of the returned structures; façade
// metadata (owning exchange, ids, timestamps) is attached by Exchange.
type Adapter interface {
	// GetHoldings returns every asset balance. Fails with *APIError on
	// network or auth failure; never partially applies.
	GetHoldings(ctx context.Context) ([]Holding, error)

	// GetOrders returns historical and open orders as one list, in no
	// particular order.
	GetOrders(ctx context.Context) ([]Order, error)

	// GetMarkets returns the full market catalog.
	GetMarkets(ctx context.Context) ([]Market, error)

	// GetTicker returns the current quote for a pair, or (nil, nil) when the
	// pair genuinely has no quote on this exchange. Transport and auth
	// problems fail with *APIError.
	GetTicker(ctx context.Context, currency, relation string) (*Ticker, error)

	// CreateLimitOrder places a limit order. Fails with *ValidationError for
	// non-positive size or price or a malformed pair, *APIError otherwise.
	CreateLimitOrder(ctx context.Context, side Side, currency, relation string, size, price decimal.Decimal) (*OrderReceipt, error)

	// GetOrder looks up a single order. Adapters without per-order lookup
	// return (nil, nil); that is a capability gap, not an error.
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// CancelOrder cancels an order. Fails with *NotFoundError when the id is
	// unknown to the exchange, *APIError otherwise.
	CancelOrder(ctx context.Context, orderID string) error

	// GetOrderBook returns a raw level snapshot for a pair. Adapters without
	// order-book access return *UnsupportedError.
	GetOrderBook(ctx context.Context, currency, relation string) (*RawOrderBook, error)
}

// HoldingLookup is an optional adapter capability for fetching a single
// holding without listing them all. The façade falls back to a full fetch
// when the adapter (or its decorators) do not implement it.
type HoldingLookup interface {
	GetHolding(ctx context.Context, currency string) (*Holding, error)
}
