package exchange

// Core trading domain types shared across exchange adapters. These structures
// normalise heterogeneous exchange payloads into one schema so that callers
// never see wire-level detail.

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents order direction.
type Side string

const (
	// SideBuy executes a buy.
	SideBuy Side = "buy"
	// SideSell executes a sell.
	SideSell Side = "sell"
)

// OrderStatus is the normalised order lifecycle state.
type OrderStatus string

const (
	// StatusOpen marks an order still resting on the exchange.
	StatusOpen OrderStatus = "O"
	// StatusFilled marks a completely executed order.
	StatusFilled OrderStatus = "F"
	// StatusCanceled marks a canceled or rejected order.
	StatusCanceled OrderStatus = "X"
	// StatusUnknown marks any state the adapter could not classify.
	StatusUnknown OrderStatus = "?"
)

// OrderTypeLimit and OrderTypeMarket are the normalised order types.
const (
	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// Ticker is a point-in-time quote for one currency pair on one exchange.
// Tickers are ephemeral and recomputed on every call.
type Ticker struct {
	Price    decimal.Decimal  `json:"price"`
	Volume   *decimal.Decimal `json:"volume"` // nil when the exchange does not report it
	Exchange *Exchange        `json:"-"`
	Currency string           `json:"currency"`
	Relation string           `json:"relation"`
	ID       string           `json:"id"` // "{EXCHANGE}:{currency}-{relation}"
}

// Holding is one asset balance on one exchange. The available+hold<=balance
// relation is expected but adapter data is untrusted and never enforced here.
type Holding struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	Hold      decimal.Decimal `json:"hold"`
	Exchange  *Exchange       `json:"-"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Order is a normalised exchange order, historical or open.
type Order struct {
	ID       string          `json:"id"`
	Status   OrderStatus     `json:"status"`
	Product  string          `json:"product"` // "CUR-REL"
	Price    decimal.Decimal `json:"price"`   // per unit
	Size     decimal.Decimal `json:"size"`
	Date     time.Time       `json:"date"`
	Type     string          `json:"type"` // limit | market
	Side     Side            `json:"side"`
	Fee      decimal.Decimal `json:"fee"`
	Settled  bool            `json:"settled"`
	Exchange *Exchange       `json:"-"`
}

// OrderReceipt is the acknowledgement for a newly created order. Adapters
// fill ID and Settled; the façade echoes the request parameters.
type OrderReceipt struct {
	ID       string          `json:"id"`
	Settled  bool            `json:"settled"`
	Exchange *Exchange       `json:"-"`
	Side     Side            `json:"side,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Relation string          `json:"relation,omitempty"`
	Size     decimal.Decimal `json:"size,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
}

// Market is one tradable pair. Immutable once fetched; the façade caches the
// per-exchange catalog.
type Market struct {
	Currency string    `json:"currency"`
	Relation string    `json:"relation"`
	Exchange *Exchange `json:"-"`
}

// Key returns the "CUR:REL" identity used by the conversion market map.
func (m Market) Key() string {
	return m.Currency + ":" + m.Relation
}

// BookLevel is one price level of an order book side. Orders is the number of
// resting orders aggregated into the level; adapters that do not report it
// leave it zero and bucketing counts the level as one order.
type BookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
	Orders int             `json:"orders"`
}

// RawOrderBook is the adapter-level snapshot before bucketing.
type RawOrderBook struct {
	Buys  []BookLevel `json:"buys"`
	Sells []BookLevel `json:"sells"`
}

// OrderBook is a bucketed point-in-time snapshot, not a live book replica.
// Both sides are sorted ascending by price.
type OrderBook struct {
	Buys     []BookLevel `json:"buys"`
	Sells    []BookLevel `json:"sells"`
	Exchange *Exchange   `json:"-"`
	Currency string      `json:"currency"`
	Relation string      `json:"relation"`
}

// FormatProduct renders the canonical "CUR-REL" product string.
func FormatProduct(currency, relation string) string {
	return strings.ToUpper(currency) + "-" + strings.ToUpper(relation)
}

// SplitProduct is the inverse of FormatProduct.
func SplitProduct(product string) (currency, relation string, err error) {
	parts := strings.SplitN(product, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed product %q", product)
	}
	return parts[0], parts[1], nil
}

func validateOrderParams(side Side, currency, relation string, size, price decimal.Decimal) error {
	if side != SideBuy && side != SideSell {
		return &ValidationError{Reason: fmt.Sprintf("side must be buy or sell, got %q", side)}
	}
	if currency == "" || relation == "" {
		return &ValidationError{Reason: "currency and relation are required"}
	}
	if !price.IsPositive() {
		return &ValidationError{Reason: "price must be positive"}
	}
	if !size.IsPositive() {
		return &ValidationError{Reason: "size must be positive"}
	}
	return nil
}
