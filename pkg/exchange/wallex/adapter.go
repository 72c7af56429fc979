// Package wallex implements the adapter contract on top of the official
// wallex-go SDK. Wallex symbols are single concatenated strings such as
// "BTCUSDT", so pairs are rebuilt by splitting on the known quote suffixes.
package wallex

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wallexchange/wallex-go"

	"bitdo/pkg/exchange"
)

// api is the slice of the SDK client this adapter needs. The SDK takes
// no context, so cancellation is checked before each call.
type api interface {
	Markets() ([]*wallex.Market, error)
	Balances() (map[string]*wallex.Balance, error)
	PlaceOrder(params *wallex.OrderParams) (*wallex.Order, error)
	Order(clientOrderID string) (*wallex.Order, error)
	CancelOrder(clientOrderID string) error
	MarketOrders(symbol string) (asks, bids []*wallex.MarketOrder, _ error)
}

// Adapter talks to one Wallex account.
type Adapter struct {
	client api
}

// New constructs a Wallex adapter.
func New(apiKey string) *Adapter {
	return &Adapter{client: wallex.New(wallex.ClientOptions{APIKey: apiKey})}
}

func init() {
	exchange.RegisterAdapter("wallex", func(name string, cfg *exchange.AdapterConfig) (exchange.Adapter, error) {
		return New(cfg.Key), nil
	})
}

// quoteSuffixes are the quote currencies Wallex lists, longest first so
// "USDT" wins over a 3-letter fallback.
var quoteSuffixes = []string{"USDT", "TMN"}

// splitSymbol breaks "BTCUSDT" into ("BTC", "USDT"). Symbols with an
// unknown quote fall back to a 3-letter suffix.
func splitSymbol(symbol string) (currency, relation string) {
	for _, suffix := range quoteSuffixes {
		if len(symbol) > len(suffix) && strings.HasSuffix(symbol, suffix) {
			return symbol[:len(symbol)-len(suffix)], suffix
		}
	}
	if len(symbol) > 3 {
		return symbol[:len(symbol)-3], symbol[len(symbol)-3:]
	}
	return symbol, ""
}

func joinSymbol(currency, relation string) string {
	return strings.ToUpper(currency) + strings.ToUpper(relation)
}

func parseNumber(n wallex.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseNumberPtr(n *wallex.Number) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	return parseNumber(*n)
}

func (a *Adapter) GetHoldings(ctx context.Context) ([]exchange.Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	balances, err := a.client.Balances()
	if err != nil {
		return nil, &exchange.APIError{Exchange: "wallex", Op: "getHoldings", Err: err}
	}

	holdings := make([]exchange.Holding, 0, len(balances))
	for asset, balance := range balances {
		available := parseNumber(balance.Value)
		locked := parseNumber(balance.Locked)
		holdings = append(holdings, exchange.Holding{
			ID:        asset,
			Currency:  asset,
			Balance:   available.Add(locked),
			Available: available,
			Hold:      locked,
		})
	}
	return holdings, nil
}

// GetOrders is not supported: the SDK exposes single-order lookup only.
func (a *Adapter) GetOrders(ctx context.Context) ([]exchange.Order, error) {
	return nil, &exchange.UnsupportedError{Exchange: "wallex", Op: "getOrders"}
}

func (a *Adapter) GetMarkets(ctx context.Context) ([]exchange.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	markets, err := a.client.Markets()
	if err != nil {
		return nil, &exchange.APIError{Exchange: "wallex", Op: "getMarkets", Err: err}
	}

	out := make([]exchange.Market, 0, len(markets))
	for _, market := range markets {
		currency, relation := splitSymbol(market.Symbol)
		out = append(out, exchange.Market{Currency: currency, Relation: relation})
	}
	return out, nil
}

func (a *Adapter) GetTicker(ctx context.Context, currency, relation string) (*exchange.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	markets, err := a.client.Markets()
	if err != nil {
		return nil, &exchange.APIError{Exchange: "wallex", Op: "getTicker", Err: err}
	}

	symbol := joinSymbol(currency, relation)
	for _, market := range markets {
		if market.Symbol != symbol {
			continue
		}
		volume := parseNumber(market.Stats.Volume24H)
		return &exchange.Ticker{
			Price:  parseNumber(market.Stats.LastPrice),
			Volume: &volume,
		}, nil
	}
	return nil, nil // pair has no quote here
}

func (a *Adapter) CreateLimitOrder(ctx context.Context, side exchange.Side, currency, relation string, size, price decimal.Decimal) (*exchange.OrderReceipt, error) {
	if side != exchange.SideBuy && side != exchange.SideSell {
		return nil, &exchange.ValidationError{Reason: "side must be buy or sell"}
	}
	if !price.IsPositive() || !size.IsPositive() {
		return nil, &exchange.ValidationError{Reason: "price and size must be positive"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := a.client.PlaceOrder(&wallex.OrderParams{
		Symbol:   joinSymbol(currency, relation),
		Type:     "LIMIT",
		Side:     strings.ToUpper(string(side)),
		Price:    wallex.Number(price.String()),
		Quantity: wallex.Number(size.String()),
	})
	if err != nil {
		return nil, &exchange.APIError{Exchange: "wallex", Op: "createLimitOrder", Err: err}
	}
	return &exchange.OrderReceipt{
		ID:      resp.ClientOrderID,
		Settled: strings.EqualFold(resp.Status, "FILLED"),
	}, nil
}

func statusCode(status string) exchange.OrderStatus {
	switch strings.ToUpper(status) {
	case "FILLED":
		return exchange.StatusFilled
	case "NEW", "PARTIALLY_FILLED":
		return exchange.StatusOpen
	case "CANCELED", "CANCELLED", "REJECTED", "EXPIRED":
		return exchange.StatusCanceled
	}
	return exchange.StatusUnknown
}

func (a *Adapter) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.Order(orderID)
	if err != nil {
		return nil, &exchange.APIError{Exchange: "wallex", Op: "getOrder", Err: err}
	}

	currency, relation := splitSymbol(resp.Symbol)
	order := &exchange.Order{
		ID:      resp.ClientOrderID,
		Status:  statusCode(resp.Status),
		Product: exchange.FormatProduct(currency, relation),
		Price:   parseNumber(resp.Price),
		Size:    parseNumber(resp.OrigQty),
		Date:    resp.CreatedAt.UTC(),
		Type:    strings.ToLower(resp.Type),
		Side:    exchange.Side(strings.ToLower(resp.Side)),
		Settled: parseNumberPtr(resp.ExecutedQty).Equal(parseNumber(resp.OrigQty)) && !parseNumber(resp.OrigQty).IsZero(),
	}
	if order.ID == "" {
		order.ID = orderID
	}
	return order, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.client.CancelOrder(orderID); err != nil {
		return &exchange.APIError{Exchange: "wallex", Op: "cancelOrder", Err: err}
	}
	return nil
}

func (a *Adapter) GetOrderBook(ctx context.Context, currency, relation string) (*exchange.RawOrderBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	asks, bids, err := a.client.MarketOrders(joinSymbol(currency, relation))
	if err != nil {
		return nil, &exchange.APIError{Exchange: "wallex", Op: "getOrderBook", Err: err}
	}

	book := &exchange.RawOrderBook{
		Buys:  make([]exchange.BookLevel, 0, len(bids)),
		Sells: make([]exchange.BookLevel, 0, len(asks)),
	}
	for _, bid := range bids {
		book.Buys = append(book.Buys, exchange.BookLevel{
			Price: parseNumber(bid.Price),
			Size:  parseNumber(bid.Quantity),
		})
	}
	for _, ask := range asks {
		book.Sells = append(book.Sells, exchange.BookLevel{
			Price: parseNumber(ask.Price),
			Size:  parseNumber(ask.Quantity),
		})
	}
	return book, nil
}
