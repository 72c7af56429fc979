// Package bittrex implements the adapter contract against the Bittrex
// v1.1 REST API. Authenticated calls carry apikey and nonce as query
// parameters and an apisign header holding the hex HMAC-SHA512 of the
// full request URL.
package bittrex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bitdo/pkg/exchange"
)

const (
	defaultHost        = "https://bittrex.com/api/v1.1"
	defaultHTTPTimeout = 15 * time.Second
)

// Adapter talks to one Bittrex account.
type Adapter struct {
	host       string
	key        string
	secret     string
	httpClient *http.Client
	nonce      func() string
}

// Option customises the adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Adapter) {
		if httpClient != nil {
			a.httpClient = httpClient
		}
	}
}

// WithNonce overrides nonce generation, for tests.
func WithNonce(nonce func() string) Option {
	return func(a *Adapter) {
		if nonce != nil {
			a.nonce = nonce
		}
	}
}

// New constructs a Bittrex adapter.
func New(host, key, secret string, opts ...Option) *Adapter {
	if host == "" {
		host = defaultHost
	}
	a := &Adapter{
		host:       host,
		key:        key,
		secret:     secret,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		nonce:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func init() {
	exchange.RegisterAdapter("bittrex", func(name string, cfg *exchange.AdapterConfig) (exchange.Adapter, error) {
		opts := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		return New(cfg.Host, cfg.Key, cfg.Secret, opts...), nil
	})
}

// envelope is the wrapper every v1.1 response uses.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// apiError mirrors the envelope message for failed calls so callers can
// translate well-known messages into typed errors.
type apiError struct {
	op      string
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("bittrex: %s: %s", e.op, e.message)
}

func (a *Adapter) get(ctx context.Context, op, path string, query url.Values, signed bool, out any) error {
	if query == nil {
		query = url.Values{}
	}
	if signed {
		query.Set("apikey", a.key)
		query.Set("nonce", a.nonce())
	}
	fullURL := a.host + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &exchange.APIError{Exchange: "bittrex", Op: op, Err: err}
	}
	if signed {
		mac := hmac.New(sha512.New, []byte(a.secret))
		mac.Write([]byte(fullURL))
		req.Header.Set("apisign", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &exchange.APIError{Exchange: "bittrex", Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &exchange.APIError{Exchange: "bittrex", Op: op, Err: err}
	}
	if resp.StatusCode >= 400 {
		return &exchange.APIError{
			Exchange: "bittrex",
			Op:       op,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &exchange.APIError{Exchange: "bittrex", Op: op, Err: err}
	}
	if !env.Success {
		return &apiError{op: op, message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &exchange.APIError{Exchange: "bittrex", Op: op, Err: err}
	}
	return nil
}

// wrap promotes a raw envelope failure to the shared API error type.
func wrap(err error) error {
	if e, ok := err.(*apiError); ok {
		return &exchange.APIError{Exchange: "bittrex", Op: e.op, Err: fmt.Errorf("%s", e.message)}
	}
	return err
}

func (a *Adapter) GetHoldings(ctx context.Context) ([]exchange.Holding, error) {
	var balances []struct {
		Currency  string  `json:"Currency"`
		Balance   float64 `json:"Balance"`
		Available float64 `json:"Available"`
		Pending   float64 `json:"Pending"`
	}
	if err := a.get(ctx, "getHoldings", "/account/getbalances", nil, true, &balances); err != nil {
		return nil, wrap(err)
	}

	holdings := make([]exchange.Holding, 0, len(balances))
	for _, balance := range balances {
		total := decimal.NewFromFloat(balance.Balance)
		available := decimal.NewFromFloat(balance.Available)
		holdings = append(holdings, exchange.Holding{
			ID:        balance.Currency,
			Currency:  balance.Currency,
			Balance:   total,
			Available: available,
			Hold:      total.Sub(available),
		})
	}
	return holdings, nil
}

// historyOrder is shared by order history, open orders and getorder.
type historyOrder struct {
	OrderUuid         string  `json:"OrderUuid"`
	Exchange          string  `json:"Exchange"` // "REL-CUR"
	OrderType         string  `json:"OrderType"`
	Type              string  `json:"Type"` // getorder uses Type instead
	Limit             float64 `json:"Limit"`
	Quantity          float64 `json:"Quantity"`
	QuantityRemaining float64 `json:"QuantityRemaining"`
	Commission        float64 `json:"Commission"`
	TimeStamp         string  `json:"TimeStamp"`
	Opened            string  `json:"Opened"`
}

// mapOrderType splits the v1.1 compound type, e.g. "LIMIT_BUY" into
// (limit, buy).
func mapOrderType(orderType string) (string, exchange.Side) {
	parts := strings.SplitN(strings.ToLower(orderType), "_", 2)
	if len(parts) != 2 {
		return strings.ToLower(orderType), ""
	}
	return parts[0], exchange.Side(parts[1])
}

// splitPair converts the v1.1 "REL-CUR" market name into our "CUR-REL"
// product form.
func splitPair(pair string) string {
	relation, currency, ok := strings.Cut(pair, "-")
	if !ok {
		return pair
	}
	return exchange.FormatProduct(currency, relation)
}

func (h historyOrder) toOrder(status exchange.OrderStatus) exchange.Order {
	typeField := h.OrderType
	if typeField == "" {
		typeField = h.Type
	}
	orderType, side := mapOrderType(typeField)
	stamp := h.TimeStamp
	if stamp == "" {
		stamp = h.Opened
	}
	date, _ := time.Parse("2006-01-02T15:04:05.99", stamp)
	return exchange.Order{
		ID:      h.OrderUuid,
		Status:  status,
		Product: splitPair(h.Exchange),
		Price:   decimal.NewFromFloat(h.Limit),
		Size:    decimal.NewFromFloat(h.Quantity),
		Date:    date,
		Type:    orderType,
		Side:    side,
		Fee:     decimal.NewFromFloat(h.Commission),
		Settled: status == exchange.StatusFilled,
	}
}

func (a *Adapter) GetOrders(ctx context.Context) ([]exchange.Order, error) {
	var history []historyOrder
	if err := a.get(ctx, "getOrders", "/account/getorderhistory", nil, true, &history); err != nil {
		return nil, wrap(err)
	}
	var open []historyOrder
	if err := a.get(ctx, "getOrders", "/market/getopenorders", nil, true, &open); err != nil {
		return nil, wrap(err)
	}

	orders := make([]exchange.Order, 0, len(history)+len(open))
	for _, h := range history {
		orders = append(orders, h.toOrder(exchange.StatusFilled))
	}
	for _, h := range open {
		orders = append(orders, h.toOrder(exchange.StatusOpen))
	}
	return orders, nil
}

func (a *Adapter) GetMarkets(ctx context.Context) ([]exchange.Market, error) {
	var payload []struct {
		MarketCurrency string `json:"MarketCurrency"`
		BaseCurrency   string `json:"BaseCurrency"`
	}
	if err := a.get(ctx, "getMarkets", "/public/getmarkets", nil, false, &payload); err != nil {
		return nil, wrap(err)
	}
	markets := make([]exchange.Market, 0, len(payload))
	for _, m := range payload {
		markets = append(markets, exchange.Market{Currency: m.MarketCurrency, Relation: m.BaseCurrency})
	}
	return markets, nil
}

// marketName builds the v1.1 market identifier, which quotes first.
func marketName(currency, relation string) string {
	return relation + "-" + currency
}

func (a *Adapter) GetTicker(ctx context.Context, currency, relation string) (*exchange.Ticker, error) {
	query := url.Values{"market": {marketName(currency, relation)}}
	var payload struct {
		Last float64 `json:"Last"`
	}
	err := a.get(ctx, "getTicker", "/public/getticker", query, false, &payload)
	if err != nil {
		if e, ok := err.(*apiError); ok && e.message == "INVALID_MARKET" {
			return nil, nil // pair has no quote here
		}
		return nil, wrap(err)
	}
	return &exchange.Ticker{Price: decimal.NewFromFloat(payload.Last)}, nil
}

func (a *Adapter) CreateLimitOrder(ctx context.Context, side exchange.Side, currency, relation string, size, price decimal.Decimal) (*exchange.OrderReceipt, error) {
	path := "/market/buylimit"
	switch side {
	case exchange.SideBuy:
	case exchange.SideSell:
		path = "/market/selllimit"
	default:
		return nil, &exchange.ValidationError{Reason: fmt.Sprintf("side must be buy or sell, got %q", side)}
	}
	if !price.IsPositive() || !size.IsPositive() {
		return nil, &exchange.ValidationError{Reason: "price and size must be positive"}
	}

	query := url.Values{
		"market":   {marketName(currency, relation)},
		"quantity": {size.String()},
		"rate":     {price.String()},
	}
	var payload struct {
		Uuid string `json:"uuid"`
	}
	if err := a.get(ctx, "createLimitOrder", path, query, true, &payload); err != nil {
		return nil, wrap(err)
	}
	return &exchange.OrderReceipt{ID: payload.Uuid, Settled: false}, nil
}

func (a *Adapter) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	query := url.Values{"uuid": {orderID}}
	var payload struct {
		historyOrder
		IsOpen          bool `json:"IsOpen"`
		CancelInitiated bool `json:"CancelInitiated"`
	}
	if err := a.get(ctx, "getOrder", "/account/getorder", query, true, &payload); err != nil {
		if e, ok := err.(*apiError); ok && e.message == "UUID_INVALID" {
			return nil, &exchange.NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, wrap(err)
	}

	status := exchange.StatusFilled
	switch {
	case payload.CancelInitiated:
		status = exchange.StatusCanceled
	case payload.IsOpen:
		status = exchange.StatusOpen
	}
	order := payload.toOrder(status)
	if order.ID == "" {
		order.ID = orderID
	}
	return &order, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	query := url.Values{"uuid": {orderID}}
	if err := a.get(ctx, "cancelOrder", "/market/cancel", query, true, nil); err != nil {
		if e, ok := err.(*apiError); ok {
			switch e.message {
			case "ORDER_NOT_OPEN", "INVALID_ORDER", "UUID_INVALID":
				return &exchange.NotFoundError{Resource: "order", ID: orderID}
			}
		}
		return wrap(err)
	}
	return nil
}

func (a *Adapter) GetOrderBook(ctx context.Context, currency, relation string) (*exchange.RawOrderBook, error) {
	query := url.Values{
		"market": {marketName(currency, relation)},
		"type":   {"both"},
	}
	var payload struct {
		Buy []struct {
			Quantity float64 `json:"Quantity"`
			Rate     float64 `json:"Rate"`
		} `json:"buy"`
		Sell []struct {
			Quantity float64 `json:"Quantity"`
			Rate     float64 `json:"Rate"`
		} `json:"sell"`
	}
	if err := a.get(ctx, "getOrderBook", "/public/getorderbook", query, false, &payload); err != nil {
		if e, ok := err.(*apiError); ok && e.message == "INVALID_MARKET" {
			return nil, &exchange.NotFoundError{Resource: "market", ID: marketName(currency, relation)}
		}
		return nil, wrap(err)
	}

	book := &exchange.RawOrderBook{
		Buys:  make([]exchange.BookLevel, 0, len(payload.Buy)),
		Sells: make([]exchange.BookLevel, 0, len(payload.Sell)),
	}
	for _, level := range payload.Buy {
		book.Buys = append(book.Buys, exchange.BookLevel{
			Price: decimal.NewFromFloat(level.Rate),
			Size:  decimal.NewFromFloat(level.Quantity),
		})
	}
	for _, level := range payload.Sell {
		book.Sells = append(book.Sells, exchange.BookLevel{
			Price: decimal.NewFromFloat(level.Rate),
			Size:  decimal.NewFromFloat(level.Quantity),
		})
	}
	return book, nil
}
