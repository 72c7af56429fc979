// Package coinbase implements the adapter contract against the Coinbase
// Exchange (formerly GDAX) REST API. Requests are signed with HMAC-SHA256
// over timestamp+method+path+body using the base64-encoded API secret.
package coinbase

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"bitdo/pkg/exchange"
)

const (
	defaultHost        = "https://api.exchange.coinbase.com"
	defaultHTTPTimeout = 15 * time.Second
)

// Adapter talks to one Coinbase Exchange account.
type Adapter struct {
	host       string
	key        string
	secret     string // base64 encoded
	passphrase string
	httpClient *http.Client
	clock      func() time.Time
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

// WithClock overrides the time source used for request signing.
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// New constructs a Coinbase adapter.
func New(host, key, secret, passphrase string, opts ...Option) *Adapter {
	if host == "" {
		host = defaultHost
	}
	a := &Adapter{
		host:       host,
		key:        key,
		secret:     secret,
		passphrase: passphrase,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func init() {
	builder := func(name string, cfg *exchange.AdapterConfig) (exchange.Adapter, error) {
		opts := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		return New(cfg.Host, cfg.Key, cfg.Secret, cfg.Passphrase, opts...), nil
	}
	exchange.RegisterAdapter("coinbase", builder)
	exchange.RegisterAdapter("gdax", builder)
}

func (a *Adapter) sign(timestamp, method, requestPath string, body []byte) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(a.secret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(requestPath))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (a *Adapter) do(ctx context.Context, op, method, requestPath string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &exchange.APIError{Exchange: "coinbase", Op: op, Err: err}
		}
	}

	timestamp := strconv.FormatInt(a.clock().Unix(), 10)
	signature, err := a.sign(timestamp, method, requestPath, payload)
	if err != nil {
		return &exchange.APIError{Exchange: "coinbase", Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.host+requestPath, bytes.NewReader(payload))
	if err != nil {
		return &exchange.APIError{Exchange: "coinbase", Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CB-ACCESS-KEY", a.key)
	req.Header.Set("CB-ACCESS-SIGN", signature)
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", a.passphrase)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &exchange.APIError{Exchange: "coinbase", Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &exchange.APIError{Exchange: "coinbase", Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= 400:
		return &exchange.APIError{
			Exchange: "coinbase",
			Op:       op,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &exchange.APIError{Exchange: "coinbase", Op: op, Err: err}
	}
	return nil
}

// errNotFound is an internal marker translated per capability: a missing
// ticker resolves to nil, a missing order id to *NotFoundError.
var errNotFound = fmt.Errorf("coinbase: not found")

func statusCode(status string) exchange.OrderStatus {
	switch status {
	case "done":
		return exchange.StatusFilled
	case "active", "open", "pending":
		return exchange.StatusOpen
	case "rejected":
		return exchange.StatusCanceled
	}
	return exchange.StatusUnknown
}

type accountPayload struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Hold      string `json:"hold"`
}

func (a *Adapter) GetHoldings(ctx context.Context) ([]exchange.Holding, error) {
	var accounts []accountPayload
	if err := a.do(ctx, "getHoldings", http.MethodGet, "/accounts", nil, &accounts); err != nil {
		if err == errNotFound {
			return nil, &exchange.APIError{Exchange: "coinbase", Op: "getHoldings", Err: fmt.Errorf("accounts endpoint not found")}
		}
		return nil, err
	}

	holdings := make([]exchange.Holding, 0, len(accounts))
	for _, account := range accounts {
		holdings = append(holdings, exchange.Holding{
			ID:        account.ID,
			Currency:  account.Currency,
			Balance:   parseDecimal(account.Balance),
			Available: parseDecimal(account.Available),
			Hold:      parseDecimal(account.Hold),
		})
	}
	return holdings, nil
}

type orderPayload struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	CreatedAt string `json:"created_at"`
	Type      string `json:"type"`
	Side      string `json:"side"`
	FillFees  string `json:"fill_fees"`
	Settled   bool   `json:"settled"`
}

func (p orderPayload) toOrder() exchange.Order {
	date, _ := time.Parse(time.RFC3339, p.CreatedAt)
	return exchange.Order{
		ID:      p.ID,
		Status:  statusCode(p.Status),
		Product: p.ProductID,
		Price:   parseDecimal(p.Price),
		Size:    parseDecimal(p.Size),
		Date:    date,
		Type:    p.Type,
		Side:    exchange.Side(p.Side),
		Fee:     parseDecimal(p.FillFees),
		Settled: p.Settled,
	}
}

func (a *Adapter) GetOrders(ctx context.Context) ([]exchange.Order, error) {
	var payload []orderPayload
	if err := a.do(ctx, "getOrders", http.MethodGet, "/orders?status=all", nil, &payload); err != nil {
		return nil, err
	}
	orders := make([]exchange.Order, 0, len(payload))
	for _, p := range payload {
		orders = append(orders, p.toOrder())
	}
	return orders, nil
}

func (a *Adapter) GetMarkets(ctx context.Context) ([]exchange.Market, error) {
	var products []struct {
		BaseCurrency  string `json:"base_currency"`
		QuoteCurrency string `json:"quote_currency"`
	}
	if err := a.do(ctx, "getMarkets", http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}
	markets := make([]exchange.Market, 0, len(products))
	for _, product := range products {
		markets = append(markets, exchange.Market{
			Currency: product.BaseCurrency,
			Relation: product.QuoteCurrency,
		})
	}
	return markets, nil
}

func (a *Adapter) GetTicker(ctx context.Context, currency, relation string) (*exchange.Ticker, error) {
	var payload struct {
		Price  string `json:"price"`
		Volume string `json:"volume"`
	}
	path := fmt.Sprintf("/products/%s/ticker", exchange.FormatProduct(currency, relation))
	if err := a.do(ctx, "getTicker", http.MethodGet, path, nil, &payload); err != nil {
		if err == errNotFound {
			return nil, nil // pair has no quote here
		}
		return nil, err
	}
	volume := parseDecimal(payload.Volume)
	return &exchange.Ticker{Price: parseDecimal(payload.Price), Volume: &volume}, nil
}

func (a *Adapter) CreateLimitOrder(ctx context.Context, side exchange.Side, currency, relation string, size, price decimal.Decimal) (*exchange.OrderReceipt, error) {
	if err := validateParams(side, currency, relation, size, price); err != nil {
		return nil, err
	}
	body := map[string]string{
		"type":       "limit",
		"side":       string(side),
		"product_id": exchange.FormatProduct(currency, relation),
		"price":      price.String(),
		"size":       size.String(),
	}
	var payload orderPayload
	if err := a.do(ctx, "createLimitOrder", http.MethodPost, "/orders", body, &payload); err != nil {
		if err == errNotFound {
			return nil, &exchange.APIError{Exchange: "coinbase", Op: "createLimitOrder", Err: fmt.Errorf("orders endpoint not found")}
		}
		return nil, err
	}
	return &exchange.OrderReceipt{ID: payload.ID, Settled: payload.Settled}, nil
}

func (a *Adapter) GetOrder(ctx context.Context, orderID string) (*exchange.Order, error) {
	var payload orderPayload
	if err := a.do(ctx, "getOrder", http.MethodGet, "/orders/"+orderID, nil, &payload); err != nil {
		if err == errNotFound {
			return nil, &exchange.NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, err
	}
	order := payload.toOrder()
	return &order, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	if err := a.do(ctx, "cancelOrder", http.MethodDelete, "/orders/"+orderID, nil, nil); err != nil {
		if err == errNotFound {
			return &exchange.NotFoundError{Resource: "order", ID: orderID}
		}
		return err
	}
	return nil
}

// bookEntry decodes the level-2 triplet [price, size, num-orders].
type bookEntry struct {
	price  decimal.Decimal
	size   decimal.Decimal
	orders int
}

func (b *bookEntry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("book entry has %d fields, want at least 2", len(raw))
	}
	b.price = parseDecimal(trimQuotes(raw[0]))
	b.size = parseDecimal(trimQuotes(raw[1]))
	if len(raw) > 2 {
		if n, err := strconv.Atoi(trimQuotes(raw[2])); err == nil {
			b.orders = n
		}
	}
	return nil
}

func trimQuotes(raw json.RawMessage) string {
	s := string(bytes.TrimSpace(raw))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (a *Adapter) GetOrderBook(ctx context.Context, currency, relation string) (*exchange.RawOrderBook, error) {
	var payload struct {
		Bids []bookEntry `json:"bids"`
		Asks []bookEntry `json:"asks"`
	}
	path := fmt.Sprintf("/products/%s/book?level=2", exchange.FormatProduct(currency, relation))
	if err := a.do(ctx, "getOrderBook", http.MethodGet, path, nil, &payload); err != nil {
		if err == errNotFound {
			return nil, &exchange.NotFoundError{Resource: "product", ID: exchange.FormatProduct(currency, relation)}
		}
		return nil, err
	}

	book := &exchange.RawOrderBook{
		Buys:  make([]exchange.BookLevel, 0, len(payload.Bids)),
		Sells: make([]exchange.BookLevel, 0, len(payload.Asks)),
	}
	for _, bid := range payload.Bids {
		book.Buys = append(book.Buys, exchange.BookLevel{Price: bid.price, Size: bid.size, Orders: bid.orders})
	}
	for _, ask := range payload.Asks {
		book.Sells = append(book.Sells, exchange.BookLevel{Price: ask.price, Size: ask.size, Orders: ask.orders})
	}
	return book, nil
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func validateParams(side exchange.Side, currency, relation string, size, price decimal.Decimal) error {
	if side != exchange.SideBuy && side != exchange.SideSell {
		return &exchange.ValidationError{Reason: fmt.Sprintf("side must be buy or sell, got %q", side)}
	}
	if currency == "" || relation == "" {
		return &exchange.ValidationError{Reason: "currency and relation are required"}
	}
	if !price.IsPositive() || !size.IsPositive() {
		return &exchange.ValidationError{Reason: "price and size must be positive"}
	}
	return nil
}
