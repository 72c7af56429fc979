package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"
)

// OrderSimulator decorates an adapter with an in-memory paper-trading book.
// Order-mutating calls are intercepted and simulated against live ticker
// data; everything else passes through to the wrapped adapter. Simulated
// state is private to one decorator instance and lost on restart.
type OrderSimulator struct {
	inner Adapter

	mu      sync.Mutex
	orders  map[string]*Order
	balance decimal.Decimal // running diagnostic, not authoritative
}

// SimulateOrders wraps an adapter for paper trading.
func SimulateOrders(inner Adapter) *OrderSimulator {
	return &OrderSimulator{
		inner:  inner,
		orders: make(map[string]*Order),
	}
}

// CreateLimitOrder records a simulated order and immediately evaluates it
// against the current ticker: a buy fills iff its price is at or above the
// quote, a sell iff at or below. Unfilled orders stay open until canceled.
func (s *OrderSimulator) CreateLimitOrder(ctx context.Context, side Side, currency, relation string, size, price decimal.Decimal) (*OrderReceipt, error) {
	logx.Infof("simulate: creating %s order on %s at @%s #%s", side, FormatProduct(currency, relation), price, size)
	if err := validateOrderParams(side, currency, relation, size, price); err != nil {
		return nil, err
	}

	order := &Order{
		ID:      "sim-" + uuid.NewString(),
		Status:  StatusOpen,
		Product: FormatProduct(currency, relation),
		Price:   price,
		Size:    size,
		Date:    time.Now(),
		Type:    OrderTypeLimit,
		Side:    side,
	}

	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()

	if err := s.evaluate(ctx, order); err != nil {
		return nil, err
	}
	return &OrderReceipt{ID: order.ID, Settled: order.Settled}, nil
}

// evaluate fills an open order when the current ticker crosses its price.
func (s *OrderSimulator) evaluate(ctx context.Context, order *Order) error {
	s.mu.Lock()
	if order.Settled {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	currency, relation, err := SplitProduct(order.Product)
	if err != nil {
		return err
	}
	ticker, err := s.inner.GetTicker(ctx, currency, relation)
	if err != nil {
		return err
	}
	if ticker == nil {
		// No quote for the pair; the order stays open.
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notional := order.Price.Mul(order.Size)
	switch {
	case order.Side == SideBuy && order.Price.GreaterThanOrEqual(ticker.Price):
		logx.Infof("simulate: executing buy %s", order.ID)
		order.Status = StatusFilled
		order.Settled = true
		s.balance = s.balance.Sub(notional)
	case order.Side == SideSell && order.Price.LessThanOrEqual(ticker.Price):
		logx.Infof("simulate: executing sell %s", order.ID)
		order.Status = StatusFilled
		order.Settled = true
		s.balance = s.balance.Add(notional)
	}

	if order.Settled {
		logx.Infof("simulate: balance now %s", s.balance)
	}
	return nil
}

// GetOrder returns the simulated record when known, else delegates.
func (s *OrderSimulator) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	s.mu.Lock()
	if order, ok := s.orders[orderID]; ok {
		copied := *order
		s.mu.Unlock()
		return &copied, nil
	}
	s.mu.Unlock()
	return s.inner.GetOrder(ctx, orderID)
}

// GetOrders returns simulated orders concatenated with the wrapped adapter's
// real orders; simulated orders never appear on the real exchange. An inner
// adapter without order listing degrades to the simulated set alone.
func (s *OrderSimulator) GetOrders(ctx context.Context) ([]Order, error) {
	real, err := s.inner.GetOrders(ctx)
	if err != nil {
		if IsUnsupported(err) {
			real = nil
		} else {
			return nil, err
		}
	}

	s.mu.Lock()
	simulated := make([]Order, 0, len(s.orders))
	for _, order := range s.orders {
		simulated = append(simulated, *order)
	}
	s.mu.Unlock()

	return append(simulated, real...), nil
}

// CancelOrder removes a simulated order. Ids the simulator does not own fail
// with *NotFoundError; the call never falls through to canceling a real
// order, since simulated ids are namespace-disjoint from real ids.
func (s *OrderSimulator) CancelOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; ok {
		delete(s.orders, orderID)
		return nil
	}
	return &NotFoundError{Resource: "order", ID: orderID}
}

// Balance returns the running simulated balance, for diagnostics only.
func (s *OrderSimulator) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Remaining capabilities pass through untouched.

func (s *OrderSimulator) GetHoldings(ctx context.Context) ([]Holding, error) {
	return s.inner.GetHoldings(ctx)
}

func (s *OrderSimulator) GetMarkets(ctx context.Context) ([]Market, error) {
	return s.inner.GetMarkets(ctx)
}

func (s *OrderSimulator) GetTicker(ctx context.Context, currency, relation string) (*Ticker, error) {
	return s.inner.GetTicker(ctx, currency, relation)
}

func (s *OrderSimulator) GetOrderBook(ctx context.Context, currency, relation string) (*RawOrderBook, error) {
	return s.inner.GetOrderBook(ctx, currency, relation)
}
