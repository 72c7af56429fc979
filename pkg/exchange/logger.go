package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"
)

// loggingAdapter observes every capability call for diagnostics. It never
// alters arguments or results and propagates failures unchanged.
type loggingAdapter struct {
	name  string
	inner Adapter
}

// LogCalls wraps an adapter so every invocation is logged at debug level.
func LogCalls(name string, inner Adapter) Adapter {
	return &loggingAdapter{name: name, inner: inner}
}

func (l *loggingAdapter) GetHoldings(ctx context.Context) ([]Holding, error) {
	logx.Debugf("%s::getHoldings", l.name)
	holdings, err := l.inner.GetHoldings(ctx)
	l.logResult("getHoldings", len(holdings), err)
	return holdings, err
}

func (l *loggingAdapter) GetOrders(ctx context.Context) ([]Order, error) {
	logx.Debugf("%s::getOrders", l.name)
	orders, err := l.inner.GetOrders(ctx)
	l.logResult("getOrders", len(orders), err)
	return orders, err
}

func (l *loggingAdapter) GetMarkets(ctx context.Context) ([]Market, error) {
	logx.Debugf("%s::getMarkets", l.name)
	markets, err := l.inner.GetMarkets(ctx)
	l.logResult("getMarkets", len(markets), err)
	return markets, err
}

func (l *loggingAdapter) GetTicker(ctx context.Context, currency, relation string) (*Ticker, error) {
	logx.Debugf("%s::getTicker %s-%s", l.name, currency, relation)
	ticker, err := l.inner.GetTicker(ctx, currency, relation)
	if err != nil {
		logx.Debugf("%s::getTicker failed: %v", l.name, err)
	} else if ticker != nil {
		logx.Debugf("%s::getTicker -> %s", l.name, ticker.Price)
	}
	return ticker, err
}

func (l *loggingAdapter) CreateLimitOrder(ctx context.Context, side Side, currency, relation string, size, price decimal.Decimal) (*OrderReceipt, error) {
	logx.Debugf("%s::createLimitOrder %s %s-%s #%s @%s", l.name, side, currency, relation, size, price)
	receipt, err := l.inner.CreateLimitOrder(ctx, side, currency, relation, size, price)
	if err != nil {
		logx.Debugf("%s::createLimitOrder failed: %v", l.name, err)
	} else {
		logx.Debugf("%s::createLimitOrder -> %s settled=%t", l.name, receipt.ID, receipt.Settled)
	}
	return receipt, err
}

func (l *loggingAdapter) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	logx.Debugf("%s::getOrder %s", l.name, orderID)
	return l.inner.GetOrder(ctx, orderID)
}

func (l *loggingAdapter) CancelOrder(ctx context.Context, orderID string) error {
	logx.Debugf("%s::cancelOrder %s", l.name, orderID)
	err := l.inner.CancelOrder(ctx, orderID)
	if err != nil {
		logx.Debugf("%s::cancelOrder failed: %v", l.name, err)
	}
	return err
}

func (l *loggingAdapter) GetOrderBook(ctx context.Context, currency, relation string) (*RawOrderBook, error) {
	logx.Debugf("%s::getOrderBook %s-%s", l.name, currency, relation)
	book, err := l.inner.GetOrderBook(ctx, currency, relation)
	if err == nil && book != nil {
		l.logResult("getOrderBook", len(book.Buys)+len(book.Sells), nil)
	}
	return book, err
}

func (l *loggingAdapter) logResult(op string, count int, err error) {
	if err != nil {
		logx.Debugf("%s::%s failed: %v", l.name, op, err)
		return
	}
	if count > 0 {
		logx.Debugf("%s::%s -> %d items", l.name, op, count)
	}
}
