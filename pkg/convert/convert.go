// Package convert resolves exchange rates between arbitrary currencies.
// When no market quotes a pair directly (or inverted), the rate is bridged
// through BTC, which nearly every listed currency trades against.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"bitdo/pkg/cache"
	"bitdo/pkg/exchange"
)

// BridgeCurrency is the hub used for two-hop conversions.
const BridgeCurrency = "BTC"

const (
	marketMapTTL = time.Hour
	rateTTL      = 10 * time.Second
)

// ErrNoConversion reports that no market path exists between two
// currencies, even through the bridge.
var ErrNoConversion = errors.New("no conversion path")

// Resolver converts amounts between currencies using the markets quoted by
// a set of exchanges. The pair catalog and individual rates are cached with
// separate lifetimes.
type Resolver struct {
	exchanges []*exchange.Exchange
	marketMap *cache.Value[map[string]exchange.Market]
	rates     *cache.Map[decimal.Decimal]
}

// NewResolver builds a resolver over the given exchanges.
func NewResolver(exchanges []*exchange.Exchange) *Resolver {
	return &Resolver{
		exchanges: exchanges,
		marketMap: cache.NewValue[map[string]exchange.Market](marketMapTTL),
		rates:     cache.NewMap[decimal.Decimal](rateTTL),
	}
}

// GetRate returns the multiplier that converts one unit of currency into
// target. Identical currencies convert at 1 without any market lookup.
// Fails with ErrNoConversion when neither a direct, an inverted, nor a
// BTC-bridged path exists.
func (r *Resolver) GetRate(ctx context.Context, currency, target string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	target = strings.ToUpper(target)
	if currency == target {
		return decimal.NewFromInt(1), nil
	}

	rate, err := r.rateTicker(ctx, currency, target)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, ErrNoConversion) {
		return decimal.Zero, err
	}

	// Two hops through the bridge: currency -> BTC -> target.
	toBridge, err := r.rateTicker(ctx, currency, BridgeCurrency)
	if err != nil {
		return decimal.Zero, wrapNoConversion(err, currency, target)
	}
	fromBridge, err := r.rateTicker(ctx, BridgeCurrency, target)
	if err != nil {
		return decimal.Zero, wrapNoConversion(err, currency, target)
	}
	return toBridge.Mul(fromBridge), nil
}

// Convert applies GetRate to an amount.
func (r *Resolver) Convert(ctx context.Context, amount decimal.Decimal, currency, target string) (decimal.Decimal, error) {
	rate, err := r.GetRate(ctx, currency, target)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// Invalidate drops all cached markets and rates.
func (r *Resolver) Invalidate() {
	r.marketMap.Invalidate()
	r.rates.InvalidateAll()
}

func wrapNoConversion(err error, currency, target string) error {
	if errors.Is(err, ErrNoConversion) {
		return fmt.Errorf("%s to %s: %w", currency, target, ErrNoConversion)
	}
	return err
}

// rateTicker resolves a single-hop rate from a live ticker, cached briefly
// per pair. A pair quoted in the opposite direction yields the reciprocal.
func (r *Resolver) rateTicker(ctx context.Context, currency, target string) (decimal.Decimal, error) {
	if currency == target {
		return decimal.NewFromInt(1), nil
	}

	return r.rates.Get(currency+":"+target, func() (decimal.Decimal, error) {
		markets, err := r.getMarketMap(ctx)
		if err != nil {
			return decimal.Zero, err
		}

		if market, ok := markets[currency+":"+target]; ok {
			ticker, err := market.Exchange.GetTicker(ctx, currency, target)
			if err != nil {
				return decimal.Zero, err
			}
			if ticker == nil {
				return decimal.Zero, fmt.Errorf("%s to %s: %w", currency, target, ErrNoConversion)
			}
			return ticker.Price, nil
		}

		if market, ok := markets[target+":"+currency]; ok {
			ticker, err := market.Exchange.GetTicker(ctx, target, currency)
			if err != nil {
				return decimal.Zero, err
			}
			if ticker == nil || ticker.Price.IsZero() {
				return decimal.Zero, fmt.Errorf("%s to %s: %w", currency, target, ErrNoConversion)
			}
			return decimal.NewFromInt(1).Div(ticker.Price), nil
		}

		return decimal.Zero, fmt.Errorf("%s to %s: %w", currency, target, ErrNoConversion)
	})
}

// getMarketMap flattens every exchange's catalog into a pair index. An
// exchange that fails to list is skipped so one outage cannot take down all
// conversions. Later exchanges win duplicate pairs.
func (r *Resolver) getMarketMap(ctx context.Context) (map[string]exchange.Market, error) {
	return r.marketMap.Get(func() (map[string]exchange.Market, error) {
		out := make(map[string]exchange.Market)
		for _, ex := range r.exchanges {
			markets, err := ex.GetMarkets(ctx)
			if err != nil {
				logx.Errorf("convert: listing markets on %s: %v", ex.Name, err)
				continue
			}
			for _, market := range markets {
				out[market.Key()] = market
			}
		}
		return out, nil
	})
}
