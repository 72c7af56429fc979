// Package holdings aggregates balances across every configured exchange and
// values each position in BTC and USD.
package holdings

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"

	"bitdo/pkg/convert"
	"bitdo/pkg/exchange"
)

// ValuePair carries a figure in both reference currencies.
type ValuePair struct {
	BTC decimal.Decimal `json:"btc"`
	USD decimal.Decimal `json:"usd"`
}

// Holding is an exchange balance decorated with its value and the rates
// used to compute it.
type Holding struct {
	exchange.Holding

	Conversions ValuePair `json:"conversions"`
	Rates       ValuePair `json:"ticker"`
}

// Config tunes aggregation behaviour.
type Config struct {
	// AllOrFail makes any exchange failure or missing conversion abort the
	// whole aggregation. Default is to degrade: failed exchanges contribute
	// nothing and unconvertible currencies value at zero.
	AllOrFail bool
}

// Service fans reads out to every exchange and merges the results.
type Service struct {
	exchanges []*exchange.Exchange
	resolver  *convert.Resolver
	allOrFail bool
}

// New builds a holdings service with its own conversion resolver over the
// same exchanges.
func New(exchanges []*exchange.Exchange, cfg Config) *Service {
	return &Service{
		exchanges: exchanges,
		resolver:  convert.NewResolver(exchanges),
		allOrFail: cfg.AllOrFail,
	}
}

// Resolver exposes the shared conversion resolver.
func (s *Service) Resolver() *convert.Resolver {
	return s.resolver
}

// GetHoldings fetches balances from every exchange concurrently and
// decorates each with BTC and USD valuations. Unless AllOrFail is set, an
// exchange that errors is logged and skipped and its balances are simply
// absent from the result.
func (s *Service) GetHoldings(ctx context.Context) ([]Holding, error) {
	flat, err := mr.MapReduce(
		func(source chan<- *exchange.Exchange) {
			for _, ex := range s.exchanges {
				source <- ex
			}
		},
		func(ex *exchange.Exchange, writer mr.Writer[[]exchange.Holding], cancel func(error)) {
			batch, err := ex.GetHoldings(ctx)
			if err != nil {
				if s.allOrFail {
					cancel(err)
					return
				}
				logx.Errorf("holdings: fetching from %s: %v", ex.Name, err)
				return
			}
			writer.Write(batch)
		},
		func(pipe <-chan []exchange.Holding, writer mr.Writer[[]exchange.Holding], cancel func(error)) {
			var merged []exchange.Holding
			for batch := range pipe {
				merged = append(merged, batch...)
			}
			writer.Write(merged)
		},
		mr.WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}

	out := make([]Holding, 0, len(flat))
	for _, h := range flat {
		decorated, err := s.decorate(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, decorated)
	}
	return out, nil
}

// decorate values one balance in both reference currencies. A currency with
// no conversion path values at zero rather than poisoning the aggregate,
// unless AllOrFail demands otherwise.
func (s *Service) decorate(ctx context.Context, h exchange.Holding) (Holding, error) {
	btcRate, err := s.rateTo(ctx, h, convert.BridgeCurrency)
	if err != nil {
		return Holding{}, err
	}
	usdRate, err := s.rateTo(ctx, h, "USD")
	if err != nil {
		return Holding{}, err
	}
	return Holding{
		Holding: h,
		Rates:   ValuePair{BTC: btcRate, USD: usdRate},
		Conversions: ValuePair{
			BTC: h.Balance.Mul(btcRate),
			USD: h.Balance.Mul(usdRate),
		},
	}, nil
}

func (s *Service) rateTo(ctx context.Context, h exchange.Holding, target string) (decimal.Decimal, error) {
	rate, err := s.resolver.GetRate(ctx, h.Currency, target)
	if err != nil {
		if s.allOrFail {
			return decimal.Zero, err
		}
		logx.Errorf("holdings: valuing %s in %s: %v", h.Currency, target, err)
		return decimal.Zero, nil
	}
	return rate, nil
}
