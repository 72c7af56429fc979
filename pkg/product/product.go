// Package product parses user-facing product strings of the form
// "EXCHANGE:CURRENCY-RELATION", where the exchange and relation parts are
// optional.
package product

import (
	"fmt"
	"strings"
)

// Product is a parsed product reference. Empty fields were absent from the
// input.
type Product struct {
	Exchange string
	Symbol   string
	Relation string
}

// String renders the product back into its canonical form.
func (p Product) String() string {
	out := p.Symbol
	if p.Relation != "" {
		out += "-" + p.Relation
	}
	if p.Exchange != "" {
		out = p.Exchange + ":" + out
	}
	return out
}

// Parse accepts "GDAX:BTC-USD", "BTC-USD" or a bare "BTC". All parts are
// uppercased.
func Parse(raw string) (Product, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return Product{}, fmt.Errorf("empty product")
	}

	var p Product
	rest := raw
	if exch, pair, ok := strings.Cut(rest, ":"); ok {
		if exch == "" {
			return Product{}, fmt.Errorf("product %q has an empty exchange", raw)
		}
		p.Exchange = exch
		rest = pair
	}

	symbol, relation, hasRelation := strings.Cut(rest, "-")
	if symbol == "" || (hasRelation && relation == "") {
		return Product{}, fmt.Errorf("malformed product %q", raw)
	}
	if strings.ContainsAny(relation, ":-") || strings.Contains(symbol, ":") {
		return Product{}, fmt.Errorf("malformed product %q", raw)
	}
	p.Symbol = symbol
	p.Relation = relation
	return p, nil
}
