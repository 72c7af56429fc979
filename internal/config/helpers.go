package config

import (
	"fmt"
	"path/filepath"

	"bitdo/pkg/exchange"
)

// MustLoadExchange loads etc/exchange.yaml from the project root and panics
// on error. It isolates the exchange section so tests that only need the
// exchange set do not have to stand up a full application config.
func MustLoadExchange() *exchange.Config {
	root := MustProjectRoot()
	path := filepath.Join(root, "etc", "exchange.yaml")
	cfg, err := exchange.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load exchange config %s: %w", path, err))
	}
	return cfg
}

// MustCreateExchanges loads the default exchange config and constructs the
// exchange set without decorator overrides.
func MustCreateExchanges() []*exchange.Exchange {
	cfg := MustLoadExchange()
	exchanges, err := exchange.CreateFromConfig(cfg, exchange.Options{})
	if err != nil {
		panic(err)
	}
	return exchanges
}
