package exchange

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the configured exchange set: one entry per exchange name.
type Config struct {
	Exchanges map[string]*AdapterConfig `yaml:"exchanges"`
}

// AdapterConfig describes how to construct and decorate one exchange.
type AdapterConfig struct {
	// Type selects the adapter implementation; defaults to the exchange name.
	Type string `yaml:"type"`

	Key        string `yaml:"key"`
	Secret     string `yaml:"secret"`
	Passphrase string `yaml:"passphrase"`
	Host       string `yaml:"host"`

	Log      bool `yaml:"log"`
	Simulate bool `yaml:"simulate"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// Options toggles decorators for a whole exchange set, independent of
// per-exchange configuration.
type Options struct {
	Log      bool
	Simulate bool
}

// Builder constructs an Adapter from configuration.
type Builder func(name string, cfg *AdapterConfig) (Adapter, error)

var (
	adapterRegistry   = make(map[string]Builder)
	adapterRegistryMu sync.RWMutex
)

// RegisterAdapter associates a builder with an adapter type name. Built-in
// adapters self-register from init; external adapter packages use the same
// call as their extension hook.
func RegisterAdapter(typeName string, builder Builder) {
	adapterRegistryMu.Lock()
	defer adapterRegistryMu.Unlock()
	adapterRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupAdapterBuilder(typeName string) (Builder, bool) {
	adapterRegistryMu.RLock()
	defer adapterRegistryMu.RUnlock()
	builder, ok := adapterRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// CreateExchange resolves name to an adapter builder, constructs the adapter,
// applies the logging and order-simulation decorators per configuration, and
// wraps the result in an Exchange façade.
func CreateExchange(name string, cfg *AdapterConfig, opts Options) (*Exchange, error) {
	if cfg == nil {
		cfg = &AdapterConfig{}
	}
	typeName := cfg.Type
	if typeName == "" {
		typeName = name
	}
	builder, ok := lookupAdapterBuilder(typeName)
	if !ok {
		return nil, &ConfigError{Name: name, Err: fmt.Errorf("no adapter registered for type %q", typeName)}
	}
	adapter, err := builder(name, cfg)
	if err != nil {
		return nil, &ConfigError{Name: name, Err: err}
	}

	if opts.Log || cfg.Log {
		adapter = LogCalls(strings.ToUpper(name), adapter)
	}
	if opts.Simulate || cfg.Simulate {
		adapter = SimulateOrders(adapter)
	}
	return NewExchange(name, adapter), nil
}

// CreateFromConfig builds the full exchange set. Exchanges are returned in
// lexical name order so construction is deterministic regardless of YAML map
// iteration.
func CreateFromConfig(cfg *Config, opts Options) ([]*Exchange, error) {
	if cfg == nil || len(cfg.Exchanges) == 0 {
		return nil, &ConfigError{Name: "exchanges", Err: fmt.Errorf("no exchanges configured")}
	}

	names := make([]string, 0, len(cfg.Exchanges))
	for name := range cfg.Exchanges {
		names = append(names, name)
	}
	sort.Strings(names)

	exchanges := make([]*Exchange, 0, len(names))
	for _, name := range names {
		exchange, err := CreateExchange(name, cfg.Exchanges[name], opts)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, exchange)
	}
	return exchanges, nil
}

// LoadConfig reads an exchange-set configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exchange config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read exchange config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal exchange config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Exchanges == nil {
		c.Exchanges = make(map[string]*AdapterConfig)
	}
	for name, adapterCfg := range c.Exchanges {
		if adapterCfg == nil {
			adapterCfg = &AdapterConfig{}
			c.Exchanges[name] = adapterCfg
		}
		adapterCfg.expandEnv()
		if err := adapterCfg.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (a *AdapterConfig) expandEnv() {
	a.Type = strings.TrimSpace(os.ExpandEnv(a.Type))
	a.Key = strings.TrimSpace(os.ExpandEnv(a.Key))
	a.Secret = strings.TrimSpace(os.ExpandEnv(a.Secret))
	a.Passphrase = strings.TrimSpace(os.ExpandEnv(a.Passphrase))
	a.Host = strings.TrimSpace(os.ExpandEnv(a.Host))
	a.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(a.TimeoutRaw))
}

func (a *AdapterConfig) parseDurations(name string) error {
	if a.TimeoutRaw == "" {
		a.Timeout = 0
		return nil
	}
	d, err := time.ParseDuration(a.TimeoutRaw)
	if err != nil {
		return &ConfigError{Name: name, Err: fmt.Errorf("invalid timeout %q: %w", a.TimeoutRaw, err)}
	}
	if d <= 0 {
		return &ConfigError{Name: name, Err: fmt.Errorf("timeout must be positive, got %s", d)}
	}
	a.Timeout = d
	return nil
}

// Validate ensures every configured exchange resolves to a known adapter.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return &ConfigError{Name: "exchanges", Err: fmt.Errorf("exchanges cannot be empty")}
	}
	for name, adapterCfg := range c.Exchanges {
		if strings.TrimSpace(name) == "" {
			return &ConfigError{Name: name, Err: fmt.Errorf("exchange name cannot be empty")}
		}
		typeName := adapterCfg.Type
		if typeName == "" {
			typeName = name
		}
		if _, ok := lookupAdapterBuilder(typeName); !ok {
			return &ConfigError{Name: name, Err: fmt.Errorf("no adapter registered for type %q", typeName)}
		}
	}
	return nil
}
