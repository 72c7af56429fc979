package exchange

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTestBuilder(t *testing.T, typeName string) *fakeAdapter {
	t.Helper()
	adapter := &fakeAdapter{}
	RegisterAdapter(typeName, func(name string, cfg *AdapterConfig) (Adapter, error) {
		return adapter, nil
	})
	return adapter
}

func TestCreateExchangeDefaultsTypeToName(t *testing.T) {
	registerTestBuilder(t, "regtest")

	ex, err := CreateExchange("regtest", &AdapterConfig{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "REGTEST", ex.Name)
}

func TestCreateExchangeUnknownTypeFails(t *testing.T) {
	_, err := CreateExchange("nope", &AdapterConfig{Type: "never-registered"}, Options{})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "nope", cfgErr.Name)
}

func TestCreateExchangeAppliesDecorators(t *testing.T) {
	registerTestBuilder(t, "decorated")

	plain, err := CreateExchange("decorated", &AdapterConfig{Type: "decorated"}, Options{})
	require.NoError(t, err)
	_, isSim := plain.adapter.(*OrderSimulator)
	assert.False(t, isSim)

	simulated, err := CreateExchange("decorated", &AdapterConfig{Type: "decorated", Simulate: true}, Options{})
	require.NoError(t, err)
	_, isSim = simulated.adapter.(*OrderSimulator)
	assert.True(t, isSim, "per-exchange simulate flag wraps the adapter")

	viaOpts, err := CreateExchange("decorated", &AdapterConfig{Type: "decorated"}, Options{Simulate: true})
	require.NoError(t, err)
	_, isSim = viaOpts.adapter.(*OrderSimulator)
	assert.True(t, isSim, "global simulate option wraps the adapter")

	logged, err := CreateExchange("decorated", &AdapterConfig{Type: "decorated", Log: true, Simulate: true}, Options{})
	require.NoError(t, err)
	sim, ok := logged.adapter.(*OrderSimulator)
	require.True(t, ok, "simulator wraps the logger, not the other way round")
	_, isLogger := sim.inner.(*loggingAdapter)
	assert.True(t, isLogger)
}

func TestCreateFromConfigIsDeterministic(t *testing.T) {
	registerTestBuilder(t, "multi")

	cfg := &Config{Exchanges: map[string]*AdapterConfig{
		"zeta":  {Type: "multi"},
		"alpha": {Type: "multi"},
		"mid":   {Type: "multi"},
	}}

	for i := 0; i < 3; i++ {
		exchanges, err := CreateFromConfig(cfg, Options{})
		require.NoError(t, err)
		require.Len(t, exchanges, 3)
		assert.Equal(t, "ALPHA", exchanges[0].Name)
		assert.Equal(t, "MID", exchanges[1].Name)
		assert.Equal(t, "ZETA", exchanges[2].Name)
	}
}

func TestCreateFromConfigEmptyFails(t *testing.T) {
	_, err := CreateFromConfig(&Config{}, Options{})
	require.Error(t, err)
	_, err = CreateFromConfig(nil, Options{})
	require.Error(t, err)
}

func TestLoadConfigExpandsEnvAndParsesTimeouts(t *testing.T) {
	registerTestBuilder(t, "loadtest")
	t.Setenv("LOADTEST_KEY", "from-env")

	yaml := `
exchanges:
  primary:
    type: loadtest
    key: ${LOADTEST_KEY}
    timeout: 9s
    log: true
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	primary := cfg.Exchanges["primary"]
	require.NotNil(t, primary)
	assert.Equal(t, "from-env", primary.Key)
	assert.Equal(t, 9*time.Second, primary.Timeout)
	assert.True(t, primary.Log)
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	registerTestBuilder(t, "badtime")

	_, err := LoadConfigFromReader(strings.NewReader(`
exchanges:
  primary:
    type: badtime
    timeout: soon
`))
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownAdapter(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`
exchanges:
  primary:
    type: never-registered
`))
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadConfigRejectsEmptySet(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("exchanges: {}\n"))
	require.Error(t, err)
}
