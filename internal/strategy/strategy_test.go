package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxbot/internal/market"
	"fxbot/internal/signal"
)

func TestDecideFollowMarket(t *testing.T) {
	inst, ok := Decide(FollowMarket, signal.Generator{}, []float64{1.1, 1.2})
	require.True(t, ok)
	assert.Equal(t, signal.Buy, inst)

	inst, ok = Decide(FollowMarket, signal.Generator{}, []float64{1.2, 1.2})
	require.True(t, ok)
	assert.Equal(t, signal.Sell, inst)

	_, ok = Decide(FollowMarket, signal.Generator{}, []float64{1.2})
	assert.False(t, ok)
}

func TestDecideCrossOverOnlyAtLatestIndex(t *testing.T) {
	gen := signal.Generator{Fast: 2, Slow: 3}
	prices := []float64{3, 3, 3, 1, 1, 5}
	// 交叉发生在最后一根
	inst, ok := Decide(CrossOver, gen, prices)
	require.True(t, ok)
	assert.Equal(t, signal.Sell, inst)

	// 多一根后最新位置没有交叉
	_, ok = Decide(CrossOver, gen, append(prices, 5))
	assert.False(t, ok)

	_, ok = Decide(CrossOver, gen, nil)
	assert.False(t, ok)
	_, ok = Decide(Kind("martingale"), gen, prices)
	assert.False(t, ok)
}

func TestOpeningOrder(t *testing.T) {
	inst, ok := FollowMarket.OpeningOrder()
	assert.True(t, ok)
	assert.Equal(t, signal.Buy, inst)
	_, ok = CrossOver.OpeningOrder()
	assert.False(t, ok)
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig(Config{
		Kind:        CrossOver,
		Instrument:  " gbp_usd ",
		Granularity: market.M1,
		Deadline:    time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC),
		Margin:      0.01,
	})
	require.NoError(t, err)
	assert.Equal(t, "GBP_USD", cfg.Instrument)
	assert.Equal(t, market.ViewMid, cfg.View)
	assert.Equal(t, DefaultLookback, cfg.Lookback)
	assert.Equal(t, DefaultCallTimeout, cfg.CallTimeout)
	assert.Equal(t, signal.DefaultGenerator(), cfg.Signals)
}

func TestNewConfigRejects(t *testing.T) {
	valid := Config{
		Kind:        FollowMarket,
		Instrument:  "EUR_USD",
		Granularity: market.H1,
		Deadline:    time.Now().Add(time.Hour),
		Margin:      0.5,
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no instrument", func(c *Config) { c.Instrument = "" }},
		{"bad kind", func(c *Config) { c.Kind = "grid" }},
		{"bad granularity", func(c *Config) { c.Granularity = "M5" }},
		{"zero margin", func(c *Config) { c.Margin = 0 }},
		{"margin above one", func(c *Config) { c.Margin = 1.01 }},
		{"no deadline", func(c *Config) { c.Deadline = time.Time{} }},
		{"bad windows", func(c *Config) { c.Signals = signal.Generator{Fast: 5, Slow: 4} }},
		{"short lookback", func(c *Config) { c.Kind = CrossOver; c.Lookback = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			_, err := NewConfig(c)
			assert.ErrorIs(t, err, signal.ErrInvalidConfig)
		})
	}
	_, err := NewConfig(valid)
	assert.NoError(t, err)
}

func TestCurrencies(t *testing.T) {
	assert.Equal(t, "GBP", BaseCurrency("gbp_usd"))
	assert.Equal(t, "USD", QuoteCurrency("GBP_USD"))
	assert.Equal(t, "", QuoteCurrency("BTCUSDT"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Crossover")
	require.NoError(t, err)
	assert.Equal(t, CrossOver, k)
	k, err = ParseKind("follow_market")
	require.NoError(t, err)
	assert.Equal(t, FollowMarket, k)
	_, err = ParseKind("scalper")
	assert.Error(t, err)
}
