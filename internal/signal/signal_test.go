package signal

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMAUndefinedUntilWindowFilled(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 3.0, got[3], 1e-12)
	assert.InDelta(t, 4.0, got[4], 1e-12)
}

func TestSMAShortSeries(t *testing.T) {
	got := SMA([]float64{1, 2}, 3)
	require.Len(t, got, 2)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestCrossoverAlignedScenario(t *testing.T) {
	fast := []float64{1, 2, 3, 2, 1}
	slow := []float64{2, 2, 2, 2, 2}
	got := CrossoverAligned(fast, slow)
	assert.Equal(t, []Signal{
		{Index: 2, Instruction: Sell},
		{Index: 4, Instruction: Buy},
	}, got)
}

func TestCrossoverNeverSignalsAtFirstIndex(t *testing.T) {
	cases := [][2][]float64{
		{{5, 5}, {1, 1}},
		{{1, 5}, {5, 1}},
		{{5}, {1}},
	}
	for _, c := range cases {
		for _, s := range CrossoverAligned(c[0], c[1]) {
			assert.NotZero(t, s.Index)
		}
	}
}

func TestGeneratorCrossoverUsesOriginalIndices(t *testing.T) {
	g, err := NewGenerator(2, 3)
	require.NoError(t, err)
	prices := []float64{3, 3, 3, 1, 1, 5, 5}

	fast, slow, offset := g.Averages(prices)
	assert.Equal(t, 2, offset)
	assert.Len(t, fast, 5)
	assert.Len(t, slow, 5)

	got := g.Crossover(prices)
	assert.Equal(t, []Signal{
		{Index: 3, Instruction: Buy},
		{Index: 5, Instruction: Sell},
	}, got)
}

func TestGeneratorTooFewPrices(t *testing.T) {
	g := DefaultGenerator()
	assert.Empty(t, g.Crossover([]float64{1, 2, 3}))
}

func TestNewGeneratorRejectsBadWindows(t *testing.T) {
	_, err := NewGenerator(0, 15)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "fast_window", cfgErr.Field)

	_, err = NewGenerator(15, 3)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "slow_window", cfgErr.Field)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMomentum(t *testing.T) {
	got := Momentum([]float64{1, 2, 2, 1.5, 3})
	assert.Equal(t, []Signal{
		{Index: 1, Instruction: Buy},
		{Index: 2, Instruction: Sell},
		{Index: 3, Instruction: Sell},
		{Index: 4, Instruction: Buy},
	}, got)
	assert.Nil(t, Momentum([]float64{1}))
}

func TestLast(t *testing.T) {
	signals := []Signal{{Index: 2, Instruction: Sell}, {Index: 4, Instruction: Buy}}
	s, ok := Last(signals, 4)
	require.True(t, ok)
	assert.Equal(t, Buy, s.Instruction)

	_, ok = Last(signals, 5)
	assert.False(t, ok)
	_, ok = Last(nil, 0)
	assert.False(t, ok)
}

func TestInstructionHelpers(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
	assert.Equal(t, 1, Buy.Sign())
	assert.Equal(t, -1, Sell.Sign())
	assert.False(t, Instruction("HOLD").Valid())
}
