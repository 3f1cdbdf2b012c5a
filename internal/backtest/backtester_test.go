package backtest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"fxbot/internal/signal"
)

func TestCompoundingScenario(t *testing.T) {
	bt, err := New(Input{
		Balance:      100,
		Margin:       0.01,
		Instructions: []signal.Instruction{signal.Sell, signal.Sell, signal.Sell},
		Prices:       []float64{1, 1, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, bt.State())

	rep, err := bt.Run()
	require.NoError(t, err)
	assert.Equal(t, StateDone, bt.State())
	assert.Equal(t, Compounding, rep.Convention)
	require.Len(t, rep.Steps, 3)
	assert.InDelta(t, 101.0, rep.Steps[0].Balance, 1e-9)
	assert.InDelta(t, 102.01, rep.Steps[1].Balance, 1e-9)
	assert.InDelta(t, 103.030301, rep.Result, 1e-9)
	assert.True(t, rep.Favorable())
	assert.InDelta(t, 3.030301, rep.Profit(), 1e-9)
}

func TestReportHasOneEntryPerStep(t *testing.T) {
	instructions := []signal.Instruction{signal.Buy, signal.Sell, signal.Buy, signal.Sell, signal.Sell}
	prices := []float64{1.1, 1.2, 1.15, 1.3, 1.25}
	for _, conv := range []Convention{Compounding, UnitConversion} {
		bt, err := New(Input{Balance: 1000, Margin: 0.1, Convention: conv, Instructions: instructions, Prices: prices})
		require.NoError(t, err)
		rep, err := bt.Run()
		require.NoError(t, err)
		require.Len(t, rep.Steps, len(prices), string(conv))
		for i, s := range rep.Steps {
			assert.Equal(t, prices[i], s.Price)
			assert.Equal(t, instructions[i], s.Instruction)
		}
		assert.Equal(t, rep.Steps[len(rep.Steps)-1].Balance, rep.Result)
	}
}

func TestRunOnlyOnce(t *testing.T) {
	bt, err := New(Input{Balance: 10, Margin: 0.5, Instructions: []signal.Instruction{signal.Buy}, Prices: []float64{2}})
	require.NoError(t, err)
	first, err := bt.Run()
	require.NoError(t, err)

	second, err := bt.Run()
	assert.ErrorIs(t, err, ErrAlreadyRun)
	assert.Equal(t, StateDone, bt.State())
	assert.Equal(t, first.Steps, second.Steps, "report is not touched by the rejected run")
}

func TestUnitConversionRoundTrip(t *testing.T) {
	for _, price := range []float64{1.2734, 0.5, 150.25} {
		bt, err := New(Input{
			Balance:      5000,
			Margin:       0.2,
			Convention:   UnitConversion,
			Instructions: []signal.Instruction{signal.Buy, signal.Sell},
			Prices:       []float64{price, price},
		})
		require.NoError(t, err)
		rep, err := bt.Run()
		require.NoError(t, err)
		assert.InDelta(t, 5000.0, rep.Result, 1e-9)
		assert.InDelta(t, 5000-0.2*5000/price, rep.Steps[0].Balance, 1e-6)
	}
}

func TestCompoundingRoundTripShrinks(t *testing.T) {
	bt, err := New(Input{
		Balance:      100,
		Margin:       0.1,
		Instructions: []signal.Instruction{signal.Buy, signal.Sell},
		Prices:       []float64{1, 1},
	})
	require.NoError(t, err)
	rep, err := bt.Run()
	require.NoError(t, err)
	assert.InDelta(t, 100*(1-0.1*0.1), rep.Result, 1e-9)
}

func TestUnitConversionZeroPrice(t *testing.T) {
	bt, err := New(Input{
		Balance:      100,
		Margin:       0.5,
		Convention:   UnitConversion,
		Instructions: []signal.Instruction{signal.Buy, signal.Sell, signal.Buy},
		Prices:       []float64{2, 0, 2},
	})
	require.NoError(t, err)
	rep, err := bt.Run()
	var defect *ArithmeticDefect
	require.True(t, errors.As(err, &defect))
	assert.Equal(t, 1, defect.Step)
	assert.Len(t, rep.Steps, 1)
	assert.Equal(t, StateDone, bt.State())
}

func TestNewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{
			name:  "length mismatch",
			in:    Input{Balance: 1, Margin: 0.1, Instructions: []signal.Instruction{signal.Buy}, Prices: []float64{1, 2}},
			field: "instructions",
		},
		{
			name:  "zero margin",
			in:    Input{Balance: 1, Margin: 0, Instructions: nil, Prices: nil},
			field: "margin",
		},
		{
			name:  "margin above one",
			in:    Input{Balance: 1, Margin: 1.5},
			field: "margin",
		},
		{
			name:  "non positive balance",
			in:    Input{Balance: 0, Margin: 0.5},
			field: "balance",
		},
		{
			name:  "unknown instruction",
			in:    Input{Balance: 1, Margin: 0.5, Instructions: []signal.Instruction{"HOLD"}, Prices: []float64{1}},
			field: "instructions",
		},
		{
			name:  "unknown convention",
			in:    Input{Balance: 1, Margin: 0.5, Convention: "simple"},
			field: "convention",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt, err := New(tt.in)
			assert.Nil(t, bt)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, signal.ErrInvalidConfig)
		})
	}
}

func TestMarginOfOneAccepted(t *testing.T) {
	bt, err := New(Input{Balance: 1, Margin: 1, Instructions: []signal.Instruction{signal.Sell}, Prices: []float64{1}})
	require.NoError(t, err)
	rep, err := bt.Run()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, rep.Result, 1e-12)
}

func TestEmptyRun(t *testing.T) {
	bt, err := New(Input{Balance: 42, Margin: 0.1})
	require.NoError(t, err)
	rep, err := bt.Run()
	require.NoError(t, err)
	assert.Empty(t, rep.Steps)
	assert.Equal(t, 42.0, rep.Result)
	assert.False(t, rep.Favorable())
}

func TestInvertPrices(t *testing.T) {
	got, err := InvertPrices([]float64{2, 0.5, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 2, 0.25}, got, 1e-12)

	_, err = InvertPrices([]float64{1, 0})
	var defect *ArithmeticDefect
	require.True(t, errors.As(err, &defect))
	assert.Equal(t, 1, defect.Step)
}

func TestParseConvention(t *testing.T) {
	c, err := ParseConvention("")
	require.NoError(t, err)
	assert.Equal(t, Compounding, c)
	c, err = ParseConvention("Unit_Conversion")
	require.NoError(t, err)
	assert.Equal(t, UnitConversion, c)
	_, err = ParseConvention("linear")
	assert.Error(t, err)
}

func sampleReport(t *testing.T) Report {
	t.Helper()
	bt, err := New(Input{
		Instrument:   "GBP_USD",
		Balance:      100,
		Margin:       0.01,
		Instructions: []signal.Instruction{signal.Buy, signal.Sell},
		Prices:       []float64{1.27, 1.28},
	})
	require.NoError(t, err)
	rep, err := bt.Run()
	require.NoError(t, err)
	return rep
}

func TestEncodeFormats(t *testing.T) {
	rep := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep, FormatYAML))
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "GBP_USD", decoded["instrument"])
	assert.Len(t, decoded["steps"], 2)

	buf.Reset()
	require.NoError(t, Encode(&buf, rep, FormatJSON))
	assert.Contains(t, buf.String(), `"convention": "compounding"`)

	buf.Reset()
	require.NoError(t, Encode(&buf, rep, FormatText))
	assert.Contains(t, buf.String(), "GBP_USD")
	assert.Contains(t, buf.String(), "SELL")

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderChart(t *testing.T) {
	rep := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, rep))
	html := buf.String()
	assert.True(t, strings.Contains(html, "echarts"))
	assert.Contains(t, html, "Balance")

	assert.Error(t, RenderChart(&buf, Report{ID: "empty"}))
}
