package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ohlc(c float64) *OHLC {
	return &OHLC{Open: c, High: c, Low: c, Close: c}
}

func TestExtractClosesUsesRequestedView(t *testing.T) {
	candles := []Candle{
		{Mid: ohlc(1.10), Bid: ohlc(1.09), Ask: ohlc(1.11)},
		{Mid: ohlc(1.20), Bid: ohlc(1.19), Ask: ohlc(1.21)},
	}
	assert.Equal(t, []float64{1.09, 1.19}, ExtractCloses(candles, ViewBid))
	assert.Equal(t, []float64{1.11, 1.21}, ExtractCloses(candles, ViewAsk))
	assert.Equal(t, []float64{1.10, 1.20}, ExtractCloses(candles, ViewMid))
}

func TestExtractClosesFallsBackToMid(t *testing.T) {
	candles := make([]Candle, 5)
	for i := range candles {
		candles[i] = Candle{Mid: ohlc(float64(i + 1)), Bid: ohlc(float64(i) + 0.5)}
	}
	got := ExtractCloses(candles, ViewAsk)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got)
}

func TestExtractClosesFallbackOrder(t *testing.T) {
	tests := []struct {
		name   string
		candle Candle
		view   PriceView
		want   float64
	}{
		{name: "bid when mid missing", candle: Candle{Bid: ohlc(2), Ask: ohlc(3)}, view: ViewMid, want: 2},
		{name: "ask last", candle: Candle{Ask: ohlc(3)}, view: ViewBid, want: 3},
		{name: "no views", candle: Candle{}, view: ViewMid, want: 0},
		{name: "unknown view", candle: Candle{Mid: ohlc(4)}, view: PriceView("X"), want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCloses([]Candle{tt.candle}, tt.view)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestExtractClosesKeepsLength(t *testing.T) {
	assert.Empty(t, ExtractCloses(nil, ViewMid))
	got := ExtractCloses([]Candle{{}, {}, {}}, ViewAsk)
	assert.Equal(t, []float64{0, 0, 0}, got)
}

func TestMergeViewsAlignsByTime(t *testing.T) {
	t0 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	mid := []Candle{{Time: t0, Mid: ohlc(1)}, {Time: t1, Mid: ohlc(2)}}
	bid := []Candle{{Time: t1, Bid: ohlc(1.9)}}
	ask := []Candle{{Time: t0, Ask: ohlc(1.1)}, {Time: t1, Ask: ohlc(2.1)}}

	merged := MergeViews(mid, bid, ask)
	require.Len(t, merged, 2)
	assert.Nil(t, merged[0].Bid)
	set := ExtractSeries(merged)
	assert.Equal(t, []float64{1, 2}, set.Mid)
	assert.Equal(t, []float64{1, 1.9}, set.Bid, "missing bid falls back to mid")
	assert.Equal(t, []float64{1.1, 2.1}, set.Ask)
	assert.Equal(t, 2, set.Len())
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("h6")
	require.NoError(t, err)
	assert.Equal(t, H6, g)
	assert.Equal(t, 6*time.Hour, g.Duration())
	assert.Equal(t, "6h", g.SourceInterval())
	assert.Equal(t, 7*24*time.Hour, W.Duration())

	_, err = ParseGranularity("M5")
	assert.Error(t, err)
}

func TestCandleRequestKeyAndValidate(t *testing.T) {
	from := time.Unix(1700000000, 0)
	req := CandleRequest{Instrument: "eur_usd", Granularity: H1, View: ViewBid, Range: &TimeRange{From: from}}
	require.NoError(t, req.Validate())
	assert.Equal(t, "EUR_USD@H1@B@from=1700000000", req.Key())
	assert.True(t, req.Range.Open())

	bad := req
	bad.Range = &TimeRange{From: from, To: from.Add(-time.Hour)}
	assert.Error(t, bad.Validate())

	bad = req
	bad.View = "X"
	assert.Error(t, bad.Validate())
}
