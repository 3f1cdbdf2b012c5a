package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxbot/internal/market"
)

type countingSource struct {
	calls   int
	candles []market.Candle
	err     error
}

func (s *countingSource) Candles(_ context.Context, _ market.CandleRequest) ([]market.Candle, error) {
	s.calls++
	return s.candles, s.err
}

func sampleCandles(complete bool) []market.Candle {
	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return []market.Candle{
		{Time: base, Complete: true, Mid: &market.OHLC{Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15}},
		{Time: base.Add(time.Minute), Complete: complete, Mid: &market.OHLC{Open: 1.15, High: 1.3, Low: 1.1, Close: 1.25}},
	}
}

func closedRequest() market.CandleRequest {
	from := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return market.CandleRequest{
		Instrument:  "EUR_USD",
		Granularity: market.M1,
		View:        market.ViewMid,
		Range:       &market.TimeRange{From: from, To: from.Add(2 * time.Minute)},
	}
}

func TestCandleCacheServesClosedRangesFromDisk(t *testing.T) {
	src := &countingSource{candles: sampleCandles(true)}
	cache, err := NewCandleCache(filepath.Join(t.TempDir(), "cache", "candles.db"), src)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	first, err := cache.Candles(ctx, closedRequest())
	require.NoError(t, err)
	second, err := cache.Candles(ctx, closedRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].Mid.Close, second[1].Mid.Close)
	assert.True(t, first[0].Time.Equal(second[0].Time))

	rows, err := cache.Rows(ctx, "eur_usd")
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestCandleCacheSkipsIncompleteAndOpenRequests(t *testing.T) {
	src := &countingSource{candles: sampleCandles(false)}
	cache, err := NewCandleCache(filepath.Join(t.TempDir(), "candles.db"), src)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	_, err = cache.Candles(ctx, closedRequest())
	require.NoError(t, err)
	_, err = cache.Candles(ctx, closedRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	open := closedRequest()
	open.Range = nil
	open.Count = 30
	_, err = cache.Candles(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestCandleCachePropagatesUpstreamErrors(t *testing.T) {
	boom := errors.New("upstream down")
	cache, err := NewCandleCache(filepath.Join(t.TempDir(), "candles.db"), &countingSource{err: boom})
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.Candles(context.Background(), closedRequest())
	assert.ErrorIs(t, err, boom)
}

func TestNewCandleCacheValidates(t *testing.T) {
	_, err := NewCandleCache("", &countingSource{})
	assert.Error(t, err)
	_, err = NewCandleCache(filepath.Join(t.TempDir(), "x.db"), nil)
	assert.Error(t, err)
}
