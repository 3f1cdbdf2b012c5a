package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"fxbot/internal/logger"
	"fxbot/internal/market"
)

const maxHistoryLimit = 1500

// Source 基于 go-binance 的合约 K 线实现 market.Source，只提供 mid 视图。
type Source struct {
	cfg    Config
	client *futures.Client
}

var _ market.Source = (*Source)(nil)

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}
}

// Symbol 把 BTC_USDT 形式的品种名转换为 BTCUSDT。
func Symbol(instrument string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(instrument), "_", ""))
}

func (s *Source) Candles(ctx context.Context, req market.CandleRequest) ([]market.Candle, error) {
	if req.View == "" {
		req.View = market.ViewMid
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	limit := req.Count
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	svc := s.client.NewKlinesService().
		Symbol(Symbol(req.Instrument)).
		Interval(req.Granularity.SourceInterval()).
		Limit(limit)
	if req.Range != nil {
		if !req.Range.From.IsZero() {
			svc = svc.StartTime(req.Range.From.UnixMilli())
		}
		if !req.Range.To.IsZero() {
			svc = svc.EndTime(req.Range.To.UnixMilli())
		}
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", req.Instrument, err)
	}
	out := make([]market.Candle, 0, len(kls))
	now := time.Now()
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, toCandle(kl, now))
	}
	if req.View != market.ViewMid {
		logger.Debugf("binance source has no %s view for %s, candles carry mid only", req.View, req.Instrument)
	}
	return out, nil
}

func toCandle(kl *futures.Kline, now time.Time) market.Candle {
	return market.Candle{
		Time:     time.UnixMilli(kl.OpenTime).UTC(),
		Volume:   parseFloat(kl.Volume),
		Complete: time.UnixMilli(kl.CloseTime).Before(now),
		Mid: &market.OHLC{
			Open:  parseFloat(kl.Open),
			High:  parseFloat(kl.High),
			Low:   parseFloat(kl.Low),
			Close: parseFloat(kl.Close),
		},
	}
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
