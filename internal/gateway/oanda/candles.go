package oanda

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"fxbot/internal/gateway/exchange"
	"fxbot/internal/market"
)

const (
	defaultCandleCount = 500
	maxCandleCount     = 5000
)

// candlesQuery 构造蜡烛查询参数。区间两端都给出时不带 count，否则用 count 补足另一端。
func candlesQuery(req market.CandleRequest) url.Values {
	q := url.Values{}
	q.Set("price", string(req.View))
	q.Set("granularity", string(req.Granularity))
	open := true
	if req.Range != nil {
		if !req.Range.From.IsZero() {
			q.Set("from", strconv.FormatInt(req.Range.From.Unix(), 10))
		}
		if !req.Range.To.IsZero() {
			q.Set("to", strconv.FormatInt(req.Range.To.Unix(), 10))
		}
		open = req.Range.Open()
	}
	if open {
		count := req.Count
		if count <= 0 {
			count = defaultCandleCount
		}
		if count > maxCandleCount {
			count = maxCandleCount
		}
		q.Set("count", strconv.Itoa(count))
	}
	return q
}

func (c *Client) Candles(ctx context.Context, req market.CandleRequest) ([]market.Candle, error) {
	if req.View == "" {
		req.View = market.ViewMid
	}
	if err := req.Validate(); err != nil {
		return nil, &exchange.BrokerError{Op: "candles", Reason: err.Error(), Err: err}
	}
	path := c.accountPath("instruments", url.PathEscape(req.Instrument), "candles")
	data, err := c.do(ctx, "candles", http.MethodGet, path, candlesQuery(req), nil)
	if err != nil {
		return nil, err
	}
	return parseCandles(data), nil
}

func parseCandles(data []byte) []market.Candle {
	rows := gjson.GetBytes(data, "candles").Array()
	out := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		c := market.Candle{
			Time:     parseUnixTime(row.Get("time").String()),
			Volume:   row.Get("volume").Float(),
			Complete: row.Get("complete").Bool(),
			Mid:      parseOHLC(row.Get("mid")),
			Bid:      parseOHLC(row.Get("bid")),
			Ask:      parseOHLC(row.Get("ask")),
		}
		out = append(out, c)
	}
	return out
}

func parseOHLC(v gjson.Result) *market.OHLC {
	if !v.Exists() || !v.IsObject() {
		return nil
	}
	return &market.OHLC{
		Open:  v.Get("o").Float(),
		High:  v.Get("h").Float(),
		Low:   v.Get("l").Float(),
		Close: v.Get("c").Float(),
	}
}
