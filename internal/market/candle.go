package market

import (
	"fmt"
	"strings"
	"time"
)

// PriceView 标识蜡烛的报价视图：中间价、买价、卖价。
type PriceView string

const (
	ViewMid PriceView = "M"
	ViewBid PriceView = "B"
	ViewAsk PriceView = "A"
)

func ParsePriceView(input string) (PriceView, error) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "M", "MID":
		return ViewMid, nil
	case "B", "BID":
		return ViewBid, nil
	case "A", "ASK":
		return ViewAsk, nil
	default:
		return "", fmt.Errorf("unsupported price view: %q", input)
	}
}

func (v PriceView) String() string {
	switch v {
	case ViewMid:
		return "mid"
	case ViewBid:
		return "bid"
	case ViewAsk:
		return "ask"
	default:
		return string(v)
	}
}

// OHLC 是单个报价视图下的开高低收。
type OHLC struct {
	Open  float64 `json:"o"`
	High  float64 `json:"h"`
	Low   float64 `json:"l"`
	Close float64 `json:"c"`
}

// Candle 是一根 K 线，三个视图都可能缺失。
type Candle struct {
	Time     time.Time `json:"time"`
	Volume   float64   `json:"volume"`
	Complete bool      `json:"complete"`
	Mid      *OHLC     `json:"mid,omitempty"`
	Bid      *OHLC     `json:"bid,omitempty"`
	Ask      *OHLC     `json:"ask,omitempty"`
}

// View returns the OHLC for v, or nil when the candle does not carry it.
func (c Candle) View(v PriceView) *OHLC {
	switch v {
	case ViewMid:
		return c.Mid
	case ViewBid:
		return c.Bid
	case ViewAsk:
		return c.Ask
	default:
		return nil
	}
}

// WithView returns a copy of c carrying ohlc under v.
func (c Candle) WithView(v PriceView, ohlc OHLC) Candle {
	cp := ohlc
	switch v {
	case ViewMid:
		c.Mid = &cp
	case ViewBid:
		c.Bid = &cp
	case ViewAsk:
		c.Ask = &cp
	}
	return c
}
