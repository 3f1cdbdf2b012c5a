package market

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TimeRange 是可选的起止时间，零值表示该端不限。
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) Open() bool {
	return r.From.IsZero() || r.To.IsZero()
}

// CandleRequest 描述一次蜡烛查询。Range 为 nil 时只按 Count 取最近的 K 线。
type CandleRequest struct {
	Instrument  string
	Granularity Granularity
	View        PriceView
	Range       *TimeRange
	Count       int
}

func (r CandleRequest) Validate() error {
	if strings.TrimSpace(r.Instrument) == "" {
		return fmt.Errorf("candle request: instrument is required")
	}
	if !r.Granularity.Valid() {
		return fmt.Errorf("candle request: unsupported granularity %q", r.Granularity)
	}
	switch r.View {
	case ViewMid, ViewBid, ViewAsk:
	default:
		return fmt.Errorf("candle request: unsupported view %q", r.View)
	}
	if r.Range != nil && !r.Range.From.IsZero() && !r.Range.To.IsZero() && r.Range.To.Before(r.Range.From) {
		return fmt.Errorf("candle request: range end %s before start %s", r.Range.To, r.Range.From)
	}
	if r.Count < 0 {
		return fmt.Errorf("candle request: count must be >= 0")
	}
	return nil
}

// Key 作为缓存主键使用。
func (r CandleRequest) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s@%s@%s", strings.ToUpper(r.Instrument), r.Granularity, r.View)
	if r.Range != nil {
		if !r.Range.From.IsZero() {
			fmt.Fprintf(&b, "@from=%d", r.Range.From.Unix())
		}
		if !r.Range.To.IsZero() {
			fmt.Fprintf(&b, "@to=%d", r.Range.To.Unix())
		}
	}
	if r.Count > 0 {
		fmt.Fprintf(&b, "@count=%d", r.Count)
	}
	return b.String()
}

// Source 是蜡烛数据的提供者：经纪商、交易所或本地缓存。
type Source interface {
	Candles(ctx context.Context, req CandleRequest) ([]Candle, error)
}

// SourceFunc 让普通函数满足 Source。
type SourceFunc func(ctx context.Context, req CandleRequest) ([]Candle, error)

func (f SourceFunc) Candles(ctx context.Context, req CandleRequest) ([]Candle, error) {
	return f(ctx, req)
}
