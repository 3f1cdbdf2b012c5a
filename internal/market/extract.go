package market

// fallbackOrder 是请求视图缺失时依次尝试的顺序。
var fallbackOrder = []PriceView{ViewMid, ViewBid, ViewAsk}

// ExtractCloses 把蜡烛序列转换成收盘价序列，长度和顺序与输入一致。
// 请求的视图缺失时依次回退到 mid、bid、ask；全部缺失时该位置为 0。
func ExtractCloses(candles []Candle, view PriceView) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = closeOf(c, view)
	}
	return out
}

func closeOf(c Candle, view PriceView) float64 {
	if ohlc := c.View(view); ohlc != nil {
		return ohlc.Close
	}
	for _, v := range fallbackOrder {
		if ohlc := c.View(v); ohlc != nil {
			return ohlc.Close
		}
	}
	// 没有任何视图时返回 0，不报错
	return 0.0
}

// PriceSet 是同一时间轴上的三条收盘价序列。
type PriceSet struct {
	Mid []float64
	Bid []float64
	Ask []float64
}

func (p PriceSet) Len() int {
	return len(p.Mid)
}

// ExtractSeries 一次性取出三个视图的收盘价，缺失视图按 ExtractCloses 的规则回退。
func ExtractSeries(candles []Candle) PriceSet {
	return PriceSet{
		Mid: ExtractCloses(candles, ViewMid),
		Bid: ExtractCloses(candles, ViewBid),
		Ask: ExtractCloses(candles, ViewAsk),
	}
}

// MergeViews 按时间把分别拉取的 mid/bid/ask 蜡烛合并到同一根蜡烛上。
// 以 mid 序列的时间轴为准，另外两个视图中找不到对应时间的位置保持缺失。
func MergeViews(mid, bid, ask []Candle) []Candle {
	base := mid
	if len(base) == 0 {
		base = bid
	}
	if len(base) == 0 {
		base = ask
	}
	index := func(src []Candle, v PriceView) map[int64]*OHLC {
		m := make(map[int64]*OHLC, len(src))
		for _, c := range src {
			if o := c.View(v); o != nil {
				m[c.Time.Unix()] = o
			}
		}
		return m
	}
	mids := index(mid, ViewMid)
	bids := index(bid, ViewBid)
	asks := index(ask, ViewAsk)
	out := make([]Candle, len(base))
	for i, c := range base {
		ts := c.Time.Unix()
		merged := Candle{Time: c.Time, Volume: c.Volume, Complete: c.Complete}
		merged.Mid = mids[ts]
		merged.Bid = bids[ts]
		merged.Ask = asks[ts]
		out[i] = merged
	}
	return out
}
