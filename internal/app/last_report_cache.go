package app

import (
	"context"
	"strings"
	"sync"

	"fxbot/internal/backtest"
)

// lastReportCache 缓存每个品种最近一次回测报告，只在进程内存活。
type lastReportCache struct {
	mu     sync.RWMutex
	data   map[string]backtest.Report // key: instrument upper
	latest string
}

func newLastReportCache() *lastReportCache {
	return &lastReportCache{data: make(map[string]backtest.Report)}
}

func (c *lastReportCache) Set(r backtest.Report) {
	if c == nil {
		return
	}
	inst := strings.ToUpper(strings.TrimSpace(r.Instrument))
	c.mu.Lock()
	c.data[inst] = r
	c.latest = inst
	c.mu.Unlock()
}

// LatestReport 实现 livehttp.ReportProvider；instrument 为空时返回最后写入的一份。
func (c *lastReportCache) LatestReport(_ context.Context, instrument string) (backtest.Report, bool, error) {
	if c == nil {
		return backtest.Report{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := strings.ToUpper(strings.TrimSpace(instrument))
	if key == "" {
		key = c.latest
	}
	r, ok := c.data[key]
	if !ok {
		return backtest.Report{}, false, nil
	}
	r.Steps = append([]backtest.Step(nil), r.Steps...)
	return r, true, nil
}
