package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"fxbot/internal/logger"
	"fxbot/internal/market"
)

// CandleCache 把固定时间区间的蜡烛查询结果存进本地 sqlite，重复回测不再请求远端。
// 只缓存闭区间且全部已收盘的结果；按数量取最近 K 线的请求总是直接透传。
type CandleCache struct {
	inner market.Source
	path  string
	now   func() time.Time

	mu sync.Mutex
	db *sql.DB
}

var _ market.Source = (*CandleCache)(nil)

func NewCandleCache(path string, inner market.Source) (*CandleCache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("candle cache path cannot be empty")
	}
	if inner == nil {
		return nil, fmt.Errorf("candle cache requires an upstream source")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &CandleCache{inner: inner, path: path, now: time.Now, db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candle_cache (
		    cache_key  TEXT PRIMARY KEY,
		    instrument TEXT NOT NULL,
		    rows       INTEGER NOT NULL,
		    payload    TEXT NOT NULL,
		    fetched_at INTEGER NOT NULL
		)`)
	return err
}

func (c *CandleCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *CandleCache) Candles(ctx context.Context, req market.CandleRequest) ([]market.Candle, error) {
	if !c.cacheable(req) {
		return c.inner.Candles(ctx, req)
	}
	key := req.Key()
	cached, ok, err := c.load(ctx, key)
	if err != nil {
		logger.Warnf("candle cache read %s failed: %v", key, err)
	}
	if ok {
		logger.Debugf("candle cache hit %s (%d rows)", key, len(cached))
		return cached, nil
	}
	candles, err := c.inner.Candles(ctx, req)
	if err != nil {
		return nil, err
	}
	if allComplete(candles) {
		if err := c.save(ctx, key, req.Instrument, candles); err != nil {
			logger.Warnf("candle cache write %s failed: %v", key, err)
		}
	}
	return candles, nil
}

// cacheable 只接受终点早于当前时间的闭区间。
func (c *CandleCache) cacheable(req market.CandleRequest) bool {
	if req.Range == nil || req.Range.Open() {
		return false
	}
	return req.Range.To.Before(c.now())
}

func (c *CandleCache) load(ctx context.Context, key string) ([]market.Candle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, false, fmt.Errorf("candle cache closed")
	}
	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM candle_cache WHERE cache_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var candles []market.Candle
	if err := json.Unmarshal([]byte(payload), &candles); err != nil {
		return nil, false, fmt.Errorf("decode cached candles: %w", err)
	}
	return candles, true, nil
}

func (c *CandleCache) save(ctx context.Context, key, instrument string, candles []market.Candle) error {
	payload, err := json.Marshal(candles)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return fmt.Errorf("candle cache closed")
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO candle_cache (cache_key, instrument, rows, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
		    rows=excluded.rows,
		    payload=excluded.payload,
		    fetched_at=excluded.fetched_at`,
		key, strings.ToUpper(instrument), len(candles), string(payload), c.now().Unix())
	return err
}

// Rows 返回某个品种已缓存的查询数，主要给测试和运维查看。
func (c *CandleCache) Rows(ctx context.Context, instrument string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return 0, fmt.Errorf("candle cache closed")
	}
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candle_cache WHERE instrument = ?`, strings.ToUpper(instrument)).Scan(&n)
	return n, err
}

func allComplete(candles []market.Candle) bool {
	for _, c := range candles {
		if !c.Complete {
			return false
		}
	}
	return true
}
