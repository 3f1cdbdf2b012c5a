package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"fxbot/internal/gateway/exchange"
	"fxbot/internal/logger"
	"fxbot/internal/pkg/circuit"
)

const (
	defaultBaseURL   = "https://api-fxpractice.oanda.com/v3"
	defaultTimeout   = 15 * time.Second
	defaultRateLimit = 20
	maxErrorBody     = 512
)

type Config struct {
	BaseURL          string
	APIKey           string
	AccountID        string
	HTTPTimeout      time.Duration
	RateLimitPerSec  float64
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = defaultTimeout
	}
	if out.RateLimitPerSec <= 0 {
		out.RateLimitPerSec = defaultRateLimit
	}
	if out.BreakerThreshold <= 0 {
		out.BreakerThreshold = 5
	}
	if out.BreakerCooldown <= 0 {
		out.BreakerCooldown = 30 * time.Second
	}
	return out
}

// Client 是 OANDA v20 REST API 的 exchange.Broker 实现。
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	nowFn   func() time.Time
}

var _ exchange.Broker = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.APIKey) == "" {
		return nil, fmt.Errorf("oanda: api key is required")
	}
	if strings.TrimSpace(final.AccountID) == "" {
		return nil, fmt.Errorf("oanda: account id is required")
	}
	if _, err := url.Parse(final.BaseURL); err != nil {
		return nil, fmt.Errorf("oanda: invalid base url: %w", err)
	}
	burst := int(final.RateLimitPerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     final,
		http:    &http.Client{Timeout: final.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(final.RateLimitPerSec), burst),
		breaker: circuit.New("oanda", final.BreakerThreshold, final.BreakerCooldown),
		nowFn:   time.Now,
	}, nil
}

func (c *Client) Name() string {
	return "oanda"
}

func (c *Client) accountPath(parts ...string) string {
	segs := append([]string{"accounts", url.PathEscape(c.cfg.AccountID)}, parts...)
	return "/" + strings.Join(segs, "/")
}

// do 发送请求并返回 2xx 响应体；其余情况统一包装成 *exchange.BrokerError。
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	var body []byte
	err := c.breaker.Execute(func() error {
		var callErr error
		body, callErr = c.send(ctx, op, method, path, query, payload)
		return callErr
	}, countsAgainstBreaker)
	if errors.Is(err, circuit.ErrOpen) {
		return nil, &exchange.BrokerError{Op: op, Reason: "circuit open", Code: http.StatusServiceUnavailable, Err: exchange.ErrCircuitOpen}
	}
	return body, err
}

func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &exchange.BrokerError{Op: op, Reason: err.Error(), Err: err}
	}
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &exchange.BrokerError{Op: op, Reason: "encode payload: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(raw)
	}
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &exchange.BrokerError{Op: op, Reason: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Datetime-Format", "UNIX")

	start := c.nowFn()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &exchange.BrokerError{Op: op, Reason: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &exchange.BrokerError{Op: op, Reason: "read body: " + err.Error(), Code: resp.StatusCode, Err: err}
	}
	logger.Component("oanda").Debug("request",
		"op", op, "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", c.nowFn().Sub(start).Round(time.Millisecond))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &exchange.BrokerError{Op: op, Reason: errorReason(resp, data), Code: resp.StatusCode}
	}
	return data, nil
}

func errorReason(resp *http.Response, data []byte) string {
	if msg := gjson.GetBytes(data, "errorMessage").String(); msg != "" {
		return msg
	}
	text := strings.TrimSpace(string(data))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return resp.Status
	}
	return text
}

// 4xx 是请求本身的问题，不计入熔断。
func countsAgainstBreaker(err error) bool {
	var be *exchange.BrokerError
	if errors.As(err, &be) {
		return be.Code == 0 || be.Code >= 500
	}
	return true
}

func parseUnixTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if ts := gjson.Parse(raw); ts.Type == gjson.Number {
		f := ts.Float()
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
