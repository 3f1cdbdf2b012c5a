package strategy

import (
	"fmt"
	"strings"
	"time"

	"fxbot/internal/market"
	"fxbot/internal/signal"
)

// Kind 是策略变体的标签。
type Kind string

const (
	// FollowMarket 每个 tick 跟随最近一次价格变动方向（momentum）。
	FollowMarket Kind = "follow_market"
	// CrossOver 只在快慢均线交叉时动作。
	CrossOver Kind = "crossover"
)

func ParseKind(input string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(FollowMarket), "follow-the-market", "follow":
		return FollowMarket, nil
	case string(CrossOver), "cross_over", "sma":
		return CrossOver, nil
	default:
		return "", fmt.Errorf("unsupported strategy kind: %q", input)
	}
}

// OpeningOrder 返回进入轮询前要下的首单方向；CrossOver 不下首单。
func (k Kind) OpeningOrder() (signal.Instruction, bool) {
	if k == FollowMarket {
		return signal.Buy, true
	}
	return "", false
}

// Decide 在收盘价序列的最后一个位置上求值，没有决策时返回 false。
func Decide(kind Kind, gen signal.Generator, closes []float64) (signal.Instruction, bool) {
	if len(closes) == 0 {
		return "", false
	}
	latest := len(closes) - 1
	var signals []signal.Signal
	switch kind {
	case CrossOver:
		signals = gen.Crossover(closes)
	case FollowMarket:
		signals = signal.Momentum(closes)
	default:
		return "", false
	}
	s, ok := signal.Last(signals, latest)
	if !ok {
		return "", false
	}
	return s.Instruction, true
}

const (
	DefaultLookback    = 30
	DefaultCallTimeout = 15 * time.Second
)

// Config 是一次实盘运行的不可变参数，由 NewConfig 校验后得到。
type Config struct {
	Kind        Kind
	Instrument  string
	Granularity market.Granularity
	View        market.PriceView
	Deadline    time.Time
	Margin      float64
	Lookback    int
	CallTimeout time.Duration
	Signals     signal.Generator
}

func NewConfig(c Config) (Config, error) {
	c.Instrument = strings.ToUpper(strings.TrimSpace(c.Instrument))
	if c.Instrument == "" {
		return Config{}, fmt.Errorf("strategy: instrument is required: %w", signal.ErrInvalidConfig)
	}
	if c.Kind != FollowMarket && c.Kind != CrossOver {
		return Config{}, fmt.Errorf("strategy: unsupported kind %q: %w", c.Kind, signal.ErrInvalidConfig)
	}
	if !c.Granularity.Valid() {
		return Config{}, fmt.Errorf("strategy: unsupported granularity %q: %w", c.Granularity, signal.ErrInvalidConfig)
	}
	if c.View == "" {
		c.View = market.ViewMid
	}
	if c.Margin <= 0 || c.Margin > 1 {
		return Config{}, fmt.Errorf("strategy: margin must be in (0,1], got %v: %w", c.Margin, signal.ErrInvalidConfig)
	}
	if c.Deadline.IsZero() {
		return Config{}, fmt.Errorf("strategy: close deadline is required: %w", signal.ErrInvalidConfig)
	}
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.Signals == (signal.Generator{}) {
		c.Signals = signal.DefaultGenerator()
	}
	gen, err := signal.NewGenerator(c.Signals.Fast, c.Signals.Slow)
	if err != nil {
		return Config{}, err
	}
	c.Signals = gen
	if c.Kind == CrossOver && c.Lookback < gen.Slow+1 {
		return Config{}, fmt.Errorf("strategy: lookback %d too short for slow window %d: %w", c.Lookback, gen.Slow, signal.ErrInvalidConfig)
	}
	return c, nil
}

// BaseCurrency 取品种的基础货币，如 GBP_USD -> GBP。
func BaseCurrency(instrument string) string {
	base, _, _ := strings.Cut(strings.ToUpper(instrument), "_")
	return base
}

// QuoteCurrency 取品种的计价货币，如 GBP_USD -> USD。
func QuoteCurrency(instrument string) string {
	_, quote, ok := strings.Cut(strings.ToUpper(instrument), "_")
	if !ok {
		return ""
	}
	return quote
}
