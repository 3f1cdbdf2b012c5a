package signal

import (
	"errors"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// Instruction 是策略给出的方向：买入或卖出。
type Instruction string

const (
	Buy  Instruction = "BUY"
	Sell Instruction = "SELL"
)

func (i Instruction) Valid() bool {
	return i == Buy || i == Sell
}

// Opposite 返回反向指令，用于回测末尾的平仓指令。
func (i Instruction) Opposite() Instruction {
	if i == Buy {
		return Sell
	}
	return Buy
}

// Sign 是下单数量的符号：买入为正，卖出为负。
func (i Instruction) Sign() int {
	if i == Buy {
		return 1
	}
	return -1
}

// Signal 把指令绑定到价格序列中的位置。
type Signal struct {
	Index       int         `json:"index"`
	Instruction Instruction `json:"instruction"`
}

const (
	DefaultFastWindow = 3
	DefaultSlowWindow = 15
)

// ErrInvalidConfig 是所有构造期配置错误共用的哨兵，用 errors.Is 判断。
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError 表示窗口参数不合法。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("signal config %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

// Generator 用快慢两条简单均线生成交叉信号。
type Generator struct {
	Fast int
	Slow int
}

func NewGenerator(fast, slow int) (Generator, error) {
	if fast < 1 {
		return Generator{}, &ConfigurationError{Field: "fast_window", Reason: fmt.Sprintf("must be >= 1, got %d", fast)}
	}
	if slow <= fast {
		return Generator{}, &ConfigurationError{Field: "slow_window", Reason: fmt.Sprintf("must be > fast window %d, got %d", fast, slow)}
	}
	return Generator{Fast: fast, Slow: slow}, nil
}

func DefaultGenerator() Generator {
	return Generator{Fast: DefaultFastWindow, Slow: DefaultSlowWindow}
}

// SMA 计算尾随简单均线；窗口未填满的位置为 NaN。
func SMA(prices []float64, window int) []float64 {
	out := make([]float64, len(prices))
	if window < 1 || len(prices) < window {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	raw := talib.Sma(prices, window)
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = raw[i]
	}
	return out
}

// Averages 返回对齐后的快慢均线：只保留两条均线都有值的位置。
// 返回的 offset 是对齐序列第 0 位在原价格序列中的下标。
func (g Generator) Averages(prices []float64) (fast, slow []float64, offset int) {
	f := SMA(prices, g.Fast)
	s := SMA(prices, g.Slow)
	for i := range prices {
		if math.IsNaN(f[i]) || math.IsNaN(s[i]) {
			continue
		}
		if fast == nil {
			offset = i
		}
		fast = append(fast, f[i])
		slow = append(slow, s[i])
	}
	return fast, slow, offset
}

// Crossover 对价格序列计算均线交叉，信号下标使用原序列坐标。
func (g Generator) Crossover(prices []float64) []Signal {
	fast, slow, offset := g.Averages(prices)
	signals := CrossoverAligned(fast, slow)
	for i := range signals {
		signals[i].Index += offset
	}
	return signals
}

// CrossoverAligned 在已对齐的快慢均线上判定交叉，下标为对齐序列坐标。
// 快线上穿慢线给出 SELL，下穿给出 BUY；第 0 位永远没有信号。
func CrossoverAligned(fast, slow []float64) []Signal {
	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}
	var out []Signal
	for i := 1; i < n; i++ {
		switch {
		case fast[i] > slow[i] && fast[i-1] <= slow[i-1]:
			out = append(out, Signal{Index: i, Instruction: Sell})
		case fast[i] < slow[i] && fast[i-1] >= slow[i-1]:
			out = append(out, Signal{Index: i, Instruction: Buy})
		}
	}
	return out
}

// Momentum 对每个 i>=1 给出信号：比前一个价格高则 BUY，否则 SELL。
func Momentum(prices []float64) []Signal {
	if len(prices) < 2 {
		return nil
	}
	out := make([]Signal, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		inst := Sell
		if prices[i] > prices[i-1] {
			inst = Buy
		}
		out = append(out, Signal{Index: i, Instruction: inst})
	}
	return out
}

// Last 返回落在 index 上的信号。
func Last(signals []Signal, index int) (Signal, bool) {
	if len(signals) == 0 {
		return Signal{}, false
	}
	last := signals[len(signals)-1]
	if last.Index != index {
		return Signal{}, false
	}
	return last, true
}
