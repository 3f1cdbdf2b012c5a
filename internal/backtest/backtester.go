package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fxbot/internal/signal"
)

// Convention 决定每一步的余额如何变化，在构造时固定。
type Convention string

const (
	// Compounding: BUY 时 result -= m*result，SELL 时 result += m*result。
	Compounding Convention = "compounding"
	// UnitConversion: BUY 时 result -= m*B0/price，SELL 时 result += m*B0/price。
	UnitConversion Convention = "unit_conversion"
)

func ParseConvention(input string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", string(Compounding):
		return Compounding, nil
	case string(UnitConversion), "unit":
		return UnitConversion, nil
	default:
		return "", &ConfigurationError{Field: "convention", Reason: fmt.Sprintf("unsupported value %q", input)}
	}
}

type State string

const (
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
)

// Input 是一次回测的全部输入。Instructions 与 Prices 一一对应。
type Input struct {
	Instrument   string
	Balance      float64
	Margin       float64
	Convention   Convention
	Instructions []signal.Instruction
	Prices       []float64
}

// BackTester 把指令序列逐步应用到初始余额上，只能运行一次。
type BackTester struct {
	in     Input
	state  State
	report Report
	nowFn  func() time.Time
}

func New(in Input) (*BackTester, error) {
	if in.Convention == "" {
		in.Convention = Compounding
	}
	if in.Convention != Compounding && in.Convention != UnitConversion {
		return nil, &ConfigurationError{Field: "convention", Reason: fmt.Sprintf("unsupported value %q", in.Convention)}
	}
	if len(in.Instructions) != len(in.Prices) {
		return nil, &ConfigurationError{
			Field:  "instructions",
			Reason: fmt.Sprintf("length %d does not match prices length %d", len(in.Instructions), len(in.Prices)),
		}
	}
	if in.Margin <= 0 || in.Margin > 1 {
		return nil, &ConfigurationError{Field: "margin", Reason: fmt.Sprintf("must be in (0,1], got %v", in.Margin)}
	}
	if in.Balance <= 0 {
		return nil, &ConfigurationError{Field: "balance", Reason: fmt.Sprintf("must be > 0, got %v", in.Balance)}
	}
	for i, inst := range in.Instructions {
		if !inst.Valid() {
			return nil, &ConfigurationError{Field: "instructions", Reason: fmt.Sprintf("step %d has unknown instruction %q", i, inst)}
		}
	}
	bt := &BackTester{
		in:    in,
		state: StateRunning,
		nowFn: time.Now,
	}
	bt.report = Report{
		ID:             uuid.NewString(),
		Instrument:     in.Instrument,
		Convention:     in.Convention,
		Margin:         in.Margin,
		InitialBalance: in.Balance,
		Result:         in.Balance,
		Steps:          make([]Step, 0, len(in.Prices)),
	}
	return bt, nil
}

func (b *BackTester) State() State {
	return b.state
}

// Report 返回当前报告的副本；运行前只有初始余额。
func (b *BackTester) Report() Report {
	return b.report.clone()
}

// Run 依次处理每一步，结束后进入 DONE。第二次调用返回 ErrAlreadyRun。
func (b *BackTester) Run() (Report, error) {
	if b.state == StateDone {
		return b.Report(), ErrAlreadyRun
	}
	defer func() {
		b.state = StateDone
		b.report.FinishedAt = b.nowFn()
	}()
	b.report.StartedAt = b.nowFn()

	initial := decimal.NewFromFloat(b.in.Balance)
	margin := decimal.NewFromFloat(b.in.Margin)
	result := initial
	for i, inst := range b.in.Instructions {
		price := b.in.Prices[i]
		delta, err := b.stepDelta(i, result, initial, margin, price)
		if err != nil {
			return b.Report(), err
		}
		if inst == signal.Buy {
			result = result.Sub(delta)
		} else {
			result = result.Add(delta)
		}
		b.report.Result = result.InexactFloat64()
		b.report.Steps = append(b.report.Steps, Step{
			Balance:     b.report.Result,
			Price:       price,
			Instruction: inst,
		})
	}
	return b.Report(), nil
}

func (b *BackTester) stepDelta(step int, result, initial, margin decimal.Decimal, price float64) (decimal.Decimal, error) {
	switch b.in.Convention {
	case UnitConversion:
		if price == 0 {
			return decimal.Zero, &ArithmeticDefect{Step: step, Price: price}
		}
		return margin.Mul(initial).Div(decimal.NewFromFloat(price)), nil
	default:
		return margin.Mul(result), nil
	}
}

// InvertPrices 把报价取倒数，用于账户币种等于基础货币的品种。
func InvertPrices(prices []float64) ([]float64, error) {
	out := make([]float64, len(prices))
	one := decimal.NewFromInt(1)
	for i, p := range prices {
		if p == 0 {
			return nil, &ArithmeticDefect{Step: i, Price: p}
		}
		out[i] = one.Div(decimal.NewFromFloat(p)).InexactFloat64()
	}
	return out, nil
}
