package backtest

import (
	"errors"
	"fmt"

	"fxbot/internal/signal"
)

// ErrInvalidConfig 与 signal.ErrInvalidConfig 是同一个值。
var ErrInvalidConfig = signal.ErrInvalidConfig

// ErrAlreadyRun 表示同一个 BackTester 被重复执行。
var ErrAlreadyRun = errors.New("backtest: already run")

// ConfigurationError 在构造阶段发现输入不合法时返回。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("backtest config %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

// ArithmeticDefect 表示价格为 0 时无法完成换算。
type ArithmeticDefect struct {
	Step  int
	Price float64
}

func (e *ArithmeticDefect) Error() string {
	return fmt.Sprintf("backtest step %d: cannot divide by price %v", e.Step, e.Price)
}
