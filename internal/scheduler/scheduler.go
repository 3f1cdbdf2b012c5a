package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fxbot/internal/gateway/exchange"
	"fxbot/internal/logger"
	"fxbot/internal/market"
	"fxbot/internal/signal"
	"fxbot/internal/strategy"
)

type State string

const (
	StateIdle       State = "IDLE"
	StateInitial    State = "INITIAL"
	StatePolling    State = "POLLING"
	StateClosing    State = "CLOSING"
	StateTerminated State = "TERMINATED"
)

var ErrAlreadyStarted = errors.New("scheduler: already started")

// Scheduler 在截止时间前按周期轮询行情并下单，结束前平掉所有可见持仓。
// 轮询是单线程的，同一时刻只有一个 tick 在执行。
type Scheduler struct {
	cfg      strategy.Config
	broker   exchange.Broker
	recorder Recorder
	runID    string

	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration) error

	mu      sync.RWMutex
	status  Status
	account exchange.AccountSnapshot

	// 周末启动时首单推迟到第一个工作日 tick
	openingPending bool
}

type Option func(*Scheduler)

// WithClock 替换时钟，测试里用来模拟周末和截止时间。
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithSleep 替换 tick 之间的等待。
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleepFn = sleep
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

func New(cfg strategy.Config, broker exchange.Broker, opts ...Option) (*Scheduler, error) {
	if broker == nil {
		return nil, fmt.Errorf("scheduler: broker is required")
	}
	cfg, err := strategy.NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:     cfg,
		broker:  broker,
		runID:   uuid.NewString(),
		nowFn:   time.Now,
		sleepFn: sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status = Status{
		RunID:      s.runID,
		State:      StateIdle,
		Kind:       cfg.Kind,
		Instrument: cfg.Instrument,
		Deadline:   cfg.Deadline,
	}
	return s, nil
}

func (s *Scheduler) Config() strategy.Config {
	return s.cfg
}

// Run 阻塞直到进入 TERMINATED。tick 中的经纪商错误会结束轮询，
// 但平仓阶段照常执行，两类错误合并后返回。
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.begin() {
		return ErrAlreadyStarted
	}
	prefix := fmt.Sprintf("scheduler[%s %s]", s.cfg.Instrument, s.cfg.Kind)
	logger.Infof("%s: start run=%s granularity=%s deadline=%s margin=%g",
		prefix, s.runID, s.cfg.Granularity, s.cfg.Deadline.Format(time.RFC3339), s.cfg.Margin)

	runErr := s.initial(ctx)
	if runErr == nil {
		s.setState(StatePolling)
		runErr = s.poll(ctx)
	}
	if runErr != nil {
		s.noteError(runErr)
		logger.Errorf("%s: polling stopped: %v", prefix, runErr)
	}

	s.setState(StateClosing)
	closeErr := s.closeAll(context.WithoutCancel(ctx))
	if closeErr != nil {
		s.noteError(closeErr)
		logger.Errorf("%s: closing finished with errors: %v", prefix, closeErr)
	}

	s.mu.Lock()
	s.status.State = StateTerminated
	s.status.FinishedAt = s.nowFn()
	s.mu.Unlock()
	logger.Infof("%s: terminated ticks=%d orders=%d", prefix, s.Status().Ticks, s.Status().Orders)
	return errors.Join(runErr, closeErr)
}

func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StateIdle {
		return false
	}
	s.status.State = StateInitial
	s.status.StartedAt = s.nowFn()
	return true
}

func (s *Scheduler) initial(ctx context.Context) error {
	snap, err := s.refreshAccount(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.status.StartBalance = snap.Balance
	s.mu.Unlock()
	if _, ok := s.cfg.Kind.OpeningOrder(); !ok {
		return nil
	}
	if now := s.nowFn(); isWeekend(now) {
		logger.Infof("scheduler: %s is weekend, opening order deferred", now.Format(time.RFC3339))
		s.openingPending = true
		return nil
	}
	return s.placeOpeningOrder(ctx, snap.Balance)
}

func (s *Scheduler) placeOpeningOrder(ctx context.Context, balance float64) error {
	inst, _ := s.cfg.Kind.OpeningOrder()
	s.openingPending = false
	return s.placeOrder(ctx, inst, balance, EventOpeningOrder)
}

func (s *Scheduler) poll(ctx context.Context) error {
	interval := s.cfg.Granularity.Duration()
	for {
		now := s.nowFn()
		if !now.Before(s.cfg.Deadline) {
			logger.Infof("scheduler: deadline %s reached", s.cfg.Deadline.Format(time.RFC3339))
			return nil
		}
		if ctx.Err() != nil {
			logger.Infof("scheduler: ctx done, leave polling")
			return nil
		}
		if err := s.tick(ctx, now); err != nil {
			return err
		}
		// 最后一次等待不越过截止时间
		wait := interval
		if remaining := s.cfg.Deadline.Sub(s.nowFn()); remaining < wait {
			wait = max(remaining, 0)
		}
		if err := s.sleepFn(ctx, wait); err != nil {
			logger.Infof("scheduler: wait interrupted: %v", err)
			return nil
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	s.status.Ticks++
	s.status.LastTick = now
	s.mu.Unlock()

	// 周末不做任何经纪商调用
	if isWeekend(now) {
		s.mu.Lock()
		s.status.WeekendTicks++
		s.mu.Unlock()
		logger.Debugf("scheduler: %s is weekend, skip", now.Format(time.RFC3339))
		return nil
	}

	if s.openingPending {
		snap, err := s.refreshAccount(ctx)
		if err != nil {
			return err
		}
		if err := s.placeOpeningOrder(ctx, snap.Balance); err != nil {
			return err
		}
	}

	req := market.CandleRequest{
		Instrument:  s.cfg.Instrument,
		Granularity: s.cfg.Granularity,
		View:        s.cfg.View,
		Count:       s.cfg.Lookback,
	}
	candles, err := call(ctx, s.cfg.CallTimeout, func(ctx context.Context) ([]market.Candle, error) {
		return s.broker.Candles(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	closes := market.ExtractCloses(candles, s.cfg.View)
	inst, ok := strategy.Decide(s.cfg.Kind, s.cfg.Signals, closes)
	if !ok {
		logger.Debugf("scheduler: no decision on %d candles", len(closes))
		return nil
	}
	s.mu.Lock()
	s.status.Decisions++
	s.status.LastDecision = inst
	s.mu.Unlock()
	logger.Infof("scheduler: decision %s %s", inst, s.cfg.Instrument)

	if err := s.closeInstrumentTrades(ctx); err != nil {
		return err
	}
	snap, err := s.refreshAccount(ctx)
	if err != nil {
		return err
	}
	return s.placeOrder(ctx, inst, snap.Balance, EventOrder)
}

func (s *Scheduler) closeInstrumentTrades(ctx context.Context) error {
	trades, err := call(ctx, s.cfg.CallTimeout, s.broker.OpenTrades)
	if err != nil {
		return fmt.Errorf("list open trades: %w", err)
	}
	for _, tr := range trades {
		if tr.Instrument != s.cfg.Instrument {
			continue
		}
		conf, err := call(ctx, s.cfg.CallTimeout, func(ctx context.Context) (exchange.Confirmation, error) {
			return s.broker.CloseTrade(ctx, tr.ID)
		})
		if err != nil {
			return fmt.Errorf("close trade %s: %w", tr.ID, err)
		}
		s.record(ctx, Event{
			Kind:       EventCloseTrade,
			Instrument: tr.Instrument,
			Units:      int64(tr.CurrentUnits),
			Reference:  tr.ID,
			RealizedPL: conf.RealizedPL,
			Raw:        conf.Raw,
		})
	}
	return nil
}

func (s *Scheduler) placeOrder(ctx context.Context, inst signal.Instruction, balance float64, kind EventKind) error {
	units := SizeUnits(s.cfg.Margin, balance, inst)
	if units == 0 {
		logger.Warnf("scheduler: margin %g of balance %.2f rounds to zero units, skip %s", s.cfg.Margin, balance, inst)
		return nil
	}
	req := exchange.OrderRequest{Instrument: s.cfg.Instrument, Units: units, ClientTag: s.runID}
	conf, err := call(ctx, s.cfg.CallTimeout, func(ctx context.Context) (exchange.OrderConfirmation, error) {
		return s.broker.CreateOrder(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("create order %s %d: %w", s.cfg.Instrument, units, err)
	}
	s.mu.Lock()
	s.status.Orders++
	s.mu.Unlock()
	logger.Infof("scheduler: order %s units=%d price=%.5f trade=%s", s.cfg.Instrument, units, conf.Price, conf.TradeID)
	s.record(ctx, Event{
		Kind:        kind,
		Instrument:  s.cfg.Instrument,
		Instruction: inst,
		Units:       units,
		Price:       conf.Price,
		Reference:   conf.TradeID,
		Raw:         conf.Raw,
	})
	return nil
}

// closeAll 平掉所有可见持仓，单个失败不影响其余，错误合并返回。
func (s *Scheduler) closeAll(ctx context.Context) error {
	positions, err := call(ctx, s.cfg.CallTimeout, s.broker.OpenPositions)
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}
	var errs []error
	for _, pos := range positions {
		conf, err := call(ctx, s.cfg.CallTimeout, func(ctx context.Context) (exchange.Confirmation, error) {
			return s.broker.ClosePosition(ctx, pos)
		})
		if err != nil {
			logger.Warnf("scheduler: close position %s failed: %v", pos.Instrument, err)
			errs = append(errs, fmt.Errorf("close position %s: %w", pos.Instrument, err))
			continue
		}
		s.record(ctx, Event{
			Kind:       EventClosePosition,
			Instrument: pos.Instrument,
			Units:      int64(pos.LongUnits + pos.ShortUnits),
			RealizedPL: conf.RealizedPL,
			Raw:        conf.Raw,
		})
	}
	return errors.Join(errs...)
}

func (s *Scheduler) refreshAccount(ctx context.Context) (exchange.AccountSnapshot, error) {
	snap, err := call(ctx, s.cfg.CallTimeout, s.broker.Account)
	if err != nil {
		return exchange.AccountSnapshot{}, fmt.Errorf("refresh account: %w", err)
	}
	s.mu.Lock()
	if snap.Version < s.account.Version {
		logger.Warnf("scheduler: account snapshot went backwards (%d < %d)", snap.Version, s.account.Version)
	}
	s.account = snap
	s.status.LastBalance = snap.Balance
	s.mu.Unlock()
	return snap, nil
}

func (s *Scheduler) record(ctx context.Context, ev Event) {
	if s.recorder == nil {
		return
	}
	ev.RunID = s.runID
	if ev.At.IsZero() {
		ev.At = s.nowFn()
	}
	if err := s.recorder.Record(ctx, ev); err != nil {
		logger.Warnf("scheduler: record %s event failed: %v", ev.Kind, err)
	}
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.status.State = st
	s.mu.Unlock()
}

func (s *Scheduler) noteError(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

// SizeUnits 按 margin*balance 计算下单数量并截断为整数，BUY 为正，SELL 为负。
func SizeUnits(margin, balance float64, inst signal.Instruction) int64 {
	units := decimal.NewFromFloat(margin).Mul(decimal.NewFromFloat(balance)).Truncate(0).IntPart()
	return units * int64(inst.Sign())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// call 给单次经纪商调用加超时。
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
