package scheduler

import (
	"context"
	"time"

	"fxbot/internal/signal"
	"fxbot/internal/strategy"
)

// Status 是调度器状态的只读副本，可以在其他 goroutine 中读取。
type Status struct {
	RunID        string             `json:"run_id"`
	State        State              `json:"state"`
	Kind         strategy.Kind      `json:"kind"`
	Instrument   string             `json:"instrument"`
	Deadline     time.Time          `json:"deadline"`
	StartBalance float64            `json:"start_balance"`
	LastBalance  float64            `json:"last_balance"`
	Ticks        int                `json:"ticks"`
	WeekendTicks int                `json:"weekend_ticks"`
	Decisions    int                `json:"decisions"`
	Orders       int                `json:"orders"`
	LastTick     time.Time          `json:"last_tick,omitempty"`
	LastDecision signal.Instruction `json:"last_decision,omitempty"`
	LastError    string             `json:"last_error,omitempty"`
	StartedAt    time.Time          `json:"started_at,omitempty"`
	FinishedAt   time.Time          `json:"finished_at,omitempty"`
}

func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

type EventKind string

const (
	EventOpeningOrder  EventKind = "opening_order"
	EventOrder         EventKind = "order"
	EventCloseTrade    EventKind = "close_trade"
	EventClosePosition EventKind = "close_position"
)

// Event 描述一次已被经纪商确认的下单或平仓。
type Event struct {
	RunID       string
	Kind        EventKind
	Instrument  string
	Instruction signal.Instruction
	Units       int64
	Price       float64
	RealizedPL  float64
	Reference   string
	Raw         []byte
	At          time.Time
}

// Recorder 接收调度器产生的事件，写入失败只记日志。
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
