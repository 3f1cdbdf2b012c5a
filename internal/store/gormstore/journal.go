package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"fxbot/internal/scheduler"
	"fxbot/internal/signal"
	storemodel "fxbot/internal/store/model"
)

type journalEntryModel = storemodel.JournalEntryModel

// Journal 把实盘调度器的下单与平仓事件写入 sqlite（Gorm）。
type Journal struct {
	db *gorm.DB
}

var _ scheduler.Recorder = (*Journal)(nil)

// NewJournal opens (or creates) the journal database at path.
func NewJournal(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	// 走 modernc 的纯 Go 驱动，不依赖 cgo
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewJournalFromDB(db)
}

// NewJournalFromDB 复用已有连接，并确保表结构存在。
func NewJournalFromDB(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: gorm db 不能为空")
	}
	if err := db.AutoMigrate(&journalEntryModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record 实现 scheduler.Recorder。
func (j *Journal) Record(ctx context.Context, ev scheduler.Event) error {
	row := journalEntryModel{
		RunID:       ev.RunID,
		Kind:        string(ev.Kind),
		Instrument:  ev.Instrument,
		Instruction: string(ev.Instruction),
		Units:       ev.Units,
		Price:       ev.Price,
		RealizedPL:  ev.RealizedPL,
		Reference:   ev.Reference,
		RawData:     rawJSON(ev.Raw),
		AtUnix:      ev.At.Unix(),
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

// Entries 按时间顺序返回某次运行的流水。
func (j *Journal) Entries(ctx context.Context, runID string) ([]scheduler.Event, error) {
	var rows []journalEntryModel
	err := j.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, toEvent(row))
	}
	return out, nil
}

func toEvent(m journalEntryModel) scheduler.Event {
	ev := scheduler.Event{
		RunID:       m.RunID,
		Kind:        scheduler.EventKind(m.Kind),
		Instrument:  m.Instrument,
		Instruction: signal.Instruction(m.Instruction),
		Units:       m.Units,
		Price:       m.Price,
		RealizedPL:  m.RealizedPL,
		Reference:   m.Reference,
		At:          time.Unix(m.AtUnix, 0),
	}
	if len(m.RawData) > 0 && string(m.RawData) != "null" {
		ev.Raw = append([]byte(nil), m.RawData...)
	}
	return ev
}

// rawJSON 只保留合法 JSON，其余情况写 null。
func rawJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 || !json.Valid(raw) {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(append([]byte(nil), raw...))
}
