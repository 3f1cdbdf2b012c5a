package model

import (
	"gorm.io/datatypes"
)

// JournalEntryModel 是实盘调度器的一条下单/平仓流水。
type JournalEntryModel struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RunID       string         `gorm:"column:run_id;index:idx_journal_run,priority:1"`
	Kind        string         `gorm:"column:kind"`
	Instrument  string         `gorm:"column:instrument;index"`
	Instruction string         `gorm:"column:instruction"`
	Units       int64          `gorm:"column:units"`
	Price       float64        `gorm:"column:price"`
	RealizedPL  float64        `gorm:"column:realized_pl"`
	Reference   string         `gorm:"column:reference"`
	RawData     datatypes.JSON `gorm:"column:raw_data;type:TEXT"`
	AtUnix      int64          `gorm:"column:at;index:idx_journal_run,priority:2"`
}

func (JournalEntryModel) TableName() string { return "journal_entries" }
