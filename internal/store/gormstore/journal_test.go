package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxbot/internal/scheduler"
	"fxbot/internal/signal"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal", "fx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRecordsEventsInOrder(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, scheduler.Event{
		RunID: "run-1", Kind: scheduler.EventOpeningOrder, Instrument: "EUR_USD",
		Instruction: signal.Buy, Units: 100, Price: 1.0712, Reference: "42",
		Raw: []byte(`{"orderFillTransaction":{"id":"42"}}`), At: at,
	}))
	require.NoError(t, j.Record(ctx, scheduler.Event{
		RunID: "run-1", Kind: scheduler.EventCloseTrade, Instrument: "EUR_USD",
		RealizedPL: 1.5, Reference: "43", Raw: []byte("not json"), At: at.Add(time.Minute),
	}))
	require.NoError(t, j.Record(ctx, scheduler.Event{RunID: "run-2", Kind: scheduler.EventOrder, At: at}))

	events, err := j.Entries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, scheduler.EventOpeningOrder, events[0].Kind)
	assert.Equal(t, signal.Buy, events[0].Instruction)
	assert.Equal(t, int64(100), events[0].Units)
	assert.JSONEq(t, `{"orderFillTransaction":{"id":"42"}}`, string(events[0].Raw))
	assert.True(t, events[0].At.Equal(at))
	assert.Equal(t, scheduler.EventCloseTrade, events[1].Kind)
	assert.InDelta(t, 1.5, events[1].RealizedPL, 1e-12)
	assert.Nil(t, events[1].Raw)
}
