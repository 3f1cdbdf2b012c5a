package livehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxbot/internal/backtest"
	"fxbot/internal/scheduler"
	"fxbot/internal/signal"
	"fxbot/internal/strategy"
)

type fixedStatus struct{ st scheduler.Status }

func (f fixedStatus) Status() scheduler.Status { return f.st }

type fixedReports struct {
	report backtest.Report
	ok     bool
	err    error
	asked  string
}

func (f *fixedReports) LatestReport(_ context.Context, instrument string) (backtest.Report, bool, error) {
	f.asked = instrument
	return f.report, f.ok, f.err
}

type fixedJournal struct {
	events map[string][]scheduler.Event
}

func (f fixedJournal) Entries(_ context.Context, runID string) ([]scheduler.Event, error) {
	return f.events[runID], nil
}

func serve(t *testing.T, cfg ServerConfig, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleReport() backtest.Report {
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	return backtest.Report{
		ID: "r1", Instrument: "EUR_USD", Convention: backtest.Compounding, Margin: 0.01,
		InitialBalance: 100, Result: 103.030301, StartedAt: at, FinishedAt: at,
		Steps: []backtest.Step{
			{Balance: 101, Price: 1.1, Instruction: signal.Sell},
			{Balance: 102.01, Price: 1.2, Instruction: signal.Sell},
			{Balance: 103.030301, Price: 1.3, Instruction: signal.Sell},
		},
	}
}

func TestNewServerRequiresProvider(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	rec := serve(t, ServerConfig{Reports: &fixedReports{}}, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLiveStatus(t *testing.T) {
	st := scheduler.Status{RunID: "abc", State: scheduler.StatePolling, Kind: strategy.CrossOver, Instrument: "EUR_USD", Ticks: 4}
	rec := serve(t, ServerConfig{Status: fixedStatus{st: st}}, "/api/live/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got scheduler.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.RunID)
	assert.Equal(t, scheduler.StatePolling, got.State)
	assert.Equal(t, 4, got.Ticks)

	rec = serve(t, ServerConfig{Reports: &fixedReports{}}, "/api/live/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveJournalDefaultsToCurrentRun(t *testing.T) {
	journal := fixedJournal{events: map[string][]scheduler.Event{
		"abc": {{RunID: "abc", Kind: scheduler.EventOpeningOrder, Units: 10}},
	}}
	cfg := ServerConfig{Status: fixedStatus{st: scheduler.Status{RunID: "abc"}}, Journal: journal}
	rec := serve(t, cfg, "/api/live/journal")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID  string            `json:"run_id"`
		Events []scheduler.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc", body.RunID)
	require.Len(t, body.Events, 1)
	assert.Equal(t, int64(10), body.Events[0].Units)
}

func TestLastReport(t *testing.T) {
	reports := &fixedReports{report: sampleReport(), ok: true}
	rec := serve(t, ServerConfig{Reports: reports}, "/api/backtest/last?instrument=EUR_USD")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EUR_USD", reports.asked)

	var body struct {
		Report    backtest.Report `json:"report"`
		Profit    float64         `json:"profit"`
		Favorable bool            `json:"favorable"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "r1", body.Report.ID)
	assert.InDelta(t, 3.030301, body.Profit, 1e-9)
	assert.True(t, body.Favorable)
}

func TestLastReportMissingAndFailing(t *testing.T) {
	rec := serve(t, ServerConfig{Reports: &fixedReports{}}, "/api/backtest/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, ServerConfig{Reports: &fixedReports{err: errors.New("db locked")}}, "/api/backtest/last")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLastChart(t *testing.T) {
	rec := serve(t, ServerConfig{Reports: &fixedReports{report: sampleReport(), ok: true}}, "/api/backtest/last/chart")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "echarts")

	empty := sampleReport()
	empty.Steps = nil
	rec = serve(t, ServerConfig{Reports: &fixedReports{report: empty, ok: true}}, "/api/backtest/last/chart")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
