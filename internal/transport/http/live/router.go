package livehttp

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fxbot/internal/backtest"
	"fxbot/internal/logger"
	"fxbot/internal/scheduler"
)

// StatusProvider 由调度器实现。
type StatusProvider interface {
	Status() scheduler.Status
}

// ReportProvider 返回最近一次回测报告。
type ReportProvider interface {
	LatestReport(ctx context.Context, instrument string) (backtest.Report, bool, error)
}

// JournalReader 读取某次实盘运行的流水。
type JournalReader interface {
	Entries(ctx context.Context, runID string) ([]scheduler.Event, error)
}

type Router struct {
	status  StatusProvider
	reports ReportProvider
	journal JournalReader
}

func NewRouter(status StatusProvider, reports ReportProvider, journal JournalReader) *Router {
	return &Router{status: status, reports: reports, journal: journal}
}

// Register 挂载 /live 与 /backtest 路由。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/live/status", r.handleStatus)
	group.GET("/live/journal", r.handleJournal)
	group.GET("/backtest/last", r.handleLastReport)
	group.GET("/backtest/last/chart", r.handleLastChart)
}

func (r *Router) handleStatus(c *gin.Context) {
	if r.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live scheduler not running"})
		return
	}
	c.JSON(http.StatusOK, r.status.Status())
}

func (r *Router) handleJournal(c *gin.Context) {
	if r.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	runID := strings.TrimSpace(c.Query("run_id"))
	if runID == "" && r.status != nil {
		runID = r.status.Status().RunID
	}
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	events, err := r.journal.Entries(ctx, runID)
	if err != nil {
		logger.Errorf("[api] journal run=%s failed ip=%s err=%v", runID, c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "events": events})
}

func (r *Router) latest(c *gin.Context) (backtest.Report, bool) {
	if r.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no backtest reports available"})
		return backtest.Report{}, false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	report, ok, err := r.reports.LatestReport(ctx, c.Query("instrument"))
	if err != nil {
		logger.Errorf("[api] latest backtest failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return backtest.Report{}, false
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest report not found"})
		return backtest.Report{}, false
	}
	return report, true
}

func (r *Router) handleLastReport(c *gin.Context) {
	report, ok := r.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":    report,
		"profit":    report.Profit(),
		"favorable": report.Favorable(),
	})
}

func (r *Router) handleLastChart(c *gin.Context) {
	report, ok := r.latest(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := backtest.RenderChart(&buf, report); err != nil {
		logger.Warnf("[api] render chart %s failed: %v", report.ID, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
