package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"niftyfib/internal/backtest"
	"niftyfib/internal/signal"

	"github.com/gin-gonic/gin"
)

const maxResultsLimit = 500

func (s *Server) handleResults(c *gin.Context) {
	limit, ok := parseLimit(c, backtest.DefaultResultsLimit)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, signal.Views(s.runner.Results(limit)))
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Status())
}

func (s *Server) handleRunBacktest(c *gin.Context) {
	if s.runner.Status().Running {
		c.JSON(http.StatusAccepted, gin.H{"status": "already_running"})
		return
	}
	submitted := s.tasks.Submit("backtest", func(ctx context.Context) error {
		_, err := s.runner.Run(ctx)
		if errors.Is(err, backtest.ErrRunInProgress) {
			return nil
		}
		return err
	})
	if !submitted {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task pool closed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) handleReport(c *gin.Context) {
	run := s.runner.Current()
	if run == nil {
		c.JSON(http.StatusOK, gin.H{"status": "no_data"})
		return
	}
	c.JSON(http.StatusOK, backtest.Summarize(run))
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, ok := parseLimit(c, 50)
	if !ok {
		return
	}
	entries, err := s.runner.History(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, backtest.ErrHistoryDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "历史存储未启用"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": entries})
}

func (s *Server) handleHistoryDetail(c *gin.Context) {
	entry, err := s.runner.HistoryRun(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, entry)
	case errors.Is(err, backtest.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
	case errors.Is(err, backtest.ErrHistoryDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "历史存储未启用"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleSendReport(c *gin.Context) {
	run := s.runner.Current()
	if run == nil || len(run.Records) == 0 {
		log.Warnf("没有回测数据，忽略报告发送请求")
		c.JSON(http.StatusOK, gin.H{"status": "no_data"})
		return
	}
	recipients := s.recipientList()
	if !s.tasks.Submit("backtest-report", func(ctx context.Context) error {
		return s.dispatcher.SendBacktestReport(ctx, recipients, run)
	}) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task pool closed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "recipients": len(recipients)})
}

func (s *Server) handleTestAlert(c *gin.Context) {
	recipients := s.recipientList()
	if !s.tasks.Submit("test-alert", func(ctx context.Context) error {
		return s.dispatcher.SendTestAlert(ctx, recipients)
	}) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task pool closed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "recipients": len(recipients)})
}

// parseLimit 读取 ?limit=，缺省时用 def，非法值返回 400。
func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须为正整数"})
		return 0, false
	}
	if limit > maxResultsLimit {
		limit = maxResultsLimit
	}
	return limit, true
}
