package apihttp

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleMonitorStart(c *gin.Context) {
	s.monitor.Start()
	c.JSON(http.StatusOK, gin.H{"status": "monitoring_started", "active": s.monitor.Active()})
}

func (s *Server) handleMonitorStop(c *gin.Context) {
	s.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "monitoring_stopped", "active": s.monitor.Active()})
}

// handleMonitorTick 供外部调度器驱动一次评估；本身不等待结果。
func (s *Server) handleMonitorTick(c *gin.Context) {
	if !s.monitor.Active() {
		c.JSON(http.StatusOK, gin.H{"status": "inactive"})
		return
	}
	if !s.tasks.Submit("monitor-tick", func(ctx context.Context) error {
		_, err := s.monitor.Tick(ctx)
		return err
	}) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task pool closed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (s *Server) handleMonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Status())
}
