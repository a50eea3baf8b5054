package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"niftyfib/internal/logger"

	"github.com/gin-gonic/gin"
)

var log = logger.Tag("http")

// Server 提供回测、报告与实时监控的 HTTP API。
type Server struct {
	addr       string
	router     *gin.Engine
	runner     BacktestRunner
	dispatcher Dispatcher
	monitor    LiveMonitor
	recipients Recipients
	tasks      TaskRunner
}

// Config 描述 HTTP Server 的依赖。
type Config struct {
	Addr       string
	Runner     BacktestRunner
	Dispatcher Dispatcher
	Monitor    LiveMonitor
	Recipients Recipients
	Tasks      TaskRunner
}

// NewServer 构建 HTTP Server。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner 不能为空")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher 不能为空")
	}
	if cfg.Monitor == nil {
		return nil, errors.New("monitor 不能为空")
	}
	if cfg.Tasks == nil {
		return nil, errors.New("task runner 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9000"
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:       cfg.Addr,
		router:     router,
		runner:     cfg.Runner,
		dispatcher: cfg.Dispatcher,
		monitor:    cfg.Monitor,
		recipients: cfg.Recipients,
		tasks:      cfg.Tasks,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	bt := api.Group("/backtest")
	bt.GET("", s.handleResults)
	bt.GET("/status", s.handleStatus)
	bt.POST("/run", s.handleRunBacktest)
	bt.GET("/report", s.handleReport)
	bt.GET("/history", s.handleHistory)
	bt.GET("/history/:id", s.handleHistoryDetail)

	api.POST("/report/send", s.handleSendReport)
	api.POST("/alerts/test", s.handleTestAlert)

	mon := api.Group("/monitor")
	mon.POST("/start", s.handleMonitorStart)
	mon.POST("/stop", s.handleMonitorStop)
	mon.POST("/tick", s.handleMonitorTick)
	mon.GET("/status", s.handleMonitorStatus)

	// 旧看板使用的 GET 入口
	s.router.GET("/run_backtest", s.handleRunBacktest)
	s.router.GET("/send_backtest_report", s.handleSendReport)
	s.router.GET("/test_trigger", s.handleTestAlert)
	s.router.GET("/start_monitoring", s.handleMonitorStart)
	s.router.GET("/stop_monitoring", s.handleMonitorStop)
}

// Handler 暴露路由，便于 httptest。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path = path + "?" + query
		}
		c.Next()
		log.Debugf("%s %s status=%d ip=%s dur=%s",
			c.Request.Method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) recipientList() []string {
	if s.recipients == nil {
		return nil
	}
	return s.recipients.List()
}
