// Package httpapi exposes the admin HTTP API: health, metrics, domain
// listing and intake, and a manual cycle trigger.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/services/intake"
	"github.com/haukened/blockwatch/internal/watch/services/monitor"
)

const shutdownTimeout = 5 * time.Second

// Intake adds domains and lists them.
type Intake interface {
	Add(ctx context.Context, list domain.List, raw string) (intake.Result, error)
	Snapshot() domain.Snapshot
}

// Cycler runs and reports monitoring cycles.
type Cycler interface {
	RunCycle(ctx context.Context) domain.AlertBatch
	State() monitor.State
	LastCycle() *monitor.CycleReport
}

type Options struct {
	Addr    string
	Intake  Intake
	Cycler  Cycler
	Metrics http.Handler
	Logger  log.Logger
	// Debug switches gin to debug mode.
	Debug bool
}

// Server wraps a gin engine and its http.Server.
type Server struct {
	addr   string
	engine *gin.Engine
	intake Intake
	cycler Cycler
	logger log.Logger
}

type addDomainRequest struct {
	List   string `json:"list" binding:"required"`
	Domain string `json:"domain" binding:"required"`
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		addr:   opts.Addr,
		engine: gin.New(),
		intake: opts.Intake,
		cycler: opts.Cycler,
		logger: opts.Logger,
	}
	s.engine.Use(gin.Recovery(), s.accessLog())

	s.engine.GET("/healthz", s.health)
	if opts.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/domains", s.listDomains)
		v1.POST("/domains", s.addDomain)
		v1.POST("/check", s.runCheck)
		v1.GET("/status", s.status)
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(map[string]any{"addr": lis.Addr().String()}, "admin http server listening")
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info(nil, "admin http server stopped")
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(map[string]any{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}, "http request")
	}
}

func (s *Server) health(c *gin.Context) {
	state := "unknown"
	if s.cycler != nil {
		state = s.cycler.State().String()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scheduler": state})
}

func (s *Server) listDomains(c *gin.Context) {
	snap := s.intake.Snapshot()
	statuses := snap.Statuses()
	c.JSON(http.StatusOK, gin.H{
		"data":    statuses,
		"total":   len(statuses),
		"blocked": len(snap.Blocked),
	})
}

func (s *Server) addDomain(c *gin.Context) {
	var req addDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := domain.ParseList(req.List)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.intake.Add(c.Request.Context(), list, req.Domain)
	if err != nil {
		var ide *domain.InvalidDomainError
		if errors.As(err, &ide) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": res})
}

func (s *Server) runCheck(c *gin.Context) {
	if s.cycler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not configured"})
		return
	}
	batch := s.cycler.RunCycle(c.Request.Context())
	if batch == nil {
		batch = domain.AlertBatch{}
	}
	c.JSON(http.StatusOK, gin.H{"transitions": batch})
}

func (s *Server) status(c *gin.Context) {
	if s.cycler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":      s.cycler.State().String(),
		"last_cycle": s.cycler.LastCycle(),
	})
}
