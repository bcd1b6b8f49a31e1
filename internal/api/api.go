// Provides the relay's HTTP surface and server lifecycle.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/erilali/marketrelay/internal/config"
	"github.com/erilali/marketrelay/internal/hub"
	"github.com/erilali/marketrelay/internal/logger"
	"github.com/erilali/marketrelay/internal/source"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

const healthText = "market relay is running"

type Server struct {
	cfg    config.ServerConfig
	hub    *hub.Hub
	source source.Source // nil when no source is configured
	logger *logger.Logger
	router *gin.Engine
	proc   *process.Process
}

// NewServer builds the router around h. src may be nil.
func NewServer(cfg config.ServerConfig, h *hub.Hub, src source.Source, log *logger.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		hub:    h,
		source: src,
		logger: log,
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warnf("Process stats unavailable: %v", err)
	} else {
		s.proc = proc
	}
	s.router = s.setupRouter()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), CORSMiddleware())

	router.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWs(c.Writer, c.Request)
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, healthText)
	})
	router.GET("/api/stats", s.handleStats)

	if s.cfg.StaticDir != "" {
		files := http.FileServer(http.Dir(s.cfg.StaticDir))
		router.NoRoute(gin.WrapH(files))
	}
	return router
}

// CORSMiddleware allows browser subscribers from any origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("HTTP request")
	}
}

type processStats struct {
	RSSMB      float64 `json:"rss_mb"`
	CPUPercent float64 `json:"cpu_percent"`
}

type statsResponse struct {
	Status        string         `json:"status"`
	Clients       int            `json:"clients"`
	Subscriptions map[string]int `json:"subscriptions"`
	Source        string         `json:"source"`
	NATS          string         `json:"nats"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Process       processStats   `json:"process"`
	Goroutines    int            `json:"goroutines"`
}

func (s *Server) handleStats(c *gin.Context) {
	resp := statsResponse{
		Status:        "ok",
		Clients:       s.hub.ClientCount(),
		Subscriptions: s.hub.SubscriptionCount(),
		Source:        config.ModeNone,
		NATS:          "disabled",
		UptimeSeconds: int64(s.hub.Uptime() / time.Second),
		Goroutines:    runtime.NumGoroutine(),
	}
	if s.source != nil {
		resp.Source = s.source.Name()
		if st, ok := s.source.(source.Statuser); ok && s.source.Name() == config.ModeNATS {
			resp.NATS = st.Status()
		}
	}
	if s.proc != nil {
		if mem, err := s.proc.MemoryInfo(); err == nil {
			resp.Process.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
		if cpu, err := s.proc.CPUPercent(); err == nil {
			resp.Process.CPUPercent = cpu
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the event source and the HTTP server on ln. When ctx is done it
// stops the source, shuts the server down and closes every live client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sourceCtx, stopSource := context.WithCancel(ctx)
	defer stopSource()

	var wg sync.WaitGroup
	if s.source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.source.Run(sourceCtx, s.hub); err != nil {
				s.logger.Errorf("Event source %s stopped: %v", s.source.Name(), err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	s.logger.Infof("Server started at %s", ln.Addr())

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	s.logger.Info("Shutting down")
	stopSource()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnf("HTTP shutdown: %v", err)
	}
	s.hub.CloseAll()
	wg.Wait()
	return runErr
}
