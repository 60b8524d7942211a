// Package api wires the gin HTTP server around the resolver.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/cloudshipai/gitconfd/internal/api/v1"
	"github.com/cloudshipai/gitconfd/internal/config"
	"github.com/cloudshipai/gitconfd/internal/logging"
	"github.com/cloudshipai/gitconfd/internal/materializer/resolver"
	"github.com/cloudshipai/gitconfd/internal/metrics"
)

// Server owns the HTTP listener.
type Server struct {
	httpServer *http.Server
}

// New builds a Server bound to cfg.Address:cfg.Port, exposing the request
// surface's four operations plus the health check and legacy route.
func New(cfg *config.Config, res *resolver.Resolver, sink metrics.Sink) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.Datadog {
		router.Use(requestTimer(sink))
	}

	v1.New(res, cfg.Strict).RegisterRoutes(router)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
			Handler: router,
		},
	}
}

// Start runs the HTTP listener until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("gitconfd listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// timedWriter wraps gin's ResponseWriter so the X-Response-Time header can
// be attached at the moment the status line is about to be flushed —
// setting it after the handler returns would be too late for bodies
// already written by c.JSON/c.String.
type timedWriter struct {
	gin.ResponseWriter
	start   time.Time
	sink    metrics.Sink
	path    string
	flushed bool
}

func (w *timedWriter) WriteHeader(code int) {
	if !w.flushed {
		w.flushed = true
		elapsed := time.Since(w.start)
		w.ResponseWriter.Header().Set("X-Response-Time", fmt.Sprintf("%d ms", elapsed.Milliseconds()))
		w.sink.Gauge("request_time", float64(elapsed.Milliseconds()), "path:"+w.path)
	}
	w.ResponseWriter.WriteHeader(code)
}

// requestTimer emits the request_time gauge and X-Response-Time header
// for every path except the health check.
func requestTimer(sink metrics.Sink) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/ok" {
			c.Next()
			return
		}
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: time.Now(), sink: sink, path: c.Request.URL.Path}
		c.Next()
	}
}
