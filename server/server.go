// Package server hosts the operational HTTP surface: health and metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/kokoro/internal/profile"
	"github.com/hrygo/kokoro/internal/version"
	"github.com/hrygo/kokoro/server/metrics"
)

// Server serves /healthz and /metrics. The conversational surface lives in
// the Telegram frontend; this listener is for operators only.
type Server struct {
	echo    *echo.Echo
	profile *profile.Profile

	// Collector is handed to the engine at wiring time.
	Collector *metrics.Collector
}

func NewServer(profile *profile.Profile) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		echo:      e,
		profile:   profile,
		Collector: metrics.NewCollector(registry),
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready. version: "+version.GetCurrentVersion(profile.Mode))
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return s
}

// Start listens in a goroutine and returns immediately.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	go func() {
		if err := s.echo.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped unexpectedly", "error", err)
		}
	}()
	slog.Info("http server listening", "address", address)
	return nil
}

// Shutdown drains in-flight requests with a short deadline.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
}
