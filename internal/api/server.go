package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/marketdash/internal/observability"
	"github.com/wonny/marketdash/pkg/config"
	"github.com/wonny/marketdash/pkg/logger"
)

// Server represents the HTTP API server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer    *http.Server
	metricsServer *http.Server
	logger        *logger.Logger
	config        *config.Config
}

// New creates a new API server. The /metrics server is only created when metrics are enabled.
func New(cfg *config.Config, log *logger.Logger, router http.Handler, m *observability.Metrics) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second, // portfolio fetches several assets upstream
			IdleTimeout:  60 * time.Second,
		},
		logger: log,
		config: cfg,
	}

	if cfg.MetricsEnabled && m != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		s.metricsServer = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return s
}

// Start starts the HTTP server (and the metrics server in the background)
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"port": s.config.Port,
		"env":  s.config.Env,
	}).Info("Starting API server")

	if s.metricsServer != nil {
		go func() {
			s.logger.WithField("port", s.config.MetricsPort).Info("Starting metrics server")
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to shutdown metrics server")
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
