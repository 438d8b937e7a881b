package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/marketdash/internal/api/handlers"
	"github.com/wonny/marketdash/internal/observability"
	"github.com/wonny/marketdash/pkg/logger"
)

// Handlers groups every endpoint handler
type Handlers struct {
	Market    *handlers.MarketHandler
	Backtest  *handlers.BacktestHandler
	Forecast  *handlers.ForecastHandler
	Portfolio *handlers.PortfolioHandler
	Report    *handlers.ReportHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger, m *observability.Metrics) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Asset endpoints
	api.HandleFunc("/assets", h.Market.ListAssets).Methods("GET")
	api.HandleFunc("/assets/{key}/prices", h.Market.GetPrices).Methods("GET")
	api.HandleFunc("/assets/{key}/latest", h.Market.GetLatest).Methods("GET")
	api.HandleFunc("/assets/{key}/backtest", h.Backtest.GetBacktest).Methods("GET")
	api.HandleFunc("/assets/{key}/backtest/chart", h.Backtest.GetBacktestChart).Methods("GET")
	api.HandleFunc("/assets/{key}/forecast", h.Forecast.GetForecast).Methods("GET")

	// Portfolio endpoints
	api.HandleFunc("/portfolio", h.Portfolio.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/chart", h.Portfolio.GetPortfolioChart).Methods("GET")

	// Report endpoints
	api.HandleFunc("/reports/latest", h.Report.GetLatest).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log, m))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": logger.ServiceName,
	})
}

// statusRecorder captures the response code for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and records request metrics
func loggingMiddleware(log *logger.Logger, m *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			// 경로 변수 대신 라우트 템플릿으로 집계 (라벨 폭증 방지)
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			duration := time.Since(start)
			m.ObserveHTTP(route, r.Method, rec.status, duration)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": duration,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
