package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/marketdash/internal/assets"
	"github.com/wonny/marketdash/internal/forecast"
	"github.com/wonny/marketdash/internal/marketdata"
	"github.com/wonny/marketdash/internal/portfolio"
	"github.com/wonny/marketdash/internal/report"
	"github.com/wonny/marketdash/internal/strategy"
	"github.com/wonny/marketdash/pkg/logger"
)

// Defaults are the query defaults shared by all handlers
type Defaults struct {
	Period         string
	Interval       string
	RiskFreeRate   float64
	PeriodsPerYear int
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondPNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, assets.ErrUnknownAsset),
		errors.Is(err, report.ErrNoReport):
		return http.StatusNotFound
	case errors.Is(err, marketdata.ErrInvalidPeriod),
		errors.Is(err, marketdata.ErrInvalidInterval),
		errors.Is(err, portfolio.ErrTooFewAssets),
		errors.Is(err, portfolio.ErrUnknownFrequency),
		errors.Is(err, portfolio.ErrInvalidWeight),
		errors.Is(err, strategy.ErrInvalidWindow),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, errBadQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes err with its mapped status; 5xx are logged, details hidden
func respondDomainError(w http.ResponseWriter, log *logger.Logger, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error(msg)
		respondError(w, status, msg)
		return
	}
	respondError(w, status, err.Error())
}

var errBadQuery = errors.New("invalid query parameter")

func queryOr(r *http.Request, key, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		return v
	}
	return def
}

// queryInt returns def when the parameter is absent, errBadQuery when malformed
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadQuery, key, v)
	}
	return n, nil
}

// queryList splits a comma separated parameter, dropping blanks
func queryList(r *http.Request, key string) []string {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseWeights reads "BTC:0.5,ETH:0.3,SOL:0.2".
// Weights must be finite and non-negative.
func parseWeights(raw string) (map[string]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	out := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: weights entry %q (want KEY:VALUE)", errBadQuery, part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: weight for %s", errBadQuery, key)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: weight for %s must be a finite number >= 0", errBadQuery, key)
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = w
	}
	return out, nil
}
