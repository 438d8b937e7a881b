package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/internal/forecast"
	"github.com/wonny/marketdash/pkg/logger"
)

// ForecastHandler handles trend projection endpoints
type ForecastHandler struct {
	fetcher  contracts.FrameFetcher
	defaults Defaults
	logger   *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(fetcher contracts.FrameFetcher, defaults Defaults, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		fetcher:  fetcher,
		defaults: defaults,
		logger:   log,
	}
}

// GetForecast projects the recent linear trend of one asset
// GET /api/assets/{key}/forecast?days=5
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)
	log := h.logger.WithAsset(key)

	days, err := queryInt(r, "days", forecast.DefaultDaysAhead)
	if err != nil {
		respondDomainError(w, log, err, "Invalid forecast request")
		return
	}

	frame, err := h.fetcher.Fetch(r.Context(), key,
		queryOr(r, "period", h.defaults.Period),
		queryOr(r, "interval", h.defaults.Interval))
	if err != nil {
		respondDomainError(w, log, err, "Failed to retrieve prices")
		return
	}

	f, err := forecast.Trend(frame, days)
	if errors.Is(err, forecast.ErrNotEnoughData) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"asset": key, "no_data": true},
		})
		return
	}
	if err != nil {
		respondDomainError(w, log, err, "Failed to compute forecast")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    f,
	})
}
