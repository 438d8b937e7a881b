package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/marketdash/internal/assets"
	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/pkg/logger"
)

// MarketService is the data adapter as seen by the API
type MarketService interface {
	contracts.FrameFetcher
	LatestPrice(ctx context.Context, key string) (float64, error)
	Registry() *assets.Registry
}

// MarketHandler handles asset and price endpoints
// ⭐ SSOT: 시세 API 핸들러는 이 구조체에서만
type MarketHandler struct {
	service  MarketService
	defaults Defaults
	logger   *logger.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(service MarketService, defaults Defaults, log *logger.Logger) *MarketHandler {
	return &MarketHandler{
		service:  service,
		defaults: defaults,
		logger:   log,
	}
}

// PricesResponse is a frame plus the headline price change
type PricesResponse struct {
	Asset     string          `json:"asset"`
	Symbol    string          `json:"symbol"`
	Period    string          `json:"period"`
	Interval  string          `json:"interval"`
	NoData    bool            `json:"no_data"`
	LastPrice *float64        `json:"last_price"`
	ChangePct *float64        `json:"change_pct"` // last vs previous bar
	Bars      []contracts.Bar `json:"bars"`
}

// ListAssets returns the configured assets
// GET /api/assets
func (h *MarketHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.service.Registry().All(),
	})
}

// GetPrices returns the OHLCV frame of one asset
// GET /api/assets/{key}/prices?period=7d&interval=5m
func (h *MarketHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)
	period := queryOr(r, "period", h.defaults.Period)
	interval := queryOr(r, "interval", h.defaults.Interval)

	frame, err := h.service.Fetch(r.Context(), key, period, interval)
	if err != nil {
		respondDomainError(w, h.logger.WithAsset(key), err, "Failed to retrieve prices")
		return
	}

	resp := PricesResponse{
		Asset:    key,
		Symbol:   frame.Symbol,
		Period:   period,
		Interval: interval,
		NoData:   frame.Empty(),
		Bars:     frame.Bars,
	}
	if resp.Bars == nil {
		resp.Bars = []contracts.Bar{}
	}
	if n := len(frame.Bars); n > 0 {
		last := frame.Bars[n-1].Close
		resp.LastPrice = &last
		if n > 1 && frame.Bars[n-2].Close != 0 {
			change := (last - frame.Bars[n-2].Close) / frame.Bars[n-2].Close * 100
			resp.ChangePct = &change
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    resp,
	})
}

// GetLatest returns the latest price of one asset (null when unavailable)
// GET /api/assets/{key}/latest
func (h *MarketHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)

	price, err := h.service.LatestPrice(r.Context(), key)
	if err != nil {
		respondDomainError(w, h.logger.WithAsset(key), err, "Failed to retrieve latest price")
		return
	}

	var value *float64
	if price > 0 {
		value = &price
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"asset": key,
			"price": value,
		},
	})
}

func assetKey(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["key"]))
}
