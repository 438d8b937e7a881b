package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/wonny/marketdash/internal/report"
	"github.com/wonny/marketdash/pkg/logger"
)

// ReportHandler serves the daily report sink
type ReportHandler struct {
	dir    string
	logger *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(dir string, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		dir:    dir,
		logger: log,
	}
}

// GetLatest returns the most recent report text
// GET /api/reports/latest
func (h *ReportHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	path, content, err := report.Latest(h.dir)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to read report")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"name":    filepath.Base(path),
			"content": string(content),
		},
	})
}
