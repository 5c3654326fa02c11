package httpapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/history"
	"github.com/science/HotTubController-sub005/internal/webresponse"
)

const defaultHistoryLimit = 50

// HistoryHandler serves the supplementary GET /api/history endpoint
// introduced alongside the core, per SPEC_FULL.md §4.13 — a read-only
// view over the non-authoritative audit trail.
type HistoryHandler struct {
	store *history.Store
}

func (h *HistoryHandler) Recent(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.store.Recent(limit)
	if err != nil {
		return apperror.Internal("reading history: " + err.Error())
	}
	return webresponse.OK(c, map[string]any{"records": records})
}
