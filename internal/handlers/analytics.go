package handlers

import (
	"net/http"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
)

type AnalyticsHandler struct {
	Analytics *services.AnalyticsService
	Stats     *services.StatsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService, stats *services.StatsService) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: analytics, Stats: stats}
}

// Report serves GET /api/analytics?period=day|week|month|all.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	period, err := services.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.Analytics.Report(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}
