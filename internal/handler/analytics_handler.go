package handler

import (
	"bookkeeping/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Performance(c *gin.Context) {
	res, err := h.analyticsService.Performance(c.Request.Context(), userID(c), c.Query("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AnalyticsHandler) Comparison(c *gin.Context) {
	res, err := h.analyticsService.Comparison(c.Request.Context(), userID(c), c.Query("period_a"), c.Query("period_b"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AnalyticsHandler) CashFlowForecast(c *gin.Context) {
	months, valid := intQuery(c, "months")
	if !valid {
		return
	}
	res, err := h.analyticsService.CashFlowForecast(c.Request.Context(), userID(c), months)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// AnomalyDetection flags transactions whose amount lies far from the ledger mean
// @Summary      Anomaly detection
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        ledger  query     string  false  "income, expense or all"
// @Param        days    query     int     false  "Look-back window in days"
// @Success      200     {object}  response.Response{data=service.AnomalyReport}
// @Router       /analytics/anomaly-detection [get]
func (h *AnalyticsHandler) AnomalyDetection(c *gin.Context) {
	days, valid := intQuery(c, "days")
	if !valid {
		return
	}
	res, err := h.analyticsService.AnomalyDetection(c.Request.Context(), userID(c), c.Query("ledger"), days)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AnalyticsHandler) Profitability(c *gin.Context) {
	res, err := h.analyticsService.Profitability(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}
