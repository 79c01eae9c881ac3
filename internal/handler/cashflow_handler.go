package handler

import (
	"strconv"

	"bookkeeping/internal/service"
	"bookkeeping/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type CashFlowHandler struct {
	cashFlowService service.CashFlowService
}

func NewCashFlowHandler(cashFlowService service.CashFlowService) *CashFlowHandler {
	return &CashFlowHandler{cashFlowService: cashFlowService}
}

// Forecast projects the daily balance over the next :days days
// @Summary      Cash flow forecast
// @Tags         cashflow
// @Produce      json
// @Security     BearerAuth
// @Param        days  path      int  true  "Horizon in days (1-365)"
// @Success      200   {object}  response.Response{data=service.CashFlowForecast}
// @Failure      400   {object}  response.Response
// @Router       /cashflow/forecast/{days} [get]
func (h *CashFlowHandler) Forecast(c *gin.Context) {
	days, err := strconv.Atoi(c.Param("days"))
	if err != nil {
		respondError(c, apperror.Validation("Invalid forecast horizon",
			apperror.FieldError{Field: "days", Message: "Must be an integer between 1 and 365"}))
		return
	}
	res, err := h.cashFlowService.Forecast(c.Request.Context(), userID(c), days)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *CashFlowHandler) Analysis(c *gin.Context) {
	months, valid := intQuery(c, "months")
	if !valid {
		return
	}
	res, err := h.cashFlowService.Analysis(c.Request.Context(), userID(c), months)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *CashFlowHandler) Alerts(c *gin.Context) {
	alerts, err := h.cashFlowService.Alerts(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, alerts)
}
