package handler

import (
	"bookkeeping/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Overview summarises income, expenses and profit; the range defaults to the current month
// @Summary      Dashboard overview
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query     string  false  "YYYY-MM-DD"
// @Param        end_date    query     string  false  "YYYY-MM-DD"
// @Success      200         {object}  response.Response{data=service.Overview}
// @Router       /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	res, err := h.dashboardService.Overview(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *DashboardHandler) CashFlow(c *gin.Context) {
	months, valid := intQuery(c, "months")
	if !valid {
		return
	}
	res, err := h.dashboardService.CashFlow(c.Request.Context(), userID(c), months)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *DashboardHandler) RecentTransactions(c *gin.Context) {
	limit, valid := intQuery(c, "limit")
	if !valid {
		return
	}
	res, err := h.dashboardService.RecentTransactions(c.Request.Context(), userID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *DashboardHandler) CategoryBreakdown(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	res, err := h.dashboardService.CategoryBreakdown(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *DashboardHandler) FinancialHealth(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	res, err := h.dashboardService.FinancialHealth(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}
