package handler

import (
	"net/http"

	"bookkeeping/internal/repository"
	"bookkeeping/internal/service"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
)

type BudgetHandler struct {
	budgetService service.BudgetService
}

func NewBudgetHandler(budgetService service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

type budgetQuery struct {
	Period     string `form:"period" binding:"omitempty,period"`
	BudgetType string `form:"budget_type" binding:"omitempty,oneof=monthly yearly"`
}

// executionRequest optionally overrides the budget's own period
type executionRequest struct {
	Period string `json:"period" form:"period" binding:"omitempty,period"`
}

// List returns the caller's budgets, each with its execution for the budget period
// @Summary      List budgets
// @Tags         budget
// @Produce      json
// @Security     BearerAuth
// @Param        period       query     string  false  "YYYY-MM or YYYY"
// @Param        budget_type  query     string  false  "monthly or yearly"
// @Success      200          {object}  response.Response{data=[]service.BudgetWithExecution}
// @Router       /budget [get]
func (h *BudgetHandler) List(c *gin.Context) {
	var q budgetQuery
	if !bindQuery(c, &q) {
		return
	}
	rows, err := h.budgetService.List(c.Request.Context(), userID(c), repository.BudgetFilter{Period: q.Period, BudgetType: q.BudgetType})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, rows)
}

func (h *BudgetHandler) Get(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	res, err := h.budgetService.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// Create stores a budget together with its first execution
// @Summary      Create budget
// @Tags         budget
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BudgetRequest  true  "Budget"
// @Success      201      {object}  response.Response{data=service.BudgetWithExecution}
// @Failure      400      {object}  response.Response
// @Router       /budget [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	var req service.BudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.budgetService.Create(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, res)
}

func (h *BudgetHandler) Update(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req service.BudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.budgetService.Update(c.Request.Context(), userID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *BudgetHandler) Delete(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	if err := h.budgetService.Delete(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(nil, "Budget deleted"))
}

func (h *BudgetHandler) Categories(c *gin.Context) {
	cats, err := h.budgetService.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, cats)
}

func (h *BudgetHandler) Overview(c *gin.Context) {
	res, err := h.budgetService.Overview(c.Request.Context(), userID(c), c.Param("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// RecomputeExecution recalculates actual spending for the budget; the body may name another period
func (h *BudgetHandler) RecomputeExecution(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req executionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	exec, err := h.budgetService.RecomputeExecution(c.Request.Context(), userID(c), id, req.Period)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, exec)
}

func (h *BudgetHandler) GetExecution(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var q executionRequest
	if !bindQuery(c, &q) {
		return
	}
	exec, err := h.budgetService.GetExecution(c.Request.Context(), userID(c), id, q.Period)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, exec)
}
