package handler

import (
	"net/http"

	"bookkeeping/internal/repository"
	"bookkeeping/internal/service"
	"bookkeeping/pkg/pagination"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
)

// ledgerQuery is the list filter shared by the income and expense endpoints
type ledgerQuery struct {
	Status    string `form:"status"`
	Category  string `form:"category"`
	Customer  string `form:"customer"`
	Vendor    string `form:"vendor"`
	StartDate string `form:"start_date" binding:"omitempty,date"`
	EndDate   string `form:"end_date" binding:"omitempty,date"`
}

func (q ledgerQuery) filter() repository.LedgerFilter {
	party := q.Customer
	if party == "" {
		party = q.Vendor
	}
	return repository.LedgerFilter{
		Status:    q.Status,
		Category:  q.Category,
		Party:     party,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	}
}

func listParams(c *gin.Context) (repository.LedgerFilter, pagination.Params, bool) {
	var q ledgerQuery
	if !bindQuery(c, &q) {
		return repository.LedgerFilter{}, pagination.Params{}, false
	}
	return q.filter(), pagination.Parse(c), true
}

type IncomeHandler struct {
	incomeService service.IncomeService
}

func NewIncomeHandler(incomeService service.IncomeService) *IncomeHandler {
	return &IncomeHandler{incomeService: incomeService}
}

// List returns one page of the caller's income records
// @Summary      List income
// @Tags         income
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "received, pending or overdue"
// @Param        category    query     string  false  "Category key"
// @Param        customer    query     string  false  "Customer substring"
// @Param        start_date  query     string  false  "YYYY-MM-DD"
// @Param        end_date    query     string  false  "YYYY-MM-DD"
// @Param        page        query     int     false  "Page number"
// @Param        limit       query     int     false  "Page size (max 100)"
// @Success      200         {object}  response.Response{data=[]model.Income}
// @Router       /income [get]
func (h *IncomeHandler) List(c *gin.Context) {
	filter, p, okParams := listParams(c)
	if !okParams {
		return
	}
	items, meta, err := h.incomeService.List(c.Request.Context(), userID(c), filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(items, meta))
}

func (h *IncomeHandler) Get(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	item, err := h.incomeService.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, item)
}

// Create records a new income entry
// @Summary      Create income
// @Tags         income
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.IncomeRequest  true  "Income"
// @Success      201      {object}  response.Response{data=model.Income}
// @Failure      400      {object}  response.Response
// @Router       /income [post]
func (h *IncomeHandler) Create(c *gin.Context) {
	var req service.IncomeRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.incomeService.Create(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, item)
}

func (h *IncomeHandler) Update(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req service.IncomeRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.incomeService.Update(c.Request.Context(), userID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, item)
}

func (h *IncomeHandler) UpdateStatus(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req service.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.incomeService.UpdateStatus(c.Request.Context(), userID(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, item)
}

func (h *IncomeHandler) Delete(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	if err := h.incomeService.Delete(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(nil, "Income deleted"))
}

func (h *IncomeHandler) Summary(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	summary, err := h.incomeService.Summary(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, summary)
}

func (h *IncomeHandler) ByCustomer(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	limit, valid := intQuery(c, "limit")
	if !valid {
		return
	}
	rows, err := h.incomeService.TopCustomers(c.Request.Context(), userID(c), r, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, rows)
}

type ExpenseHandler struct {
	expenseService service.ExpenseService
}

func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// List returns one page of the caller's expenses
// @Summary      List expenses
// @Tags         expense
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "paid, pending or overdue"
// @Param        category    query     string  false  "Category key"
// @Param        vendor      query     string  false  "Vendor substring"
// @Param        start_date  query     string  false  "YYYY-MM-DD"
// @Param        end_date    query     string  false  "YYYY-MM-DD"
// @Param        page        query     int     false  "Page number"
// @Param        limit       query     int     false  "Page size (max 100)"
// @Success      200         {object}  response.Response{data=[]model.Expense}
// @Router       /expense [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	filter, p, okParams := listParams(c)
	if !okParams {
		return
	}
	items, meta, err := h.expenseService.List(c.Request.Context(), userID(c), filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(items, meta))
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	item, err := h.expenseService.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, item)
}

// Create records a new expense
// @Summary      Create expense
// @Tags         expense
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ExpenseRequest  true  "Expense"
// @Success      201      {object}  response.Response{data=model.Expense}
// @Failure      400      {object}  response.Response
// @Router       /expense [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req service.ExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.expenseService.Create(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, item)
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req service.ExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.expenseService.Update(c.Request.Context(), userID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, item)
}

func (h *ExpenseHandler) UpdateStatus(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	var req service.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.expenseService.UpdateStatus(c.Request.Context(), userID(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, item)
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, valid := idParam(c)
	if !valid {
		return
	}
	if err := h.expenseService.Delete(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(nil, "Expense deleted"))
}

func (h *ExpenseHandler) Summary(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	summary, err := h.expenseService.Summary(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, summary)
}

func (h *ExpenseHandler) ByCategory(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	rows, err := h.expenseService.ByCategory(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, rows)
}

// Trend compares this calendar month's spending with the previous one
func (h *ExpenseHandler) Trend(c *gin.Context) {
	trend, err := h.expenseService.Trend(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, trend)
}
