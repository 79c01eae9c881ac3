package handler

import (
	"net/http"

	"bookkeeping/internal/service"
	"bookkeeping/pkg/pagination"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

// Rates lists the business and income tax rates in force
// @Summary      Tax rates
// @Tags         tax
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TaxRates}
// @Router       /tax/rates [get]
func (h *TaxHandler) Rates(c *gin.Context) {
	rates, err := h.taxService.Rates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, rates)
}

// CalculateBusinessTax computes output tax, input credit and the amount payable
// @Summary      Calculate business tax
// @Tags         tax
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BusinessTaxRequest  true  "Sales and purchases"
// @Success      200      {object}  response.Response{data=service.BusinessTaxResult}
// @Failure      400      {object}  response.Response
// @Router       /tax/calculate-business-tax [post]
func (h *TaxHandler) CalculateBusinessTax(c *gin.Context) {
	var req service.BusinessTaxRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.taxService.CalculateBusinessTax(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// CalculateIncomeTax computes personal or enterprise income tax
// @Summary      Calculate income tax
// @Tags         tax
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.IncomeTaxRequest  true  "Annual income"
// @Success      200      {object}  response.Response{data=service.IncomeTaxResult}
// @Failure      400      {object}  response.Response
// @Router       /tax/calculate-income-tax [post]
func (h *TaxHandler) CalculateIncomeTax(c *gin.Context) {
	var req service.IncomeTaxRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.taxService.CalculateIncomeTax(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *TaxHandler) FilingReminders(c *gin.Context) {
	ok(c, h.taxService.FilingReminders(c.Request.Context()))
}

func (h *TaxHandler) History(c *gin.Context) {
	rows, meta, err := h.taxService.History(c.Request.Context(), userID(c), c.Query("type"), pagination.Parse(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(rows, meta))
}

func (h *TaxHandler) Resources(c *gin.Context) {
	ok(c, h.taxService.Resources())
}
