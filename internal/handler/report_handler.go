package handler

import (
	"fmt"
	"net/http"

	"bookkeeping/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) IncomeStatement(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	res, err := h.reportService.IncomeStatement(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *ReportHandler) ExpenseBreakdown(c *gin.Context) {
	r, valid := dateRange(c)
	if !valid {
		return
	}
	res, err := h.reportService.ExpenseBreakdown(c.Request.Context(), userID(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

type exportQuery struct {
	Type   string `form:"type"`
	Format string `form:"format"`
}

// Export renders a report as a spreadsheet or CSV download
// @Summary      Export report
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Security     BearerAuth
// @Param        type        query     string  false  "income-statement or expense-breakdown"
// @Param        format      query     string  false  "xlsx or csv"
// @Param        start_date  query     string  false  "YYYY-MM-DD"
// @Param        end_date    query     string  false  "YYYY-MM-DD"
// @Success      200         {file}    file
// @Failure      400         {object}  response.Response
// @Router       /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var q exportQuery
	if !bindQuery(c, &q) {
		return
	}
	r, valid := dateRange(c)
	if !valid {
		return
	}
	if q.Type == "" {
		q.Type = service.ReportIncomeStatement
	}
	if q.Format == "" {
		q.Format = service.FormatXLSX
	}
	file, err := h.reportService.Export(c.Request.Context(), userID(c), q.Type, q.Format, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
