package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"bookkeeping/internal/analytics"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// --- DTOs ---

type IncomeStatement struct {
	Period        repository.DateRange `json:"period"`
	Revenue       []CategoryTotal      `json:"revenue"`
	TotalRevenue  float64              `json:"total_revenue"`
	Expenses      []CategoryTotal      `json:"expenses"`
	TotalExpenses float64              `json:"total_expenses"`
	GrossProfit   float64              `json:"gross_profit"`
	NetProfit     float64              `json:"net_profit"`
	ProfitMargin  float64              `json:"profit_margin"`
	Tax           TaxTotals            `json:"tax"`
}

type VendorTotal struct {
	Vendor string  `json:"vendor"`
	Count  int64   `json:"count"`
	Total  float64 `json:"total"`
}

type ExpenseBreakdown struct {
	Period     repository.DateRange `json:"period"`
	Categories []CategoryTotal      `json:"categories"`
	TopVendors []VendorTotal        `json:"top_vendors"`
	Total      float64              `json:"total"`
	Count      int64                `json:"count"`
}

// ExportFile is a rendered report ready to be sent as a download
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

const (
	ReportIncomeStatement  = "income-statement"
	ReportExpenseBreakdown = "expense-breakdown"

	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// --- Interface ---

type ReportService interface {
	IncomeStatement(ctx context.Context, userID string, r repository.DateRange) (*IncomeStatement, error)
	ExpenseBreakdown(ctx context.Context, userID string, r repository.DateRange) (*ExpenseBreakdown, error)
	Export(ctx context.Context, userID, reportType, format string, r repository.DateRange) (*ExportFile, error)
}

type reportService struct {
	incomeRepo  repository.IncomeRepository
	expenseRepo repository.ExpenseRepository
	logger      *zap.Logger
	now         func() time.Time
}

func NewReportService(
	incomeRepo repository.IncomeRepository,
	expenseRepo repository.ExpenseRepository,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		incomeRepo:  incomeRepo,
		expenseRepo: expenseRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *reportService) IncomeStatement(ctx context.Context, userID string, r repository.DateRange) (*IncomeStatement, error) {
	r, err := checkRange(r, s.now())
	if err != nil {
		return nil, err
	}

	revenue, err := s.incomeRepo.GroupBy(ctx, userID, "category", r, 0)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenseRepo.GroupBy(ctx, userID, "category", r, 0)
	if err != nil {
		return nil, err
	}

	st := &IncomeStatement{
		Period:   r,
		Revenue:  categoryShares(revenue),
		Expenses: categoryShares(expenses),
	}
	var revenueNet, outputTax, inputTax float64
	for _, g := range revenue {
		st.TotalRevenue += g.TotalSum
		revenueNet += g.AmountSum
		outputTax += g.TaxSum
	}
	var expenseNet float64
	for _, g := range expenses {
		st.TotalExpenses += g.TotalSum
		expenseNet += g.AmountSum
		inputTax += g.TaxSum
	}

	// gross profit excludes the tax collected and paid
	st.GrossProfit = analytics.Round2(revenueNet - expenseNet)
	st.NetProfit = analytics.Round2(st.TotalRevenue - st.TotalExpenses)
	st.ProfitMargin = analytics.Round2(percentOf(st.NetProfit, st.TotalRevenue))
	st.TotalRevenue = analytics.Round2(st.TotalRevenue)
	st.TotalExpenses = analytics.Round2(st.TotalExpenses)
	st.Tax = TaxTotals{
		OutputTax: analytics.Round2(outputTax),
		InputTax:  analytics.Round2(inputTax),
		NetTax:    analytics.Round2(outputTax - inputTax),
	}
	return st, nil
}

func (s *reportService) ExpenseBreakdown(ctx context.Context, userID string, r repository.DateRange) (*ExpenseBreakdown, error) {
	r, err := checkRange(r, s.now())
	if err != nil {
		return nil, err
	}

	groups, err := s.expenseRepo.GroupBy(ctx, userID, "category", r, 0)
	if err != nil {
		return nil, err
	}
	vendors, err := s.expenseRepo.GroupBy(ctx, userID, "vendor", r, 10)
	if err != nil {
		return nil, err
	}

	out := &ExpenseBreakdown{
		Period:     r,
		Categories: categoryShares(groups),
		TopVendors: make([]VendorTotal, 0, len(vendors)),
	}
	for _, g := range groups {
		out.Total += g.TotalSum
		out.Count += g.Count
	}
	out.Total = analytics.Round2(out.Total)
	for _, v := range vendors {
		out.TopVendors = append(out.TopVendors, VendorTotal{Vendor: v.Key, Count: v.Count, Total: analytics.Round2(v.TotalSum)})
	}
	return out, nil
}

// sheet is a report flattened into rows for export
type sheet struct {
	name    string
	headers []string
	rows    [][]interface{}
}

func (s *reportService) Export(ctx context.Context, userID, reportType, format string, r repository.DateRange) (*ExportFile, error) {
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return nil, apperror.Validation("Invalid export format",
			apperror.FieldError{Field: "format", Message: "Must be one of: xlsx csv"})
	}

	var sh sheet
	switch reportType {
	case ReportIncomeStatement:
		st, err := s.IncomeStatement(ctx, userID, r)
		if err != nil {
			return nil, err
		}
		r = st.Period
		sh = incomeStatementSheet(st)
	case ReportExpenseBreakdown:
		eb, err := s.ExpenseBreakdown(ctx, userID, r)
		if err != nil {
			return nil, err
		}
		r = eb.Period
		sh = expenseBreakdownSheet(eb)
	default:
		return nil, apperror.Validation("Invalid report type",
			apperror.FieldError{Field: "type", Message: "Must be one of: income-statement expense-breakdown"})
	}

	base := fmt.Sprintf("%s_%s_%s", reportType, r.Start, r.End)
	if format == FormatCSV {
		data, err := renderCSV(sh)
		if err != nil {
			return nil, err
		}
		return &ExportFile{FileName: base + ".csv", ContentType: "text/csv; charset=utf-8", Data: data}, nil
	}

	data, err := renderXLSX(sh)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("report exported", zap.String("user_id", userID), zap.String("type", reportType), zap.Int("bytes", len(data)))
	return &ExportFile{
		FileName:    base + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

func incomeStatementSheet(st *IncomeStatement) sheet {
	sh := sheet{name: "Income Statement", headers: []string{"Section", "Category", "Count", "Amount", "Tax", "Total", "Share %"}}
	for _, c := range st.Revenue {
		sh.rows = append(sh.rows, []interface{}{"Revenue", c.Name, c.Count, c.AmountSum, c.TaxSum, c.TotalSum, c.Percentage})
	}
	sh.rows = append(sh.rows, []interface{}{"Revenue", "Total", nil, nil, nil, st.TotalRevenue, nil})
	for _, c := range st.Expenses {
		sh.rows = append(sh.rows, []interface{}{"Expenses", c.Name, c.Count, c.AmountSum, c.TaxSum, c.TotalSum, c.Percentage})
	}
	sh.rows = append(sh.rows,
		[]interface{}{"Expenses", "Total", nil, nil, nil, st.TotalExpenses, nil},
		[]interface{}{"Result", "Gross profit", nil, nil, nil, st.GrossProfit, nil},
		[]interface{}{"Result", "Net profit", nil, nil, nil, st.NetProfit, st.ProfitMargin},
		[]interface{}{"Tax", "Output tax", nil, nil, st.Tax.OutputTax, nil, nil},
		[]interface{}{"Tax", "Input tax", nil, nil, st.Tax.InputTax, nil, nil},
		[]interface{}{"Tax", "Net tax", nil, nil, st.Tax.NetTax, nil, nil},
	)
	return sh
}

func expenseBreakdownSheet(eb *ExpenseBreakdown) sheet {
	sh := sheet{name: "Expense Breakdown", headers: []string{"Group", "Name", "Count", "Total", "Share %"}}
	for _, c := range eb.Categories {
		sh.rows = append(sh.rows, []interface{}{"Category", c.Name, c.Count, c.TotalSum, c.Percentage})
	}
	for _, v := range eb.TopVendors {
		sh.rows = append(sh.rows, []interface{}{"Vendor", v.Vendor, v.Count, v.Total, analytics.Round2(percentOf(v.Total, eb.Total))})
	}
	sh.rows = append(sh.rows, []interface{}{"Total", "", eb.Count, eb.Total, nil})
	return sh
}

func renderXLSX(sh sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sh.name); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, h := range sh.headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sh.name, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	for r, row := range sh.rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sh.name, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(len(sh.headers))
	_ = f.SetColWidth(sh.name, "A", last, 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func renderCSV(sh sheet) ([]byte, error) {
	var buf bytes.Buffer
	// UTF-8 BOM for spreadsheet apps
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(&buf)
	if err := w.Write(sh.headers); err != nil {
		return nil, err
	}
	for _, row := range sh.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = csvValue(v)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
