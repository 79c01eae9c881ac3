package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var august = repository.DateRange{Start: "2024-08-01", End: "2024-08-31"}

func seedAugust(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	_, err := h.incomes.Create(ctx, "u1", IncomeRequest{Date: "2024-08-02", Customer: "Alpha", Description: "x", Category: "sales", Amount: f64(10000), TaxRate: f64(5), Status: model.IncomeStatusReceived})
	require.NoError(t, err)
	_, err = h.expenses.Create(ctx, "u1", ExpenseRequest{Date: "2024-08-03", Vendor: "Landlord", Description: "x", Category: "rent", Amount: f64(4000), TaxRate: f64(5), Status: model.ExpenseStatusPaid})
	require.NoError(t, err)
	h.expense(t, "u1", "2024-08-04", "Cafe", "meals", 1000, model.ExpenseStatusPaid)
	h.expense(t, "u1", "2024-09-01", "Cafe", "meals", 9999, model.ExpenseStatusPaid)
}

func TestReportService_IncomeStatement(t *testing.T) {
	h := newHarness(t)
	seedAugust(t, h)

	st, err := h.reports.IncomeStatement(context.Background(), "u1", august)
	require.NoError(t, err)
	assert.Equal(t, 10500.0, st.TotalRevenue)
	assert.Equal(t, 5200.0, st.TotalExpenses)
	assert.Equal(t, 5000.0, st.GrossProfit)
	assert.Equal(t, 5300.0, st.NetProfit)
	assert.Equal(t, 500.0, st.Tax.OutputTax)
	assert.Equal(t, 200.0, st.Tax.InputTax)
	assert.Equal(t, 300.0, st.Tax.NetTax)

	_, err = h.reports.IncomeStatement(context.Background(), "u1", repository.DateRange{Start: "2024-09-01", End: "2024-08-01"})
	assertKind(t, err, apperror.KindValidation)
}

func TestReportService_ExpenseBreakdown(t *testing.T) {
	h := newHarness(t)
	seedAugust(t, h)

	eb, err := h.reports.ExpenseBreakdown(context.Background(), "u1", august)
	require.NoError(t, err)
	assert.Equal(t, int64(2), eb.Count)
	assert.Equal(t, 5200.0, eb.Total)
	require.Len(t, eb.Categories, 2)
	assert.Equal(t, "rent", eb.Categories[0].Category)
	require.Len(t, eb.TopVendors, 2)
	assert.Equal(t, "Landlord", eb.TopVendors[0].Vendor)
}

func TestReportService_Export(t *testing.T) {
	h := newHarness(t)
	seedAugust(t, h)
	ctx := context.Background()

	xlsx, err := h.reports.Export(ctx, "u1", ReportIncomeStatement, "", august)
	require.NoError(t, err)
	assert.Equal(t, "income-statement_2024-08-01_2024-08-31.xlsx", xlsx.FileName)
	f, err := excelize.OpenReader(bytes.NewReader(xlsx.Data))
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.NotEmpty(t, rows)

	file, err := h.reports.Export(ctx, "u1", ReportExpenseBreakdown, FormatCSV, august)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	data := bytes.TrimPrefix(file.Data, []byte("\xef\xbb\xbf"))
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Greater(t, len(records), 1)

	_, err = h.reports.Export(ctx, "u1", "balance-sheet", FormatCSV, august)
	assertKind(t, err, apperror.KindValidation)
	_, err = h.reports.Export(ctx, "u1", ReportIncomeStatement, "pdf", august)
	assertKind(t, err, apperror.KindValidation)
}

func TestDashboardService(t *testing.T) {
	h := newHarness(t)
	seedAugust(t, h)
	ctx := context.Background()

	ov, err := h.dashboard.Overview(ctx, "u1", august)
	require.NoError(t, err)
	assert.Equal(t, 10500.0, ov.Income.TotalSum)
	assert.Equal(t, 5200.0, ov.Expense.TotalSum)
	assert.Equal(t, 5300.0, ov.NetIncome)
	assert.Equal(t, 5300.0, ov.CashBalance)

	h.dashboard.(*dashboardService).now = fixedClock(time.Date(2024, 9, 15, 0, 0, 0, 0, time.Local))
	months, err := h.dashboard.CashFlow(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, "2024-07", months[0].Month)
	assert.Zero(t, months[0].Income)
	assert.Equal(t, 5300.0, months[1].NetFlow)
	assert.Equal(t, -9999.0, months[2].NetFlow)
	assert.Equal(t, 5300.0-9999.0, months[2].Cumulative)

	recent, err := h.dashboard.RecentTransactions(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	breakdown, err := h.dashboard.CategoryBreakdown(ctx, "u1", august)
	require.NoError(t, err)
	assert.Len(t, breakdown.Expense, 2)

	health, err := h.dashboard.FinancialHealth(ctx, "u1", august)
	require.NoError(t, err)
	assert.NotEmpty(t, health.Recommendations)
}

func TestAnalyticsService(t *testing.T) {
	h := newHarness(t)
	seedAugust(t, h)
	ctx := context.Background()
	h.analytics.(*analyticsService).now = fixedClock(time.Date(2024, 8, 20, 0, 0, 0, 0, time.Local))

	perf, err := h.analytics.Performance(ctx, "u1", "month")
	require.NoError(t, err)
	assert.Equal(t, 10500.0, perf.Current.Revenue)

	_, err = h.analytics.Performance(ctx, "u1", "decade")
	assertKind(t, err, apperror.KindValidation)

	cmp, err := h.analytics.Comparison(ctx, "u1", "2024-08", "2024-09")
	require.NoError(t, err)
	assert.NotNil(t, cmp)

	_, err = h.analytics.Comparison(ctx, "u1", "August", "")
	assertKind(t, err, apperror.KindValidation)

	fc, err := h.analytics.CashFlowForecast(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, fc.Projections, 3)

	_, err = h.analytics.AnomalyDetection(ctx, "u1", "all", 0)
	require.NoError(t, err)

	prof, err := h.analytics.Profitability(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, prof)
}
