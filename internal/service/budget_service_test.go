package service

import (
	"context"
	"testing"

	"bookkeeping/internal/model"
	"bookkeeping/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionStatus(t *testing.T) {
	assert.Equal(t, model.ExecutionNormal, executionStatus(decimal.RequireFromString("79.99")))
	assert.Equal(t, model.ExecutionWarning, executionStatus(decimal.NewFromInt(80)))
	assert.Equal(t, model.ExecutionWarning, executionStatus(decimal.RequireFromString("99.99")))
	assert.Equal(t, model.ExecutionExceeded, executionStatus(decimal.NewFromInt(100)))
	assert.True(t, usagePercentage(decimal.NewFromInt(5), decimal.Zero).IsZero())
}

func TestBudgetUsage_ZeroAmount(t *testing.T) {
	usage, status := budgetUsage(decimal.NewFromInt(5000), decimal.Zero)
	assert.True(t, usage.IsZero())
	assert.Equal(t, model.ExecutionExceeded, status)

	usage, status = budgetUsage(decimal.Zero, decimal.Zero)
	assert.True(t, usage.IsZero())
	assert.Equal(t, model.ExecutionNormal, status)

	usage, status = budgetUsage(decimal.NewFromInt(40), decimal.NewFromInt(50))
	assert.True(t, decimal.NewFromInt(80).Equal(usage))
	assert.Equal(t, model.ExecutionWarning, status)
}

func TestBudgetService_ZeroBudgetWithSpendIsExceeded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.expense(t, "u1", "2024-08-03", "Store", "office_supplies", 5000, model.ExpenseStatusPaid)

	b, err := h.budgets.Create(ctx, "u1", BudgetRequest{
		Name: "Frozen", Category: "office_supplies", BudgetType: model.BudgetMonthly, Amount: f64(0), Period: "2024-08",
	})
	require.NoError(t, err)
	require.NotNil(t, b.Execution)
	assert.True(t, b.Execution.UsagePercentage.IsZero())
	assert.Equal(t, model.ExecutionExceeded, b.Execution.Status)
	assert.Equal(t, 1, h.notifier.count())
}

func TestBudgetService_Execution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.expense(t, "u1", "2024-08-03", "Store", "office_supplies", 5000, model.ExpenseStatusPaid)
	h.expense(t, "u1", "2024-08-20", "Store", "office_supplies", 3500, model.ExpenseStatusPending)
	h.expense(t, "u1", "2024-07-31", "Store", "office_supplies", 9999, model.ExpenseStatusPaid)
	h.expense(t, "u1", "2024-08-10", "Landlord", "rent", 7777, model.ExpenseStatusPaid)
	h.expense(t, "u2", "2024-08-10", "Store", "office_supplies", 1234, model.ExpenseStatusPaid)

	b, err := h.budgets.Create(ctx, "u1", BudgetRequest{
		Name: "Office", Category: "辦公用品", BudgetType: model.BudgetMonthly, Amount: f64(10000), Period: "2024-08",
	})
	require.NoError(t, err)
	require.NotNil(t, b.Execution)
	assert.Equal(t, "辦公用品", b.Category)
	assert.True(t, decimal.NewFromInt(8500).Equal(b.Execution.ActualAmount))
	assert.True(t, decimal.NewFromInt(85).Equal(b.Execution.UsagePercentage))
	assert.Equal(t, model.ExecutionWarning, b.Execution.Status)

	require.Equal(t, 1, h.notifier.count())
	assert.Equal(t, EventBudgetAlert, h.notifier.events[0].event)
	assert.Equal(t, "u1", h.notifier.events[0].userID)

	t.Run("recompute is idempotent", func(t *testing.T) {
		again, err := h.budgets.RecomputeExecution(ctx, "u1", b.ID, "")
		require.NoError(t, err)
		assert.True(t, b.Execution.ActualAmount.Equal(again.ActualAmount))
		assert.Equal(t, b.Execution.Status, again.Status)
		assert.Equal(t, 1, h.notifier.count(), "no alert without a status change")
	})

	t.Run("crossing the limit alerts again", func(t *testing.T) {
		h.expense(t, "u1", "2024-08-25", "Store", "office_supplies", 2000, model.ExpenseStatusPaid)
		exec, err := h.budgets.RecomputeExecution(ctx, "u1", b.ID, "2024-08")
		require.NoError(t, err)
		assert.Equal(t, model.ExecutionExceeded, exec.Status)
		assert.Equal(t, 2, h.notifier.count())
	})

	t.Run("period must match the budget type", func(t *testing.T) {
		_, err := h.budgets.RecomputeExecution(ctx, "u1", b.ID, "2024")
		assertKind(t, err, apperror.KindValidation)
	})

	t.Run("other users cannot see it", func(t *testing.T) {
		_, err := h.budgets.Get(ctx, "u2", b.ID)
		assertKind(t, err, apperror.KindNotFound)
	})

	t.Run("delete removes executions", func(t *testing.T) {
		require.NoError(t, h.budgets.Delete(ctx, "u1", b.ID))
		_, err := h.budgets.GetExecution(ctx, "u1", b.ID, "2024-08")
		assertKind(t, err, apperror.KindNotFound)

		var n int64
		require.NoError(t, h.db.Model(&model.BudgetExecution{}).Where("budget_id = ?", b.ID).Count(&n).Error)
		assert.Zero(t, n)
	})
}

func TestBudgetService_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.budgets.Create(ctx, "u1", BudgetRequest{Name: "x", Category: "nope", Amount: f64(1), Period: "2024-08"})
	assertKind(t, err, apperror.KindValidation)

	_, err = h.budgets.Create(ctx, "u1", BudgetRequest{Name: "x", Category: "rent", BudgetType: model.BudgetYearly, Amount: f64(1), Period: "2024-08"})
	assertKind(t, err, apperror.KindValidation)

	y, err := h.budgets.Create(ctx, "u1", BudgetRequest{Name: "Rent", Category: "rent", BudgetType: model.BudgetYearly, Amount: f64(0), Period: "2024"})
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionNormal, y.Execution.Status)
	assert.True(t, y.Execution.UsagePercentage.IsZero())
}

func TestBudgetService_Overview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.expense(t, "u1", "2024-08-03", "Store", "meals", 600, model.ExpenseStatusPaid)
	_, err := h.budgets.Create(ctx, "u1", BudgetRequest{Name: "Meals", Category: "meals", Amount: f64(1000), Period: "2024-08"})
	require.NoError(t, err)
	_, err = h.budgets.Create(ctx, "u1", BudgetRequest{Name: "Rent", Category: "rent", Amount: f64(1000), Period: "2024-08"})
	require.NoError(t, err)

	ov, err := h.budgets.Overview(ctx, "u1", "2024-08")
	require.NoError(t, err)
	assert.Equal(t, 2, ov.BudgetCount)
	assert.Equal(t, 2000.0, ov.TotalBudget)
	assert.Equal(t, 600.0, ov.TotalActual)
	assert.Equal(t, 1400.0, ov.Remaining)
	assert.Equal(t, 30.0, ov.OverallUsage)
	assert.Equal(t, 2, ov.StatusCounts[model.ExecutionNormal])
}
