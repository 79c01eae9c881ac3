package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"bookkeeping/internal/model"
	"bookkeeping/internal/testutil"
	"bookkeeping/pkg/pagination"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newExpense(userID, displayID, date, vendor, category, status string, total int64) *model.Expense {
	return &model.Expense{
		ExpenseID:     displayID,
		UserID:        userID,
		Date:          date,
		Vendor:        vendor,
		Description:   "test",
		Category:      category,
		Amount:        decimal.NewFromInt(total),
		TaxRate:       decimal.Zero,
		TaxAmount:     decimal.Zero,
		TotalAmount:   decimal.NewFromInt(total),
		Status:        status,
		PaymentMethod: model.PaymentCash,
	}
}

func TestExpenseRepository_PagesCoverFilteredSet(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewExpenseRepository(db)
	ctx := context.Background()

	for i := 1; i <= 23; i++ {
		date := fmt.Sprintf("2024-08-%02d", i%5+1)
		require.NoError(t, repo.Create(ctx, newExpense("u1", fmt.Sprintf("EXP%03d", i), date, "Vendor", "rent", "paid", int64(i))))
	}
	require.NoError(t, repo.Create(ctx, newExpense("u2", "EXP001", "2024-08-01", "Vendor", "rent", "paid", 99)))

	all, total, err := repo.List(ctx, "u1", LedgerFilter{}, pagination.New(1, 100))
	require.NoError(t, err)
	require.Equal(t, int64(23), total)

	var paged []model.Expense
	for page := 1; page <= 5; page++ {
		rows, n, err := repo.List(ctx, "u1", LedgerFilter{}, pagination.New(page, 5))
		require.NoError(t, err)
		assert.Equal(t, int64(23), n)
		paged = append(paged, rows...)
	}

	require.Len(t, paged, len(all))
	seen := map[uint]bool{}
	for i := range all {
		assert.Equal(t, all[i].ID, paged[i].ID)
		assert.False(t, seen[paged[i].ID], "duplicate row across pages")
		seen[paged[i].ID] = true
	}
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Date, all[i].Date)
	}
}

func TestExpenseRepository_Filters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewExpenseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newExpense("u1", "EXP001", "2024-07-15", "Office Depot", "office_supplies", "paid", 100)))
	require.NoError(t, repo.Create(ctx, newExpense("u1", "EXP002", "2024-08-02", "Landlord", "rent", "pending", 30000)))
	require.NoError(t, repo.Create(ctx, newExpense("u1", "EXP003", "2024-08-20", "office depot", "office_supplies", "pending", 250)))

	rows, total, err := repo.List(ctx, "u1", LedgerFilter{
		Status:    "pending",
		Party:     "depot",
		StartDate: "2024-08-01",
		EndDate:   "2024-08-31",
	}, pagination.New(1, 20))
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "EXP003", rows[0].ExpenseID)
}

func TestExpenseRepository_Ownership(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewExpenseRepository(db)
	ctx := context.Background()

	e := newExpense("owner", "EXP001", "2024-08-01", "V", "rent", "paid", 10)
	require.NoError(t, repo.Create(ctx, e))

	_, err := repo.FindByID(ctx, "intruder", e.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	e.UserID = "intruder"
	e.Description = "hijacked"
	assert.ErrorIs(t, repo.Update(ctx, e), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "intruder", e.ID, "pending"), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "intruder", e.ID), gorm.ErrRecordNotFound)

	got, err := repo.FindByID(ctx, "owner", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", got.Description)
	assert.Equal(t, "paid", got.Status)
}

func TestExpenseRepository_SummaryAndGroups(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewExpenseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newExpense("u1", "EXP001", "2024-08-01", "A", "rent", "paid", 1000)))
	require.NoError(t, repo.Create(ctx, newExpense("u1", "EXP002", "2024-08-02", "B", "meals", "pending", 200)))
	require.NoError(t, repo.Create(ctx, newExpense("u1", "EXP003", "2024-08-03", "B", "meals", "overdue", 300)))

	totals, err := repo.Summary(ctx, "u1", DateRange{Start: "2024-08-01", End: "2024-08-31"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Count)
	assert.Equal(t, 1500.0, totals.TotalSum)
	assert.Equal(t, 1000.0, totals.SettledSum)
	assert.Equal(t, 200.0, totals.PendingSum)
	assert.Equal(t, 300.0, totals.OverdueSum)
	assert.Equal(t, int64(1), totals.OverdueCount)

	groups, err := repo.GroupBy(ctx, "u1", "category", DateRange{}, 0)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "rent", groups[0].Key)
	assert.Equal(t, 500.0, groups[1].TotalSum)

	_, err = repo.GroupBy(ctx, "u1", "password_hash", DateRange{}, 0)
	assert.Error(t, err)
}

func TestSequenceRepository_Next(t *testing.T) {
	db := testutil.NewDB(t)
	seq := NewSequenceRepository(db)
	tx := NewTransactionManager(db)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var v int64
			err := tx.RunInTx(ctx, func(txCtx context.Context) error {
				var err error
				v, err = seq.Next(txCtx, "u1", model.LedgerIncome)
				return err
			})
			assert.NoError(t, err)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for v := range results {
		assert.False(t, seen[v], "sequence value %d handed out twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers)

	other, err := seq.Next(ctx, "u2", model.LedgerIncome)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "sequences are per user")
}

func TestTransactionManager_RollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewExpenseRepository(db)
	tx := NewTransactionManager(db)
	ctx := context.Background()

	boom := fmt.Errorf("boom")
	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		require.True(t, InTx(txCtx))
		require.NoError(t, repo.Create(txCtx, newExpense("u1", "EXP001", "2024-08-01", "V", "rent", "paid", 1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, total, err := repo.List(ctx, "u1", LedgerFilter{}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBudgetRepository_Executions(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBudgetRepository(db)
	ctx := context.Background()

	b := &model.Budget{UserID: "u1", Name: "Office", Category: "辦公用品", BudgetType: model.BudgetMonthly,
		Amount: decimal.NewFromInt(10000), Period: "2024-08"}
	require.NoError(t, repo.Create(ctx, b))

	exec := &model.BudgetExecution{BudgetID: b.ID, Period: "2024-08", ActualAmount: decimal.NewFromInt(100),
		UsagePercentage: decimal.NewFromInt(1), Status: model.ExecutionNormal}
	require.NoError(t, repo.UpsertExecution(ctx, exec))

	again := &model.BudgetExecution{BudgetID: b.ID, Period: "2024-08", ActualAmount: decimal.NewFromInt(9000),
		UsagePercentage: decimal.NewFromInt(90), Status: model.ExecutionWarning}
	require.NoError(t, repo.UpsertExecution(ctx, again))

	execs, err := repo.ExecutionsFor(ctx, []uint{b.ID})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, model.ExecutionWarning, execs[0].Status)
	assert.True(t, decimal.NewFromInt(9000).Equal(execs[0].ActualAmount))

	n, err := repo.DeleteExecutions(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.FindExecution(ctx, b.ID, "2024-08")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
}

func TestStatisticsRepository(t *testing.T) {
	db := testutil.NewDB(t)
	stats := NewStatisticsRepository(db)
	expenses := NewExpenseRepository(db)
	incomes := NewIncomeRepository(db)
	ctx := context.Background()

	require.NoError(t, incomes.Create(ctx, &model.Income{
		IncomeID: "INC001", UserID: "u1", Date: "2024-07-10", Customer: "C", Description: "d",
		Category: "sales", Amount: decimal.NewFromInt(5000), TotalAmount: decimal.NewFromInt(5000),
		Status: model.IncomeStatusReceived, PaymentMethod: model.PaymentCash,
	}))
	require.NoError(t, expenses.Create(ctx, newExpense("u1", "EXP001", "2024-08-05", "V", "office_supplies", "paid", 1200)))
	require.NoError(t, expenses.Create(ctx, newExpense("u1", "EXP002", "2024-08-06", "V", "office_supplies", "pending", 800)))

	flows, err := stats.MonthlyFlows(ctx, "u1", "2024-07", "2024-08")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "2024-07", flows[0].Month)
	assert.Equal(t, 5000.0, flows[0].ReceivedIncome)
	assert.Equal(t, 2000.0, flows[1].Expense)
	assert.Equal(t, 1200.0, flows[1].PaidExpense)

	total, err := stats.BucketTotal(ctx, "u1", model.LedgerExpense, "office_supplies", "2024-08")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, total)

	balance, err := stats.CashBalance(ctx, "u1", "2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, 3800.0, balance)

	first, err := stats.FirstActivity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-10", first)

	none, err := stats.FirstActivity(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	recent, err := stats.Transactions(ctx, "u1", "", DateRange{}, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "EXP002", recent[0].DisplayID)
	assert.Equal(t, model.LedgerExpense, recent[0].Type)

	pending, err := stats.DailyTotals(ctx, "u1", model.LedgerExpense, DateRange{}, model.ExpenseStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2024-08-06", pending[0].Date)
}
