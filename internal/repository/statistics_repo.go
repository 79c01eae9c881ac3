package repository

import (
	"context"
	"fmt"
	"strings"

	"bookkeeping/internal/database"
	"bookkeeping/internal/model"

	"gorm.io/gorm"
)

// StatisticsRepository runs the read-side aggregations that span both ledgers
type StatisticsRepository interface {
	MonthlyFlows(ctx context.Context, userID, fromMonth, toMonth string) ([]model.MonthlyFlow, error)
	DailyTotals(ctx context.Context, userID, ledger string, r DateRange, statuses ...string) ([]model.DailyFlow, error)
	Transactions(ctx context.Context, userID, ledger string, r DateRange, limit int) ([]model.Transaction, error)
	BucketTotal(ctx context.Context, userID, ledger, bucket, periodPrefix string) (float64, error)
	CashBalance(ctx context.Context, userID, asOf string) (float64, error)
	FirstActivity(ctx context.Context, userID string) (string, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func tableFor(ledger string) (ledgerTable, error) {
	switch ledger {
	case model.LedgerIncome:
		return incomeTable, nil
	case model.LedgerExpense:
		return expenseTable, nil
	}
	return ledgerTable{}, fmt.Errorf("unknown ledger %q", ledger)
}

func (r *statisticsRepository) MonthlyFlows(ctx context.Context, userID, fromMonth, toMonth string) ([]model.MonthlyFlow, error) {
	query := `
		SELECT month,
			SUM(income) AS income,
			SUM(expense) AS expense,
			SUM(received_income) AS received_income,
			SUM(paid_expense) AS paid_expense
		FROM (
			SELECT substr(date, 1, 7) AS month, total_amount AS income, 0 AS expense,
				CASE WHEN status = ? THEN total_amount ELSE 0 END AS received_income, 0 AS paid_expense
			FROM income WHERE user_id = ? AND substr(date, 1, 7) BETWEEN ? AND ?
			UNION ALL
			SELECT substr(date, 1, 7), 0, total_amount,
				0, CASE WHEN status = ? THEN total_amount ELSE 0 END
			FROM expense WHERE user_id = ? AND substr(date, 1, 7) BETWEEN ? AND ?
		)
		GROUP BY month
		ORDER BY month ASC`

	flows := make([]model.MonthlyFlow, 0)
	err := database.QueryRows(ctx, GetDB(ctx, r.db), &flows, query,
		model.IncomeStatusReceived, userID, fromMonth, toMonth,
		model.ExpenseStatusPaid, userID, fromMonth, toMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly flows: %w", err)
	}
	return flows, nil
}

func (r *statisticsRepository) DailyTotals(ctx context.Context, userID, ledger string, dr DateRange, statuses ...string) ([]model.DailyFlow, error) {
	t, err := tableFor(ledger)
	if err != nil {
		return nil, err
	}
	where := OwnedBy(userID).Between("date", dr)
	if len(statuses) > 0 {
		where.Add("status IN ?", statuses)
	}
	query := "SELECT date, COALESCE(SUM(total_amount), 0) AS total FROM " + t.name + where.SQL() +
		" GROUP BY date ORDER BY date ASC"

	days := make([]model.DailyFlow, 0)
	if err := database.QueryRows(ctx, GetDB(ctx, r.db), &days, query, where.Args()...); err != nil {
		return nil, fmt.Errorf("failed to query daily %s totals: %w", ledger, err)
	}
	return days, nil
}

func transactionSelect(t ledgerTable, displayColumn, kind string) string {
	return fmt.Sprintf("SELECT id, %s AS display_id, '%s' AS type, date, %s AS party, description, category, "+
		"amount, total_amount, status, created_at FROM %s", displayColumn, kind, t.party, t.name)
}

// Transactions returns rows of one ledger, or both when ledger is empty, newest first
func (r *statisticsRepository) Transactions(ctx context.Context, userID, ledger string, dr DateRange, limit int) ([]model.Transaction, error) {
	var parts []string
	var args []interface{}

	if ledger == "" || ledger == model.LedgerIncome {
		where := OwnedBy(userID).Between("date", dr)
		parts = append(parts, transactionSelect(incomeTable, "income_id", model.LedgerIncome)+where.SQL())
		args = append(args, where.Args()...)
	}
	if ledger == "" || ledger == model.LedgerExpense {
		where := OwnedBy(userID).Between("date", dr)
		parts = append(parts, transactionSelect(expenseTable, "expense_id", model.LedgerExpense)+where.SQL())
		args = append(args, where.Args()...)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("unknown ledger %q", ledger)
	}

	query := strings.Join(parts, " UNION ALL ") + ledgerOrder
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	txs := make([]model.Transaction, 0)
	if err := database.QueryRows(ctx, GetDB(ctx, r.db), &txs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return txs, nil
}

// BucketTotal sums total_amount of one category over the dates starting with periodPrefix
// ("2024-08" for a month, "2024" for a year).
func (r *statisticsRepository) BucketTotal(ctx context.Context, userID, ledger, bucket, periodPrefix string) (float64, error) {
	t, err := tableFor(ledger)
	if err != nil {
		return 0, err
	}
	where := OwnedBy(userID).Eq("category", bucket).Prefix("date", periodPrefix)

	var total float64
	query := "SELECT COALESCE(SUM(total_amount), 0) FROM " + t.name + where.SQL()
	if err := database.QueryRow(ctx, GetDB(ctx, r.db), &total, query, where.Args()...); err != nil {
		return 0, fmt.Errorf("failed to sum %s bucket %s: %w", ledger, bucket, err)
	}
	return total, nil
}

// CashBalance is received income minus paid expense up to and including asOf
func (r *statisticsRepository) CashBalance(ctx context.Context, userID, asOf string) (float64, error) {
	query := `
		SELECT
			(SELECT COALESCE(SUM(total_amount), 0) FROM income WHERE user_id = ? AND status = ? AND date <= ?) -
			(SELECT COALESCE(SUM(total_amount), 0) FROM expense WHERE user_id = ? AND status = ? AND date <= ?)`

	var balance float64
	err := database.QueryRow(ctx, GetDB(ctx, r.db), &balance, query,
		userID, model.IncomeStatusReceived, asOf,
		userID, model.ExpenseStatusPaid, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to compute cash balance: %w", err)
	}
	return balance, nil
}

// FirstActivity returns the earliest ledger date of the user, or "" without any rows
func (r *statisticsRepository) FirstActivity(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT COALESCE(MIN(date), '') FROM (
			SELECT date FROM income WHERE user_id = ?
			UNION ALL
			SELECT date FROM expense WHERE user_id = ?
		)`

	var first string
	if err := database.QueryRow(ctx, GetDB(ctx, r.db), &first, query, userID, userID); err != nil {
		return "", fmt.Errorf("failed to find first activity: %w", err)
	}
	return first, nil
}
