package repository

import (
	"context"
	"fmt"

	"bookkeeping/internal/database"
	"bookkeeping/internal/model"
	"bookkeeping/pkg/pagination"

	"gorm.io/gorm"
)

// ledgerTable describes the columns that differ between the income and expense tables
type ledgerTable struct {
	name       string
	party      string
	settled    string
	pending    string
	overdue    string
	groupables map[string]string
}

var (
	incomeTable = ledgerTable{
		name:    "income",
		party:   "customer",
		settled: model.IncomeStatusReceived,
		pending: model.IncomeStatusPending,
		overdue: model.IncomeStatusOverdue,
		groupables: map[string]string{
			"category": "category",
			"customer": "customer",
			"status":   "status",
			"month":    "substr(date, 1, 7)",
		},
	}
	expenseTable = ledgerTable{
		name:    "expense",
		party:   "vendor",
		settled: model.ExpenseStatusPaid,
		pending: model.ExpenseStatusPending,
		overdue: model.ExpenseStatusOverdue,
		groupables: map[string]string{
			"category": "category",
			"vendor":   "vendor",
			"status":   "status",
			"month":    "substr(date, 1, 7)",
		},
	}
)

func listLedger[T any](ctx context.Context, db *gorm.DB, t ledgerTable, userID string, f LedgerFilter, p pagination.Params) ([]T, int64, error) {
	where := ledgerWhere(userID, t.party, f)

	var total int64
	if err := database.QueryRow(ctx, db, &total, "SELECT COUNT(*) FROM "+t.name+where.SQL(), where.Args()...); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s rows: %w", t.name, err)
	}

	rows := make([]T, 0)
	if total == 0 {
		return rows, 0, nil
	}
	query := Paginate("SELECT * FROM "+t.name+where.SQL()+ledgerOrder, p)
	if err := database.QueryRows(ctx, db, &rows, query, where.Args()...); err != nil {
		return nil, 0, fmt.Errorf("failed to list %s rows: %w", t.name, err)
	}
	return rows, total, nil
}

func summarizeLedger(ctx context.Context, db *gorm.DB, t ledgerTable, userID string, r DateRange) (model.LedgerTotals, error) {
	where := OwnedBy(userID).Between("date", r)
	query := "SELECT " + StatsColumns(t.settled, t.pending, t.overdue) + " FROM " + t.name + where.SQL()

	var totals model.LedgerTotals
	if err := database.QueryRows(ctx, db, &totals, query, where.Args()...); err != nil {
		return model.LedgerTotals{}, fmt.Errorf("failed to summarize %s: %w", t.name, err)
	}
	return totals, nil
}

func groupLedger(ctx context.Context, db *gorm.DB, t ledgerTable, userID, dimension string, r DateRange, limit int) ([]model.GroupTotal, error) {
	expr, ok := t.groupables[dimension]
	if !ok {
		return nil, fmt.Errorf("cannot group %s by %q", t.name, dimension)
	}
	where := OwnedBy(userID).Between("date", r)
	query := "SELECT " + expr + " AS \"key\", " + groupColumns + " FROM " + t.name + where.SQL() +
		" GROUP BY " + expr + " ORDER BY total_sum DESC, \"key\" ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	groups := make([]model.GroupTotal, 0)
	if err := database.QueryRows(ctx, db, &groups, query, where.Args()...); err != nil {
		return nil, fmt.Errorf("failed to group %s by %s: %w", t.name, dimension, err)
	}
	return groups, nil
}

func deleteOwned(db *gorm.DB, value interface{}, userID string, id uint) error {
	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func updateStatus(ctx context.Context, db *gorm.DB, table, userID string, id uint, status string) error {
	n, err := database.Exec(ctx, db,
		"UPDATE "+table+" SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
		status, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
