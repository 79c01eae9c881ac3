package repository

import (
	"context"

	"bookkeeping/internal/model"
	"bookkeeping/pkg/pagination"

	"gorm.io/gorm"
)

// ExpenseRepository persists expense rows. Every lookup is scoped by owner.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, userID string, id uint) (*model.Expense, error)
	List(ctx context.Context, userID string, filter LedgerFilter, p pagination.Params) ([]model.Expense, int64, error)
	Update(ctx context.Context, expense *model.Expense) error
	UpdateStatus(ctx context.Context, userID string, id uint, status string) error
	Delete(ctx context.Context, userID string, id uint) error
	Summary(ctx context.Context, userID string, r DateRange) (model.LedgerTotals, error)
	GroupBy(ctx context.Context, userID, dimension string, r DateRange, limit int) ([]model.GroupTotal, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, userID string, id uint) (*model.Expense, error) {
	var expense model.Expense
	if err := GetDB(ctx, r.db).First(&expense, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) List(ctx context.Context, userID string, filter LedgerFilter, p pagination.Params) ([]model.Expense, int64, error) {
	return listLedger[model.Expense](ctx, GetDB(ctx, r.db), expenseTable, userID, filter, p)
}

func (r *expenseRepository) Update(ctx context.Context, expense *model.Expense) error {
	res := GetDB(ctx, r.db).Model(expense).
		Where("user_id = ?", expense.UserID).
		Select("date", "vendor", "description", "category", "amount", "tax_rate", "tax_amount",
			"total_amount", "status", "payment_method", "receipt_path", "notes", "updated_at").
		Updates(expense)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *expenseRepository) UpdateStatus(ctx context.Context, userID string, id uint, status string) error {
	return updateStatus(ctx, GetDB(ctx, r.db), expenseTable.name, userID, id, status)
}

func (r *expenseRepository) Delete(ctx context.Context, userID string, id uint) error {
	return deleteOwned(GetDB(ctx, r.db), &model.Expense{}, userID, id)
}

func (r *expenseRepository) Summary(ctx context.Context, userID string, dr DateRange) (model.LedgerTotals, error) {
	return summarizeLedger(ctx, GetDB(ctx, r.db), expenseTable, userID, dr)
}

func (r *expenseRepository) GroupBy(ctx context.Context, userID, dimension string, dr DateRange, limit int) ([]model.GroupTotal, error) {
	return groupLedger(ctx, GetDB(ctx, r.db), expenseTable, userID, dimension, dr, limit)
}
