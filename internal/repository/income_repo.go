package repository

import (
	"context"

	"bookkeeping/internal/model"
	"bookkeeping/pkg/pagination"

	"gorm.io/gorm"
)

// IncomeRepository persists income rows. Every lookup is scoped by owner.
type IncomeRepository interface {
	Create(ctx context.Context, income *model.Income) error
	FindByID(ctx context.Context, userID string, id uint) (*model.Income, error)
	List(ctx context.Context, userID string, filter LedgerFilter, p pagination.Params) ([]model.Income, int64, error)
	Update(ctx context.Context, income *model.Income) error
	UpdateStatus(ctx context.Context, userID string, id uint, status string) error
	Delete(ctx context.Context, userID string, id uint) error
	Summary(ctx context.Context, userID string, r DateRange) (model.LedgerTotals, error)
	GroupBy(ctx context.Context, userID, dimension string, r DateRange, limit int) ([]model.GroupTotal, error)
}

type incomeRepository struct {
	db *gorm.DB
}

func NewIncomeRepository(db *gorm.DB) IncomeRepository {
	return &incomeRepository{db: db}
}

func (r *incomeRepository) Create(ctx context.Context, income *model.Income) error {
	return GetDB(ctx, r.db).Create(income).Error
}

func (r *incomeRepository) FindByID(ctx context.Context, userID string, id uint) (*model.Income, error) {
	var income model.Income
	if err := GetDB(ctx, r.db).First(&income, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

func (r *incomeRepository) List(ctx context.Context, userID string, filter LedgerFilter, p pagination.Params) ([]model.Income, int64, error) {
	return listLedger[model.Income](ctx, GetDB(ctx, r.db), incomeTable, userID, filter, p)
}

func (r *incomeRepository) Update(ctx context.Context, income *model.Income) error {
	res := GetDB(ctx, r.db).Model(income).
		Where("user_id = ?", income.UserID).
		Select("date", "customer", "description", "category", "amount", "tax_rate", "tax_amount",
			"total_amount", "status", "payment_method", "invoice_number", "notes", "updated_at").
		Updates(income)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *incomeRepository) UpdateStatus(ctx context.Context, userID string, id uint, status string) error {
	return updateStatus(ctx, GetDB(ctx, r.db), incomeTable.name, userID, id, status)
}

func (r *incomeRepository) Delete(ctx context.Context, userID string, id uint) error {
	return deleteOwned(GetDB(ctx, r.db), &model.Income{}, userID, id)
}

func (r *incomeRepository) Summary(ctx context.Context, userID string, dr DateRange) (model.LedgerTotals, error) {
	return summarizeLedger(ctx, GetDB(ctx, r.db), incomeTable, userID, dr)
}

func (r *incomeRepository) GroupBy(ctx context.Context, userID, dimension string, dr DateRange, limit int) ([]model.GroupTotal, error) {
	return groupLedger(ctx, GetDB(ctx, r.db), incomeTable, userID, dimension, dr, limit)
}
