package repository

import (
	"context"

	"bookkeeping/internal/model"
	"bookkeeping/pkg/pagination"

	"gorm.io/gorm"
)

// TaxCalculationRepository is append-only: there is no update or delete path
type TaxCalculationRepository interface {
	Create(ctx context.Context, calc *model.TaxCalculation) error
	List(ctx context.Context, userID, calcType string, p pagination.Params) ([]model.TaxCalculation, int64, error)
}

type taxCalculationRepository struct {
	db *gorm.DB
}

func NewTaxCalculationRepository(db *gorm.DB) TaxCalculationRepository {
	return &taxCalculationRepository{db: db}
}

func (r *taxCalculationRepository) Create(ctx context.Context, calc *model.TaxCalculation) error {
	return GetDB(ctx, r.db).Create(calc).Error
}

func (r *taxCalculationRepository) List(ctx context.Context, userID, calcType string, p pagination.Params) ([]model.TaxCalculation, int64, error) {
	q := GetDB(ctx, r.db).Model(&model.TaxCalculation{}).Where("user_id = ?", userID)
	if calcType != "" {
		q = q.Where("calculation_type = ?", calcType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	calcs := make([]model.TaxCalculation, 0)
	if err := q.Order("created_at DESC, id DESC").Offset(p.Offset).Limit(p.Limit).Find(&calcs).Error; err != nil {
		return nil, 0, err
	}
	return calcs, total, nil
}
