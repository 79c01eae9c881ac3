package repository

import (
	"context"

	"bookkeeping/internal/model"

	"gorm.io/gorm"
)

// TaxRuleRepository reads the dated tax rate table
type TaxRuleRepository interface {
	ListActive(ctx context.Context, date string) ([]model.TaxRule, error)
	FindActiveByCode(ctx context.Context, code, date string) (*model.TaxRule, error)
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

func activeOn(db *gorm.DB, date string) *gorm.DB {
	return db.Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", date, date)
}

func (r *taxRuleRepository) ListActive(ctx context.Context, date string) ([]model.TaxRule, error) {
	rules := make([]model.TaxRule, 0)
	if err := activeOn(GetDB(ctx, r.db), date).Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindActiveByCode returns the latest rule of code in effect on date
func (r *taxRuleRepository) FindActiveByCode(ctx context.Context, code, date string) (*model.TaxRule, error) {
	var rule model.TaxRule
	err := activeOn(GetDB(ctx, r.db), date).
		Where("code = ?", code).
		Order("effective_from DESC").
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
