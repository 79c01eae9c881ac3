package repository

import (
	"context"

	"bookkeeping/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompanyRepository interface {
	FindByUser(ctx context.Context, userID string) (*model.CompanyInfo, error)
	Upsert(ctx context.Context, info *model.CompanyInfo) error
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) FindByUser(ctx context.Context, userID string) (*model.CompanyInfo, error) {
	var info model.CompanyInfo
	if err := GetDB(ctx, r.db).First(&info, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *companyRepository) Upsert(ctx context.Context, info *model.CompanyInfo) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"company_name", "tax_id", "address", "phone", "email",
			"contact_person", "business_type", "established_date", "updated_at",
		}),
	}).Create(info).Error
}
