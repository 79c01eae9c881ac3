package database

import (
	"context"
	"fmt"

	"bookkeeping/internal/category"
	"bookkeeping/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultSettings returns the system settings installed on first run and by reset
func DefaultSettings() []model.SystemSetting {
	return []model.SystemSetting{
		{Key: "app.language", Value: "zh-TW", Type: model.SettingString, Description: "Interface language"},
		{Key: "app.currency", Value: "TWD", Type: model.SettingString, Description: "Reporting currency"},
		{Key: "app.fiscal_year_start", Value: "1", Type: model.SettingNumber, Description: "First month of the fiscal year"},
		{Key: "invoice.default_tax_rate", Value: "5", Type: model.SettingNumber, Description: "Default business tax rate (%)"},
		{Key: "budget.warning_threshold", Value: "80", Type: model.SettingNumber, Description: "Usage percentage at which budgets warn"},
		{Key: "notification.email_enabled", Value: "false", Type: model.SettingBoolean, Description: "Send reminder e-mails"},
		{Key: "backup.auto_enabled", Value: "false", Type: model.SettingBoolean, Description: "Create a backup every day"},
		{Key: "dashboard.widgets", Value: `["overview","cash_flow","recent_transactions","category_breakdown"]`, Type: model.SettingJSON, Description: "Dashboard widget order"},
	}
}

func defaultTaxRules() []model.TaxRule {
	return []model.TaxRule{
		{Code: model.TaxRateVAT, Name: "Business tax (VAT)", Rate: decimal.NewFromInt(5), EffectiveFrom: "1986-04-01", Description: "General business tax on sales of goods and services"},
		{Code: model.TaxRateSpecial1, Name: "Special business tax 1%", Rate: decimal.NewFromInt(1), EffectiveFrom: "1986-04-01", Description: "Reinsurance premiums and similar special businesses"},
		{Code: model.TaxRateSpecial2, Name: "Special business tax 2%", Rate: decimal.NewFromInt(2), EffectiveFrom: "1986-04-01", Description: "Financial institutions, non-core business revenue"},
		{Code: model.TaxRateSmallBusiness, Name: "Small business tax", Rate: decimal.NewFromInt(1), EffectiveFrom: "1986-04-01", Description: "Small-scale businesses assessed by the tax office"},
		{Code: model.TaxRateEnterpriseIncome, Name: "Profit-seeking enterprise income tax", Rate: decimal.NewFromInt(20), EffectiveFrom: "2018-01-01", Description: "Annual taxable income above NT$120,000"},
	}
}

// Seed installs reference data that must exist for the app to work. It is idempotent.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.BudgetCategory{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count budget categories: %w", err)
		}
		if count == 0 {
			cats := make([]model.BudgetCategory, 0)
			for i, c := range category.All() {
				cats = append(cats, model.BudgetCategory{
					Name:      c.Name,
					Bucket:    c.Key,
					Icon:      c.Icon,
					Color:     c.Color,
					IsIncome:  c.Income,
					SortOrder: i + 1,
				})
			}
			if err := tx.Create(&cats).Error; err != nil {
				return fmt.Errorf("failed to seed budget categories: %w", err)
			}
		}

		settings := DefaultSettings()
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "setting_key"}}, DoNothing: true}).
			Create(&settings).Error; err != nil {
			return fmt.Errorf("failed to seed system settings: %w", err)
		}

		if err := tx.Model(&model.TaxRule{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count tax rules: %w", err)
		}
		if count == 0 {
			rules := defaultTaxRules()
			if err := tx.Create(&rules).Error; err != nil {
				return fmt.Errorf("failed to seed tax rules: %w", err)
			}
		}
		return nil
	})
}
