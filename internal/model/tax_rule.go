package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tax rate codes
const (
	TaxRateVAT              = "vat"
	TaxRateSpecial1         = "special_1"
	TaxRateSpecial2         = "special_2"
	TaxRateSmallBusiness    = "small_business"
	TaxRateEnterpriseIncome = "enterprise_income"
)

// TaxRule stores a tax rate with temporal validity
type TaxRule struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"type:varchar(30);not null;index" json:"code"`
	Name          string          `gorm:"type:varchar(100);not null" json:"name"`
	Rate          decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"rate"` // percent, e.g. 5 = 5%
	EffectiveFrom string          `gorm:"type:varchar(10);not null" json:"effective_from"`
	EffectiveTo   *string         `gorm:"type:varchar(10)" json:"effective_to"` // nil = currently active
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Tax calculation types
const (
	CalcBusinessTax = "business_tax"
	CalcIncomeTax   = "income_tax"
)

// TaxCalculation is the write-once log of every calculator invocation
type TaxCalculation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CalculationType string    `gorm:"type:varchar(30);not null;index" json:"calculation_type"`
	InputData       string    `gorm:"type:text;not null" json:"input_data"`  // serialized request
	ResultData      string    `gorm:"type:text;not null" json:"result_data"` // serialized result
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}
