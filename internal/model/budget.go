package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BudgetMonthly = "monthly"
	BudgetYearly  = "yearly"
)

// Execution statuses
const (
	ExecutionNormal   = "normal"
	ExecutionWarning  = "warning"
	ExecutionExceeded = "exceeded"
)

// Budget caps spending (or targets income) for a category over a period
type Budget struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Category    string          `gorm:"type:varchar(100);not null" json:"category"`
	BudgetType  string          `gorm:"type:varchar(10);not null;default:'monthly'" json:"budget_type"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Period      string          `gorm:"type:varchar(7);not null;index" json:"period"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BudgetExecution is the computed actual-vs-budget figure for one (budget, period)
type BudgetExecution struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BudgetID        uint            `gorm:"not null;uniqueIndex:idx_execution_budget_period" json:"budget_id"`
	Period          string          `gorm:"type:varchar(7);not null;uniqueIndex:idx_execution_budget_period" json:"period"`
	ActualAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"actual_amount"`
	UsagePercentage decimal.Decimal `gorm:"type:decimal(7,2);not null;default:0" json:"usage_percentage"`
	Status          string          `gorm:"type:varchar(10);not null;default:'normal'" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BudgetCategory is seeded reference data naming the categories a budget may track
type BudgetCategory struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Bucket    string `gorm:"type:varchar(50);not null" json:"bucket"`
	Icon      string `gorm:"type:varchar(50)" json:"icon"`
	Color     string `gorm:"type:varchar(20)" json:"color"`
	IsIncome  bool   `gorm:"not null;default:false" json:"is_income"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}
