package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger kinds, also used as display id prefixes
const (
	LedgerIncome  = "income"
	LedgerExpense = "expense"

	IncomeIDPrefix  = "INC"
	ExpenseIDPrefix = "EXP"
)

// Income statuses
const (
	IncomeStatusReceived = "received"
	IncomeStatusPending  = "pending"
	IncomeStatusOverdue  = "overdue"
)

// Expense statuses
const (
	ExpenseStatusPaid    = "paid"
	ExpenseStatusPending = "pending"
	ExpenseStatusOverdue = "overdue"
)

// Payment methods shared by both ledgers
const (
	PaymentBankTransfer = "bank_transfer"
	PaymentCheck        = "check"
	PaymentCash         = "cash"
	PaymentCreditCard   = "credit_card"
)

// DateLayout is the storage format of ledger dates
const DateLayout = "2006-01-02"

func init() {
	// amounts travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Income is a receivable or received payment from a customer
type Income struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	IncomeID      string          `gorm:"column:income_id;type:varchar(20);not null;uniqueIndex:idx_income_user_display" json:"income_id"`
	UserID        string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_income_user_display;index:idx_income_user_date" json:"user_id"`
	Date          string          `gorm:"type:varchar(10);not null;index:idx_income_user_date" json:"date"`
	Customer      string          `gorm:"type:varchar(255);not null" json:"customer"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	Category      string          `gorm:"type:varchar(50);not null;default:'sales'" json:"category"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'bank_transfer'" json:"payment_method"`
	InvoiceNumber string          `gorm:"type:varchar(50)" json:"invoice_number"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Income) TableName() string { return "income" }

// Expense is a payable or paid bill from a vendor
type Expense struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ExpenseID     string          `gorm:"column:expense_id;type:varchar(20);not null;uniqueIndex:idx_expense_user_display" json:"expense_id"`
	UserID        string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_expense_user_display;index:idx_expense_user_date" json:"user_id"`
	Date          string          `gorm:"type:varchar(10);not null;index:idx_expense_user_date" json:"date"`
	Vendor        string          `gorm:"type:varchar(255);not null" json:"vendor"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	Category      string          `gorm:"type:varchar(50);not null;default:'other';index" json:"category"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'bank_transfer'" json:"payment_method"`
	ReceiptPath   string          `gorm:"type:varchar(500)" json:"receipt_path"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Expense) TableName() string { return "expense" }

// LedgerSequence is the per-user counter behind display ids
type LedgerSequence struct {
	UserID string `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	Kind   string `gorm:"type:varchar(20);primaryKey" json:"kind"`
	Value  int64  `gorm:"not null;default:0" json:"value"`
}
