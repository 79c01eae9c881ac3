package model

// LedgerTotals is the aggregate row produced by the stats query builder
type LedgerTotals struct {
	Count        int64   `json:"count"`
	AmountSum    float64 `json:"amount_sum"`
	TaxSum       float64 `json:"tax_sum"`
	TotalSum     float64 `json:"total_sum"`
	SettledSum   float64 `json:"settled_sum"` // received (income) or paid (expense)
	PendingSum   float64 `json:"pending_sum"`
	OverdueSum   float64 `json:"overdue_sum"`
	SettledCount int64   `json:"settled_count"`
	PendingCount int64   `json:"pending_count"`
	OverdueCount int64   `json:"overdue_count"`
}

// GroupTotal is a total grouped by an arbitrary key (category, vendor, month ...)
type GroupTotal struct {
	Key       string  `json:"key"`
	Count     int64   `json:"count"`
	AmountSum float64 `json:"amount_sum"`
	TaxSum    float64 `json:"tax_sum"`
	TotalSum  float64 `json:"total_sum"`
}

// MonthlyFlow is the income and expense of one calendar month
type MonthlyFlow struct {
	Month          string  `json:"month"`
	Income         float64 `json:"income"`
	Expense        float64 `json:"expense"`
	ReceivedIncome float64 `json:"received_income"`
	PaidExpense    float64 `json:"paid_expense"`
}

// DailyFlow is the total of one ledger for one date
type DailyFlow struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// Transaction is a ledger row from either table in a common shape
type Transaction struct {
	ID          uint    `json:"id"`
	DisplayID   string  `json:"display_id"`
	Type        string  `json:"type"` // income or expense
	Date        string  `json:"date"`
	Party       string  `json:"party"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}
