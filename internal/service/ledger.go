package service

import (
	"fmt"

	"bookkeeping/internal/category"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"github.com/shopspring/decimal"
)

// StatusTotal is the count and total of one status bucket
type StatusTotal struct {
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// LedgerSummary is the stats/summary payload of either ledger
type LedgerSummary struct {
	Period    repository.DateRange   `json:"period"`
	Count     int64                  `json:"count"`
	AmountSum float64                `json:"amount_sum"`
	TaxSum    float64                `json:"tax_sum"`
	TotalSum  float64                `json:"total_sum"`
	ByStatus  map[string]StatusTotal `json:"by_status"`
}

func newLedgerSummary(r repository.DateRange, t model.LedgerTotals, settled, pending, overdue string) *LedgerSummary {
	return &LedgerSummary{
		Period:    r,
		Count:     t.Count,
		AmountSum: t.AmountSum,
		TaxSum:    t.TaxSum,
		TotalSum:  t.TotalSum,
		ByStatus: map[string]StatusTotal{
			settled: {Count: t.SettledCount, Total: t.SettledSum},
			pending: {Count: t.PendingCount, Total: t.PendingSum},
			overdue: {Count: t.OverdueCount, Total: t.OverdueSum},
		},
	}
}

// computeTax returns tax = amount*rate/100 and total = amount+tax, both to the cent
func computeTax(amount, rate decimal.Decimal) (tax, total decimal.Decimal) {
	tax = amount.Mul(rate).Div(hundred).Round(2)
	total = amount.Round(2).Add(tax)
	return tax, total
}

func displayID(prefix string, n int64) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// ledgerInput is the part of a ledger write request shared by both ledgers
type ledgerInput struct {
	date          string
	party         string
	partyField    string
	description   string
	category      string
	amount        *float64
	taxRate       *float64
	status        string
	paymentMethod string
}

type ledgerValues struct {
	category      string
	amount        decimal.Decimal
	taxRate       decimal.Decimal
	taxAmount     decimal.Decimal
	totalAmount   decimal.Decimal
	status        string
	paymentMethod string
}

var paymentMethods = map[string]bool{
	model.PaymentBankTransfer: true,
	model.PaymentCheck:        true,
	model.PaymentCash:         true,
	model.PaymentCreditCard:   true,
}

// normalizeLedger validates a write request and derives the stored values.
// Categories may be given by key or display name.
func normalizeLedger(in ledgerInput, income bool, statuses map[string]bool, defaultCategory string) (ledgerValues, error) {
	var details []apperror.FieldError
	add := func(field, msg string) {
		details = append(details, apperror.FieldError{Field: field, Message: msg})
	}

	if !validDate(in.date) {
		add("date", "Must be a date in YYYY-MM-DD format")
	}
	if trimmed(in.party) == "" {
		add(in.partyField, "This field is required")
	}
	if trimmed(in.description) == "" {
		add("description", "This field is required")
	}

	out := ledgerValues{
		category:      defaultCategory,
		taxRate:       decimal.Zero,
		status:        model.IncomeStatusPending,
		paymentMethod: model.PaymentBankTransfer,
	}

	if in.amount == nil {
		add("amount", "This field is required")
	} else if *in.amount < 0 {
		add("amount", "Must be greater than or equal to 0")
	} else {
		out.amount = decimal.NewFromFloat(*in.amount).Round(2)
	}
	if in.taxRate != nil {
		if *in.taxRate < 0 || *in.taxRate > 100 {
			add("tax_rate", "Must be between 0 and 100")
		} else {
			out.taxRate = decimal.NewFromFloat(*in.taxRate).Round(2)
		}
	}

	if c := trimmed(in.category); c != "" {
		cat, ok := category.Resolve(c)
		if !ok || cat.Income != income {
			add("category", "Unknown category")
		} else {
			out.category = cat.Key
		}
	}
	if in.status != "" {
		if !statuses[in.status] {
			add("status", "Invalid status")
		}
		out.status = in.status
	}
	if in.paymentMethod != "" {
		if !paymentMethods[in.paymentMethod] {
			add("payment_method", "Must be one of: bank_transfer check cash credit_card")
		}
		out.paymentMethod = in.paymentMethod
	}

	if len(details) > 0 {
		return out, apperror.Validation("Request validation failed", details...)
	}
	out.taxAmount, out.totalAmount = computeTax(out.amount, out.taxRate)
	return out, nil
}

func checkFilter(f repository.LedgerFilter, statuses map[string]bool) error {
	var details []apperror.FieldError
	if f.StartDate != "" && !validDate(f.StartDate) {
		details = append(details, apperror.FieldError{Field: "start_date", Message: "Must be a date in YYYY-MM-DD format"})
	}
	if f.EndDate != "" && !validDate(f.EndDate) {
		details = append(details, apperror.FieldError{Field: "end_date", Message: "Must be a date in YYYY-MM-DD format"})
	}
	if f.Status != "" && !statuses[f.Status] {
		details = append(details, apperror.FieldError{Field: "status", Message: "Invalid status"})
	}
	if len(details) > 0 {
		return apperror.Validation("Invalid filter", details...)
	}
	return nil
}

// resolveFilterCategory lets list filters name a category by display name
func resolveFilterCategory(f *repository.LedgerFilter) {
	if f.Category == "" {
		return
	}
	if cat, ok := category.Resolve(f.Category); ok {
		f.Category = cat.Key
	}
}
