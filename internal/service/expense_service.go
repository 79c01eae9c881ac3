package service

import (
	"context"
	"time"

	"bookkeeping/internal/analytics"
	"bookkeeping/internal/category"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"
	"bookkeeping/pkg/pagination"

	"go.uber.org/zap"
)

// --- DTOs ---

type ExpenseRequest struct {
	Date          string   `json:"date" binding:"required,date"`
	Vendor        string   `json:"vendor" binding:"required,max=255"`
	Description   string   `json:"description" binding:"required"`
	Category      string   `json:"category" binding:"max=50"`
	Amount        *float64 `json:"amount" binding:"required,gte=0"`
	TaxRate       *float64 `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	Status        string   `json:"status" binding:"omitempty,oneof=paid pending overdue"`
	PaymentMethod string   `json:"payment_method" binding:"omitempty,oneof=bank_transfer check cash credit_card"`
	ReceiptPath   string   `json:"receipt_path" binding:"max=500"`
	Notes         string   `json:"notes"`
}

// CategoryTotal is one expense category with its share of the whole
type CategoryTotal struct {
	Category   string  `json:"category"`
	Name       string  `json:"name"`
	Count      int64   `json:"count"`
	AmountSum  float64 `json:"amount_sum"`
	TaxSum     float64 `json:"tax_sum"`
	TotalSum   float64 `json:"total_sum"`
	Percentage float64 `json:"percentage"`
}

// TrendInsight compares the current calendar month against the previous one
type TrendInsight struct {
	CurrentMonth     string  `json:"current_month"`
	PreviousMonth    string  `json:"previous_month"`
	CurrentTotal     float64 `json:"current_total"`
	PreviousTotal    float64 `json:"previous_total"`
	Difference       float64 `json:"difference"`
	PercentageChange float64 `json:"percentage_change"`
	Trend            string  `json:"trend"`
	Message          string  `json:"message"`
}

const (
	TrendIncrease = "increase"
	TrendDecrease = "decrease"
	TrendStable   = "stable"
)

var expenseStatuses = map[string]bool{
	model.ExpenseStatusPaid:    true,
	model.ExpenseStatusPending: true,
	model.ExpenseStatusOverdue: true,
}

// --- Interface ---

type ExpenseService interface {
	List(ctx context.Context, userID string, filter repository.LedgerFilter, p pagination.Params) ([]model.Expense, pagination.Meta, error)
	Get(ctx context.Context, userID string, id uint) (*model.Expense, error)
	Create(ctx context.Context, userID string, req ExpenseRequest) (*model.Expense, error)
	Update(ctx context.Context, userID string, id uint, req ExpenseRequest) (*model.Expense, error)
	UpdateStatus(ctx context.Context, userID string, id uint, status string) (*model.Expense, error)
	Delete(ctx context.Context, userID string, id uint) error
	Summary(ctx context.Context, userID string, r repository.DateRange) (*LedgerSummary, error)
	ByCategory(ctx context.Context, userID string, r repository.DateRange) ([]CategoryTotal, error)
	Trend(ctx context.Context, userID string) (*TrendInsight, error)
}

type expenseService struct {
	expenseRepo repository.ExpenseRepository
	seqRepo     repository.SequenceRepository
	txManager   repository.TransactionManager
	logger      *zap.Logger
	now         func() time.Time
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	seqRepo repository.SequenceRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) ExpenseService {
	return &expenseService{
		expenseRepo: expenseRepo,
		seqRepo:     seqRepo,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *expenseService) List(ctx context.Context, userID string, filter repository.LedgerFilter, p pagination.Params) ([]model.Expense, pagination.Meta, error) {
	if err := checkFilter(filter, expenseStatuses); err != nil {
		return nil, pagination.Meta{}, err
	}
	resolveFilterCategory(&filter)

	rows, total, err := s.expenseRepo.List(ctx, userID, filter, p)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return rows, p.Meta(total), nil
}

func (s *expenseService) Get(ctx context.Context, userID string, id uint) (*model.Expense, error) {
	expense, err := s.expenseRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "Expense record")
	}
	return expense, nil
}

func (s *expenseService) normalize(req ExpenseRequest) (ledgerValues, error) {
	return normalizeLedger(ledgerInput{
		date:          req.Date,
		party:         req.Vendor,
		partyField:    "vendor",
		description:   req.Description,
		category:      req.Category,
		amount:        req.Amount,
		taxRate:       req.TaxRate,
		status:        req.Status,
		paymentMethod: req.PaymentMethod,
	}, false, expenseStatuses, "other")
}

func (s *expenseService) Create(ctx context.Context, userID string, req ExpenseRequest) (*model.Expense, error) {
	v, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	expense := &model.Expense{
		UserID:        userID,
		Date:          req.Date,
		Vendor:        trimmed(req.Vendor),
		Description:   trimmed(req.Description),
		Category:      v.category,
		Amount:        v.amount,
		TaxRate:       v.taxRate,
		TaxAmount:     v.taxAmount,
		TotalAmount:   v.totalAmount,
		Status:        v.status,
		PaymentMethod: v.paymentMethod,
		ReceiptPath:   trimmed(req.ReceiptPath),
		Notes:         req.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.seqRepo.Next(txCtx, userID, model.LedgerExpense)
		if err != nil {
			return err
		}
		expense.ExpenseID = displayID(model.ExpenseIDPrefix, n)
		return s.expenseRepo.Create(txCtx, expense)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) Update(ctx context.Context, userID string, id uint, req ExpenseRequest) (*model.Expense, error) {
	v, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	var expense *model.Expense
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.expenseRepo.FindByID(txCtx, userID, id)
		if err != nil {
			return notFound(err, "Expense record")
		}
		existing.Date = req.Date
		existing.Vendor = trimmed(req.Vendor)
		existing.Description = trimmed(req.Description)
		existing.Category = v.category
		existing.Amount = v.amount
		existing.TaxRate = v.taxRate
		existing.TaxAmount = v.taxAmount
		existing.TotalAmount = v.totalAmount
		existing.PaymentMethod = v.paymentMethod
		existing.ReceiptPath = trimmed(req.ReceiptPath)
		existing.Notes = req.Notes
		if req.Status != "" {
			existing.Status = v.status
		}
		if err := s.expenseRepo.Update(txCtx, existing); err != nil {
			return notFound(err, "Expense record")
		}
		expense = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) UpdateStatus(ctx context.Context, userID string, id uint, status string) (*model.Expense, error) {
	if !expenseStatuses[status] {
		return nil, apperror.Validation("Invalid status",
			apperror.FieldError{Field: "status", Message: "Must be one of: paid pending overdue"})
	}
	if err := s.expenseRepo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, notFound(err, "Expense record")
	}
	return s.Get(ctx, userID, id)
}

func (s *expenseService) Delete(ctx context.Context, userID string, id uint) error {
	if err := s.expenseRepo.Delete(ctx, userID, id); err != nil {
		return notFound(err, "Expense record")
	}
	return nil
}

func (s *expenseService) Summary(ctx context.Context, userID string, r repository.DateRange) (*LedgerSummary, error) {
	if err := checkFilter(repository.LedgerFilter{StartDate: r.Start, EndDate: r.End}, expenseStatuses); err != nil {
		return nil, err
	}
	totals, err := s.expenseRepo.Summary(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return newLedgerSummary(r, totals, model.ExpenseStatusPaid, model.ExpenseStatusPending, model.ExpenseStatusOverdue), nil
}

func (s *expenseService) ByCategory(ctx context.Context, userID string, r repository.DateRange) ([]CategoryTotal, error) {
	if err := checkFilter(repository.LedgerFilter{StartDate: r.Start, EndDate: r.End}, expenseStatuses); err != nil {
		return nil, err
	}
	groups, err := s.expenseRepo.GroupBy(ctx, userID, "category", r, 0)
	if err != nil {
		return nil, err
	}
	return categoryShares(groups), nil
}

func categoryShares(groups []model.GroupTotal) []CategoryTotal {
	var grand float64
	for _, g := range groups {
		grand += g.TotalSum
	}
	out := make([]CategoryTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, CategoryTotal{
			Category:   g.Key,
			Name:       category.DisplayName(g.Key),
			Count:      g.Count,
			AmountSum:  g.AmountSum,
			TaxSum:     g.TaxSum,
			TotalSum:   g.TotalSum,
			Percentage: analytics.Round2(percentOf(g.TotalSum, grand)),
		})
	}
	return out
}

func (s *expenseService) Trend(ctx context.Context, userID string) (*TrendInsight, error) {
	now := s.now()
	cur := monthRange(now)
	prev := monthRange(monthStart(now).AddDate(0, -1, 0))

	curTotals, err := s.expenseRepo.Summary(ctx, userID, cur)
	if err != nil {
		return nil, err
	}
	prevTotals, err := s.expenseRepo.Summary(ctx, userID, prev)
	if err != nil {
		return nil, err
	}

	insight := trendInsight(curTotals.TotalSum, prevTotals.TotalSum)
	insight.CurrentMonth = cur.Start[:7]
	insight.PreviousMonth = prev.Start[:7]
	return insight, nil
}

// trendInsight tags a month-over-month change; changes within 5% are stable
func trendInsight(current, previous float64) *TrendInsight {
	t := &TrendInsight{
		CurrentTotal:  analytics.Round2(current),
		PreviousTotal: analytics.Round2(previous),
		Difference:    analytics.Round2(current - previous),
	}
	switch {
	case previous == 0 && current > 0:
		t.Trend = TrendIncrease
	case previous == 0:
		t.Trend = TrendStable
	default:
		t.PercentageChange = analytics.Round2(analytics.PercentChange(current, previous))
		switch {
		case t.PercentageChange > 5:
			t.Trend = TrendIncrease
		case t.PercentageChange < -5:
			t.Trend = TrendDecrease
		default:
			t.Trend = TrendStable
		}
	}

	switch t.Trend {
	case TrendIncrease:
		t.Message = "Spending is up compared with last month"
	case TrendDecrease:
		t.Message = "Spending is down compared with last month"
	default:
		t.Message = "Spending is in line with last month"
	}
	return t
}
