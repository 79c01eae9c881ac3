package service

import (
	"context"
	"time"

	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"
	"bookkeeping/pkg/pagination"

	"go.uber.org/zap"
)

// --- DTOs ---

type IncomeRequest struct {
	Date          string   `json:"date" binding:"required,date"`
	Customer      string   `json:"customer" binding:"required,max=255"`
	Description   string   `json:"description" binding:"required"`
	Category      string   `json:"category" binding:"max=50"`
	Amount        *float64 `json:"amount" binding:"required,gte=0"`
	TaxRate       *float64 `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	Status        string   `json:"status" binding:"omitempty,oneof=received pending overdue"`
	PaymentMethod string   `json:"payment_method" binding:"omitempty,oneof=bank_transfer check cash credit_card"`
	InvoiceNumber string   `json:"invoice_number" binding:"max=50"`
	Notes         string   `json:"notes"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

var incomeStatuses = map[string]bool{
	model.IncomeStatusReceived: true,
	model.IncomeStatusPending:  true,
	model.IncomeStatusOverdue:  true,
}

// --- Interface ---

type IncomeService interface {
	List(ctx context.Context, userID string, filter repository.LedgerFilter, p pagination.Params) ([]model.Income, pagination.Meta, error)
	Get(ctx context.Context, userID string, id uint) (*model.Income, error)
	Create(ctx context.Context, userID string, req IncomeRequest) (*model.Income, error)
	Update(ctx context.Context, userID string, id uint, req IncomeRequest) (*model.Income, error)
	UpdateStatus(ctx context.Context, userID string, id uint, status string) (*model.Income, error)
	Delete(ctx context.Context, userID string, id uint) error
	Summary(ctx context.Context, userID string, r repository.DateRange) (*LedgerSummary, error)
	TopCustomers(ctx context.Context, userID string, r repository.DateRange, limit int) ([]model.GroupTotal, error)
}

type incomeService struct {
	incomeRepo repository.IncomeRepository
	seqRepo    repository.SequenceRepository
	txManager  repository.TransactionManager
	logger     *zap.Logger
	now        func() time.Time
}

func NewIncomeService(
	incomeRepo repository.IncomeRepository,
	seqRepo repository.SequenceRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) IncomeService {
	return &incomeService{
		incomeRepo: incomeRepo,
		seqRepo:    seqRepo,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *incomeService) List(ctx context.Context, userID string, filter repository.LedgerFilter, p pagination.Params) ([]model.Income, pagination.Meta, error) {
	if err := checkFilter(filter, incomeStatuses); err != nil {
		return nil, pagination.Meta{}, err
	}
	resolveFilterCategory(&filter)

	rows, total, err := s.incomeRepo.List(ctx, userID, filter, p)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return rows, p.Meta(total), nil
}

func (s *incomeService) Get(ctx context.Context, userID string, id uint) (*model.Income, error) {
	income, err := s.incomeRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "Income record")
	}
	return income, nil
}

func (s *incomeService) normalize(req IncomeRequest) (ledgerValues, error) {
	return normalizeLedger(ledgerInput{
		date:          req.Date,
		party:         req.Customer,
		partyField:    "customer",
		description:   req.Description,
		category:      req.Category,
		amount:        req.Amount,
		taxRate:       req.TaxRate,
		status:        req.Status,
		paymentMethod: req.PaymentMethod,
	}, true, incomeStatuses, "sales")
}

func (s *incomeService) Create(ctx context.Context, userID string, req IncomeRequest) (*model.Income, error) {
	v, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	income := &model.Income{
		UserID:        userID,
		Date:          req.Date,
		Customer:      trimmed(req.Customer),
		Description:   trimmed(req.Description),
		Category:      v.category,
		Amount:        v.amount,
		TaxRate:       v.taxRate,
		TaxAmount:     v.taxAmount,
		TotalAmount:   v.totalAmount,
		Status:        v.status,
		PaymentMethod: v.paymentMethod,
		InvoiceNumber: trimmed(req.InvoiceNumber),
		Notes:         req.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.seqRepo.Next(txCtx, userID, model.LedgerIncome)
		if err != nil {
			return err
		}
		income.IncomeID = displayID(model.IncomeIDPrefix, n)
		return s.incomeRepo.Create(txCtx, income)
	})
	if err != nil {
		return nil, err
	}
	return income, nil
}

func (s *incomeService) Update(ctx context.Context, userID string, id uint, req IncomeRequest) (*model.Income, error) {
	v, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	var income *model.Income
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.incomeRepo.FindByID(txCtx, userID, id)
		if err != nil {
			return notFound(err, "Income record")
		}
		existing.Date = req.Date
		existing.Customer = trimmed(req.Customer)
		existing.Description = trimmed(req.Description)
		existing.Category = v.category
		existing.Amount = v.amount
		existing.TaxRate = v.taxRate
		existing.TaxAmount = v.taxAmount
		existing.TotalAmount = v.totalAmount
		existing.PaymentMethod = v.paymentMethod
		existing.InvoiceNumber = trimmed(req.InvoiceNumber)
		existing.Notes = req.Notes
		if req.Status != "" {
			existing.Status = v.status
		}
		if err := s.incomeRepo.Update(txCtx, existing); err != nil {
			return notFound(err, "Income record")
		}
		income = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return income, nil
}

func (s *incomeService) UpdateStatus(ctx context.Context, userID string, id uint, status string) (*model.Income, error) {
	if !incomeStatuses[status] {
		return nil, apperror.Validation("Invalid status",
			apperror.FieldError{Field: "status", Message: "Must be one of: received pending overdue"})
	}
	if err := s.incomeRepo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, notFound(err, "Income record")
	}
	return s.Get(ctx, userID, id)
}

func (s *incomeService) Delete(ctx context.Context, userID string, id uint) error {
	if err := s.incomeRepo.Delete(ctx, userID, id); err != nil {
		return notFound(err, "Income record")
	}
	return nil
}

func (s *incomeService) Summary(ctx context.Context, userID string, r repository.DateRange) (*LedgerSummary, error) {
	if err := checkFilter(repository.LedgerFilter{StartDate: r.Start, EndDate: r.End}, incomeStatuses); err != nil {
		return nil, err
	}
	totals, err := s.incomeRepo.Summary(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return newLedgerSummary(r, totals, model.IncomeStatusReceived, model.IncomeStatusPending, model.IncomeStatusOverdue), nil
}

func (s *incomeService) TopCustomers(ctx context.Context, userID string, r repository.DateRange, limit int) ([]model.GroupTotal, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.incomeRepo.GroupBy(ctx, userID, "customer", r, limit)
}
