package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"bookkeeping/internal/analytics"
	"bookkeeping/internal/category"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventBudgetAlert is pushed when a budget execution enters warning or exceeded
const EventBudgetAlert = "budget.alert"

var (
	monthPeriod = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	yearPeriod  = regexp.MustCompile(`^\d{4}$`)

	warningLine = decimal.NewFromInt(80)
)

// --- DTOs ---

type BudgetRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Category    string   `json:"category" binding:"required,max=100"`
	BudgetType  string   `json:"budget_type" binding:"omitempty,oneof=monthly yearly"`
	Amount      *float64 `json:"amount" binding:"required,gte=0"`
	Period      string   `json:"period" binding:"required,period"`
	Description string   `json:"description"`
}

type BudgetWithExecution struct {
	model.Budget
	Execution *model.BudgetExecution `json:"execution"`
}

type BudgetOverview struct {
	Period       string                `json:"period"`
	BudgetCount  int                   `json:"budget_count"`
	TotalBudget  float64               `json:"total_budget"`
	TotalActual  float64               `json:"total_actual"`
	Remaining    float64               `json:"remaining"`
	OverallUsage float64               `json:"overall_usage"`
	StatusCounts map[string]int        `json:"status_counts"`
	Budgets      []BudgetWithExecution `json:"budgets"`
}

// BudgetAlert is the payload of EventBudgetAlert
type BudgetAlert struct {
	BudgetID        uint    `json:"budget_id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Period          string  `json:"period"`
	Status          string  `json:"status"`
	PreviousStatus  string  `json:"previous_status"`
	UsagePercentage float64 `json:"usage_percentage"`
	ActualAmount    float64 `json:"actual_amount"`
	BudgetAmount    float64 `json:"budget_amount"`
}

// --- Interface ---

type BudgetService interface {
	List(ctx context.Context, userID string, filter repository.BudgetFilter) ([]BudgetWithExecution, error)
	Get(ctx context.Context, userID string, id uint) (*BudgetWithExecution, error)
	Create(ctx context.Context, userID string, req BudgetRequest) (*BudgetWithExecution, error)
	Update(ctx context.Context, userID string, id uint, req BudgetRequest) (*BudgetWithExecution, error)
	Delete(ctx context.Context, userID string, id uint) error
	Categories(ctx context.Context) ([]model.BudgetCategory, error)
	Overview(ctx context.Context, userID, period string) (*BudgetOverview, error)
	RecomputeExecution(ctx context.Context, userID string, id uint, period string) (*model.BudgetExecution, error)
	GetExecution(ctx context.Context, userID string, id uint, period string) (*model.BudgetExecution, error)
}

type budgetService struct {
	budgetRepo repository.BudgetRepository
	statsRepo  repository.StatisticsRepository
	txManager  repository.TransactionManager
	notifier   Notifier
	logger     *zap.Logger
}

func NewBudgetService(
	budgetRepo repository.BudgetRepository,
	statsRepo repository.StatisticsRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
	logger *zap.Logger,
) BudgetService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &budgetService{
		budgetRepo: budgetRepo,
		statsRepo:  statsRepo,
		txManager:  txManager,
		notifier:   notifier,
		logger:     logger,
	}
}

// --- Implementation ---

// executionStatus maps a usage percentage to its status: normal < 80 <= warning < 100 <= exceeded
func executionStatus(usage decimal.Decimal) string {
	switch {
	case usage.GreaterThanOrEqual(hundred):
		return model.ExecutionExceeded
	case usage.GreaterThanOrEqual(warningLine):
		return model.ExecutionWarning
	default:
		return model.ExecutionNormal
	}
}

func usagePercentage(actual, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return actual.Div(amount).Mul(hundred).Round(2)
}

// budgetUsage reports usage and status. Any spend against a zero budget is exceeded
func budgetUsage(actual, amount decimal.Decimal) (decimal.Decimal, string) {
	if !amount.IsPositive() && actual.IsPositive() {
		return decimal.Zero, model.ExecutionExceeded
	}
	usage := usagePercentage(actual, amount)
	return usage, executionStatus(usage)
}

func validPeriod(budgetType, period string) bool {
	if budgetType == model.BudgetYearly {
		return yearPeriod.MatchString(period)
	}
	return monthPeriod.MatchString(period)
}

func (s *budgetService) normalize(req BudgetRequest) (*model.Budget, error) {
	var details []apperror.FieldError
	budgetType := req.BudgetType
	if budgetType == "" {
		budgetType = model.BudgetMonthly
	}
	if budgetType != model.BudgetMonthly && budgetType != model.BudgetYearly {
		details = append(details, apperror.FieldError{Field: "budget_type", Message: "Must be one of: monthly yearly"})
	}
	if trimmed(req.Name) == "" {
		details = append(details, apperror.FieldError{Field: "name", Message: "This field is required"})
	}
	cat, ok := category.Resolve(req.Category)
	if !ok {
		details = append(details, apperror.FieldError{Field: "category", Message: "Unknown budget category"})
	}
	if req.Amount == nil || *req.Amount < 0 {
		details = append(details, apperror.FieldError{Field: "amount", Message: "Must be greater than or equal to 0"})
	}
	if !validPeriod(budgetType, req.Period) {
		msg := "Must be a month in YYYY-MM format"
		if budgetType == model.BudgetYearly {
			msg = "Must be a year in YYYY format"
		}
		details = append(details, apperror.FieldError{Field: "period", Message: msg})
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Request validation failed", details...)
	}

	return &model.Budget{
		Name:        trimmed(req.Name),
		Category:    cat.Name,
		BudgetType:  budgetType,
		Amount:      decimal.NewFromFloat(*req.Amount).Round(2),
		Period:      req.Period,
		Description: req.Description,
	}, nil
}

// recompute sums the budget's category over period and upserts the execution row.
// It returns the alert to send once the surrounding transaction commits, if any.
func (s *budgetService) recompute(ctx context.Context, budget *model.Budget, period string) (*model.BudgetExecution, *BudgetAlert, error) {
	cat, ok := category.Resolve(budget.Category)
	if !ok {
		return nil, nil, apperror.Validation("Unknown budget category",
			apperror.FieldError{Field: "category", Message: "Unknown budget category"})
	}
	ledger := model.LedgerExpense
	if cat.Income {
		ledger = model.LedgerIncome
	}

	total, err := s.statsRepo.BucketTotal(ctx, budget.UserID, ledger, cat.Key, period)
	if err != nil {
		return nil, nil, err
	}

	previous := model.ExecutionNormal
	if old, err := s.budgetRepo.FindExecution(ctx, budget.ID, period); err == nil {
		previous = old.Status
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	actual := fromFloat(total)
	usage, status := budgetUsage(actual, budget.Amount)
	exec := &model.BudgetExecution{
		BudgetID:        budget.ID,
		Period:          period,
		ActualAmount:    actual,
		UsagePercentage: usage,
		Status:          status,
	}
	if err := s.budgetRepo.UpsertExecution(ctx, exec); err != nil {
		return nil, nil, err
	}

	var alert *BudgetAlert
	if exec.Status != model.ExecutionNormal && exec.Status != previous {
		alert = &BudgetAlert{
			BudgetID:        budget.ID,
			Name:            budget.Name,
			Category:        budget.Category,
			Period:          period,
			Status:          exec.Status,
			PreviousStatus:  previous,
			UsagePercentage: toFloat(usage),
			ActualAmount:    toFloat(actual),
			BudgetAmount:    toFloat(budget.Amount),
		}
	}
	return exec, alert, nil
}

func (s *budgetService) alert(userID string, a *BudgetAlert) {
	if a == nil {
		return
	}
	s.logger.Info("budget alert",
		zap.String("user_id", userID),
		zap.Uint("budget_id", a.BudgetID),
		zap.String("status", a.Status),
		zap.Float64("usage", a.UsagePercentage))
	s.notifier.Notify(userID, EventBudgetAlert, a)
}

func (s *budgetService) List(ctx context.Context, userID string, filter repository.BudgetFilter) ([]BudgetWithExecution, error) {
	budgets, err := s.budgetRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return s.attachExecutions(ctx, budgets)
}

func (s *budgetService) attachExecutions(ctx context.Context, budgets []model.Budget) ([]BudgetWithExecution, error) {
	ids := make([]uint, len(budgets))
	for i, b := range budgets {
		ids[i] = b.ID
	}
	execs, err := s.budgetRepo.ExecutionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	byBudget := make(map[uint]*model.BudgetExecution, len(execs))
	for i := range execs {
		if budgetPeriodOf(budgets, execs[i].BudgetID) == execs[i].Period {
			byBudget[execs[i].BudgetID] = &execs[i]
		}
	}

	out := make([]BudgetWithExecution, len(budgets))
	for i, b := range budgets {
		out[i] = BudgetWithExecution{Budget: b, Execution: byBudget[b.ID]}
	}
	return out, nil
}

func budgetPeriodOf(budgets []model.Budget, id uint) string {
	for _, b := range budgets {
		if b.ID == id {
			return b.Period
		}
	}
	return ""
}

func (s *budgetService) Get(ctx context.Context, userID string, id uint) (*BudgetWithExecution, error) {
	budget, err := s.budgetRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "Budget")
	}
	out := &BudgetWithExecution{Budget: *budget}
	exec, err := s.budgetRepo.FindExecution(ctx, budget.ID, budget.Period)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	out.Execution = exec
	return out, nil
}

func (s *budgetService) Create(ctx context.Context, userID string, req BudgetRequest) (*BudgetWithExecution, error) {
	budget, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	budget.UserID = userID

	var exec *model.BudgetExecution
	var alert *BudgetAlert
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.budgetRepo.Create(txCtx, budget); err != nil {
			return err
		}
		exec, alert, err = s.recompute(txCtx, budget, budget.Period)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.alert(userID, alert)
	return &BudgetWithExecution{Budget: *budget, Execution: exec}, nil
}

func (s *budgetService) Update(ctx context.Context, userID string, id uint, req BudgetRequest) (*BudgetWithExecution, error) {
	changes, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	var out *BudgetWithExecution
	var alert *BudgetAlert
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		budget, err := s.budgetRepo.FindByID(txCtx, userID, id)
		if err != nil {
			return notFound(err, "Budget")
		}
		if budget.Period != changes.Period {
			// executions of the old period no longer describe this budget
			if _, err := s.budgetRepo.DeleteExecutions(txCtx, budget.ID); err != nil {
				return err
			}
		}
		budget.Name = changes.Name
		budget.Category = changes.Category
		budget.BudgetType = changes.BudgetType
		budget.Amount = changes.Amount
		budget.Period = changes.Period
		budget.Description = changes.Description
		budget.UpdatedAt = time.Now()
		if err := s.budgetRepo.Update(txCtx, budget); err != nil {
			return notFound(err, "Budget")
		}

		exec, a, err := s.recompute(txCtx, budget, budget.Period)
		if err != nil {
			return err
		}
		alert = a
		out = &BudgetWithExecution{Budget: *budget, Execution: exec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.alert(userID, alert)
	return out, nil
}

func (s *budgetService) Delete(ctx context.Context, userID string, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.budgetRepo.FindByID(txCtx, userID, id); err != nil {
			return notFound(err, "Budget")
		}
		n, err := s.budgetRepo.DeleteExecutions(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.budgetRepo.Delete(txCtx, userID, id); err != nil {
			return notFound(err, "Budget")
		}
		s.logger.Debug("budget deleted", zap.Uint("budget_id", id), zap.Int64("executions", n))
		return nil
	})
}

func (s *budgetService) Categories(ctx context.Context) ([]model.BudgetCategory, error) {
	return s.budgetRepo.Categories(ctx)
}

func (s *budgetService) Overview(ctx context.Context, userID, period string) (*BudgetOverview, error) {
	if !monthPeriod.MatchString(period) && !yearPeriod.MatchString(period) {
		return nil, apperror.Validation("Invalid period",
			apperror.FieldError{Field: "period", Message: "Must be YYYY-MM or YYYY"})
	}
	rows, err := s.List(ctx, userID, repository.BudgetFilter{Period: period})
	if err != nil {
		return nil, err
	}

	out := &BudgetOverview{
		Period:      period,
		BudgetCount: len(rows),
		StatusCounts: map[string]int{
			model.ExecutionNormal:   0,
			model.ExecutionWarning:  0,
			model.ExecutionExceeded: 0,
		},
		Budgets: rows,
	}
	for _, b := range rows {
		out.TotalBudget += toFloat(b.Amount)
		status := model.ExecutionNormal
		if b.Execution != nil {
			out.TotalActual += toFloat(b.Execution.ActualAmount)
			status = b.Execution.Status
		}
		out.StatusCounts[status]++
	}
	out.TotalBudget = analytics.Round2(out.TotalBudget)
	out.TotalActual = analytics.Round2(out.TotalActual)
	out.Remaining = analytics.Round2(out.TotalBudget - out.TotalActual)
	out.OverallUsage = analytics.Round2(percentOf(out.TotalActual, out.TotalBudget))
	return out, nil
}

func (s *budgetService) RecomputeExecution(ctx context.Context, userID string, id uint, period string) (*model.BudgetExecution, error) {
	var exec *model.BudgetExecution
	var alert *BudgetAlert
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		budget, err := s.budgetRepo.FindByID(txCtx, userID, id)
		if err != nil {
			return notFound(err, "Budget")
		}
		if period == "" {
			period = budget.Period
		}
		if !validPeriod(budget.BudgetType, period) {
			return apperror.Validation("Invalid period",
				apperror.FieldError{Field: "period", Message: "Must match the budget type"})
		}
		exec, alert, err = s.recompute(txCtx, budget, period)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.alert(userID, alert)
	return exec, nil
}

func (s *budgetService) GetExecution(ctx context.Context, userID string, id uint, period string) (*model.BudgetExecution, error) {
	budget, err := s.budgetRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "Budget")
	}
	if period == "" {
		period = budget.Period
	}
	exec, err := s.budgetRepo.FindExecution(ctx, budget.ID, period)
	if err != nil {
		return nil, notFound(err, "Budget execution")
	}
	return exec, nil
}
