package repository

import (
	"context"
	"time"

	"bookkeeping/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetFilter narrows a budget listing
type BudgetFilter struct {
	Period     string
	BudgetType string
}

type BudgetRepository interface {
	Create(ctx context.Context, budget *model.Budget) error
	Update(ctx context.Context, budget *model.Budget) error
	Delete(ctx context.Context, userID string, id uint) error
	FindByID(ctx context.Context, userID string, id uint) (*model.Budget, error)
	List(ctx context.Context, userID string, filter BudgetFilter) ([]model.Budget, error)

	UpsertExecution(ctx context.Context, exec *model.BudgetExecution) error
	FindExecution(ctx context.Context, budgetID uint, period string) (*model.BudgetExecution, error)
	ExecutionsFor(ctx context.Context, budgetIDs []uint) ([]model.BudgetExecution, error)
	DeleteExecutions(ctx context.Context, budgetID uint) (int64, error)

	Categories(ctx context.Context) ([]model.BudgetCategory, error)
}

type budgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) Create(ctx context.Context, budget *model.Budget) error {
	return GetDB(ctx, r.db).Create(budget).Error
}

func (r *budgetRepository) Update(ctx context.Context, budget *model.Budget) error {
	res := GetDB(ctx, r.db).Model(budget).
		Where("user_id = ?", budget.UserID).
		Select("name", "category", "budget_type", "amount", "period", "description", "updated_at").
		Updates(budget)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *budgetRepository) Delete(ctx context.Context, userID string, id uint) error {
	return deleteOwned(GetDB(ctx, r.db), &model.Budget{}, userID, id)
}

func (r *budgetRepository) FindByID(ctx context.Context, userID string, id uint) (*model.Budget, error) {
	var budget model.Budget
	if err := GetDB(ctx, r.db).First(&budget, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *budgetRepository) List(ctx context.Context, userID string, filter BudgetFilter) ([]model.Budget, error) {
	budgets := make([]model.Budget, 0)
	q := GetDB(ctx, r.db).Where("user_id = ?", userID)
	if filter.Period != "" {
		q = q.Where("period = ?", filter.Period)
	}
	if filter.BudgetType != "" {
		q = q.Where("budget_type = ?", filter.BudgetType)
	}
	if err := q.Order("period DESC, id ASC").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *budgetRepository) UpsertExecution(ctx context.Context, exec *model.BudgetExecution) error {
	exec.UpdatedAt = time.Now()
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "budget_id"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"actual_amount", "usage_percentage", "status", "updated_at"}),
	}).Create(exec).Error
}

func (r *budgetRepository) FindExecution(ctx context.Context, budgetID uint, period string) (*model.BudgetExecution, error) {
	var exec model.BudgetExecution
	if err := GetDB(ctx, r.db).First(&exec, "budget_id = ? AND period = ?", budgetID, period).Error; err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *budgetRepository) ExecutionsFor(ctx context.Context, budgetIDs []uint) ([]model.BudgetExecution, error) {
	execs := make([]model.BudgetExecution, 0)
	if len(budgetIDs) == 0 {
		return execs, nil
	}
	if err := GetDB(ctx, r.db).Where("budget_id IN ?", budgetIDs).Find(&execs).Error; err != nil {
		return nil, err
	}
	return execs, nil
}

func (r *budgetRepository) DeleteExecutions(ctx context.Context, budgetID uint) (int64, error) {
	res := GetDB(ctx, r.db).Where("budget_id = ?", budgetID).Delete(&model.BudgetExecution{})
	return res.RowsAffected, res.Error
}

func (r *budgetRepository) Categories(ctx context.Context) ([]model.BudgetCategory, error) {
	cats := make([]model.BudgetCategory, 0)
	if err := GetDB(ctx, r.db).Order("sort_order ASC, id ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}
