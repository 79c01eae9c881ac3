package service

import (
	"context"
	"time"

	"bookkeeping/internal/analytics"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"

	"golang.org/x/sync/errgroup"
)

// --- DTOs ---

type TaxTotals struct {
	OutputTax float64 `json:"output_tax"`
	InputTax  float64 `json:"input_tax"`
	NetTax    float64 `json:"net_tax"`
}

type Overview struct {
	Period      repository.DateRange `json:"period"`
	Income      *LedgerSummary       `json:"income"`
	Expense     *LedgerSummary       `json:"expense"`
	NetIncome   float64              `json:"net_income"`
	CashBalance float64              `json:"cash_balance"`
	Tax         TaxTotals            `json:"tax"`
}

type CashFlowMonth struct {
	Month      string  `json:"month"`
	Income     float64 `json:"income"`
	Expense    float64 `json:"expense"`
	NetFlow    float64 `json:"net_flow"`
	CashIn     float64 `json:"cash_in"`
	CashOut    float64 `json:"cash_out"`
	Cumulative float64 `json:"cumulative"`
}

type CategoryBreakdown struct {
	Period   repository.DateRange `json:"period"`
	Expense  []CategoryTotal      `json:"expense"`
	Income   []CategoryTotal      `json:"income"`
	Total    float64              `json:"total_expense"`
	TopShare float64              `json:"top_share"`
}

type HealthReport struct {
	Period repository.DateRange `json:"period"`
	analytics.FinancialHealth
	Recommendations []string `json:"recommendations"`
}

// --- Interface ---

type DashboardService interface {
	Overview(ctx context.Context, userID string, r repository.DateRange) (*Overview, error)
	CashFlow(ctx context.Context, userID string, months int) ([]CashFlowMonth, error)
	RecentTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error)
	CategoryBreakdown(ctx context.Context, userID string, r repository.DateRange) (*CategoryBreakdown, error)
	FinancialHealth(ctx context.Context, userID string, r repository.DateRange) (*HealthReport, error)
}

type dashboardService struct {
	incomeRepo  repository.IncomeRepository
	expenseRepo repository.ExpenseRepository
	statsRepo   repository.StatisticsRepository
	now         func() time.Time
}

func NewDashboardService(
	incomeRepo repository.IncomeRepository,
	expenseRepo repository.ExpenseRepository,
	statsRepo repository.StatisticsRepository,
) DashboardService {
	return &dashboardService{
		incomeRepo:  incomeRepo,
		expenseRepo: expenseRepo,
		statsRepo:   statsRepo,
		now:         time.Now,
	}
}

// --- Implementation ---

// totals loads both ledgers' totals for r concurrently
func (s *dashboardService) totals(ctx context.Context, userID string, r repository.DateRange) (model.LedgerTotals, model.LedgerTotals, error) {
	var in, out model.LedgerTotals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in, err = s.incomeRepo.Summary(gctx, userID, r)
		return err
	})
	g.Go(func() error {
		var err error
		out, err = s.expenseRepo.Summary(gctx, userID, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return in, out, err
	}
	return in, out, nil
}

func (s *dashboardService) Overview(ctx context.Context, userID string, r repository.DateRange) (*Overview, error) {
	r, err := checkRange(r, s.now())
	if err != nil {
		return nil, err
	}
	in, out, err := s.totals(ctx, userID, r)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Period:      r,
		Income:      newLedgerSummary(r, in, model.IncomeStatusReceived, model.IncomeStatusPending, model.IncomeStatusOverdue),
		Expense:     newLedgerSummary(r, out, model.ExpenseStatusPaid, model.ExpenseStatusPending, model.ExpenseStatusOverdue),
		NetIncome:   analytics.Round2(in.TotalSum - out.TotalSum),
		CashBalance: analytics.Round2(in.SettledSum - out.SettledSum),
		Tax: TaxTotals{
			OutputTax: analytics.Round2(in.TaxSum),
			InputTax:  analytics.Round2(out.TaxSum),
			NetTax:    analytics.Round2(in.TaxSum - out.TaxSum),
		},
	}, nil
}

// monthlySeries returns one flow per month key, zero-filled where the ledgers are empty
func monthlySeries(ctx context.Context, repo repository.StatisticsRepository, userID string, months []string) ([]model.MonthlyFlow, error) {
	flows, err := repo.MonthlyFlows(ctx, userID, months[0], months[len(months)-1])
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]model.MonthlyFlow, len(flows))
	for _, f := range flows {
		byMonth[f.Month] = f
	}
	out := make([]model.MonthlyFlow, len(months))
	for i, m := range months {
		f := byMonth[m]
		f.Month = m
		out[i] = f
	}
	return out, nil
}

func (s *dashboardService) CashFlow(ctx context.Context, userID string, months int) ([]CashFlowMonth, error) {
	if months <= 0 {
		months = 6
	}
	if months > 24 {
		months = 24
	}
	flows, err := monthlySeries(ctx, s.statsRepo, userID, monthsBack(s.now(), months))
	if err != nil {
		return nil, err
	}

	out := make([]CashFlowMonth, len(flows))
	var cumulative float64
	for i, f := range flows {
		net := f.Income - f.Expense
		cumulative += net
		out[i] = CashFlowMonth{
			Month:      f.Month,
			Income:     analytics.Round2(f.Income),
			Expense:    analytics.Round2(f.Expense),
			NetFlow:    analytics.Round2(net),
			CashIn:     analytics.Round2(f.ReceivedIncome),
			CashOut:    analytics.Round2(f.PaidExpense),
			Cumulative: analytics.Round2(cumulative),
		}
	}
	return out, nil
}

func (s *dashboardService) RecentTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.statsRepo.Transactions(ctx, userID, "", repository.DateRange{}, limit)
}

func (s *dashboardService) CategoryBreakdown(ctx context.Context, userID string, r repository.DateRange) (*CategoryBreakdown, error) {
	r, err := checkRange(r, s.now())
	if err != nil {
		return nil, err
	}
	expenseGroups, err := s.expenseRepo.GroupBy(ctx, userID, "category", r, 0)
	if err != nil {
		return nil, err
	}
	incomeGroups, err := s.incomeRepo.GroupBy(ctx, userID, "category", r, 0)
	if err != nil {
		return nil, err
	}

	out := &CategoryBreakdown{
		Period:  r,
		Expense: categoryShares(expenseGroups),
		Income:  categoryShares(incomeGroups),
	}
	for _, g := range expenseGroups {
		out.Total += g.TotalSum
	}
	out.Total = analytics.Round2(out.Total)
	if len(out.Expense) > 0 {
		out.TopShare = out.Expense[0].Percentage
	}
	return out, nil
}

func (s *dashboardService) FinancialHealth(ctx context.Context, userID string, r repository.DateRange) (*HealthReport, error) {
	r, err := checkRange(r, s.now())
	if err != nil {
		return nil, err
	}
	in, out, err := s.totals(ctx, userID, r)
	if err != nil {
		return nil, err
	}

	h := analytics.ScoreFinancialHealth(in.TotalSum, out.TotalSum, in.SettledSum, out.SettledSum)
	return &HealthReport{
		Period:          r,
		FinancialHealth: h,
		Recommendations: healthRecommendations(h, in),
	}, nil
}

func healthRecommendations(h analytics.FinancialHealth, in model.LedgerTotals) []string {
	recs := make([]string, 0)
	if h.ProfitMargin < 10 {
		recs = append(recs, "Profit margin is below 10%; review pricing and the largest cost categories")
	}
	if h.ExpenseRatio > 80 {
		recs = append(recs, "Expenses exceed 80% of revenue; look for recurring costs to cut")
	}
	if h.CashFlowRatio < 1 {
		recs = append(recs, "Cash paid out exceeds cash received; follow up on pending receivables")
	}
	if in.OverdueCount > 0 {
		recs = append(recs, "There are overdue receivables; send payment reminders")
	}
	if len(recs) == 0 {
		recs = append(recs, "Finances look healthy; keep monitoring monthly")
	}
	return recs
}
