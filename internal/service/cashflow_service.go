package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"bookkeeping/internal/analytics"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"
)

const (
	MaxForecastDays = 365
	historyWindow   = analytics.ReferenceHistoryDays
)

// --- DTOs ---

type CashFlowForecast struct {
	Horizon         int     `json:"horizon_days"`
	HistoryDays     int     `json:"history_days"`
	AvgDailyIncome  float64 `json:"avg_daily_income"`
	AvgDailyExpense float64 `json:"avg_daily_expense"`
	analytics.Forecast
}

type CashFlowAnalysis struct {
	Months         []CashFlowMonth `json:"months"`
	AverageIncome  float64         `json:"average_income"`
	AverageExpense float64         `json:"average_expense"`
	AverageNet     float64         `json:"average_net"`
	Trend          analytics.Trend `json:"trend"`
	Direction      string          `json:"direction"`
	Volatility     float64         `json:"volatility"`
	BurnRate       float64         `json:"burn_rate"`
	CurrentBalance float64         `json:"current_balance"`
	RunwayMonths   *float64        `json:"runway_months"`
}

type CashFlowAlert struct {
	Type     string  `json:"type"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Amount   float64 `json:"amount,omitempty"`
	Date     string  `json:"date,omitempty"`
}

// --- Interface ---

type CashFlowService interface {
	Forecast(ctx context.Context, userID string, days int) (*CashFlowForecast, error)
	Analysis(ctx context.Context, userID string, months int) (*CashFlowAnalysis, error)
	Alerts(ctx context.Context, userID string) ([]CashFlowAlert, error)
}

type cashFlowService struct {
	incomeRepo  repository.IncomeRepository
	expenseRepo repository.ExpenseRepository
	statsRepo   repository.StatisticsRepository
	now         func() time.Time
}

func NewCashFlowService(
	incomeRepo repository.IncomeRepository,
	expenseRepo repository.ExpenseRepository,
	statsRepo repository.StatisticsRepository,
) CashFlowService {
	return &cashFlowService{
		incomeRepo:  incomeRepo,
		expenseRepo: expenseRepo,
		statsRepo:   statsRepo,
		now:         time.Now,
	}
}

// --- Implementation ---

func sumDaily(days []model.DailyFlow) float64 {
	var total float64
	for _, d := range days {
		total += d.Total
	}
	return total
}

func dailyMap(days []model.DailyFlow) map[string]float64 {
	out := make(map[string]float64, len(days))
	for _, d := range days {
		out[d.Date] = d.Total
	}
	return out
}

// historyDays is the number of days of ledger history behind today, capped at the reference window
func historyDays(first string, today time.Time) int {
	if first == "" {
		return 0
	}
	start, err := time.ParseInLocation(model.DateLayout, first, today.Location())
	if err != nil {
		return 0
	}
	n := int(math.Round(today.Sub(start).Hours()/24)) + 1
	if n < 0 {
		return 0
	}
	if n > historyWindow {
		return historyWindow
	}
	return n
}

func (s *cashFlowService) Forecast(ctx context.Context, userID string, days int) (*CashFlowForecast, error) {
	if days < 1 || days > MaxForecastDays {
		return nil, apperror.Validation("Invalid forecast horizon",
			apperror.FieldError{Field: "days", Message: fmt.Sprintf("Must be between 1 and %d", MaxForecastDays)})
	}
	today := dayOf(s.now())
	start := today.AddDate(0, 0, 1)
	past := repository.DateRange{
		Start: today.AddDate(0, 0, -(historyWindow - 1)).Format(model.DateLayout),
		End:   today.Format(model.DateLayout),
	}
	horizon := repository.DateRange{
		Start: start.Format(model.DateLayout),
		End:   start.AddDate(0, 0, days-1).Format(model.DateLayout),
	}

	first, err := s.statsRepo.FirstActivity(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.statsRepo.DailyTotals(ctx, userID, model.LedgerIncome, past, model.IncomeStatusReceived)
	if err != nil {
		return nil, err
	}
	paid, err := s.statsRepo.DailyTotals(ctx, userID, model.LedgerExpense, past, model.ExpenseStatusPaid)
	if err != nil {
		return nil, err
	}
	pendingIn, err := s.statsRepo.DailyTotals(ctx, userID, model.LedgerIncome, horizon, model.IncomeStatusPending)
	if err != nil {
		return nil, err
	}
	pendingOut, err := s.statsRepo.DailyTotals(ctx, userID, model.LedgerExpense, horizon, model.ExpenseStatusPending)
	if err != nil {
		return nil, err
	}
	balance, err := s.statsRepo.CashBalance(ctx, userID, past.End)
	if err != nil {
		return nil, err
	}

	hist := historyDays(first, today)
	var avgIn, avgOut float64
	if hist > 0 {
		avgIn = sumDaily(received) / float64(hist)
		avgOut = sumDaily(paid) / float64(hist)
	}

	f := analytics.DailyForecast(analytics.ForecastInput{
		Start:           start,
		Days:            days,
		CurrentBalance:  balance,
		AvgDailyIncome:  avgIn,
		AvgDailyExpense: avgOut,
		HistoryDays:     hist,
		PendingIncome:   dailyMap(pendingIn),
		PendingExpense:  dailyMap(pendingOut),
	})
	return &CashFlowForecast{
		Horizon:         days,
		HistoryDays:     hist,
		AvgDailyIncome:  analytics.Round2(avgIn),
		AvgDailyExpense: analytics.Round2(avgOut),
		Forecast:        f,
	}, nil
}

func (s *cashFlowService) Analysis(ctx context.Context, userID string, months int) (*CashFlowAnalysis, error) {
	if months <= 0 {
		months = 6
	}
	if months > 24 {
		months = 24
	}
	now := s.now()
	flows, err := monthlySeries(ctx, s.statsRepo, userID, monthsBack(now, months))
	if err != nil {
		return nil, err
	}
	balance, err := s.statsRepo.CashBalance(ctx, userID, now.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}

	income := make([]float64, len(flows))
	expense := make([]float64, len(flows))
	net := make([]float64, len(flows))
	out := &CashFlowAnalysis{Months: make([]CashFlowMonth, len(flows))}
	var cumulative, burn float64
	for i, f := range flows {
		income[i], expense[i] = f.Income, f.Expense
		net[i] = f.Income - f.Expense
		cumulative += net[i]
		if net[i] < 0 {
			burn += -net[i]
		}
		out.Months[i] = CashFlowMonth{
			Month:      f.Month,
			Income:     analytics.Round2(f.Income),
			Expense:    analytics.Round2(f.Expense),
			NetFlow:    analytics.Round2(net[i]),
			CashIn:     analytics.Round2(f.ReceivedIncome),
			CashOut:    analytics.Round2(f.PaidExpense),
			Cumulative: analytics.Round2(cumulative),
		}
	}

	trend := analytics.LinearTrend(net)
	out.Trend = analytics.Trend{
		Slope:     analytics.Round2(trend.Slope),
		Intercept: analytics.Round2(trend.Intercept),
		RSquared:  analytics.Round2(trend.RSquared),
	}
	out.AverageIncome = analytics.Round2(analytics.Mean(income))
	out.AverageExpense = analytics.Round2(analytics.Mean(expense))
	out.AverageNet = analytics.Round2(analytics.Mean(net))
	out.Direction = analytics.Direction(trend.Slope, analytics.Mean(net))
	out.Volatility = analytics.Round2(analytics.CoefficientOfVariation(net))
	out.BurnRate = analytics.Round2(burn / float64(len(flows)))
	out.CurrentBalance = analytics.Round2(balance)
	if out.BurnRate > 0 && balance > 0 {
		runway := analytics.Round2(balance / out.BurnRate)
		out.RunwayMonths = &runway
	}
	return out, nil
}

func (s *cashFlowService) Alerts(ctx context.Context, userID string) ([]CashFlowAlert, error) {
	alerts := make([]CashFlowAlert, 0)

	fc, err := s.Forecast(ctx, userID, 30)
	if err != nil {
		return nil, err
	}
	if fc.FirstNegativeDate != "" {
		alerts = append(alerts, CashFlowAlert{
			Type:     "negative_balance",
			Severity: "critical",
			Message:  "Cash balance is projected to turn negative within 30 days",
			Amount:   fc.LowestBalance,
			Date:     fc.FirstNegativeDate,
		})
	} else if fc.StartingBalance > 0 && fc.LowestBalance < fc.StartingBalance*0.3 {
		alerts = append(alerts, CashFlowAlert{
			Type:     "low_balance",
			Severity: "warning",
			Message:  "Cash balance is projected to drop below 30% of today's level",
			Amount:   fc.LowestBalance,
			Date:     fc.LowestBalanceDate,
		})
	}

	in, err := s.incomeRepo.Summary(ctx, userID, repository.DateRange{})
	if err != nil {
		return nil, err
	}
	if in.OverdueCount > 0 {
		alerts = append(alerts, CashFlowAlert{
			Type:     "overdue_receivables",
			Severity: "warning",
			Message:  fmt.Sprintf("%d overdue receivable(s) awaiting payment", in.OverdueCount),
			Amount:   analytics.Round2(in.OverdueSum),
		})
	}
	out, err := s.expenseRepo.Summary(ctx, userID, repository.DateRange{})
	if err != nil {
		return nil, err
	}
	if out.OverdueCount > 0 {
		alerts = append(alerts, CashFlowAlert{
			Type:     "overdue_payables",
			Severity: "high",
			Message:  fmt.Sprintf("%d overdue payable(s) should be settled", out.OverdueCount),
			Amount:   analytics.Round2(out.OverdueSum),
		})
	}

	var upcoming float64
	for i, d := range fc.Days {
		if i >= 7 {
			break
		}
		upcoming += d.PendingExpense
	}
	if upcoming > 0 && upcoming > fc.StartingBalance*0.5 {
		alerts = append(alerts, CashFlowAlert{
			Type:     "large_payables",
			Severity: "warning",
			Message:  "Payables due in the next 7 days exceed half of the current balance",
			Amount:   analytics.Round2(upcoming),
		})
	}
	return alerts, nil
}
