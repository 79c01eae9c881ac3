package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"bookkeeping/internal/analytics"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"
)

// --- DTOs ---

type PeriodMetrics struct {
	Label            string               `json:"label"`
	Range            repository.DateRange `json:"range"`
	Revenue          float64              `json:"revenue"`
	Expense          float64              `json:"expense"`
	Profit           float64              `json:"profit"`
	ProfitMargin     float64              `json:"profit_margin"`
	IncomeCount      int64                `json:"income_count"`
	ExpenseCount     int64                `json:"expense_count"`
	AvgTransaction   float64              `json:"avg_transaction_value"`
	ReceivedRevenue  float64              `json:"received_revenue"`
	OutstandingSales float64              `json:"outstanding_sales"`
}

type Performance struct {
	Period   string             `json:"period"`
	Current  PeriodMetrics      `json:"current"`
	Previous PeriodMetrics      `json:"previous"`
	Growth   map[string]float64 `json:"growth"`
}

type MetricDelta struct {
	Metric  string  `json:"metric"`
	A       float64 `json:"a"`
	B       float64 `json:"b"`
	Delta   float64 `json:"delta"`
	Percent float64 `json:"percent"`
}

type Comparison struct {
	A       PeriodMetrics `json:"period_a"`
	B       PeriodMetrics `json:"period_b"`
	Metrics []MetricDelta `json:"metrics"`
}

type MonthProjection struct {
	Month            string  `json:"month"`
	ProjectedNet     float64 `json:"projected_net"`
	ProjectedIncome  float64 `json:"projected_income"`
	ProjectedExpense float64 `json:"projected_expense"`
}

type MonthlyForecast struct {
	History     []CashFlowMonth   `json:"history"`
	Projections []MonthProjection `json:"projections"`
	Trend       analytics.Trend   `json:"trend"`
	Direction   string            `json:"direction"`
	Confidence  string            `json:"confidence"`
}

type AnomalyReport struct {
	Ledger    string                        `json:"ledger"`
	Days      int                           `json:"days"`
	Baselines map[string]analytics.Baseline `json:"baselines"`
	Anomalies []analytics.Anomaly           `json:"anomalies"`
}

type MonthMargin struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Expense float64 `json:"expense"`
	Profit  float64 `json:"profit"`
	Margin  float64 `json:"margin"`
}

type CustomerConcentration struct {
	Customers    int             `json:"customers"`
	TopCustomer  string          `json:"top_customer"`
	TopShare     float64         `json:"top_share"`
	Top5Share    float64         `json:"top5_share"`
	Risk         string          `json:"risk"`
	TopCustomers []CategoryTotal `json:"top_customers"`
}

type Profitability struct {
	Range         repository.DateRange  `json:"range"`
	Monthly       []MonthMargin         `json:"monthly"`
	AverageMargin float64               `json:"average_margin"`
	MarginTrend   string                `json:"margin_trend"`
	ExpenseShares []CategoryTotal       `json:"expense_shares"`
	Concentration CustomerConcentration `json:"customer_concentration"`
}

// --- Interface ---

type AnalyticsService interface {
	Performance(ctx context.Context, userID, period string) (*Performance, error)
	Comparison(ctx context.Context, userID, periodA, periodB string) (*Comparison, error)
	CashFlowForecast(ctx context.Context, userID string, months int) (*MonthlyForecast, error)
	AnomalyDetection(ctx context.Context, userID, ledger string, days int) (*AnomalyReport, error)
	Profitability(ctx context.Context, userID string) (*Profitability, error)
}

type analyticsService struct {
	incomeRepo  repository.IncomeRepository
	expenseRepo repository.ExpenseRepository
	statsRepo   repository.StatisticsRepository
	now         func() time.Time
}

func NewAnalyticsService(
	incomeRepo repository.IncomeRepository,
	expenseRepo repository.ExpenseRepository,
	statsRepo repository.StatisticsRepository,
) AnalyticsService {
	return &analyticsService{
		incomeRepo:  incomeRepo,
		expenseRepo: expenseRepo,
		statsRepo:   statsRepo,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *analyticsService) metrics(ctx context.Context, userID, label string, r repository.DateRange) (PeriodMetrics, error) {
	in, err := s.incomeRepo.Summary(ctx, userID, r)
	if err != nil {
		return PeriodMetrics{}, err
	}
	out, err := s.expenseRepo.Summary(ctx, userID, r)
	if err != nil {
		return PeriodMetrics{}, err
	}
	profit := in.TotalSum - out.TotalSum
	var avg float64
	if in.Count > 0 {
		avg = in.TotalSum / float64(in.Count)
	}
	return PeriodMetrics{
		Label:            label,
		Range:            r,
		Revenue:          analytics.Round2(in.TotalSum),
		Expense:          analytics.Round2(out.TotalSum),
		Profit:           analytics.Round2(profit),
		ProfitMargin:     analytics.Round2(percentOf(profit, in.TotalSum)),
		IncomeCount:      in.Count,
		ExpenseCount:     out.Count,
		AvgTransaction:   analytics.Round2(avg),
		ReceivedRevenue:  analytics.Round2(in.SettledSum),
		OutstandingSales: analytics.Round2(in.PendingSum + in.OverdueSum),
	}, nil
}

// periodRanges returns the current and previous equivalent range of a month, quarter or year
func periodRanges(period string, now time.Time) (cur, prev repository.DateRange, label, prevLabel string, err error) {
	span := func(from time.Time, months int) repository.DateRange {
		return repository.DateRange{
			Start: from.Format(model.DateLayout),
			End:   from.AddDate(0, months, -1).Format(model.DateLayout),
		}
	}
	m := monthStart(now)
	switch period {
	case "", "month":
		p := m.AddDate(0, -1, 0)
		return span(m, 1), span(p, 1), m.Format("2006-01"), p.Format("2006-01"), nil
	case "quarter":
		q := time.Date(m.Year(), ((m.Month()-1)/3)*3+1, 1, 0, 0, 0, 0, m.Location())
		p := q.AddDate(0, -3, 0)
		return span(q, 3), span(p, 3), quarterLabel(q), quarterLabel(p), nil
	case "year":
		y := time.Date(m.Year(), time.January, 1, 0, 0, 0, 0, m.Location())
		p := y.AddDate(-1, 0, 0)
		return span(y, 12), span(p, 12), strconv.Itoa(y.Year()), strconv.Itoa(p.Year()), nil
	}
	return cur, prev, "", "", apperror.Validation("Invalid period",
		apperror.FieldError{Field: "period", Message: "Must be one of: month quarter year"})
}

func quarterLabel(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

func (s *analyticsService) Performance(ctx context.Context, userID, period string) (*Performance, error) {
	if period == "" {
		period = "month"
	}
	cur, prev, label, prevLabel, err := periodRanges(period, s.now())
	if err != nil {
		return nil, err
	}
	a, err := s.metrics(ctx, userID, label, cur)
	if err != nil {
		return nil, err
	}
	b, err := s.metrics(ctx, userID, prevLabel, prev)
	if err != nil {
		return nil, err
	}
	return &Performance{
		Period:   period,
		Current:  a,
		Previous: b,
		Growth: map[string]float64{
			"revenue":      analytics.Round2(analytics.PercentChange(a.Revenue, b.Revenue)),
			"expense":      analytics.Round2(analytics.PercentChange(a.Expense, b.Expense)),
			"profit":       analytics.Round2(analytics.PercentChange(a.Profit, b.Profit)),
			"transactions": analytics.Round2(analytics.PercentChange(float64(a.IncomeCount+a.ExpenseCount), float64(b.IncomeCount+b.ExpenseCount))),
		},
	}, nil
}

// labelRange parses a YYYY-MM or YYYY label into its date range
func labelRange(label string) (repository.DateRange, bool) {
	if monthPeriod.MatchString(label) {
		t, err := time.Parse("2006-01", label)
		if err != nil {
			return repository.DateRange{}, false
		}
		return monthRange(t), true
	}
	if yearPeriod.MatchString(label) {
		return repository.DateRange{Start: label + "-01-01", End: label + "-12-31"}, true
	}
	return repository.DateRange{}, false
}

func (s *analyticsService) Comparison(ctx context.Context, userID, periodA, periodB string) (*Comparison, error) {
	now := monthStart(s.now())
	if periodA == "" {
		periodA = now.Format("2006-01")
	}
	if periodB == "" {
		periodB = now.AddDate(0, -1, 0).Format("2006-01")
	}
	ra, okA := labelRange(periodA)
	rb, okB := labelRange(periodB)
	var details []apperror.FieldError
	if !okA {
		details = append(details, apperror.FieldError{Field: "period_a", Message: "Must be YYYY-MM or YYYY"})
	}
	if !okB {
		details = append(details, apperror.FieldError{Field: "period_b", Message: "Must be YYYY-MM or YYYY"})
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Invalid period", details...)
	}

	a, err := s.metrics(ctx, userID, periodA, ra)
	if err != nil {
		return nil, err
	}
	b, err := s.metrics(ctx, userID, periodB, rb)
	if err != nil {
		return nil, err
	}

	delta := func(name string, x, y float64) MetricDelta {
		return MetricDelta{
			Metric:  name,
			A:       x,
			B:       y,
			Delta:   analytics.Round2(x - y),
			Percent: analytics.Round2(analytics.PercentChange(x, y)),
		}
	}
	return &Comparison{
		A: a,
		B: b,
		Metrics: []MetricDelta{
			delta("revenue", a.Revenue, b.Revenue),
			delta("expense", a.Expense, b.Expense),
			delta("profit", a.Profit, b.Profit),
			delta("profit_margin", a.ProfitMargin, b.ProfitMargin),
			delta("income_count", float64(a.IncomeCount), float64(b.IncomeCount)),
			delta("expense_count", float64(a.ExpenseCount), float64(b.ExpenseCount)),
			delta("avg_transaction_value", a.AvgTransaction, b.AvgTransaction),
		},
	}, nil
}

func (s *analyticsService) CashFlowForecast(ctx context.Context, userID string, months int) (*MonthlyForecast, error) {
	if months <= 0 {
		months = 3
	}
	if months > 12 {
		months = 12
	}
	now := s.now()
	flows, err := monthlySeries(ctx, s.statsRepo, userID, monthsBack(now, 12))
	if err != nil {
		return nil, err
	}

	n := len(flows)
	income := make([]float64, n)
	expense := make([]float64, n)
	net := make([]float64, n)
	out := &MonthlyForecast{History: make([]CashFlowMonth, n), Projections: make([]MonthProjection, 0, months)}
	var cumulative float64
	for i, f := range flows {
		income[i], expense[i] = f.Income, f.Expense
		net[i] = f.Income - f.Expense
		cumulative += net[i]
		out.History[i] = CashFlowMonth{
			Month: f.Month, Income: analytics.Round2(f.Income), Expense: analytics.Round2(f.Expense),
			NetFlow: analytics.Round2(net[i]), CashIn: analytics.Round2(f.ReceivedIncome),
			CashOut: analytics.Round2(f.PaidExpense), Cumulative: analytics.Round2(cumulative),
		}
	}

	netTrend := analytics.LinearTrend(net)
	inTrend := analytics.LinearTrend(income)
	outTrend := analytics.LinearTrend(expense)
	first := monthStart(now)
	for i := 1; i <= months; i++ {
		x := n - 1 + i
		out.Projections = append(out.Projections, MonthProjection{
			Month:            first.AddDate(0, i, 0).Format("2006-01"),
			ProjectedNet:     analytics.Round2(netTrend.Project(x)),
			ProjectedIncome:  analytics.Round2(math.Max(0, inTrend.Project(x))),
			ProjectedExpense: analytics.Round2(math.Max(0, outTrend.Project(x))),
		})
	}
	out.Trend = analytics.Trend{
		Slope:     analytics.Round2(netTrend.Slope),
		Intercept: analytics.Round2(netTrend.Intercept),
		RSquared:  analytics.Round2(netTrend.RSquared),
	}
	out.Direction = analytics.Direction(netTrend.Slope, analytics.Mean(net))
	switch {
	case netTrend.RSquared >= 0.7:
		out.Confidence = "high"
	case netTrend.RSquared >= 0.4:
		out.Confidence = "medium"
	default:
		out.Confidence = "low"
	}
	return out, nil
}

func (s *analyticsService) AnomalyDetection(ctx context.Context, userID, ledger string, days int) (*AnomalyReport, error) {
	if days <= 0 {
		days = 90
	}
	if days > 365 {
		days = 365
	}
	var ledgers []string
	switch ledger {
	case "", "all":
		ledger = "all"
		ledgers = []string{model.LedgerIncome, model.LedgerExpense}
	case model.LedgerIncome, model.LedgerExpense:
		ledgers = []string{ledger}
	default:
		return nil, apperror.Validation("Invalid ledger",
			apperror.FieldError{Field: "ledger", Message: "Must be one of: income expense all"})
	}

	today := dayOf(s.now())
	r := repository.DateRange{
		Start: today.AddDate(0, 0, -(days - 1)).Format(model.DateLayout),
		End:   today.Format(model.DateLayout),
	}

	report := &AnomalyReport{
		Ledger:    ledger,
		Days:      days,
		Baselines: make(map[string]analytics.Baseline, len(ledgers)),
		Anomalies: make([]analytics.Anomaly, 0),
	}
	for _, l := range ledgers {
		txs, err := s.statsRepo.Transactions(ctx, userID, l, r, 0)
		if err != nil {
			return nil, err
		}
		obs := make([]analytics.Observation, len(txs))
		for i, t := range txs {
			obs[i] = analytics.Observation{
				ID: t.ID, DisplayID: t.DisplayID, Ledger: l, Date: t.Date,
				Label: t.Party, Category: t.Category, Value: t.TotalAmount,
			}
		}
		base, anomalies := analytics.DetectAnomalies(obs)
		report.Baselines[l] = base
		report.Anomalies = append(report.Anomalies, anomalies...)
	}
	return report, nil
}

func (s *analyticsService) Profitability(ctx context.Context, userID string) (*Profitability, error) {
	now := s.now()
	months := monthsBack(now, 12)
	flows, err := monthlySeries(ctx, s.statsRepo, userID, months)
	if err != nil {
		return nil, err
	}
	r := repository.DateRange{Start: months[0] + "-01", End: monthRange(now).End}

	out := &Profitability{Range: r, Monthly: make([]MonthMargin, len(flows))}
	margins := make([]float64, 0, len(flows))
	for i, f := range flows {
		profit := f.Income - f.Expense
		margin := percentOf(profit, f.Income)
		out.Monthly[i] = MonthMargin{
			Month: f.Month, Revenue: analytics.Round2(f.Income), Expense: analytics.Round2(f.Expense),
			Profit: analytics.Round2(profit), Margin: analytics.Round2(margin),
		}
		if f.Income > 0 {
			margins = append(margins, margin)
		}
	}
	out.AverageMargin = analytics.Round2(analytics.Mean(margins))
	out.MarginTrend = analytics.Direction(analytics.LinearTrend(margins).Slope, analytics.Mean(margins))

	expenses, err := s.expenseRepo.GroupBy(ctx, userID, "category", r, 0)
	if err != nil {
		return nil, err
	}
	out.ExpenseShares = categoryShares(expenses)

	customers, err := s.incomeRepo.GroupBy(ctx, userID, "customer", r, 0)
	if err != nil {
		return nil, err
	}
	out.Concentration = concentration(customers)
	return out, nil
}

func concentration(customers []model.GroupTotal) CustomerConcentration {
	shares := categoryShares(customers)
	for i := range shares {
		shares[i].Name = shares[i].Category
	}
	c := CustomerConcentration{Customers: len(customers), Risk: "low", TopCustomers: shares}
	if len(shares) > 5 {
		c.TopCustomers = shares[:5]
	}
	if len(shares) == 0 {
		return c
	}
	c.TopCustomer = shares[0].Category
	c.TopShare = shares[0].Percentage
	for i := 0; i < len(shares) && i < 5; i++ {
		c.Top5Share += shares[i].Percentage
	}
	c.Top5Share = analytics.Round2(c.Top5Share)
	switch {
	case c.TopShare >= 50:
		c.Risk = "high"
	case c.TopShare >= 30:
		c.Risk = "medium"
	}
	return c
}
