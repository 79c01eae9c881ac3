package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"bookkeeping/internal/analytics"
	"bookkeeping/internal/category"
	"bookkeeping/internal/model"
	"bookkeeping/internal/ocr"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	healthMonths      = 6
	recurringWindow   = 180
	recurringMinCount = 3
)

// --- DTOs ---

type ClassifyRequest struct {
	Description string   `json:"description" binding:"required,max=500"`
	Party       string   `json:"party" binding:"max=200"`
	Amount      *float64 `json:"amount" binding:"omitempty,gte=0"`
	Type        string   `json:"type" binding:"omitempty,oneof=income expense"`
}

type CategoryGuess struct {
	Category   string   `json:"category"`
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

type Classification struct {
	CategoryGuess
	Type         string          `json:"type"`
	Alternatives []CategoryGuess `json:"alternatives"`
}

type ChatRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
}

type ChatReply struct {
	Intent      string        `json:"intent"`
	Reply       string        `json:"reply"`
	Scores      []IntentScore `json:"scores"`
	Data        interface{}   `json:"data,omitempty"`
	Suggestions []string      `json:"suggestions"`
}

type SmartReportRequest struct {
	StartDate string `json:"start_date" binding:"omitempty,date"`
	EndDate   string `json:"end_date" binding:"omitempty,date"`
}

type SmartReport struct {
	Period       repository.DateRange  `json:"period"`
	Overview     *Overview             `json:"overview"`
	TopExpenses  []CategoryTotal       `json:"top_expenses"`
	TopCustomers []model.GroupTotal    `json:"top_customers"`
	Health       analytics.HealthScore `json:"health"`
	Highlights   []string              `json:"highlights"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

type ScanResult struct {
	Receipt *ocr.Receipt   `json:"receipt"`
	Saved   bool           `json:"saved"`
	Expense *model.Expense `json:"expense,omitempty"`
}

type Reminder struct {
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	DueDate  string  `json:"due_date,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Priority string  `json:"priority"`
}

type HealthScoreReport struct {
	Months []string `json:"months"`
	analytics.HealthScore
	Recommendations []string `json:"recommendations"`
}

type Insight struct {
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Value   float64 `json:"value"`
}

type TaskSuggestion struct {
	Task     string `json:"task"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
	Link     string `json:"link"`
}

type FinancialGoal struct {
	Name     string  `json:"name"`
	Target   float64 `json:"target"`
	Current  float64 `json:"current"`
	Progress float64 `json:"progress"`
	Unit     string  `json:"unit"`
	Achieved bool    `json:"achieved"`
}

type AutomationSuggestion struct {
	Vendor        string  `json:"vendor"`
	Category      string  `json:"category"`
	Occurrences   int     `json:"occurrences"`
	AverageAmount float64 `json:"average_amount"`
	LastDate      string  `json:"last_date"`
	Suggestion    string  `json:"suggestion"`
}

type ReceiptTemplate struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Fields   []string `json:"fields"`
	Example  string   `json:"example"`
}

// --- Interface ---

type AssistantService interface {
	Classify(ctx context.Context, req ClassifyRequest) (*Classification, error)
	Chat(ctx context.Context, userID string, req ChatRequest) (*ChatReply, error)
	SmartReport(ctx context.Context, userID string, req SmartReportRequest) (*SmartReport, error)
	ScanReceipt(ctx context.Context, userID string, img ocr.Image, save bool) (*ScanResult, error)
	Reminders(ctx context.Context, userID string) ([]Reminder, error)
	HealthScore(ctx context.Context, userID string) (*HealthScoreReport, error)
	Insights(ctx context.Context, userID string) ([]Insight, error)
	TaskSuggestions(ctx context.Context, userID string) ([]TaskSuggestion, error)
	FinancialGoals(ctx context.Context, userID string) ([]FinancialGoal, error)
	AutomationSuggestions(ctx context.Context, userID string) ([]AutomationSuggestion, error)
	BackupStatus(ctx context.Context) (*BackupStatus, error)
	Backup(ctx context.Context, userID string) (*model.Backup, error)
	ReceiptTemplates() []ReceiptTemplate
}

type assistantService struct {
	incomes   IncomeService
	expenses  ExpenseService
	dashboard DashboardService
	cashflow  CashFlowService
	taxes     TaxService
	budgets   BudgetService
	backups   BackupService
	statsRepo repository.StatisticsRepository
	scanner   ocr.ReceiptScanner
	logger    *zap.Logger
	now       func() time.Time
}

// AssistantDeps groups the collaborators of the assistant
type AssistantDeps struct {
	Incomes   IncomeService
	Expenses  ExpenseService
	Dashboard DashboardService
	CashFlow  CashFlowService
	Taxes     TaxService
	Budgets   BudgetService
	Backups   BackupService
	StatsRepo repository.StatisticsRepository
	Scanner   ocr.ReceiptScanner
}

func NewAssistantService(deps AssistantDeps, logger *zap.Logger) AssistantService {
	return &assistantService{
		incomes:   deps.Incomes,
		expenses:  deps.Expenses,
		dashboard: deps.Dashboard,
		cashflow:  deps.CashFlow,
		taxes:     deps.Taxes,
		budgets:   deps.Budgets,
		backups:   deps.Backups,
		statsRepo: deps.StatsRepo,
		scanner:   deps.Scanner,
		logger:    logger,
		now:       time.Now,
	}
}

// --- Classification ---

func (s *assistantService) Classify(ctx context.Context, req ClassifyRequest) (*Classification, error) {
	text := req.Description + " " + req.Party
	kind := req.Type
	if kind == "" {
		kind = model.LedgerExpense
		if len(category.Classify(text, true)) > len(category.Classify(text, false)) {
			kind = model.LedgerIncome
		}
	}
	income := kind == model.LedgerIncome
	matches := category.Classify(text, income)

	out := &Classification{Type: kind, Alternatives: make([]CategoryGuess, 0)}
	if len(matches) == 0 {
		key := category.Other
		if income {
			key = category.OtherIncome
		}
		fallback, _ := category.ByKey(key)
		out.CategoryGuess = CategoryGuess{Category: fallback.Key, Name: fallback.Name, Confidence: 0.3, Keywords: []string{}}
		return out, nil
	}

	hits := 0
	for _, m := range matches {
		hits += m.Hits
	}
	for i, m := range matches {
		g := CategoryGuess{
			Category:   m.Category.Key,
			Name:       m.Category.Name,
			Confidence: analytics.Round2(math.Min(0.95, 0.5+0.45*float64(m.Hits)/float64(hits))),
			Keywords:   m.Matched,
		}
		if i == 0 {
			out.CategoryGuess = g
			continue
		}
		if len(out.Alternatives) < 3 {
			out.Alternatives = append(out.Alternatives, g)
		}
	}
	return out, nil
}

// --- Chat ---

var chatSuggestions = map[string][]string{
	IntentCashFlow: {"Show the cash flow alerts", "Forecast the next 90 days"},
	IntentExpense:  {"Which category grew the most?", "Show expenses by category"},
	IntentIncome:   {"Who are my top customers?", "Which invoices are overdue?"},
	IntentTax:      {"Calculate my income tax", "When is the next filing deadline?"},
	IntentBudget:   {"Which budgets are close to the limit?", "Create a budget"},
	IntentHealth:   {"How can I improve my score?", "Show profitability analysis"},
	IntentGeneral:  {"How is my cash flow?", "What did I spend this month?", "What is my health score?"},
}

func (s *assistantService) Chat(ctx context.Context, userID string, req ChatRequest) (*ChatReply, error) {
	intent, scores := classifyIntent(req.Message)
	data, view, err := s.answer(ctx, userID, intent)
	if err != nil {
		return nil, err
	}
	reply, err := renderReply(intent, view)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s reply: %w", intent, err)
	}
	return &ChatReply{
		Intent:      intent,
		Reply:       reply,
		Scores:      scores,
		Data:        data,
		Suggestions: chatSuggestions[intent],
	}, nil
}

// answer runs the aggregation behind an intent and returns the raw data plus the template view
func (s *assistantService) answer(ctx context.Context, userID, intent string) (interface{}, interface{}, error) {
	now := s.now()
	month := monthRange(now)

	switch intent {
	case IntentCashFlow:
		f, err := s.cashflow.Forecast(ctx, userID, 30)
		if err != nil {
			return nil, nil, err
		}
		return f, map[string]interface{}{
			"Balance":      f.StartingBalance,
			"Days":         f.Horizon,
			"Ending":       f.EndingBalance,
			"Lowest":       f.LowestBalance,
			"LowestDate":   f.LowestBalanceDate,
			"Risk":         f.OverallRisk,
			"Confidence":   f.AverageConfidence,
			"NegativeDate": f.FirstNegativeDate,
		}, nil

	case IntentExpense:
		var (
			sum   *LedgerSummary
			cats  []CategoryTotal
			trend *TrendInsight
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { sum, err = s.expenses.Summary(gctx, userID, month); return })
		g.Go(func() (err error) { cats, err = s.expenses.ByCategory(gctx, userID, month); return })
		g.Go(func() (err error) { trend, err = s.expenses.Trend(gctx, userID); return })
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		view := map[string]interface{}{
			"Total":  sum.TotalSum,
			"Count":  sum.Count,
			"Trend":  trend.Trend,
			"Change": trend.PercentageChange,
		}
		if len(cats) > 0 {
			view["TopCategory"] = cats[0].Name
			view["TopShare"] = cats[0].Percentage
		}
		return map[string]interface{}{"summary": sum, "categories": cats, "trend": trend}, view, nil

	case IntentIncome:
		sum, err := s.incomes.Summary(ctx, userID, month)
		if err != nil {
			return nil, nil, err
		}
		top, err := s.incomes.TopCustomers(ctx, userID, month, 1)
		if err != nil {
			return nil, nil, err
		}
		view := map[string]interface{}{
			"Total":       sum.TotalSum,
			"Count":       sum.Count,
			"Received":    sum.ByStatus[model.IncomeStatusReceived].Total,
			"Outstanding": sum.ByStatus[model.IncomeStatusPending].Total + sum.ByStatus[model.IncomeStatusOverdue].Total,
		}
		if len(top) > 0 {
			view["TopCustomer"] = top[0].Key
			view["TopCustomerTotal"] = top[0].TotalSum
		}
		return map[string]interface{}{"summary": sum, "top_customers": top}, view, nil

	case IntentTax:
		ov, err := s.dashboard.Overview(ctx, userID, month)
		if err != nil {
			return nil, nil, err
		}
		reminders := s.taxes.FilingReminders(ctx)
		view := map[string]interface{}{
			"OutputTax": ov.Tax.OutputTax,
			"InputTax":  ov.Tax.InputTax,
			"Payable":   math.Max(0, ov.Tax.NetTax),
		}
		if len(reminders) > 0 {
			view["NextTitle"] = reminders[0].Title
			view["NextDate"] = reminders[0].DueDate
			view["NextDays"] = reminders[0].DaysRemaining
		}
		return map[string]interface{}{"tax": ov.Tax, "reminders": reminders}, view, nil

	case IntentBudget:
		period := now.Format("2006-01")
		ov, err := s.budgets.Overview(ctx, userID, period)
		if err != nil {
			return nil, nil, err
		}
		return ov, map[string]interface{}{
			"Period":   period,
			"Count":    ov.BudgetCount,
			"Budget":   ov.TotalBudget,
			"Actual":   ov.TotalActual,
			"Usage":    ov.OverallUsage,
			"Warning":  ov.StatusCounts[model.ExecutionWarning],
			"Exceeded": ov.StatusCounts[model.ExecutionExceeded],
		}, nil

	case IntentHealth:
		h, err := s.HealthScore(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		view := map[string]interface{}{"Total": h.Total, "Grade": h.Grade}
		if w, ok := weakest(h.Components); ok {
			view["Weakest"] = w.Name
		}
		return h, view, nil
	}
	return nil, nil, nil
}

// weakest is the component with the lowest share of its maximum
func weakest(cs []analytics.HealthComponent) (analytics.HealthComponent, bool) {
	var out analytics.HealthComponent
	best := math.Inf(1)
	for _, c := range cs {
		if c.Max <= 0 {
			continue
		}
		if r := c.Score / c.Max; r < best {
			best, out = r, c
		}
	}
	return out, !math.IsInf(best, 1)
}

// --- Smart report ---

func (s *assistantService) SmartReport(ctx context.Context, userID string, req SmartReportRequest) (*SmartReport, error) {
	r, err := checkRange(repository.DateRange{Start: req.StartDate, End: req.EndDate}, s.now())
	if err != nil {
		return nil, err
	}

	out := &SmartReport{Period: r, GeneratedAt: s.now()}
	var health *HealthScoreReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.Overview, err = s.dashboard.Overview(gctx, userID, r); return })
	g.Go(func() (err error) { out.TopExpenses, err = s.expenses.ByCategory(gctx, userID, r); return })
	g.Go(func() (err error) { out.TopCustomers, err = s.incomes.TopCustomers(gctx, userID, r, 5); return })
	g.Go(func() (err error) { health, err = s.HealthScore(gctx, userID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(out.TopExpenses) > 5 {
		out.TopExpenses = out.TopExpenses[:5]
	}
	out.Health = health.HealthScore
	out.Highlights = highlights(out)
	return out, nil
}

func highlights(rep *SmartReport) []string {
	ov := rep.Overview
	out := []string{
		fmt.Sprintf("Income %s, expenses %s, net %s", formatMoney(ov.Income.TotalSum), formatMoney(ov.Expense.TotalSum), formatMoney(ov.NetIncome)),
	}
	if ov.Income.TotalSum > 0 {
		out = append(out, fmt.Sprintf("Profit margin %s", formatPercent(percentOf(ov.NetIncome, ov.Income.TotalSum))))
	}
	if len(rep.TopExpenses) > 0 {
		c := rep.TopExpenses[0]
		out = append(out, fmt.Sprintf("Largest expense category: %s (%s)", c.Name, formatPercent(c.Percentage)))
	}
	if len(rep.TopCustomers) > 0 {
		c := rep.TopCustomers[0]
		out = append(out, fmt.Sprintf("Top customer: %s (%s)", c.Key, formatMoney(c.TotalSum)))
	}
	if n := ov.Income.ByStatus[model.IncomeStatusOverdue].Count; n > 0 {
		out = append(out, fmt.Sprintf("%d overdue receivable(s) need follow-up", n))
	}
	out = append(out, fmt.Sprintf("Health score %.0f (grade %s)", rep.Health.Total, rep.Health.Grade))
	return out
}

// --- Receipts ---

func (s *assistantService) ScanReceipt(ctx context.Context, userID string, img ocr.Image, save bool) (*ScanResult, error) {
	receipt, err := s.scanner.Scan(ctx, img)
	if err != nil {
		if errors.Is(err, ocr.ErrEmptyImage) {
			return nil, apperror.Validation("Receipt image is required",
				apperror.FieldError{Field: "receipt", Message: "Must not be empty"})
		}
		return nil, fmt.Errorf("failed to scan receipt: %w", err)
	}

	out := &ScanResult{Receipt: receipt}
	if !save {
		return out, nil
	}

	amount := receipt.Amount
	rate := analytics.Round2(percentOf(receipt.TaxAmount, receipt.Amount))
	exp, err := s.expenses.Create(ctx, userID, ExpenseRequest{
		Date:        receipt.Date,
		Vendor:      receipt.Vendor,
		Description: receiptDescription(receipt),
		Category:    receipt.Category,
		Amount:      &amount,
		TaxRate:     &rate,
		Status:      model.ExpenseStatusPending,
		Notes:       fmt.Sprintf("Invoice %s scanned from %s (%s, confidence %.2f)", receipt.InvoiceNumber, img.FileName, receipt.Engine, receipt.Confidence),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Scanned receipt recorded", zap.String("user_id", userID), zap.String("expense_id", exp.ExpenseID))
	out.Saved = true
	out.Expense = exp
	return out, nil
}

func receiptDescription(r *ocr.Receipt) string {
	names := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		names = append(names, it.Description)
	}
	if len(names) == 0 {
		return "Receipt from " + r.Vendor
	}
	desc := strings.Join(names, ", ")
	if len([]rune(desc)) > 200 {
		desc = string([]rune(desc)[:200])
	}
	return desc
}

var receiptTemplates = []ReceiptTemplate{
	{Name: "Uniform invoice", Category: category.OfficeSupplies, Fields: []string{"invoice_number", "date", "vendor", "tax_id", "amount", "tax_amount"}, Example: "AB-12345678"},
	{Name: "Electronic invoice", Category: category.OfficeSupplies, Fields: []string{"invoice_number", "date", "vendor", "amount", "carrier"}, Example: "CD-87654321"},
	{Name: "Taxi receipt", Category: category.Travel, Fields: []string{"date", "vendor", "amount", "plate_number"}, Example: "NT$285"},
	{Name: "Restaurant receipt", Category: category.Meals, Fields: []string{"date", "vendor", "amount", "items"}, Example: "NT$1,260"},
	{Name: "Utility bill", Category: category.Utilities, Fields: []string{"account_number", "billing_period", "due_date", "amount"}, Example: "NT$3,450"},
}

func (s *assistantService) ReceiptTemplates() []ReceiptTemplate {
	return receiptTemplates
}

// --- Reminders and health ---

func (s *assistantService) Reminders(ctx context.Context, userID string) ([]Reminder, error) {
	out := make([]Reminder, 0)
	for _, f := range s.taxes.FilingReminders(ctx) {
		if f.DaysRemaining > 30 {
			continue
		}
		out = append(out, Reminder{
			Type:     "tax_filing",
			Title:    f.Title,
			Message:  fmt.Sprintf("%s is due in %d day(s)", f.Title, f.DaysRemaining),
			DueDate:  f.DueDate,
			Priority: f.Urgency,
		})
	}

	alerts, err := s.cashflow.Alerts(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		out = append(out, Reminder{
			Type:     a.Type,
			Title:    strings.ReplaceAll(a.Type, "_", " "),
			Message:  a.Message,
			DueDate:  a.Date,
			Amount:   a.Amount,
			Priority: a.Severity,
		})
	}

	ov, err := s.budgets.Overview(ctx, userID, s.now().Format("2006-01"))
	if err != nil {
		return nil, err
	}
	for _, b := range ov.Budgets {
		if b.Execution == nil || b.Execution.Status == model.ExecutionNormal {
			continue
		}
		priority := "medium"
		if b.Execution.Status == model.ExecutionExceeded {
			priority = "high"
		}
		out = append(out, Reminder{
			Type:     "budget_" + b.Execution.Status,
			Title:    b.Name,
			Message:  fmt.Sprintf("Budget %s is at %s", b.Name, formatPercent(toFloat(b.Execution.UsagePercentage))),
			Amount:   toFloat(b.Execution.ActualAmount),
			Priority: priority,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank(out[i].Priority) < priorityRank(out[j].Priority)
	})
	return out, nil
}

func priorityRank(p string) int {
	switch p {
	case "high", "critical":
		return 0
	case "medium", "warning":
		return 1
	default:
		return 2
	}
}

func (s *assistantService) HealthScore(ctx context.Context, userID string) (*HealthScoreReport, error) {
	months := monthsBack(s.now(), healthMonths)
	flows, err := monthlySeries(ctx, s.statsRepo, userID, months)
	if err != nil {
		return nil, err
	}
	income := make([]float64, len(flows))
	expense := make([]float64, len(flows))
	for i, f := range flows {
		income[i], expense[i] = f.Income, f.Expense
	}
	score := analytics.ScoreHealth(income, expense)
	return &HealthScoreReport{
		Months:          months,
		HealthScore:     score,
		Recommendations: scoreRecommendations(score),
	}, nil
}

var componentAdvice = map[string]string{
	"profitability": "Raise margins by reviewing pricing and the largest cost categories",
	"stability":     "Smooth income by securing recurring customers or retainers",
	"growth":        "Income is flat or shrinking; look for new customers or services",
	"efficiency":    "Expenses take a large share of income; cut recurring costs",
	"cash_flow":     "Months with negative net flow drain cash; build a reserve",
}

func scoreRecommendations(h analytics.HealthScore) []string {
	out := make([]string, 0)
	for _, c := range h.Components {
		if c.Max > 0 && c.Score/c.Max < 0.6 {
			if advice, ok := componentAdvice[c.Name]; ok {
				out = append(out, advice)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "All areas score well; keep recording transactions every week")
	}
	return out
}

// --- Insights, tasks and goals ---

func (s *assistantService) Insights(ctx context.Context, userID string) ([]Insight, error) {
	month := monthRange(s.now())
	var (
		trend  *TrendInsight
		cats   []CategoryTotal
		ov     *Overview
		health *HealthScoreReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { trend, err = s.expenses.Trend(gctx, userID); return })
	g.Go(func() (err error) { cats, err = s.expenses.ByCategory(gctx, userID, month); return })
	g.Go(func() (err error) { ov, err = s.dashboard.Overview(gctx, userID, month); return })
	g.Go(func() (err error) { health, err = s.HealthScore(gctx, userID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []Insight{{Type: "expense_trend", Title: "Spending trend", Message: trend.Message, Value: trend.PercentageChange}}
	if len(cats) > 0 {
		out = append(out, Insight{
			Type:    "top_category",
			Title:   "Largest expense category",
			Message: fmt.Sprintf("%s accounts for %s of this month's spending", cats[0].Name, formatPercent(cats[0].Percentage)),
			Value:   cats[0].Percentage,
		})
	}
	margin := percentOf(ov.NetIncome, ov.Income.TotalSum)
	out = append(out, Insight{
		Type:    "profit_margin",
		Title:   "Profit margin",
		Message: fmt.Sprintf("Net income this month is %s (%s margin)", formatMoney(ov.NetIncome), formatPercent(margin)),
		Value:   analytics.Round2(margin),
	})
	if pending := ov.Income.ByStatus[model.IncomeStatusPending].Total + ov.Income.ByStatus[model.IncomeStatusOverdue].Total; pending > 0 {
		out = append(out, Insight{
			Type:    "receivables",
			Title:   "Outstanding receivables",
			Message: fmt.Sprintf("%s has not been collected yet", formatMoney(pending)),
			Value:   pending,
		})
	}
	out = append(out, Insight{
		Type:    "health",
		Title:   "Financial health",
		Message: fmt.Sprintf("Score %.0f, grade %s", health.Total, health.Grade),
		Value:   health.Total,
	})
	return out, nil
}

func (s *assistantService) TaskSuggestions(ctx context.Context, userID string) ([]TaskSuggestion, error) {
	month := monthRange(s.now())
	ov, err := s.dashboard.Overview(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	budgets, err := s.budgets.Overview(ctx, userID, s.now().Format("2006-01"))
	if err != nil {
		return nil, err
	}

	out := make([]TaskSuggestion, 0)
	if n := ov.Income.ByStatus[model.IncomeStatusOverdue].Count; n > 0 {
		out = append(out, TaskSuggestion{Task: "Follow up on overdue invoices", Reason: fmt.Sprintf("%d income record(s) are overdue", n), Priority: "high", Link: "/income?status=overdue"})
	}
	if n := ov.Expense.ByStatus[model.ExpenseStatusOverdue].Count; n > 0 {
		out = append(out, TaskSuggestion{Task: "Pay overdue bills", Reason: fmt.Sprintf("%d expense(s) are overdue", n), Priority: "high", Link: "/expenses?status=overdue"})
	}
	for _, f := range s.taxes.FilingReminders(ctx) {
		if f.DaysRemaining <= 14 {
			out = append(out, TaskSuggestion{Task: "Prepare " + f.Title, Reason: fmt.Sprintf("Due on %s", f.DueDate), Priority: f.Urgency, Link: "/tax"})
		}
	}
	if budgets.BudgetCount == 0 {
		out = append(out, TaskSuggestion{Task: "Set up monthly budgets", Reason: "No budgets exist for this month", Priority: "low", Link: "/budgets"})
	}
	if ov.Income.Count == 0 && ov.Expense.Count == 0 {
		out = append(out, TaskSuggestion{Task: "Record this month's transactions", Reason: "Nothing has been recorded this month", Priority: "medium", Link: "/income"})
	}
	status, err := s.backups.Status(ctx)
	if err != nil {
		return nil, err
	}
	if status.DaysSinceBackup == nil || *status.DaysSinceBackup > 7 {
		out = append(out, TaskSuggestion{Task: "Back up your data", Reason: "No backup in the last 7 days", Priority: "medium", Link: "/settings/backup"})
	}
	return out, nil
}

func (s *assistantService) FinancialGoals(ctx context.Context, userID string) ([]FinancialGoal, error) {
	now := s.now()
	flows, err := monthlySeries(ctx, s.statsRepo, userID, monthsBack(now, 12))
	if err != nil {
		return nil, err
	}
	var income, expense, monthIncome, monthExpense float64
	for _, f := range flows {
		income += f.Income
		expense += f.Expense
	}
	last := flows[len(flows)-1]
	monthIncome, monthExpense = last.Income, last.Expense
	balance, err := s.statsRepo.CashBalance(ctx, userID, now.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}

	avgExpense := expense / float64(len(flows))
	goals := []FinancialGoal{
		goal("Profit margin 20%", 20, percentOf(monthIncome-monthExpense, monthIncome), "%"),
		goal("Emergency fund of 3 months' expenses", avgExpense*3, balance, "TWD"),
		goal("Annual revenue", math.Max(income*1.1, 1), income, "TWD"),
		goal("Expense ratio under 70%", 70, percentOf(monthExpense, monthIncome), "%"),
	}
	// a lower expense ratio is better
	goals[3].Achieved = monthIncome > 0 && goals[3].Current <= goals[3].Target
	goals[3].Progress = 0
	if goals[3].Current > 0 {
		goals[3].Progress = analytics.Round2(math.Min(100, goals[3].Target/goals[3].Current*100))
	}
	return goals, nil
}

func goal(name string, target, current float64, unit string) FinancialGoal {
	g := FinancialGoal{Name: name, Target: analytics.Round2(target), Current: analytics.Round2(current), Unit: unit}
	if target > 0 {
		g.Progress = analytics.Round2(analytics.Clamp(current/target*100, 0, 100))
	}
	g.Achieved = target > 0 && current >= target
	return g
}

// AutomationSuggestions finds vendors paid repeatedly in the last six months
func (s *assistantService) AutomationSuggestions(ctx context.Context, userID string) ([]AutomationSuggestion, error) {
	now := s.now()
	r := repository.DateRange{
		Start: now.AddDate(0, 0, -recurringWindow).Format(model.DateLayout),
		End:   now.Format(model.DateLayout),
	}
	txs, err := s.statsRepo.Transactions(ctx, userID, model.LedgerExpense, r, 0)
	if err != nil {
		return nil, err
	}

	type agg struct {
		count    int
		total    float64
		last     string
		category string
	}
	byVendor := make(map[string]*agg)
	for _, t := range txs {
		a := byVendor[t.Party]
		if a == nil {
			a = &agg{}
			byVendor[t.Party] = a
		}
		a.count++
		a.total += t.TotalAmount
		if t.Date >= a.last {
			a.last, a.category = t.Date, t.Category
		}
	}

	out := make([]AutomationSuggestion, 0)
	for vendor, a := range byVendor {
		if a.count < recurringMinCount {
			continue
		}
		avg := analytics.Round2(a.total / float64(a.count))
		out = append(out, AutomationSuggestion{
			Vendor:        vendor,
			Category:      a.category,
			Occurrences:   a.count,
			AverageAmount: avg,
			LastDate:      a.last,
			Suggestion:    fmt.Sprintf("Set up a recurring %s expense of about %s for %s", category.DisplayName(a.category), formatMoney(avg), vendor),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].Vendor < out[j].Vendor
	})
	return out, nil
}

// --- Backups ---

func (s *assistantService) BackupStatus(ctx context.Context) (*BackupStatus, error) {
	return s.backups.Status(ctx)
}

func (s *assistantService) Backup(ctx context.Context, userID string) (*model.Backup, error) {
	return s.backups.Create(ctx, userID)
}
