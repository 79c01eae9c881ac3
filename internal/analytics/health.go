package analytics

// Point budgets of the health score components. They sum to 100.
const (
	ProfitabilityPoints = 30.0
	StabilityPoints     = 20.0
	GrowthPoints        = 20.0
	EfficiencyPoints    = 15.0
	CashFlowPoints      = 15.0
)

// HealthComponent is one scored sub-metric
type HealthComponent struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail"`
}

// HealthScore is the 0-100 assistant health score
type HealthScore struct {
	Total      float64           `json:"total"`
	Grade      string            `json:"grade"`
	Components []HealthComponent `json:"components"`
}

// Grade maps a total score to a letter grade
func Grade(score float64) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 50:
		return "C"
	case score >= 30:
		return "D"
	default:
		return "F"
	}
}

// ScoreHealth computes the health score from monthly income and expense series
// (oldest first, equal length).
func ScoreHealth(income, expense []float64) HealthScore {
	var totalIncome, totalExpense float64
	for _, v := range income {
		totalIncome += v
	}
	for _, v := range expense {
		totalExpense += v
	}

	margin := Ratio(totalIncome-totalExpense, totalIncome) * 100
	profitability := Clamp(margin/30*ProfitabilityPoints, 0, ProfitabilityPoints)

	cv := CoefficientOfVariation(income)
	stability := 0.0
	if totalIncome > 0 {
		stability = Clamp((1-cv)*StabilityPoints, 0, StabilityPoints)
	}

	growthRate := Ratio(LinearTrend(income).Slope, Mean(income)) * 100
	growth := 0.0
	if totalIncome > 0 {
		// flat income earns half the budget; +10%/month or better earns all of it
		growth = Clamp(GrowthPoints/2+growthRate, 0, GrowthPoints)
	}

	expenseRatio := Ratio(totalExpense, totalIncome)
	efficiency := 0.0
	switch {
	case totalIncome == 0:
	case expenseRatio <= 0.6:
		efficiency = EfficiencyPoints
	case expenseRatio < 1:
		efficiency = EfficiencyPoints * (1 - expenseRatio) / 0.4
	}

	positive := 0
	for i := range income {
		var e float64
		if i < len(expense) {
			e = expense[i]
		}
		if income[i] > e {
			positive++
		}
	}
	cashFlow := 0.0
	if len(income) > 0 {
		cashFlow = CashFlowPoints * float64(positive) / float64(len(income))
	}

	components := []HealthComponent{
		{Name: "profitability", Score: Round2(profitability), Max: ProfitabilityPoints, Value: Round2(margin), Detail: "profit margin %"},
		{Name: "stability", Score: Round2(stability), Max: StabilityPoints, Value: Round2(cv), Detail: "income coefficient of variation"},
		{Name: "growth", Score: Round2(growth), Max: GrowthPoints, Value: Round2(growthRate), Detail: "monthly income growth %"},
		{Name: "efficiency", Score: Round2(efficiency), Max: EfficiencyPoints, Value: Round2(expenseRatio * 100), Detail: "expense ratio %"},
		{Name: "cash_flow", Score: Round2(cashFlow), Max: CashFlowPoints, Value: float64(positive), Detail: "months with positive net cash flow"},
	}

	var total float64
	for _, c := range components {
		total += c.Score
	}
	total = Round2(Clamp(total, 0, 100))

	return HealthScore{Total: total, Grade: Grade(total), Components: components}
}

// FinancialHealth is the dashboard's weighted health indicator
type FinancialHealth struct {
	Score         float64 `json:"score"`
	Status        string  `json:"status"`
	ProfitMargin  float64 `json:"profit_margin"`
	ExpenseRatio  float64 `json:"expense_ratio"`
	CashFlowRatio float64 `json:"cash_flow_ratio"`
}

// ScoreFinancialHealth weights profit margin (40%), expense ratio (30%) and
// cash-flow ratio (30%) into a 0-100 score.
func ScoreFinancialHealth(income, expense, receivedIncome, paidExpense float64) FinancialHealth {
	margin := Ratio(income-expense, income) * 100
	expenseRatio := Ratio(expense, income) * 100

	var cashRatio float64
	switch {
	case paidExpense > 0:
		cashRatio = receivedIncome / paidExpense
	case receivedIncome > 0:
		cashRatio = 2
	}

	marginScore := Clamp(margin/30*100, 0, 100)
	expenseScore := 0.0
	if income > 0 {
		expenseScore = Clamp((100-expenseRatio)/30*100, 0, 100)
	}
	cashScore := Clamp(cashRatio/1.5*100, 0, 100)

	score := Round2(marginScore*0.4 + expenseScore*0.3 + cashScore*0.3)

	status := "poor"
	switch {
	case score >= 80:
		status = "excellent"
	case score >= 60:
		status = "good"
	case score >= 40:
		status = "fair"
	}

	return FinancialHealth{
		Score:         score,
		Status:        status,
		ProfitMargin:  Round2(margin),
		ExpenseRatio:  Round2(expenseRatio),
		CashFlowRatio: Round2(cashRatio),
	}
}
