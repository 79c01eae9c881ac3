package analytics

import (
	"math"
	"sort"
	"time"
)

// ReferenceHistoryDays is the amount of history at which forecast confidence stops growing
const ReferenceHistoryDays = 90

// maxConfidence is the confidence of the first forecast day with full history
const maxConfidence = 95.0

// seasonality holds the per-calendar-month multipliers, January first
var seasonality = [12]float64{0.90, 0.85, 1.00, 1.00, 1.05, 1.10, 1.00, 0.95, 1.00, 1.05, 1.10, 1.20}

// SeasonalFactor returns the multiplier applied to projections falling in month m
func SeasonalFactor(m time.Month) float64 {
	return seasonality[m-1]
}

// Risk levels of a forecast day
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// ForecastInput feeds the daily-average cash-flow forecast
type ForecastInput struct {
	Start           time.Time
	Days            int
	CurrentBalance  float64
	AvgDailyIncome  float64
	AvgDailyExpense float64
	HistoryDays     int
	PendingIncome   map[string]float64 // keyed by YYYY-MM-DD
	PendingExpense  map[string]float64
}

// ForecastDay is one projected day
type ForecastDay struct {
	Date             string  `json:"date"`
	ProjectedIncome  float64 `json:"projected_income"`
	ProjectedExpense float64 `json:"projected_expense"`
	PendingIncome    float64 `json:"pending_income"`
	PendingExpense   float64 `json:"pending_expense"`
	NetFlow          float64 `json:"net_flow"`
	Balance          float64 `json:"balance"`
	RiskLevel        string  `json:"risk_level"`
	Confidence       float64 `json:"confidence"`
}

// Forecast is the projected running balance over the horizon
type Forecast struct {
	StartingBalance   float64       `json:"starting_balance"`
	EndingBalance     float64       `json:"ending_balance"`
	TotalIncome       float64       `json:"total_income"`
	TotalExpense      float64       `json:"total_expense"`
	LowestBalance     float64       `json:"lowest_balance"`
	LowestBalanceDate string        `json:"lowest_balance_date"`
	FirstNegativeDate string        `json:"first_negative_date,omitempty"`
	AverageConfidence float64       `json:"average_confidence"`
	OverallRisk       string        `json:"overall_risk"`
	Days              []ForecastDay `json:"days"`
}

// DailyForecast projects average daily income and expense forward, scaled by the
// monthly seasonality table, with known pending items booked on their due dates.
func DailyForecast(in ForecastInput) Forecast {
	out := Forecast{
		StartingBalance: Round2(in.CurrentBalance),
		LowestBalance:   Round2(in.CurrentBalance),
		OverallRisk:     RiskLow,
		Days:            make([]ForecastDay, 0, in.Days),
	}
	if in.Days <= 0 {
		out.EndingBalance = out.StartingBalance
		return out
	}

	coverage := Clamp(float64(in.HistoryDays)/ReferenceHistoryDays, 0, 1)
	balance := in.CurrentBalance
	var confidenceSum float64
	worst := 0

	for i := 0; i < in.Days; i++ {
		day := in.Start.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		factor := SeasonalFactor(day.Month())

		income := sanitize(in.AvgDailyIncome * factor)
		expense := sanitize(in.AvgDailyExpense * factor)
		pendingIn := sanitize(in.PendingIncome[key])
		pendingOut := sanitize(in.PendingExpense[key])

		net := income + pendingIn - expense - pendingOut
		balance += net

		horizon := 1.0
		if in.Days > 1 {
			horizon = 1 - 0.5*float64(i)/float64(in.Days-1)
		}
		confidence := Round2(maxConfidence * coverage * horizon)
		risk := riskLevel(balance, in.CurrentBalance)

		out.Days = append(out.Days, ForecastDay{
			Date:             key,
			ProjectedIncome:  Round2(income),
			ProjectedExpense: Round2(expense),
			PendingIncome:    Round2(pendingIn),
			PendingExpense:   Round2(pendingOut),
			NetFlow:          Round2(net),
			Balance:          Round2(balance),
			RiskLevel:        risk,
			Confidence:       confidence,
		})

		out.TotalIncome += income + pendingIn
		out.TotalExpense += expense + pendingOut
		confidenceSum += confidence
		if out.LowestBalanceDate == "" || balance < out.LowestBalance {
			out.LowestBalance = Round2(balance)
			out.LowestBalanceDate = key
		}
		if balance < 0 && out.FirstNegativeDate == "" {
			out.FirstNegativeDate = key
		}
		if r := riskRank(risk); r > worst {
			worst = r
			out.OverallRisk = risk
		}
	}

	out.EndingBalance = Round2(balance)
	out.TotalIncome = Round2(out.TotalIncome)
	out.TotalExpense = Round2(out.TotalExpense)
	out.AverageConfidence = Round2(confidenceSum / float64(in.Days))
	return out
}

func riskLevel(balance, start float64) string {
	if balance < 0 {
		return RiskCritical
	}
	if start <= 0 {
		if balance > 0 {
			return RiskMedium
		}
		return RiskHigh
	}
	ratio := balance / start
	switch {
	case ratio < 0.3:
		return RiskHigh
	case ratio < 0.7:
		return RiskMedium
	default:
		return RiskLow
	}
}

func riskRank(level string) int {
	switch level {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return 0
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Observation is one transaction amount fed to anomaly detection
type Observation struct {
	ID        uint    `json:"id"`
	DisplayID string  `json:"display_id"`
	Ledger    string  `json:"ledger"`
	Date      string  `json:"date"`
	Label     string  `json:"label"`
	Category  string  `json:"category"`
	Value     float64 `json:"amount"`
}

// Anomaly is an observation whose z-score exceeds the significance threshold
type Anomaly struct {
	Observation
	ZScore    float64 `json:"z_score"`
	Deviation float64 `json:"deviation"`
	Severity  string  `json:"severity"`
}

const (
	SignificantZ = 2.0
	HighZ        = 3.0
)

// Baseline summarizes the series the anomalies were measured against
type Baseline struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// DetectAnomalies flags observations with |z| > 2, severity high when |z| > 3.
// Fewer than three observations or zero variance yields no anomalies.
func DetectAnomalies(obs []Observation) (Baseline, []Anomaly) {
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}
	mean, std := Mean(values), StdDev(values)
	base := Baseline{Count: len(obs), Mean: Round2(mean), StdDev: Round2(std)}

	anomalies := []Anomaly{}
	if len(obs) < 3 || std == 0 {
		return base, anomalies
	}

	for _, o := range obs {
		z := ZScore(o.Value, mean, std)
		if math.Abs(z) <= SignificantZ {
			continue
		}
		severity := "medium"
		if math.Abs(z) > HighZ {
			severity = "high"
		}
		anomalies = append(anomalies, Anomaly{
			Observation: o,
			ZScore:      Round2(z),
			Deviation:   Round2(o.Value - mean),
			Severity:    severity,
		})
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return math.Abs(anomalies[i].ZScore) > math.Abs(anomalies[j].ZScore)
	})
	return base, anomalies
}
