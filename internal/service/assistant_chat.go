package service

import (
	"bytes"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Chat intents
const (
	IntentCashFlow = "cashflow"
	IntentExpense  = "expense"
	IntentIncome   = "income"
	IntentTax      = "tax"
	IntentBudget   = "budget"
	IntentHealth   = "health"
	IntentGeneral  = "general"
)

type intent struct {
	name     string
	keywords []string
}

// intents are scored in this order; on equal scores the earlier one wins
var intents = []intent{
	{IntentCashFlow, []string{"現金流", "現金", "餘額", "預測", "cash", "cashflow", "balance", "forecast", "runway"}},
	{IntentExpense, []string{"支出", "費用", "花費", "成本", "開銷", "expense", "expenses", "spend", "spending", "cost"}},
	{IntentIncome, []string{"收入", "營收", "銷售", "客戶", "income", "revenue", "sales", "customer", "earn"}},
	{IntentTax, []string{"稅", "營業稅", "所得稅", "報稅", "發票", "tax", "vat", "invoice", "filing"}},
	{IntentBudget, []string{"預算", "超支", "budget", "budgets", "overspend", "limit"}},
	{IntentHealth, []string{"健康", "評分", "財務狀況", "體質", "health", "score", "grade", "status"}},
}

// IntentScore is the fraction of an intent's keywords found in a message
type IntentScore struct {
	Intent  string   `json:"intent"`
	Score   float64  `json:"score"`
	Matched []string `json:"matched"`
}

// classifyIntent picks the intent whose keyword list overlaps the message most
func classifyIntent(msg string) (string, []IntentScore) {
	msg = strings.ToLower(msg)
	best, bestScore := IntentGeneral, 0.0
	scores := make([]IntentScore, 0, len(intents))
	for _, in := range intents {
		var matched []string
		for _, kw := range in.keywords {
			if strings.Contains(msg, kw) {
				matched = append(matched, kw)
			}
		}
		score := float64(len(matched)) / float64(len(in.keywords))
		scores = append(scores, IntentScore{Intent: in.name, Score: score, Matched: matched})
		if score > bestScore {
			best, bestScore = in.name, score
		}
	}
	return best, scores
}

var printer = message.NewPrinter(language.TraditionalChinese)

func formatMoney(v float64) string {
	return printer.Sprintf("NT$%.0f", v)
}

func formatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

var replyFuncs = template.FuncMap{
	"money":   formatMoney,
	"percent": formatPercent,
	"abs": func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	},
}

var replyTemplates = template.Must(template.New("replies").Funcs(replyFuncs).Parse(`
{{define "cashflow"}}Your current cash balance is {{money .Balance}}. Over the next {{.Days}} days the forecast ends at {{money .Ending}} (lowest {{money .Lowest}} on {{.LowestDate}}), overall risk {{.Risk}}, confidence {{percent .Confidence}}.{{if .NegativeDate}} Warning: the balance is projected to turn negative on {{.NegativeDate}}.{{end}}{{end}}
{{define "expense"}}This month you spent {{money .Total}} across {{.Count}} expense(s){{if .TopCategory}}; the largest category is {{.TopCategory}} at {{percent .TopShare}}{{end}}. Compared with last month spending is {{.Trend}} ({{percent .Change}}).{{end}}
{{define "income"}}This month's income is {{money .Total}} from {{.Count}} record(s), {{money .Received}} already received{{if .Outstanding}} and {{money .Outstanding}} still outstanding{{end}}.{{if .TopCustomer}} Your top customer is {{.TopCustomer}} with {{money .TopCustomerTotal}}.{{end}}{{end}}
{{define "tax"}}Estimated business tax this month: output {{money .OutputTax}}, input credit {{money .InputTax}}, payable {{money .Payable}}.{{if .NextTitle}} Next deadline: {{.NextTitle}} on {{.NextDate}} ({{.NextDays}} days left).{{end}}{{end}}
{{define "budget"}}{{if .Count}}You have {{.Count}} budget(s) for {{.Period}}: {{money .Actual}} used of {{money .Budget}} ({{percent .Usage}}). {{.Warning}} in warning and {{.Exceeded}} exceeded.{{else}}No budgets are set for {{.Period}} yet. Create one to track spending by category.{{end}}{{end}}
{{define "health"}}Your financial health score is {{printf "%.0f" .Total}} (grade {{.Grade}}).{{if .Weakest}} The weakest area is {{.Weakest}}.{{end}}{{end}}
{{define "general"}}I can help with cash flow, expenses, income, taxes, budgets and financial health. Try asking "How is my cash flow?" or "What did I spend this month?"{{end}}
`))

func renderReply(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := replyTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
