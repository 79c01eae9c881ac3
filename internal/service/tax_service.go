package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"
	"bookkeeping/pkg/pagination"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Personal income tax parameters (NT$)
var (
	personalExemption       = decimal.NewFromInt(97000)
	standardDeduction       = decimal.NewFromInt(131000)
	salaryDeductionCap      = decimal.NewFromInt(218000)
	enterpriseExemptionLine = decimal.NewFromInt(120000)
)

// TaxBracket is one band of the progressive personal income tax
type TaxBracket struct {
	From decimal.Decimal  `json:"from"`
	To   *decimal.Decimal `json:"to"` // nil = no upper bound
	Rate decimal.Decimal  `json:"rate"`
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

var personalBrackets = []TaxBracket{
	{From: decimal.Zero, To: bound(590000), Rate: decimal.NewFromInt(5)},
	{From: decimal.NewFromInt(590000), To: bound(1330000), Rate: decimal.NewFromInt(12)},
	{From: decimal.NewFromInt(1330000), To: bound(2660000), Rate: decimal.NewFromInt(20)},
	{From: decimal.NewFromInt(2660000), To: bound(4980000), Rate: decimal.NewFromInt(30)},
	{From: decimal.NewFromInt(4980000), Rate: decimal.NewFromInt(40)},
}

// --- DTOs ---

type BusinessTaxRequest struct {
	SalesAmount    *float64 `json:"sales_amount" binding:"required,gte=0"`
	PurchaseAmount float64  `json:"purchase_amount" binding:"gte=0"`
	TaxType        string   `json:"tax_type" binding:"omitempty,oneof=vat special_1 special_2 small_business"`
}

type BusinessTaxResult struct {
	TaxType        string          `json:"tax_type"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	SalesAmount    decimal.Decimal `json:"sales_amount"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	OutputTax      decimal.Decimal `json:"output_tax"`
	InputTaxCredit decimal.Decimal `json:"input_tax_credit"`
	TaxPayable     decimal.Decimal `json:"tax_payable"`
	CarryForward   decimal.Decimal `json:"carry_forward"`
}

type IncomeTaxRequest struct {
	AnnualIncome   *float64 `json:"annual_income" binding:"required,gte=0"`
	TaxpayerType   string   `json:"taxpayer_type" binding:"omitempty,oneof=individual enterprise"`
	Dependents     int      `json:"dependents" binding:"gte=0,lte=20"`
	DeductionType  string   `json:"deduction_type" binding:"omitempty,oneof=standard itemized"`
	ItemizedAmount float64  `json:"itemized_amount" binding:"gte=0"`
	SalaryIncome   float64  `json:"salary_income" binding:"gte=0"`
}

type BracketTax struct {
	Rate    decimal.Decimal `json:"rate"`
	Taxable decimal.Decimal `json:"taxable"`
	Tax     decimal.Decimal `json:"tax"`
}

type IncomeTaxResult struct {
	TaxpayerType    string          `json:"taxpayer_type"`
	AnnualIncome    decimal.Decimal `json:"annual_income"`
	Exemptions      decimal.Decimal `json:"exemptions"`
	Deductions      decimal.Decimal `json:"deductions"`
	SalaryDeduction decimal.Decimal `json:"salary_deduction"`
	TaxableIncome   decimal.Decimal `json:"taxable_income"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	EffectiveRate   decimal.Decimal `json:"effective_rate"`
	MarginalRate    decimal.Decimal `json:"marginal_rate"`
	Brackets        []BracketTax    `json:"brackets,omitempty"`
}

type TaxRates struct {
	BusinessTax      []model.TaxRule  `json:"business_tax"`
	EnterpriseIncome *model.TaxRule   `json:"enterprise_income"`
	PersonalBrackets []TaxBracket     `json:"personal_brackets"`
	Allowances       map[string]int64 `json:"allowances"`
}

type FilingReminder struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	DueDate       string `json:"due_date"`
	DaysRemaining int    `json:"days_remaining"`
	Urgency       string `json:"urgency"`
}

type TaxResource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// --- Interface ---

type TaxService interface {
	Rates(ctx context.Context) (*TaxRates, error)
	CalculateBusinessTax(ctx context.Context, userID string, req BusinessTaxRequest) (*BusinessTaxResult, error)
	CalculateIncomeTax(ctx context.Context, userID string, req IncomeTaxRequest) (*IncomeTaxResult, error)
	FilingReminders(ctx context.Context) []FilingReminder
	History(ctx context.Context, userID, calcType string, p pagination.Params) ([]model.TaxCalculation, pagination.Meta, error)
	Resources() []TaxResource
}

type taxService struct {
	ruleRepo repository.TaxRuleRepository
	calcRepo repository.TaxCalculationRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewTaxService(ruleRepo repository.TaxRuleRepository, calcRepo repository.TaxCalculationRepository, logger *zap.Logger) TaxService {
	return &taxService{
		ruleRepo: ruleRepo,
		calcRepo: calcRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// --- Implementation ---

func (s *taxService) today() string {
	return s.now().Format(model.DateLayout)
}

func (s *taxService) Rates(ctx context.Context) (*TaxRates, error) {
	rules, err := s.ruleRepo.ListActive(ctx, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	out := &TaxRates{
		BusinessTax:      make([]model.TaxRule, 0, len(rules)),
		PersonalBrackets: personalBrackets,
		Allowances: map[string]int64{
			"personal_exemption":       personalExemption.IntPart(),
			"standard_deduction":       standardDeduction.IntPart(),
			"salary_deduction_cap":     salaryDeductionCap.IntPart(),
			"enterprise_exemption_max": enterpriseExemptionLine.IntPart(),
		},
	}
	for i := range rules {
		if rules[i].Code == model.TaxRateEnterpriseIncome {
			out.EnterpriseIncome = &rules[i]
			continue
		}
		out.BusinessTax = append(out.BusinessTax, rules[i])
	}
	return out, nil
}

// activeRate returns the percentage of the rule code in effect today
func (s *taxService) activeRate(ctx context.Context, code string) (decimal.Decimal, error) {
	rule, err := s.ruleRepo.FindActiveByCode(ctx, code, s.today())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, apperror.NotFound(fmt.Sprintf("No active tax rule found for %q", code))
		}
		return decimal.Zero, fmt.Errorf("failed to fetch tax rule: %w", err)
	}
	return rule.Rate, nil
}

func (s *taxService) CalculateBusinessTax(ctx context.Context, userID string, req BusinessTaxRequest) (*BusinessTaxResult, error) {
	if req.SalesAmount == nil || *req.SalesAmount < 0 || req.PurchaseAmount < 0 {
		return nil, apperror.Validation("Invalid amounts",
			apperror.FieldError{Field: "sales_amount", Message: "Must be greater than or equal to 0"})
	}
	taxType := req.TaxType
	if taxType == "" {
		taxType = model.TaxRateVAT
	}
	switch taxType {
	case model.TaxRateVAT, model.TaxRateSpecial1, model.TaxRateSpecial2, model.TaxRateSmallBusiness:
	default:
		return nil, apperror.Validation("Invalid tax type",
			apperror.FieldError{Field: "tax_type", Message: "Must be one of: vat special_1 special_2 small_business"})
	}

	rate, err := s.activeRate(ctx, taxType)
	if err != nil {
		return nil, err
	}
	res := businessTax(taxType, rate, decimal.NewFromFloat(*req.SalesAmount), decimal.NewFromFloat(req.PurchaseAmount))

	if err := s.record(ctx, userID, model.CalcBusinessTax, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// businessTax computes output tax on sales; only VAT allows crediting tax paid on purchases
func businessTax(taxType string, rate, sales, purchases decimal.Decimal) *BusinessTaxResult {
	sales, purchases = sales.Round(2), purchases.Round(2)
	output := sales.Mul(rate).Div(hundred).Round(2)
	input := decimal.Zero
	if taxType == model.TaxRateVAT {
		input = purchases.Mul(rate).Div(hundred).Round(2)
	}

	payable := output.Sub(input)
	carry := decimal.Zero
	if payable.IsNegative() {
		carry = payable.Neg()
		payable = decimal.Zero
	}
	return &BusinessTaxResult{
		TaxType:        taxType,
		TaxRate:        rate,
		SalesAmount:    sales,
		PurchaseAmount: purchases,
		OutputTax:      output,
		InputTaxCredit: input,
		TaxPayable:     payable,
		CarryForward:   carry,
	}
}

func (s *taxService) CalculateIncomeTax(ctx context.Context, userID string, req IncomeTaxRequest) (*IncomeTaxResult, error) {
	if req.AnnualIncome == nil || *req.AnnualIncome < 0 {
		return nil, apperror.Validation("Invalid amounts",
			apperror.FieldError{Field: "annual_income", Message: "Must be greater than or equal to 0"})
	}
	if req.Dependents < 0 {
		return nil, apperror.Validation("Invalid dependents",
			apperror.FieldError{Field: "dependents", Message: "Must be greater than or equal to 0"})
	}
	income := decimal.NewFromFloat(*req.AnnualIncome).Round(2)

	var res *IncomeTaxResult
	if req.TaxpayerType == "enterprise" {
		rate, err := s.activeRate(ctx, model.TaxRateEnterpriseIncome)
		if err != nil {
			return nil, err
		}
		res = enterpriseIncomeTax(income, rate)
	} else {
		deduction := standardDeduction
		if req.DeductionType == "itemized" {
			deduction = decimal.NewFromFloat(req.ItemizedAmount).Round(2)
		}
		res = personalIncomeTax(income, req.Dependents, deduction, decimal.NewFromFloat(req.SalaryIncome).Round(2))
	}

	if err := s.record(ctx, userID, model.CalcIncomeTax, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// enterpriseIncomeTax: exempt up to 120,000; above that the lesser of rate*income
// and half of the excess over 120,000
func enterpriseIncomeTax(income, rate decimal.Decimal) *IncomeTaxResult {
	res := &IncomeTaxResult{
		TaxpayerType:    "enterprise",
		AnnualIncome:    income,
		Exemptions:      decimal.Zero,
		Deductions:      decimal.Zero,
		SalaryDeduction: decimal.Zero,
		TaxableIncome:   income,
		TaxAmount:       decimal.Zero,
		EffectiveRate:   decimal.Zero,
		MarginalRate:    decimal.Zero,
	}
	if income.LessThanOrEqual(enterpriseExemptionLine) {
		res.Exemptions = income
		return res
	}
	full := income.Mul(rate).Div(hundred)
	halfExcess := income.Sub(enterpriseExemptionLine).Div(decimal.NewFromInt(2))
	res.TaxAmount = decimal.Min(full, halfExcess).Round(0)
	res.MarginalRate = rate
	if halfExcess.LessThan(full) {
		res.MarginalRate = decimal.NewFromInt(50)
	}
	res.EffectiveRate = res.TaxAmount.Div(income).Mul(hundred).Round(2)
	return res
}

func personalIncomeTax(income decimal.Decimal, dependents int, deduction, salary decimal.Decimal) *IncomeTaxResult {
	exemptions := personalExemption.Mul(decimal.NewFromInt(int64(1 + dependents)))
	salaryDeduction := decimal.Min(salary, salaryDeductionCap)
	if salaryDeduction.IsNegative() {
		salaryDeduction = decimal.Zero
	}
	taxable := income.Sub(exemptions).Sub(deduction).Sub(salaryDeduction)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	res := &IncomeTaxResult{
		TaxpayerType:    "individual",
		AnnualIncome:    income,
		Exemptions:      exemptions,
		Deductions:      deduction,
		SalaryDeduction: salaryDeduction,
		TaxableIncome:   taxable,
		TaxAmount:       decimal.Zero,
		EffectiveRate:   decimal.Zero,
		MarginalRate:    personalBrackets[0].Rate,
		Brackets:        make([]BracketTax, 0),
	}

	for _, b := range personalBrackets {
		if taxable.LessThanOrEqual(b.From) {
			break
		}
		upper := taxable
		if b.To != nil && b.To.LessThan(taxable) {
			upper = *b.To
		}
		portion := upper.Sub(b.From)
		tax := portion.Mul(b.Rate).Div(hundred).Round(0)
		res.Brackets = append(res.Brackets, BracketTax{Rate: b.Rate, Taxable: portion, Tax: tax})
		res.TaxAmount = res.TaxAmount.Add(tax)
		res.MarginalRate = b.Rate
	}
	if income.IsPositive() {
		res.EffectiveRate = res.TaxAmount.Div(income).Mul(hundred).Round(2)
	}
	return res
}

func (s *taxService) record(ctx context.Context, userID, calcType string, input, result interface{}) error {
	in, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode tax input: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode tax result: %w", err)
	}
	calc := &model.TaxCalculation{
		UserID:          userID,
		CalculationType: calcType,
		InputData:       string(in),
		ResultData:      string(out),
	}
	if err := s.calcRepo.Create(ctx, calc); err != nil {
		return fmt.Errorf("failed to record tax calculation: %w", err)
	}
	s.logger.Debug("tax calculation recorded", zap.String("user_id", userID), zap.String("type", calcType), zap.Uint("id", calc.ID))
	return nil
}

func (s *taxService) History(ctx context.Context, userID, calcType string, p pagination.Params) ([]model.TaxCalculation, pagination.Meta, error) {
	if calcType != "" && calcType != model.CalcBusinessTax && calcType != model.CalcIncomeTax {
		return nil, pagination.Meta{}, apperror.Validation("Invalid calculation type",
			apperror.FieldError{Field: "type", Message: "Must be one of: business_tax income_tax"})
	}
	rows, total, err := s.calcRepo.List(ctx, userID, calcType, p)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return rows, p.Meta(total), nil
}

type filingDeadline struct {
	kind        string
	title       string
	description string
	// next returns the first due date on or after day
	next func(day time.Time) time.Time
}

func yearly(month time.Month, d int) func(time.Time) time.Time {
	return func(day time.Time) time.Time {
		due := time.Date(day.Year(), month, d, 0, 0, 0, 0, day.Location())
		if due.Before(day) {
			due = due.AddDate(1, 0, 0)
		}
		return due
	}
}

// bimonthly business tax is due on the 15th of every odd month
func bimonthly(day time.Time) time.Time {
	for i := 0; i < 3; i++ {
		m := monthStart(day).AddDate(0, i, 0)
		if m.Month()%2 == 0 {
			continue
		}
		due := time.Date(m.Year(), m.Month(), 15, 0, 0, 0, 0, day.Location())
		if !due.Before(day) {
			return due
		}
	}
	return time.Date(day.Year(), day.Month()+2, 15, 0, 0, 0, 0, day.Location())
}

var filingDeadlines = []filingDeadline{
	{kind: "business_tax", title: "Business tax return", description: "File and pay business tax for the previous two months", next: bimonthly},
	{kind: "withholding", title: "Withholding statements", description: "File withholding and dividend statements for last year", next: yearly(time.January, 31)},
	{kind: "income_tax", title: "Annual income tax return", description: "File individual and enterprise income tax for last year", next: yearly(time.May, 31)},
	{kind: "provisional_tax", title: "Enterprise provisional tax", description: "Pay provisional income tax for the first half year", next: yearly(time.September, 30)},
}

func (s *taxService) FilingReminders(_ context.Context) []FilingReminder {
	return filingReminders(dayOf(s.now()))
}

func filingReminders(today time.Time) []FilingReminder {
	out := make([]FilingReminder, 0, len(filingDeadlines))
	for _, d := range filingDeadlines {
		due := d.next(today)
		days := int(math.Round(due.Sub(today).Hours() / 24))
		urgency := "low"
		switch {
		case days <= 7:
			urgency = "high"
		case days <= 30:
			urgency = "medium"
		}
		out = append(out, FilingReminder{
			Type:          d.kind,
			Title:         d.title,
			Description:   d.description,
			DueDate:       due.Format(model.DateLayout),
			DaysRemaining: days,
			Urgency:       urgency,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysRemaining < out[j].DaysRemaining })
	return out
}

func (s *taxService) Resources() []TaxResource {
	return []TaxResource{
		{Title: "Ministry of Finance e-Tax portal", URL: "https://www.etax.nat.gov.tw", Description: "Online filing for business and income tax"},
		{Title: "Business tax guide", URL: "https://www.ntbt.gov.tw", Description: "Rates and filing periods of value-added business tax"},
		{Title: "Income tax calculator", URL: "https://www.dot.gov.tw", Description: "Official exemptions, deductions and brackets"},
		{Title: "Uniform invoice rules", URL: "https://www.einvoice.nat.gov.tw", Description: "E-invoice issuance and carrier rules"},
	}
}
