package service

import (
	"context"
	"testing"
	"time"

	"bookkeeping/internal/model"
	"bookkeeping/pkg/apperror"
	"bookkeeping/pkg/pagination"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBusinessTax(t *testing.T) {
	res := businessTax(model.TaxRateVAT, dec("5"), dec("100000"), dec("40000"))
	assert.True(t, dec("5000").Equal(res.OutputTax))
	assert.True(t, dec("2000").Equal(res.InputTaxCredit))
	assert.True(t, dec("3000").Equal(res.TaxPayable))
	assert.True(t, res.CarryForward.IsZero())

	t.Run("excess input credit carries forward", func(t *testing.T) {
		res := businessTax(model.TaxRateVAT, dec("5"), dec("10000"), dec("30000"))
		assert.True(t, res.TaxPayable.IsZero())
		assert.True(t, dec("1000").Equal(res.CarryForward))
	})

	t.Run("special rates take no credit", func(t *testing.T) {
		res := businessTax(model.TaxRateSpecial2, dec("2"), dec("10000"), dec("30000"))
		assert.True(t, res.InputTaxCredit.IsZero())
		assert.True(t, dec("200").Equal(res.TaxPayable))
	})
}

func TestEnterpriseIncomeTax(t *testing.T) {
	rate := dec("20")

	exempt := enterpriseIncomeTax(dec("120000"), rate)
	assert.True(t, exempt.TaxAmount.IsZero())

	// half of the excess binds just above the exemption line
	low := enterpriseIncomeTax(dec("150000"), rate)
	assert.True(t, dec("15000").Equal(low.TaxAmount), low.TaxAmount.String())
	assert.True(t, dec("50").Equal(low.MarginalRate))

	high := enterpriseIncomeTax(dec("1000000"), rate)
	assert.True(t, dec("200000").Equal(high.TaxAmount))
	assert.True(t, dec("20").Equal(high.MarginalRate))
	assert.True(t, dec("20").Equal(high.EffectiveRate))
}

func TestPersonalIncomeTax(t *testing.T) {
	// 1,000,000 - 97,000 exemption - 131,000 standard deduction = 772,000 taxable
	res := personalIncomeTax(dec("1000000"), 0, standardDeduction, decimal.Zero)
	assert.True(t, dec("772000").Equal(res.TaxableIncome))
	require.Len(t, res.Brackets, 2)
	assert.True(t, dec("29500").Equal(res.Brackets[0].Tax))
	assert.True(t, dec("21840").Equal(res.Brackets[1].Tax))
	assert.True(t, dec("51340").Equal(res.TaxAmount))
	assert.True(t, dec("12").Equal(res.MarginalRate))

	t.Run("below the allowances", func(t *testing.T) {
		res := personalIncomeTax(dec("200000"), 2, standardDeduction, decimal.Zero)
		assert.True(t, res.TaxableIncome.IsZero())
		assert.True(t, res.TaxAmount.IsZero())
		assert.Empty(t, res.Brackets)
	})

	t.Run("salary deduction is capped", func(t *testing.T) {
		res := personalIncomeTax(dec("1000000"), 0, standardDeduction, dec("900000"))
		assert.True(t, salaryDeductionCap.Equal(res.SalaryDeduction))
	})
}

func TestFilingReminders(t *testing.T) {
	today := time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)
	got := filingReminders(today)
	require.Len(t, got, 4)

	assert.Equal(t, "income_tax", got[0].Type)
	assert.Equal(t, "2024-05-31", got[0].DueDate)
	assert.Equal(t, 11, got[0].DaysRemaining)
	assert.Equal(t, "medium", got[0].Urgency)

	byType := map[string]FilingReminder{}
	for i, r := range got {
		byType[r.Type] = r
		if i > 0 {
			assert.LessOrEqual(t, got[i-1].DaysRemaining, r.DaysRemaining)
		}
	}
	assert.Equal(t, "2024-07-15", byType["business_tax"].DueDate)
	assert.Equal(t, "2025-01-31", byType["withholding"].DueDate)
	assert.Equal(t, "2024-09-30", byType["provisional_tax"].DueDate)
	assert.Equal(t, "low", byType["withholding"].Urgency)

	dueToday := filingReminders(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-15", dueToday[0].DueDate)
	assert.Equal(t, 0, dueToday[0].DaysRemaining)
	assert.Equal(t, "high", dueToday[0].Urgency)
}

func TestTaxService_CalculationsAreRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.taxes.CalculateBusinessTax(ctx, "u1", BusinessTaxRequest{SalesAmount: f64(100000), PurchaseAmount: 40000})
	require.NoError(t, err)
	assert.Equal(t, model.TaxRateVAT, res.TaxType)
	assert.True(t, dec("3000").Equal(res.TaxPayable))

	inc, err := h.taxes.CalculateIncomeTax(ctx, "u1", IncomeTaxRequest{AnnualIncome: f64(1000000), TaxpayerType: "enterprise"})
	require.NoError(t, err)
	assert.True(t, dec("200000").Equal(inc.TaxAmount))

	for _, bad := range []string{"bogus", model.TaxRateEnterpriseIncome} {
		_, err = h.taxes.CalculateBusinessTax(ctx, "u1", BusinessTaxRequest{SalesAmount: f64(1), TaxType: bad})
		assertKind(t, err, apperror.KindValidation)
		var appErr *apperror.Error
		require.ErrorAs(t, err, &appErr)
		require.Len(t, appErr.Details, 1)
		assert.Equal(t, "tax_type", appErr.Details[0].Field)
	}

	rows, meta, err := h.taxes.History(ctx, "u1", "", pagination.New(1, 10))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(2), meta.Total)

	rows, _, err = h.taxes.History(ctx, "u2", "", pagination.New(1, 10))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rates, err := h.taxes.Rates(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rates.BusinessTax)
}
