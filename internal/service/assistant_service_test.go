package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookkeeping/internal/category"
	"bookkeeping/internal/model"
	"bookkeeping/internal/ocr"
	"bookkeeping/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"How is my cash flow forecast?", IntentCashFlow},
		{"這個月的支出是多少", IntentExpense},
		{"Who is my best customer by revenue", IntentIncome},
		{"When is the VAT filing deadline", IntentTax},
		{"Am I over budget?", IntentBudget},
		{"What is my health score", IntentHealth},
		{"hello there", IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, scores := classifyIntent(tt.msg)
			assert.Equal(t, tt.want, got)
			assert.Len(t, scores, len(intents))
		})
	}
}

func TestClassifyIntent_TieGoesToEarlierIntent(t *testing.T) {
	got, scores := classifyIntent("")
	assert.Equal(t, IntentGeneral, got)
	for _, s := range scores {
		assert.Zero(t, s.Score)
	}

	a := intent{name: "a", keywords: []string{"x", "y"}}
	b := intent{name: "b", keywords: []string{"x", "z"}}
	saved := intents
	intents = []intent{a, b}
	t.Cleanup(func() { intents = saved })

	got, _ = classifyIntent("x")
	assert.Equal(t, "a", got)
}

func TestRenderReply(t *testing.T) {
	out, err := renderReply(IntentBudget, map[string]interface{}{
		"Period": "2024-08", "Count": 1, "Budget": 10000.0, "Actual": 8500.0, "Usage": 85.0, "Warning": 1, "Exceeded": 0,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "NT$10,000")
	assert.Contains(t, out, "NT$8,500")
	assert.Contains(t, out, "85.0%")

	out, err = renderReply(IntentGeneral, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "cash flow")
}

func TestAssistantService_Classify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.assistant.Classify(ctx, ClassifyRequest{Description: "中華電信 網路費"})
	require.NoError(t, err)
	assert.Equal(t, model.LedgerExpense, res.Type)
	assert.Equal(t, category.Utilities, res.Category)
	assert.Greater(t, res.Confidence, 0.5)

	none, err := h.assistant.Classify(ctx, ClassifyRequest{Description: "zzz", Type: model.LedgerIncome})
	require.NoError(t, err)
	assert.Equal(t, category.OtherIncome, none.Category)
	assert.Equal(t, 0.3, none.Confidence)
	assert.Empty(t, none.Alternatives)
}

func TestAssistantService_Chat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	now := time.Now()
	date := now.Format(model.DateLayout)

	h.expense(t, "u1", date, "Store", "meals", 1200, model.ExpenseStatusPaid)
	h.income(t, "u1", date, "Alpha", 5000, model.IncomeStatusReceived)

	for _, msg := range []string{"cash forecast", "expense", "income", "tax", "budget", "health score", "hi"} {
		reply, err := h.assistant.Chat(ctx, "u1", ChatRequest{Message: msg})
		require.NoError(t, err, msg)
		assert.NotEmpty(t, reply.Reply, msg)
		assert.NotEmpty(t, reply.Suggestions, msg)
	}

	reply, err := h.assistant.Chat(ctx, "u1", ChatRequest{Message: "What did I spend on expenses?"})
	require.NoError(t, err)
	assert.Equal(t, IntentExpense, reply.Intent)
	assert.Contains(t, reply.Reply, "NT$1,200")
}

func TestAssistantService_ScanReceipt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	img := ocr.Image{FileName: "r.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

	res, err := h.assistant.ScanReceipt(ctx, "u1", img, false)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.NotEmpty(t, res.Receipt.Vendor)
	summary, err := h.expenses.Summary(ctx, "u1", monthRange(time.Now()))
	require.NoError(t, err)
	assert.Zero(t, summary.Count, "nothing is persisted without save")

	saved, err := h.assistant.ScanReceipt(ctx, "u1", img, true)
	require.NoError(t, err)
	require.True(t, saved.Saved)
	assert.Equal(t, model.ExpenseStatusPending, saved.Expense.Status)
	assert.Equal(t, saved.Receipt.Vendor, saved.Expense.Vendor)
	assert.Equal(t, saved.Receipt.Category, saved.Expense.Category)

	_, err = h.assistant.ScanReceipt(ctx, "u1", ocr.Image{FileName: "empty.jpg"}, true)
	assertKind(t, err, apperror.KindValidation)
}

func TestAssistantService_HealthScore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	empty, err := h.assistant.HealthScore(ctx, "nobody")
	require.NoError(t, err)
	assert.Len(t, empty.Months, healthMonths)
	assert.Equal(t, "F", empty.Grade)
	assert.NotEmpty(t, empty.Recommendations)

	for i := 0; i < healthMonths; i++ {
		d := monthStart(time.Now()).AddDate(0, -i, 0).Format(model.DateLayout)
		h.income(t, "u1", d, "Alpha", 10000, model.IncomeStatusReceived)
		h.expense(t, "u1", d, "Store", "rent", 5000, model.ExpenseStatusPaid)
	}
	rep, err := h.assistant.HealthScore(ctx, "u1")
	require.NoError(t, err)
	assert.Greater(t, rep.Total, empty.Total)
	assert.LessOrEqual(t, rep.Total, 100.0)
}

func TestAssistantService_AutomationSuggestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		d := time.Now().AddDate(0, -i, 0).Format(model.DateLayout)
		h.expense(t, "u1", d, "Landlord", "rent", 20000, model.ExpenseStatusPaid)
	}
	h.expense(t, "u1", time.Now().Format(model.DateLayout), "Cafe", "meals", 100, model.ExpenseStatusPaid)

	got, err := h.assistant.AutomationSuggestions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Landlord", got[0].Vendor)
	assert.Equal(t, 3, got[0].Occurrences)
	assert.Equal(t, 20000.0, got[0].AverageAmount)
}

func TestAssistantService_RemindersAndSuggestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.income(t, "u1", time.Now().AddDate(0, 0, -40).Format(model.DateLayout), "Beta", 800, model.IncomeStatusOverdue)

	reminders, err := h.assistant.Reminders(ctx, "u1")
	require.NoError(t, err)
	for i := 1; i < len(reminders); i++ {
		assert.LessOrEqual(t, priorityRank(reminders[i-1].Priority), priorityRank(reminders[i].Priority))
	}

	tasks, err := h.assistant.TaskSuggestions(ctx, "u1")
	require.NoError(t, err)
	names := map[string]bool{}
	for _, task := range tasks {
		names[task.Task] = true
	}
	assert.True(t, names["Back up your data"])
	assert.True(t, names["Set up monthly budgets"])

	goals, err := h.assistant.FinancialGoals(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, goals, 4)

	insights, err := h.assistant.Insights(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, insights)

	assert.NotEmpty(t, h.assistant.ReceiptTemplates())
}

func TestAssistantService_Backup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.income(t, "u1", "2024-08-01", "Alpha", 100, model.IncomeStatusReceived)

	status, err := h.assistant.BackupStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, status.LastBackup)
	assert.Zero(t, status.BackupCount)

	b, err := h.assistant.Backup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "local", b.Location)
	assert.Greater(t, b.SizeBytes, int64(0))

	status, err = h.assistant.BackupStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.LastBackup)
	assert.Equal(t, int64(1), status.BackupCount)
	require.NotNil(t, status.DaysSinceBackup)
	assert.Zero(t, *status.DaysSinceBackup)

	_, err = os.Stat(filepath.Join(status.LocalDir, b.FileName))
	assert.NoError(t, err)
}
