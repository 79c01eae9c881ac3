package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bookkeeping/internal/auth"
	"bookkeeping/internal/ocr"
	"bookkeeping/internal/repository"
	"bookkeeping/internal/storage"
	"bookkeeping/internal/testutil"
	"bookkeeping/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "service-test-secret-service-test-secret"

type recordedEvent struct {
	userID string
	event  string
	data   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(userID, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{userID: userID, event: eventType, data: data})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// harness wires every service against one temporary database
type harness struct {
	db        *gorm.DB
	notifier  *recordingNotifier
	auth      AuthService
	incomes   IncomeService
	expenses  ExpenseService
	dashboard DashboardService
	reports   ReportService
	taxes     TaxService
	budgets   BudgetService
	cashflow  CashFlowService
	analytics AnalyticsService
	settings  SettingsService
	backups   BackupService
	assistant AssistantService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	seqRepo := repository.NewSequenceRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	txManager := repository.NewTransactionManager(db)

	h := &harness{db: db, notifier: &recordingNotifier{}}
	tokens := auth.NewTokenService(testSecret, time.Hour, "bookkeeping", auth.NewInMemoryTokenBlacklist())
	h.auth = NewAuthService(userRepo, companyRepo, txManager, tokens, log)
	h.incomes = NewIncomeService(incomeRepo, seqRepo, txManager, log)
	h.expenses = NewExpenseService(expenseRepo, seqRepo, txManager, log)
	h.dashboard = NewDashboardService(incomeRepo, expenseRepo, statsRepo)
	h.reports = NewReportService(incomeRepo, expenseRepo, log)
	h.taxes = NewTaxService(repository.NewTaxRuleRepository(db), repository.NewTaxCalculationRepository(db), log)
	h.budgets = NewBudgetService(budgetRepo, statsRepo, txManager, h.notifier, log)
	h.cashflow = NewCashFlowService(incomeRepo, expenseRepo, statsRepo)
	h.analytics = NewAnalyticsService(incomeRepo, expenseRepo, statsRepo)
	h.settings = NewSettingsService(repository.NewSettingRepository(db), companyRepo, txManager, log)
	local, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)
	h.backups = NewBackupService(db, "", repository.NewBackupRepository(db), local, nil, log)
	h.assistant = NewAssistantService(AssistantDeps{
		Incomes:   h.incomes,
		Expenses:  h.expenses,
		Dashboard: h.dashboard,
		CashFlow:  h.cashflow,
		Taxes:     h.taxes,
		Budgets:   h.budgets,
		Backups:   h.backups,
		StatsRepo: statsRepo,
		Scanner:   ocr.NewSimulatedScanner(42),
	}, log)
	return h
}

func f64(v float64) *float64 { return &v }

func (h *harness) expense(t *testing.T, userID, date, vendor, cat string, amount float64, status string) {
	t.Helper()
	_, err := h.expenses.Create(context.Background(), userID, ExpenseRequest{
		Date: date, Vendor: vendor, Description: "test", Category: cat, Amount: f64(amount), TaxRate: f64(0), Status: status,
	})
	require.NoError(t, err)
}

func (h *harness) income(t *testing.T, userID, date, customer string, amount float64, status string) {
	t.Helper()
	_, err := h.incomes.Create(context.Background(), userID, IncomeRequest{
		Date: date, Customer: customer, Description: "test", Amount: f64(amount), TaxRate: f64(0), Status: status,
	})
	require.NoError(t, err)
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperror.Is(err, kind), "unexpected error: %v", err)
}
