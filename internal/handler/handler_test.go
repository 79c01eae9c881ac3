package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"bookkeeping/internal/auth"
	"bookkeeping/internal/config"
	"bookkeeping/internal/ocr"
	"bookkeeping/internal/repository"
	"bookkeeping/internal/service"
	"bookkeeping/internal/storage"
	"bookkeeping/internal/testutil"
	"bookkeeping/internal/websocket"
	"bookkeeping/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret-handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Name: "bookkeeping", Env: config.EnvTest, Version: "test"},
		HTTP: config.HTTPConfig{CORSOrigins: []string{"http://localhost:5173"}, MaxBodySize: 1 << 20},
	}
}

// newTestRouter wires the whole API against a temporary database
func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator())

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

	tokens := auth.NewTokenService(testSecret, time.Hour, "bookkeeping", auth.NewInMemoryTokenBlacklist())
	hub := websocket.NewHub(log)

	incomes := service.NewIncomeService(incomeRepo, seqRepo, txManager, log)
	expenses := service.NewExpenseService(expenseRepo, seqRepo, txManager, log)
	dashboard := service.NewDashboardService(incomeRepo, expenseRepo, statsRepo)
	cashflow := service.NewCashFlowService(incomeRepo, expenseRepo, statsRepo)
	taxes := service.NewTaxService(repository.NewTaxRuleRepository(db), repository.NewTaxCalculationRepository(db), log)
	budgets := service.NewBudgetService(budgetRepo, statsRepo, txManager, hub, log)
	local, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)
	backups := service.NewBackupService(db, "", repository.NewBackupRepository(db), local, nil, log)

	return NewRouter(RouterDeps{
		Config: cfg,
		Logger: log,
		Tokens: tokens,
		Hub:    hub,
		Handlers: Handlers{
			Auth:      NewAuthHandler(service.NewAuthService(userRepo, companyRepo, txManager, tokens, log)),
			Income:    NewIncomeHandler(incomes),
			Expense:   NewExpenseHandler(expenses),
			Dashboard: NewDashboardHandler(dashboard),
			Reports:   NewReportHandler(service.NewReportService(incomeRepo, expenseRepo, log)),
			Tax:       NewTaxHandler(taxes),
			Budget:    NewBudgetHandler(budgets),
			CashFlow:  NewCashFlowHandler(cashflow),
			Analytics: NewAnalyticsHandler(service.NewAnalyticsService(incomeRepo, expenseRepo, statsRepo)),
			Assistant: NewAssistantHandler(service.NewAssistantService(service.AssistantDeps{
				Incomes:   incomes,
				Expenses:  expenses,
				Dashboard: dashboard,
				CashFlow:  cashflow,
				Taxes:     taxes,
				Budgets:   budgets,
				Backups:   backups,
				StatsRepo: statsRepo,
				Scanner:   ocr.NewSimulatedScanner(7),
			}, log)),
			Settings: NewSettingsHandler(service.NewSettingsService(repository.NewSettingRepository(db), companyRepo, txManager, log)),
			Health:   NewHealthHandler(service.NewHealthService(db, "test")),
		},
	})
}

type envelope struct {
	Success    bool                  `json:"success"`
	Data       json.RawMessage       `json:"data"`
	Message    string                `json:"message"`
	Error      string                `json:"error"`
	Details    []apperror.FieldError `json:"details"`
	Pagination *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func register(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "123456", "company_name": "X", "name": "Y",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := decode(t, env.Data)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRoutes_Table(t *testing.T) {
	routes := Routes(Handlers{})
	seen := make(map[string]bool)
	public := make([]string, 0)
	for _, r := range routes {
		key := r.Method + " " + r.Path
		assert.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true
		if r.Policy == Public {
			public = append(public, key)
		}
	}
	assert.ElementsMatch(t, []string{
		"GET /health",
		"POST /auth/register",
		"POST /auth/login",
		"GET /tax/rates",
		"GET /tax/resources",
	}, public)
	assert.Equal(t, "private", Private.String())
}

func TestRegister_OptionalPolicy(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour, "bookkeeping", nil)
	token, _, err := tokens.Issue(auth.Identity{UserID: "u-1", Email: "a@b.com"})
	require.NoError(t, err)

	r := gin.New()
	Register(r.Group("/api"), []Route{
		{http.MethodGet, "/whoami", Optional, func(c *gin.Context) {
			c.String(http.StatusOK, "user=%s", userID(c))
		}},
	}, tokens)

	for _, tc := range []struct {
		header string
		want   string
	}{
		{"", "user="},
		{"Bearer garbage", "user="},
		{"Bearer " + token, "user=u-1"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tc.want, w.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w, env := do(t, r, http.MethodGet, "/api/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", env.Error)

	token := register(t, r, "owner@example.com")

	w, env = do(t, r, http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, env.Data)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "owner@example.com", data["user"].(map[string]interface{})["email"])

	w, env = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "owner@example.com", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", env.Error)

	w, _ = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "owner@example.com", "password": "123456"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/auth/verify", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid token", env.Error)
}

func TestRegister_Validation(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w, env := do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "not-an-email", "password": "123", "company_name": "X", "name": "Y",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	fields := make([]string, 0, len(env.Details))
	for _, d := range env.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"email", "password"}, fields)

	w, env = do(t, r, http.MethodPost, "/api/auth/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request payload", env.Error)

	register(t, r, "dup@example.com")
	w, _ = do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "dup@example.com", "password": "123456", "company_name": "X", "name": "Y",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExpenseCRUD(t *testing.T) {
	r := newTestRouter(t, testConfig())
	owner := register(t, r, "owner@example.com")
	other := register(t, r, "other@example.com")

	w, env := do(t, r, http.MethodPost, "/api/expense", owner, gin.H{
		"date": "2024-08-05", "vendor": "ABC Stationery", "description": "paper",
		"category": "office_supplies", "amount": 1000, "tax_rate": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	exp := decode(t, env.Data)
	assert.Equal(t, "EXP001", exp["expense_id"])
	assert.Equal(t, 1050.0, exp["total_amount"])
	assert.Equal(t, "pending", exp["status"])
	id := int(exp["id"].(float64))
	path := "/api/expense/" + strconv.Itoa(id)

	w, env = do(t, r, http.MethodGet, "/api/expense?vendor=abc&limit=5", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)
	assert.Equal(t, 5, env.Pagination.Limit)

	w, _ = do(t, r, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(t, r, http.MethodPatch, path+"/status", owner, gin.H{"status": "paid"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", decode(t, env.Data)["status"])

	w, env = do(t, r, http.MethodGet, "/api/expense/stats/summary?start_date=2024-08-01&end_date=2024-08-31", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, env.Data)["count"])

	w, env = do(t, r, http.MethodGet, "/api/expense/stats/summary?start_date=08/01/2024", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Details, 1)
	assert.Equal(t, "start_date", env.Details[0].Field)

	w, _ = do(t, r, http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, path, owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/expense/abc", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIncomeValidation(t *testing.T) {
	r := newTestRouter(t, testConfig())
	token := register(t, r, "owner@example.com")

	w, env := do(t, r, http.MethodPost, "/api/income", token, gin.H{
		"date": "2024-13-01", "customer": "", "description": "x", "amount": -1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := make([]string, 0, len(env.Details))
	for _, d := range env.Details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "date")
	assert.Contains(t, fields, "customer")
	assert.Contains(t, fields, "amount")
}

func TestBudgetExecutionFlow(t *testing.T) {
	r := newTestRouter(t, testConfig())
	token := register(t, r, "owner@example.com")

	w, env := do(t, r, http.MethodPost, "/api/budget", token, gin.H{
		"name": "Office", "category": "辦公用品", "budget_type": "monthly", "amount": 10000, "period": "2024-08",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := int(decode(t, env.Data)["id"].(float64))

	w, _ = do(t, r, http.MethodPost, "/api/expense", token, gin.H{
		"date": "2024-08-10", "vendor": "ABC", "description": "paper",
		"category": "office_supplies", "amount": 8500, "status": "paid",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = do(t, r, http.MethodPost, "/api/budget/"+strconv.Itoa(id)+"/execution", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	exec := decode(t, env.Data)
	assert.Equal(t, "warning", exec["status"])
	assert.Equal(t, 85.0, exec["usage_percentage"])

	w, _ = do(t, r, http.MethodGet, "/api/budget/"+strconv.Itoa(id)+"/execution?period=2024-07", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/budget/"+strconv.Itoa(id)+"/execution?period=24-07", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/budget/overview/2024-08", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, env.Data)

	w, _ = do(t, r, http.MethodGet, "/api/budget/categories", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTaxRoutes(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w, _ := do(t, r, http.MethodGet, "/api/tax/rates", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/tax/calculate-business-tax", "", gin.H{"sales_amount": 1000})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := register(t, r, "owner@example.com")
	w, env := do(t, r, http.MethodPost, "/api/tax/calculate-business-tax", token, gin.H{"sales_amount": 100000, "purchase_amount": 40000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3000.0, decode(t, env.Data)["tax_payable"])

	w, env = do(t, r, http.MethodGet, "/api/tax/calculation-history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)

	w, _ = do(t, r, http.MethodGet, "/api/tax/calculation-history?type=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportExport(t *testing.T) {
	r := newTestRouter(t, testConfig())
	token := register(t, r, "owner@example.com")

	w, _ := do(t, r, http.MethodGet, "/api/reports/export?type=expense-breakdown&format=csv", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	w, _ = do(t, r, http.MethodGet, "/api/reports/export?format=pdf", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCashFlowForecastHorizon(t *testing.T) {
	r := newTestRouter(t, testConfig())
	token := register(t, r, "owner@example.com")

	w, env := do(t, r, http.MethodGet, "/api/cashflow/forecast/30", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, env.Data)
	assert.EqualValues(t, 30, data["horizon_days"])
	assert.Len(t, data["days"], 30)
	for _, bad := range []string{"0", "366", "abc"} {
		w, _ = do(t, r, http.MethodGet, "/api/cashflow/forecast/"+bad, token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func scanRequest(t *testing.T, token string, withFile bool, save string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if withFile {
		fw, err := mw.CreateFormFile(receiptField, "receipt.jpg")
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	if save != "" {
		require.NoError(t, mw.WriteField("save", save))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/assistant/scan-receipt", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestScanReceipt(t *testing.T) {
	r := newTestRouter(t, testConfig())
	token := register(t, r, "owner@example.com")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, scanRequest(t, token, true, "true"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	res := decode(t, env.Data)
	assert.Equal(t, true, res["saved"])
	assert.NotNil(t, res["expense"])

	_, list := do(t, r, http.MethodGet, "/api/expense?status=pending", token, nil)
	require.NotNil(t, list.Pagination)
	assert.Equal(t, int64(1), list.Pagination.Total)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, scanRequest(t, token, true, ""))
	require.Equal(t, http.StatusOK, w.Code)
	_, list = do(t, r, http.MethodGet, "/api/expense", token, nil)
	assert.Equal(t, int64(1), list.Pagination.Total, "a scan without save persists nothing")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, scanRequest(t, token, false, "true"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantChat(t *testing.T) {
	r := newTestRouter(t, testConfig())
	token := register(t, r, "owner@example.com")

	w, env := do(t, r, http.MethodPost, "/api/assistant/chat", token, gin.H{"message": "How is my cash flow?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.IntentCashFlow, decode(t, env.Data)["intent"])

	w, _ = do(t, r, http.MethodPost, "/api/assistant/chat", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsRouting(t *testing.T) {
	r := newTestRouter(t, testConfig())
	token := register(t, r, "owner@example.com")

	w, env := do(t, r, http.MethodPut, "/api/settings/company", token, gin.H{"company_name": "Acme", "tax_id": "12345678"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Acme", decode(t, env.Data)["company_name"])

	w, env = do(t, r, http.MethodPut, "/api/settings/app.language", token, gin.H{"value": "en"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en", decode(t, env.Data)["value"])

	w, _ = do(t, r, http.MethodGet, "/api/settings/no.such.key", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/settings/import", token, gin.H{
		"settings": []gin.H{{"key": "a.b", "value": "x", "type": "colour"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndFallbacks(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w, env := do(t, r, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode(t, env.Data)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ok", health["database"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, env = do(t, r, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", env.Error)
}

func TestBodyLimitAndRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.MaxBodySize = 64
	cfg.HTTP.RateLimitRequests = 3
	cfg.HTTP.RateLimitWindow = time.Minute
	r := newTestRouter(t, cfg)

	w, env := do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": strings.Repeat("a", 100) + "@example.com", "password": "x"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body exceeds maximum allowed size", env.Error)

	// the rejected body never reaches the rate limiter
	for i := 0; i < 3; i++ {
		w, _ = do(t, r, http.MethodGet, "/api/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w, env = do(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, env.Success)
}

func TestRespondError_Redaction(t *testing.T) {
	cause := errors.New("disk I/O error at /var/lib/db")

	for _, tc := range []struct {
		name   string
		expose bool
		want   string
	}{
		{"hidden by default", false, "Internal server error"},
		{"exposed in development", true, "Internal server error: disk I/O error at /var/lib/db"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.expose {
				c.Set(exposeErrorsKey, true)
			}
			respondError(c, cause)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tc.want, env.Error)
		})
	}
}
