package handler

import (
	"net/http"

	"bookkeeping/internal/auth"
	"bookkeeping/internal/config"
	"bookkeeping/internal/logger"
	"bookkeeping/internal/middleware"
	"bookkeeping/internal/websocket"
	"bookkeeping/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Policy states what a route requires from the caller's token
type Policy int

const (
	// Public routes never look at the token
	Public Policy = iota
	// Optional routes attach the identity when a valid token is present
	Optional
	// Private routes reject requests without a valid token
	Private
)

func (p Policy) String() string {
	switch p {
	case Public:
		return "public"
	case Optional:
		return "optional"
	default:
		return "private"
	}
}

// Route is one entry of the API route table
type Route struct {
	Method  string
	Path    string
	Policy  Policy
	Handler gin.HandlerFunc
}

// Handlers groups every module handler served under /api
type Handlers struct {
	Auth      *AuthHandler
	Income    *IncomeHandler
	Expense   *ExpenseHandler
	Dashboard *DashboardHandler
	Reports   *ReportHandler
	Tax       *TaxHandler
	Budget    *BudgetHandler
	CashFlow  *CashFlowHandler
	Analytics *AnalyticsHandler
	Assistant *AssistantHandler
	Settings  *SettingsHandler
	Health    *HealthHandler
}

// Routes is the complete route table; paths are relative to /api
func Routes(h Handlers) []Route {
	return []Route{
		{http.MethodGet, "/health", Public, h.Health.Check},

		{http.MethodPost, "/auth/register", Public, h.Auth.Register},
		{http.MethodPost, "/auth/login", Public, h.Auth.Login},
		{http.MethodGet, "/auth/verify", Private, h.Auth.Verify},
		{http.MethodPost, "/auth/logout", Private, h.Auth.Logout},
		{http.MethodGet, "/auth/profile", Private, h.Auth.Profile},
		{http.MethodPut, "/auth/profile", Private, h.Auth.UpdateProfile},
		{http.MethodPut, "/auth/password", Private, h.Auth.ChangePassword},

		{http.MethodGet, "/income", Private, h.Income.List},
		{http.MethodPost, "/income", Private, h.Income.Create},
		{http.MethodGet, "/income/stats/summary", Private, h.Income.Summary},
		{http.MethodGet, "/income/stats/by-customer", Private, h.Income.ByCustomer},
		{http.MethodGet, "/income/:id", Private, h.Income.Get},
		{http.MethodPut, "/income/:id", Private, h.Income.Update},
		{http.MethodPatch, "/income/:id/status", Private, h.Income.UpdateStatus},
		{http.MethodDelete, "/income/:id", Private, h.Income.Delete},

		{http.MethodGet, "/expense", Private, h.Expense.List},
		{http.MethodPost, "/expense", Private, h.Expense.Create},
		{http.MethodGet, "/expense/stats/summary", Private, h.Expense.Summary},
		{http.MethodGet, "/expense/stats/by-category", Private, h.Expense.ByCategory},
		{http.MethodGet, "/expense/stats/trend", Private, h.Expense.Trend},
		{http.MethodGet, "/expense/:id", Private, h.Expense.Get},
		{http.MethodPut, "/expense/:id", Private, h.Expense.Update},
		{http.MethodPatch, "/expense/:id/status", Private, h.Expense.UpdateStatus},
		{http.MethodDelete, "/expense/:id", Private, h.Expense.Delete},

		{http.MethodGet, "/dashboard/overview", Private, h.Dashboard.Overview},
		{http.MethodGet, "/dashboard/cash-flow", Private, h.Dashboard.CashFlow},
		{http.MethodGet, "/dashboard/recent-transactions", Private, h.Dashboard.RecentTransactions},
		{http.MethodGet, "/dashboard/category-breakdown", Private, h.Dashboard.CategoryBreakdown},
		{http.MethodGet, "/dashboard/financial-health", Private, h.Dashboard.FinancialHealth},

		{http.MethodGet, "/reports/income-statement", Private, h.Reports.IncomeStatement},
		{http.MethodGet, "/reports/expense-breakdown", Private, h.Reports.ExpenseBreakdown},
		{http.MethodGet, "/reports/export", Private, h.Reports.Export},

		{http.MethodGet, "/tax/rates", Public, h.Tax.Rates},
		{http.MethodGet, "/tax/resources", Public, h.Tax.Resources},
		{http.MethodPost, "/tax/calculate-business-tax", Private, h.Tax.CalculateBusinessTax},
		{http.MethodPost, "/tax/calculate-income-tax", Private, h.Tax.CalculateIncomeTax},
		{http.MethodGet, "/tax/filing-reminders", Private, h.Tax.FilingReminders},
		{http.MethodGet, "/tax/calculation-history", Private, h.Tax.History},

		{http.MethodGet, "/budget", Private, h.Budget.List},
		{http.MethodPost, "/budget", Private, h.Budget.Create},
		{http.MethodGet, "/budget/categories", Private, h.Budget.Categories},
		{http.MethodGet, "/budget/overview/:period", Private, h.Budget.Overview},
		{http.MethodGet, "/budget/:id", Private, h.Budget.Get},
		{http.MethodPut, "/budget/:id", Private, h.Budget.Update},
		{http.MethodDelete, "/budget/:id", Private, h.Budget.Delete},
		{http.MethodPost, "/budget/:id/execution", Private, h.Budget.RecomputeExecution},
		{http.MethodGet, "/budget/:id/execution", Private, h.Budget.GetExecution},

		{http.MethodGet, "/cashflow/forecast/:days", Private, h.CashFlow.Forecast},
		{http.MethodGet, "/cashflow/analysis", Private, h.CashFlow.Analysis},
		{http.MethodGet, "/cashflow/alerts", Private, h.CashFlow.Alerts},

		{http.MethodGet, "/analytics/performance", Private, h.Analytics.Performance},
		{http.MethodGet, "/analytics/comparison", Private, h.Analytics.Comparison},
		{http.MethodGet, "/analytics/cashflow-forecast", Private, h.Analytics.CashFlowForecast},
		{http.MethodGet, "/analytics/anomaly-detection", Private, h.Analytics.AnomalyDetection},
		{http.MethodGet, "/analytics/profitability-analysis", Private, h.Analytics.Profitability},

		{http.MethodPost, "/assistant/classify-transaction", Private, h.Assistant.ClassifyTransaction},
		{http.MethodPost, "/assistant/chat", Private, h.Assistant.Chat},
		{http.MethodPost, "/assistant/generate-smart-report", Private, h.Assistant.SmartReport},
		{http.MethodPost, "/assistant/scan-receipt", Private, h.Assistant.ScanReceipt},
		{http.MethodGet, "/assistant/reminders", Private, h.Assistant.Reminders},
		{http.MethodGet, "/assistant/health-score", Private, h.Assistant.HealthScore},
		{http.MethodGet, "/assistant/insights", Private, h.Assistant.Insights},
		{http.MethodGet, "/assistant/task-suggestions", Private, h.Assistant.TaskSuggestions},
		{http.MethodGet, "/assistant/financial-goals", Private, h.Assistant.FinancialGoals},
		{http.MethodGet, "/assistant/automation-suggestions", Private, h.Assistant.AutomationSuggestions},
		{http.MethodGet, "/assistant/backup-status", Private, h.Assistant.BackupStatus},
		{http.MethodPost, "/assistant/backup", Private, h.Assistant.Backup},
		{http.MethodGet, "/assistant/receipt-templates", Private, h.Assistant.ReceiptTemplates},

		{http.MethodGet, "/settings", Private, h.Settings.List},
		{http.MethodPut, "/settings", Private, h.Settings.BulkSet},
		{http.MethodPost, "/settings/import", Private, h.Settings.Import},
		{http.MethodGet, "/settings/export", Private, h.Settings.Export},
		{http.MethodPost, "/settings/reset", Private, h.Settings.Reset},
		{http.MethodGet, "/settings/company", Private, h.Settings.Company},
		{http.MethodPut, "/settings/company", Private, h.Settings.UpsertCompany},
		{http.MethodGet, "/settings/:key", Private, h.Settings.Get},
		{http.MethodPut, "/settings/:key", Private, h.Settings.Set},
	}
}

// RouterDeps carries what NewRouter needs beyond the handlers
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   *auth.TokenService
	Hub      *websocket.Hub
	Handlers Handlers
}

// NewRouter builds the gin engine: global middleware, the /api route table, swagger and websocket
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(logger.RequestID())
	router.Use(logger.GinMiddleware(deps.Logger))
	router.Use(logger.Recovery(deps.Logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", logger.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", logger.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	if cfg.IsDevelopment() {
		router.Use(exposeErrors)
	}
	router.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.Error("Route not found"))
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/ws", websocket.ServeWs(deps.Hub, deps.Tokens))

	api := router.Group("/api")
	if cfg.HTTP.RateLimitRequests > 0 {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}
	Register(api, Routes(deps.Handlers), deps.Tokens)
	return router
}

// Register mounts each route on group behind the middleware its policy asks for
func Register(group *gin.RouterGroup, routes []Route, tokens *auth.TokenService) {
	authenticate := middleware.Authenticate(tokens)
	optional := middleware.OptionalAuth(tokens)
	for _, r := range routes {
		switch r.Policy {
		case Public:
			group.Handle(r.Method, r.Path, r.Handler)
		case Optional:
			group.Handle(r.Method, r.Path, optional, r.Handler)
		default:
			group.Handle(r.Method, r.Path, authenticate, r.Handler)
		}
	}
}
