package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "bookkeeping/api/swagger" // swagger docs
	"bookkeeping/internal/auth"
	"bookkeeping/internal/config"
	"bookkeeping/internal/database"
	"bookkeeping/internal/handler"
	"bookkeeping/internal/logger"
	"bookkeeping/internal/ocr"
	"bookkeeping/internal/repository"
	"bookkeeping/internal/service"
	"bookkeeping/internal/storage"
	"bookkeeping/internal/websocket"

	"go.uber.org/zap"
)

// @title           Bookkeeping API
// @version         1.0
// @description     Small-business bookkeeping: ledgers, budgets, tax calculators, reports and an analytics assistant.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "", "path to the config file (default configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logr := logger.New(cfg.Log)
	defer func() { _ = logr.Sync() }()

	if err := run(cfg, logr); err != nil {
		logr.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database, logr)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logr.Warn("Failed to close database", zap.Error(err))
		}
	}()
	logr.Info("Connected to SQLite", zap.String("path", cfg.Database.Path))

	// Token revocations live in Redis when enabled so they survive restarts
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if cfg.Redis.Enabled {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redisBlacklist.Close()
		blacklist = redisBlacklist
		logr.Info("Using Redis token blacklist", zap.String("addr", cfg.Redis.Addr))
	}
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer, blacklist)

	local, err := storage.NewLocalStore(cfg.Backup.Dir)
	if err != nil {
		return err
	}
	var remote storage.Store
	if cfg.Backup.S3.Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.Backup.S3, logr)
		if err != nil {
			return err
		}
		remote = s3Store
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logr)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	seqRepo := repository.NewSequenceRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	txManager := repository.NewTransactionManager(db)

	authService := service.NewAuthService(userRepo, companyRepo, txManager, tokens, logr)
	incomeService := service.NewIncomeService(incomeRepo, seqRepo, txManager, logr)
	expenseService := service.NewExpenseService(expenseRepo, seqRepo, txManager, logr)
	dashboardService := service.NewDashboardService(incomeRepo, expenseRepo, statsRepo)
	reportService := service.NewReportService(incomeRepo, expenseRepo, logr)
	taxService := service.NewTaxService(repository.NewTaxRuleRepository(db), repository.NewTaxCalculationRepository(db), logr)
	budgetService := service.NewBudgetService(budgetRepo, statsRepo, txManager, wsHub, logr)
	cashFlowService := service.NewCashFlowService(incomeRepo, expenseRepo, statsRepo)
	analyticsService := service.NewAnalyticsService(incomeRepo, expenseRepo, statsRepo)
	settingsService := service.NewSettingsService(repository.NewSettingRepository(db), companyRepo, txManager, logr)
	backupService := service.NewBackupService(db, cfg.Database.Path, repository.NewBackupRepository(db), local, remote, logr)
	assistantService := service.NewAssistantService(service.AssistantDeps{
		Incomes:   incomeService,
		Expenses:  expenseService,
		Dashboard: dashboardService,
		CashFlow:  cashFlowService,
		Taxes:     taxService,
		Budgets:   budgetService,
		Backups:   backupService,
		StatsRepo: statsRepo,
		Scanner:   ocr.NewSimulatedScanner(uint64(time.Now().UnixNano())),
	}, logr)

	if err := handler.SetupValidator(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}
	router := handler.NewRouter(handler.RouterDeps{
		Config: cfg,
		Logger: logr,
		Tokens: tokens,
		Hub:    wsHub,
		Handlers: handler.Handlers{
			Auth:      handler.NewAuthHandler(authService),
			Income:    handler.NewIncomeHandler(incomeService),
			Expense:   handler.NewExpenseHandler(expenseService),
			Dashboard: handler.NewDashboardHandler(dashboardService),
			Reports:   handler.NewReportHandler(reportService),
			Tax:       handler.NewTaxHandler(taxService),
			Budget:    handler.NewBudgetHandler(budgetService),
			CashFlow:  handler.NewCashFlowHandler(cashFlowService),
			Analytics: handler.NewAnalyticsHandler(analyticsService),
			Assistant: handler.NewAssistantHandler(assistantService),
			Settings:  handler.NewSettingsHandler(settingsService),
			Health:    handler.NewHealthHandler(service.NewHealthService(db, cfg.App.Version)),
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("Shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logr.Info("Server stopped")
	return nil
}
