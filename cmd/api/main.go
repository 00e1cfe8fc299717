package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"monbudget/internal/clock"
	"monbudget/internal/config"
	"monbudget/internal/database"
	_ "monbudget/internal/docs" // Import swagger docs
	"monbudget/internal/encryption"
	"monbudget/internal/events"
	"monbudget/internal/handlers"
	"monbudget/internal/logger"
	"monbudget/internal/metrics"
	"monbudget/internal/middleware"
	"monbudget/internal/models"
	"monbudget/internal/services"
	"monbudget/internal/validator"
)

// @title           Monbudget API
// @version         1.0
// @description     Monbudget tracks accounts and transactions, books recurring transactions and raises budget alerts.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Shared key for scheduler-triggered jobs.

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.SetLevel(appConfig.LogLevel); err != nil {
		return err
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig.Database))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	var cipher *encryption.Cipher
	if appConfig.EncryptionKey != "" {
		if cipher, err = encryption.New(appConfig.EncryptionKey); err != nil {
			return fmt.Errorf("failed to load encryption key: %w", err)
		}
	} else {
		log.Warn("ENCRYPTION_KEY not set, accounts cannot store an IBAN")
	}

	publisher, err := events.NewPublisher(appConfig.AMQP.URL, appConfig.AMQP.Exchange, appConfig.AMQP.Queue)
	if err != nil {
		return fmt.Errorf("failed to connect to message broker: %w", err)
	}
	defer publisher.Close()

	clk := clock.System{Location: appConfig.Location}
	thresholds := models.AlertThresholds{
		Warning:  appConfig.Alerts.Warning,
		Alert:    appConfig.Alerts.Alert,
		Critical: appConfig.Alerts.Critical,
	}

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db, cipher)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, accountService)
	budgetService := services.NewBudgetService(db)
	recurrenceService := services.NewRecurrenceService(db)
	recurrenceEngine := services.NewRecurrenceEngine(db, clk, auditService)
	budgetAlertService := services.NewBudgetAlertService(db, publisher, thresholds, clk)
	notificationService := services.NewNotificationService(db, thresholds)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	recurrenceHandler := handlers.NewRecurrenceHandler(recurrenceService, recurrenceEngine, auditService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, auditService)
	jobHandler := handlers.NewJobHandler(recurrenceEngine, budgetAlertService, auditService)

	validator.Register()
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/api/health", func(c *gin.Context) {
		if err := dbManager.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Scheduler routes
	jobs := v1.Group("/jobs")
	jobs.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	jobs.POST("/recurrences/execute", jobHandler.ExecuteRecurrences)
	jobs.POST("/budget-alerts/check", jobHandler.CheckBudgetAlerts)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.GET("/:id/transactions", transactionHandler.GetAccountTransactions)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/status", budgetHandler.GetBudgetProgress)

	recurrences := protected.Group("/recurrences")
	recurrences.POST("", recurrenceHandler.CreateRecurrence)
	recurrences.GET("", recurrenceHandler.GetRecurrences)
	recurrences.GET("/:id", recurrenceHandler.GetRecurrence)
	recurrences.POST("/:id/deactivate", recurrenceHandler.DeactivateRecurrence)
	recurrences.POST("/:id/execute", recurrenceHandler.ExecuteRecurrence)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
	notifications.POST("/read-all", notificationHandler.MarkAllAsRead)
	notifications.POST("/:id/read", notificationHandler.MarkAsRead)
	notifications.GET("/settings", notificationHandler.GetSettings)
	notifications.PUT("/settings", notificationHandler.UpdateSettings)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting Monbudget backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
