package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"monbudget/internal/clock"
	"monbudget/internal/encryption"
	"monbudget/internal/events"
	"monbudget/internal/handlers"
	"monbudget/internal/logger"
	"monbudget/internal/middleware"
	"monbudget/internal/services"
	"monbudget/internal/testutil"
	"monbudget/internal/validator"
)

const (
	testPipelineKey = "integration-pipeline-key"
	// 32 zero bytes, base64 encoded.
	testEncryptionKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
)

// today is the date every batch run in these tests observes.
var today = clock.Date(2025, time.March, 15)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB        *gorm.DB
	Router    *gin.Engine
	Publisher *recordingPublisher
}

// recordingPublisher keeps published budget alert events in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.BudgetAlertEvent
}

func (p *recordingPublisher) PublishBudgetAlert(_ context.Context, e *events.BudgetAlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []*events.BudgetAlertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.BudgetAlertEvent(nil), p.events...)
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	cipher, err := encryption.New(testEncryptionKey)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}
	publisher := &recordingPublisher{}

	// Services
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db, cipher)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, accountService)
	budgetService := services.NewBudgetService(db)
	recurrenceService := services.NewRecurrenceService(db)
	recurrenceEngine := services.NewRecurrenceEngine(db, today, auditService)
	budgetAlertService := services.NewBudgetAlertService(db, publisher, services.DefaultAlertThresholds, today)
	notificationService := services.NewNotificationService(db, services.DefaultAlertThresholds)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	recurrenceHandler := handlers.NewRecurrenceHandler(recurrenceService, recurrenceEngine, auditService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, auditService)
	jobHandler := handlers.NewJobHandler(recurrenceEngine, budgetAlertService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	jobs := v1.Group("/jobs")
	jobs.Use(middleware.PipelineAuthMiddleware(testPipelineKey))
	jobs.POST("/recurrences/execute", jobHandler.ExecuteRecurrences)
	jobs.POST("/budget-alerts/check", jobHandler.CheckBudgetAlerts)

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

	return &testApp{DB: db, Router: router, Publisher: publisher}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// runJob triggers a scheduler endpoint with the pipeline key.
func (app *testApp) runJob(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	req.Header.Set("X-API-Key", testPipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("job %s failed: %d %s", path, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["result"].(map[string]interface{})
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in body: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// create POSTs body to path and returns the object stored under key.
func (app *testApp) create(t *testing.T, path, key, body, token string) map[string]interface{} {
	t.Helper()
	rec := app.request("POST", path, body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST %s failed: %d %s", path, rec.Code, rec.Body.String())
	}
	obj, ok := parseJSON(t, rec)[key].(map[string]interface{})
	if !ok {
		t.Fatalf("expected %q in response: %s", key, rec.Body.String())
	}
	return obj
}

// get GETs path, expects 200, and returns the decoded body.
func (app *testApp) get(t *testing.T, path, token string) map[string]interface{} {
	t.Helper()
	rec := app.request("GET", path, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s failed: %d %s", path, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}
