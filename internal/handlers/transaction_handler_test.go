package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "monbudget/internal/errors"
	"monbudget/internal/models"
	"monbudget/internal/pagination"
	"monbudget/internal/services"
)

const testTransactionID = "0190a4f2-af31-7e44-a055-66778899aabb"

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn      func(userID, accountID string, categoryID *string, txType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error)
	getAccountTransactionsFn func(userID, accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getUserTransactionsFn    func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn     func(userID, transactionID string) (*models.Transaction, error)
	deleteTransactionFn      func(userID, transactionID string) error
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func (m *mockTransactionService) CreateTransaction(userID, accountID string, categoryID *string, txType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, accountID, categoryID, txType, amount, description, date)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getAccountTransactionsFn != nil {
		return m.getAccountTransactionsFn(userID, accountID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	auth.GET("/accounts/:id/transactions", handler.GetAccountTransactions)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotDate time.Time
		var gotCategory *string
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID, accountID string, categoryID *string, txType models.TransactionType, amount int64, desc string, date time.Time) (*models.Transaction, error) {
				gotDate = date
				gotCategory = categoryID
				return &models.Transaction{
					Base:      models.Base{ID: testTransactionID},
					UserID:    userID,
					AccountID: accountID,
					Type:      txType,
					Amount:    amount,
					Date:      date,
				}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewTransactionHandler(txSvc, audit)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"account_id":"`+testAccountID+`","category_id":"`+testCategoryID+`","type":"debit","amount":4250,"description":"Boulangerie","date":"2024-03-15"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected date 2024-03-15, got %v", gotDate)
		}
		if gotCategory == nil || *gotCategory != testCategoryID {
			t.Errorf("expected category %s, got %v", testCategoryID, gotCategory)
		}
		if !audit.hasAction("CREATE_TRANSACTION") {
			t.Error("expected CREATE_TRANSACTION audit entry")
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing account_id", `{"type":"debit","amount":100}`},
		{"malformed account_id", `{"account_id":"7","type":"debit","amount":100}`},
		{"zero amount", `{"account_id":"` + testAccountID + `","type":"debit","amount":0}`},
		{"invalid type", `{"account_id":"` + testAccountID + `","type":"expense","amount":100}`},
		{"malformed category_id", `{"account_id":"` + testAccountID + `","category_id":"food","type":"debit","amount":100}`},
		{"invalid date", `{"account_id":"` + testAccountID + `","type":"debit","amount":100,"date":"15/03/2024"}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
			r := setupTransactionRouter(handler)

			rec := doRequest(r, "POST", "/transactions", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 404 when account not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(_, _ string, _ *string, _ models.TransactionType, _ int64, _ string, _ time.Time) (*models.Transaction, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"`+testAccountID+`","type":"credit","amount":100}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/transactions", handler.CreateTransaction)

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"`+testAccountID+`","type":"credit","amount":100}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetAccountTransactions(t *testing.T) {
	t.Run("passes filter params to service", func(t *testing.T) {
		var capturedAccount string
		var capturedFilter services.TransactionFilter
		txSvc := &mockTransactionService{
			getAccountTransactionsFn: func(_, accountID string, _ pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				capturedAccount = accountID
				capturedFilter = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/accounts/"+testAccountID+
			"/transactions?type=credit&from_date=2024-01-01&to_date=2024-01-31&category_id="+testCategoryID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedAccount != testAccountID {
			t.Errorf("expected account %s, got %s", testAccountID, capturedAccount)
		}
		if capturedFilter.Type == nil || *capturedFilter.Type != models.TransactionTypeCredit {
			t.Errorf("expected type=credit filter, got %v", capturedFilter.Type)
		}
		if capturedFilter.FromDate == nil || capturedFilter.ToDate == nil {
			t.Fatal("expected both date filters")
		}
		if capturedFilter.ToDate.Day() != 31 {
			t.Errorf("expected to_date day 31, got %d", capturedFilter.ToDate.Day())
		}
		if capturedFilter.CategoryID == nil || *capturedFilter.CategoryID != testCategoryID {
			t.Errorf("expected category filter, got %v", capturedFilter.CategoryID)
		}
	})

	tests := []struct {
		name  string
		query string
	}{
		{"invalid type filter", "?type=income"},
		{"invalid date format", "?from_date=yesterday"},
		{"invalid category_id", "?category_id=12"},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
			r := setupTransactionRouter(handler)

			rec := doRequest(r, "GET", "/accounts/"+testAccountID+"/transactions"+tt.query, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}

	t.Run("returns 400 on invalid account ID", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/accounts/abc/transactions", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	t.Run("passes account filter and sort", func(t *testing.T) {
		var capturedPage pagination.PageRequest
		var capturedFilter services.TransactionFilter
		txSvc := &mockTransactionService{
			getUserTransactionsFn: func(_ string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				capturedPage = page
				capturedFilter = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?sort=asc&account_id="+testAccountID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedPage.Sort != "asc" {
			t.Errorf("expected sort asc, got %q", capturedPage.Sort)
		}
		if capturedFilter.AccountID == nil || *capturedFilter.AccountID != testAccountID {
			t.Errorf("expected account filter, got %v", capturedFilter.AccountID)
		}
	})

	t.Run("returns 400 on invalid account_id", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?account_id=1", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid sort", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?sort=random", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(userID, txID string) (*models.Transaction, error) {
				return &models.Transaction{Base: models.Base{ID: txID}, UserID: userID, Amount: 1200}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["amount"] != float64(1200) {
			t.Errorf("expected amount 1200, got %v", tx["amount"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(_, _ string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var deleted string
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(_, txID string) error {
				deleted = txID
				return nil
			},
		}
		audit := &mockAuditService{}
		handler := NewTransactionHandler(txSvc, audit)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deleted != testTransactionID {
			t.Errorf("expected %s deleted, got %q", testTransactionID, deleted)
		}
		if !audit.hasAction("DELETE_TRANSACTION") {
			t.Error("expected DELETE_TRANSACTION audit entry")
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(_, _ string) error {
				return apperrors.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "DELETE", "/transactions/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
