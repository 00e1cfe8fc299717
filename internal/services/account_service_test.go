package services

import (
	"testing"

	"monbudget/internal/encryption"
	"monbudget/internal/models"
	"monbudget/internal/pagination"
	"monbudget/internal/testutil"
)

const (
	testEncryptionKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	testIBAN          = "FR76 3000 6000 0112 3456 7890 189"
	testMaskedIBAN    = "FR76 **** **** **** **** ***0 189"
)

func newTestCipher(t *testing.T) *encryption.Cipher {
	t.Helper()
	c, err := encryption.New(testEncryptionKey)
	if err != nil {
		t.Fatalf("failed to build cipher: %v", err)
	}
	return c
}

func TestCreateAccount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(user.ID, "Savings", "My savings", models.AccountTypeSavings, "EUR", "", 0)
		testutil.AssertNoError(t, err)

		if account.ID == "" {
			t.Fatal("expected account ID")
		}
		if account.Name != "Savings" {
			t.Errorf("expected name Savings, got %s", account.Name)
		}
		if account.Type != models.AccountTypeSavings {
			t.Errorf("expected type savings, got %s", account.Type)
		}
		if !account.IsActive {
			t.Error("expected account to be active")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(user.ID, "Main", "", "", "", "", 0)
		testutil.AssertNoError(t, err)

		if account.Type != models.AccountTypeChecking {
			t.Errorf("expected default type checking, got %s", account.Type)
		}
		if account.Currency != "EUR" {
			t.Errorf("expected default currency EUR, got %s", account.Currency)
		}
	})

	t.Run("with_initial_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(user.ID, "Checking", "", models.AccountTypeChecking, "EUR", "", 5000)
		testutil.AssertNoError(t, err)

		if account.Balance != 5000 {
			t.Errorf("expected balance 5000, got %d", account.Balance)
		}

		var txs []models.Transaction
		db.Where("account_id = ?", account.ID).Find(&txs)
		if len(txs) != 1 {
			t.Fatalf("expected 1 initial transaction, got %d", len(txs))
		}
		if txs[0].Type != models.TransactionTypeCredit {
			t.Errorf("expected initial transaction type credit, got %s", txs[0].Type)
		}
		if txs[0].Amount != 5000 {
			t.Errorf("expected initial transaction amount 5000, got %d", txs[0].Amount)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(user.ID, "", "", "", "EUR", "", 0)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("iban_encrypted_and_masked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		cipher := newTestCipher(t)
		svc := NewAccountService(db, cipher)
		user := testutil.CreateTestUser(t, db)

		account, err := svc.CreateAccount(user.ID, "Bank", "", models.AccountTypeChecking, "EUR", testIBAN, 0)
		testutil.AssertNoError(t, err)

		if account.MaskedIBAN != testMaskedIBAN {
			t.Errorf("expected masked IBAN %q, got %q", testMaskedIBAN, account.MaskedIBAN)
		}

		var stored models.Account
		db.First(&stored, "id = ?", account.ID)
		if !encryption.IsEncrypted(stored.IBAN) {
			t.Errorf("expected stored IBAN to be encrypted, got %q", stored.IBAN)
		}
		if stored.IBANHash != cipher.HashIBAN(testIBAN) {
			t.Error("expected stored IBAN hash to match")
		}
		plain, err := cipher.Decrypt(stored.IBAN)
		testutil.AssertNoError(t, err)
		if plain != encryption.NormalizeIBAN(testIBAN) {
			t.Errorf("expected decrypted IBAN %q, got %q", encryption.NormalizeIBAN(testIBAN), plain)
		}
	})

	t.Run("invalid_iban", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, newTestCipher(t))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(user.ID, "Bank", "", "", "EUR", "FR76 3000 6000 0112 3456 7890 188", 0)
		testutil.AssertAppError(t, err, "INVALID_IBAN")
	})

	t.Run("iban_without_key", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateAccount(user.ID, "Bank", "", "", "EUR", testIBAN, 0)
		testutil.AssertAppError(t, err, "ENCRYPTION_KEY_INVALID")
	})
}

func TestGetUserAccounts(t *testing.T) {
	t.Run("returns_user_accounts_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)

		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)

		testutil.CreateTestAccount(t, db, user1.ID)
		testutil.CreateTestAccount(t, db, user1.ID)
		testutil.CreateTestAccount(t, db, user2.ID)

		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetUserAccounts(user1.ID, page)
		testutil.AssertNoError(t, err)

		if result.TotalItems != 2 {
			t.Errorf("expected 2 accounts for user1, got %d", result.TotalItems)
		}
		if len(result.Data) != 2 {
			t.Errorf("expected 2 accounts in data, got %d", len(result.Data))
		}
	})

	t.Run("excludes_inactive", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)

		active := testutil.CreateTestAccount(t, db, user.ID)
		inactive := testutil.CreateTestAccount(t, db, user.ID)
		db.Model(inactive).Update("is_active", false)

		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetUserAccounts(user.ID, page)
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Errorf("expected 1 active account, got %d", result.TotalItems)
		}
		if result.Data[0].ID != active.ID {
			t.Errorf("expected active account ID %s, got %s", active.ID, result.Data[0].ID)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)

		for i := 0; i < 5; i++ {
			testutil.CreateTestAccount(t, db, user.ID)
		}

		result, err := svc.GetUserAccounts(user.ID, pagination.PageRequest{Page: 2, PageSize: 2})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 5 {
			t.Errorf("expected 5 total, got %d", result.TotalItems)
		}
		if result.TotalPages != 3 {
			t.Errorf("expected 3 pages, got %d", result.TotalPages)
		}
		if len(result.Data) != 2 {
			t.Errorf("expected 2 items on page 2, got %d", len(result.Data))
		}
	})
}

func TestGetAccountByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		user := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestAccount(t, db, user.ID)

		account, err := svc.GetAccountByID(user.ID, created.ID)
		testutil.AssertNoError(t, err)
		if account.ID != created.ID {
			t.Errorf("expected account %s, got %s", created.ID, account.ID)
		}
	})

	t.Run("other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountService(db, nil)
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, owner.ID)

		_, err := svc.GetAccountByID(other.ID, account.ID)
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestUpdateAccountBalance(t *testing.T) {
	tests := []struct {
		name    string
		txType  models.TransactionType
		amount  int64
		want    int64
		wantErr string
	}{
		{"credit", models.TransactionTypeCredit, 2500, 12500, ""},
		{"debit", models.TransactionTypeDebit, 2500, 7500, ""},
		{"debit_below_zero", models.TransactionTypeDebit, 15000, -5000, ""},
		{"invalid_type", models.TransactionType("transfer"), 100, 10000, "INVALID_TRANSACTION_TYPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			svc := NewAccountService(db, nil)
			user := testutil.CreateTestUser(t, db)
			account := testutil.CreateTestAccountWithBalance(t, db, user.ID, 10000)

			err := svc.UpdateAccountBalance(db, account, tt.txType, tt.amount)
			if tt.wantErr != "" {
				testutil.AssertAppError(t, err, tt.wantErr)
			} else {
				testutil.AssertNoError(t, err)
			}

			var stored models.Account
			db.First(&stored, "id = ?", account.ID)
			if stored.Balance != tt.want {
				t.Errorf("expected balance %d, got %d", tt.want, stored.Balance)
			}
		})
	}
}
