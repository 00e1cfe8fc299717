package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"monbudget/internal/encryption"
	apperrors "monbudget/internal/errors"
	"monbudget/internal/logger"
	"monbudget/internal/models"
	"monbudget/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db     *gorm.DB
	cipher *encryption.Cipher
}

// NewAccountService creates a new AccountServicer. cipher may be nil, in
// which case accounts cannot carry an IBAN.
func NewAccountService(db *gorm.DB, cipher *encryption.Cipher) AccountServicer {
	return &accountService{db: db, cipher: cipher}
}

// CreateAccount creates a new account for a user. A non-empty IBAN is
// validated, encrypted and hashed before it is stored.
func (s *accountService) CreateAccount(
	userID, name, description string,
	accountType models.AccountType,
	currency, iban string,
	initialBalance int64,
) (*models.Account, error) {
	// Validate input
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if accountType == "" {
		accountType = models.AccountTypeChecking
	}
	if currency == "" {
		currency = "EUR"
	}

	account := &models.Account{
		UserID:      userID,
		Name:        name,
		Type:        accountType,
		Description: description,
		Balance:     initialBalance,
		Currency:    currency,
		IsActive:    true,
	}

	if iban != "" {
		if !encryption.ValidIBAN(iban) {
			return nil, apperrors.ErrInvalidIBAN
		}
		if s.cipher == nil {
			return nil, apperrors.WithMessage(apperrors.ErrEncryptionKey, "IBAN storage requires ENCRYPTION_KEY")
		}
		normalized := encryption.NormalizeIBAN(iban)
		sealed, err := s.cipher.Encrypt(normalized)
		if err != nil {
			return nil, err
		}
		account.IBAN = sealed
		account.IBANHash = s.cipher.HashIBAN(normalized)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if initialBalance > 0 {
			transaction := &models.Transaction{
				UserID:      userID,
				AccountID:   account.ID,
				Type:        models.TransactionTypeCredit,
				Amount:      initialBalance,
				Description: "Initial balance",
				Date:        dateOnly(time.Now()),
				Validated:   true,
			}
			if err := tx.Create(transaction).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mask(account)
	return account, nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("user_id = ? AND is_active = ?", userID, true)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page, "created_at")).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range accounts {
		s.mask(&accounts[i])
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ? AND is_active = ?", accountID, userID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.mask(&account)
	return &account, nil
}

// UpdateAccountBalance applies a transaction's effect to the account balance.
// Credits add, debits subtract. The update is relative so concurrent writers
// do not overwrite each other.
func (s *accountService) UpdateAccountBalance(tx *gorm.DB, account *models.Account, transactionType models.TransactionType, amount int64) error {
	if !transactionType.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	delta := models.ApplyDelta(transactionType, amount)
	if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	account.Balance += delta
	return nil
}

// mask fills MaskedIBAN from the stored value. Decryption failures leave
// the field empty rather than failing the read.
func (s *accountService) mask(account *models.Account) {
	if account.IBAN == "" {
		return
	}
	if !encryption.IsEncrypted(account.IBAN) {
		account.MaskedIBAN = encryption.MaskIBAN(account.IBAN)
		return
	}
	if s.cipher == nil {
		return
	}
	plain, err := s.cipher.Decrypt(account.IBAN)
	if err != nil {
		logger.Get().Warnw("failed to decrypt account IBAN", "account_id", account.ID, "error", err)
		return
	}
	account.MaskedIBAN = encryption.MaskIBAN(plain)
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
