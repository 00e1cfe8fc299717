package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"monbudget/internal/encryption"
	apperrors "monbudget/internal/errors"
	"monbudget/internal/logger"
	"monbudget/internal/models"
)

const ibanBatchSize = 100

// ibanMigrationService encrypts account IBANs stored in clear text.
type ibanMigrationService struct {
	db     *gorm.DB
	cipher *encryption.Cipher
	audit  AuditServicer
}

// NewIBANMigrationService creates an IBANMigrator. audit may be nil.
func NewIBANMigrationService(db *gorm.DB, cipher *encryption.Cipher, audit AuditServicer) IBANMigrator {
	return &ibanMigrationService{db: db, cipher: cipher, audit: audit}
}

// EncryptExisting walks every account with an IBAN. Clear values are
// encrypted and hashed; encrypted values are left alone unless force is set,
// in which case they are decrypted and sealed again with a fresh nonce.
// A dry run counts what would change without writing.
func (s *ibanMigrationService) EncryptExisting(ctx context.Context, dryRun, force bool) (*IBANMigrationReport, error) {
	if s.cipher == nil {
		return nil, apperrors.WithMessage(apperrors.ErrEncryptionKey, "ENCRYPTION_KEY is not set")
	}

	report := &IBANMigrationReport{DryRun: dryRun, Errors: []string{}}
	log := logger.Get()

	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Where("iban IS NOT NULL AND iban <> ''").
		FindInBatches(&accounts, ibanBatchSize, func(tx *gorm.DB, batch int) error {
			for i := range accounts {
				if err := ctx.Err(); err != nil {
					return err
				}
				s.migrateOne(ctx, &accounts[i], dryRun, force, report)
			}
			return nil
		}).Error
	if err != nil {
		return report, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("scan accounts: %w", err))
	}

	log.Infow("iban migration finished",
		"dry_run", dryRun,
		"force", force,
		"total", report.Total,
		"encrypted", report.Encrypted,
		"already_encrypted", report.AlreadyEncrypted,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (s *ibanMigrationService) migrateOne(ctx context.Context, account *models.Account, dryRun, force bool, report *IBANMigrationReport) {
	report.Total++

	plain := account.IBAN
	if encryption.IsEncrypted(account.IBAN) {
		if !force {
			report.AlreadyEncrypted++
			return
		}
		decrypted, err := s.cipher.Decrypt(account.IBAN)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("account %s: %v", account.ID, err))
			return
		}
		plain = decrypted
	}

	normalized := encryption.NormalizeIBAN(plain)
	if normalized == "" {
		report.Skipped++
		return
	}
	if dryRun {
		report.Encrypted++
		return
	}

	sealed, err := s.cipher.Encrypt(normalized)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("account %s: %v", account.ID, err))
		return
	}
	err = s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"iban":      sealed,
			"iban_hash": s.cipher.HashIBAN(normalized),
		}).Error
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("account %s: %v", account.ID, err))
		return
	}
	report.Encrypted++

	if s.audit != nil {
		s.audit.LogJob("encrypt_ibans", "account.iban_encrypted", "account", account.ID, nil)
	}
}
