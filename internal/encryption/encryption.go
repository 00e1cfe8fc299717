// Package encryption protects sensitive account fields (IBANs) at rest.
//
// Values are sealed with AES-256-GCM under a key derived from the configured
// master key with HKDF-SHA256; a second derived key feeds an HMAC used to
// look an IBAN up without decrypting every row.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	apperrors "monbudget/internal/errors"
)

// Prefix marks a sealed value and its format version.
const Prefix = "enc:v1:"

const keySize = 32

// Cipher encrypts and decrypts field values.
type Cipher struct {
	aead    cipher.AEAD
	hashKey []byte
}

// New builds a Cipher from a base64-encoded 32-byte master key.
func New(masterKeyB64 string) (*Cipher, error) {
	if masterKeyB64 == "" {
		return nil, apperrors.WithMessage(apperrors.ErrEncryptionKey, "ENCRYPTION_KEY is not set")
	}
	master, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionKey, err)
	}
	if len(master) != keySize {
		return nil, apperrors.WithMessage(apperrors.ErrEncryptionKey,
			fmt.Sprintf("ENCRYPTION_KEY must decode to %d bytes, got %d", keySize, len(master)))
	}

	encKey, err := derive(master, "monbudget field encryption")
	if err != nil {
		return nil, err
	}
	hashKey, err := derive(master, "monbudget field lookup")
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionKey, err)
	}

	return &Cipher{aead: aead, hashKey: hashKey}, nil
}

func derive(master []byte, info string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionKey, err)
	}
	return key, nil
}

// GenerateKey returns a fresh base64-encoded master key.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// IsEncrypted reports whether value carries the sealed-value prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Encrypt seals plaintext. Empty input stays empty.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed value. Values without the prefix are returned as is,
// so rows written before encryption was enabled stay readable.
func (c *Cipher) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrDecryption, err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", apperrors.WithMessage(apperrors.ErrDecryption, "ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrDecryption, err)
	}
	return string(plain), nil
}

// HashIBAN returns a keyed, normalized digest of an IBAN for equality lookups.
func (c *Cipher) HashIBAN(iban string) string {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write([]byte(NormalizeIBAN(iban)))
	return hex.EncodeToString(mac.Sum(nil))
}

// NormalizeIBAN strips spaces and upper-cases the value.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

// MaskIBAN keeps the country code, check digits and last four characters,
// e.g. "FR76 **** **** **** **** ***0 189".
func MaskIBAN(iban string) string {
	n := NormalizeIBAN(iban)
	if len(n) <= 8 {
		return strings.Repeat("*", len(n))
	}
	masked := n[:4] + strings.Repeat("*", len(n)-8) + n[len(n)-4:]

	var b strings.Builder
	for i, r := range masked {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidIBAN checks length, characters and the ISO 13616 mod-97 checksum.
func ValidIBAN(iban string) bool {
	n := NormalizeIBAN(iban)
	if len(n) < 15 || len(n) > 34 {
		return false
	}
	rearranged := n[4:] + n[:4]
	remainder := 0
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			remainder = (remainder*10 + int(r-'0')) % 97
		case r >= 'A' && r <= 'Z':
			v := int(r-'A') + 10
			remainder = (remainder*100 + v) % 97
		default:
			return false
		}
	}
	return remainder == 1
}
