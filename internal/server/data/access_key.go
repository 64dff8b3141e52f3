package data

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/generate"
	"github.com/openpaas/groupd/internal/server/models"
)

var ErrAccessKeyExpired = fmt.Errorf("access key expired")

func secretChecksum(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// CreateAccessKey stores a new access key and returns its bearer form.
// KeyID and Secret are generated when not supplied by the caller.
func CreateAccessKey(db *gorm.DB, key *models.AccessKey) (string, error) {
	if key.KeyID == "" {
		keyID, err := generate.CryptoRandom(models.AccessKeyKeyLength, generate.CharsetAlphaNumeric)
		if err != nil {
			return "", err
		}
		key.KeyID = keyID
	}
	if len(key.KeyID) != models.AccessKeyKeyLength {
		return "", fmt.Errorf("invalid key length")
	}

	if key.Secret == "" {
		secret, err := generate.CryptoRandom(models.AccessKeySecretLength, generate.CharsetAlphaNumeric)
		if err != nil {
			return "", err
		}
		key.Secret = secret
	}
	if len(key.Secret) != models.AccessKeySecretLength {
		return "", fmt.Errorf("invalid secret length")
	}

	key.SecretChecksum = secretChecksum(key.Secret)
	if key.ExpiresAt.IsZero() {
		key.ExpiresAt = time.Now().Add(12 * time.Hour).UTC()
	}

	if err := add(db, key); err != nil {
		return "", err
	}

	return key.Token(), nil
}

func GetAccessKey(db *gorm.DB, selectors ...SelectorFunc) (*models.AccessKey, error) {
	return get[models.AccessKey](db, selectors...)
}

func DeleteAccessKeys(db *gorm.DB, selectors ...SelectorFunc) error {
	return deleteAll[models.AccessKey](db, selectors...)
}

// ValidateAccessKey checks that the bearer token matches a stored key that
// has not expired, and returns the key.
func ValidateAccessKey(db *gorm.DB, token string) (*models.AccessKey, error) {
	keyID, secret, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("%w: rejected access key format", internal.ErrUnauthorized)
	}

	key, err := GetAccessKey(db, ByKeyID(keyID))
	if err != nil {
		return nil, fmt.Errorf("%w: could not get access key from database", err)
	}

	if subtle.ConstantTimeCompare(key.SecretChecksum, secretChecksum(secret)) != 1 {
		return nil, fmt.Errorf("%w: access key invalid secret", internal.ErrUnauthorized)
	}

	if time.Now().After(key.ExpiresAt) {
		return nil, ErrAccessKeyExpired
	}

	return key, nil
}
