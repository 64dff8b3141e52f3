package models

import (
	"time"

	"github.com/openpaas/groupd/uid"
)

var (
	AccessKeyKeyLength    = 10 // length of the ID used to look up the key
	AccessKeySecretLength = 24 // length of the secret used to validate it
)

// AccessKey is presented as a bearer token in the form "KeyID.Secret" to
// establish the acting identity of a request. Only a checksum of the secret
// is stored.
type AccessKey struct {
	Model

	Name      string
	IssuedFor uid.ID
	ExpiresAt time.Time

	KeyID          string `gorm:"uniqueIndex:idx_access_keys_key_id,where:deleted_at is NULL"`
	Secret         string `gorm:"-"`
	SecretChecksum []byte
}

// Token returns the bearer form of the key. It is only available on the
// struct returned from CreateAccessKey; the secret is never loaded back.
func (ak *AccessKey) Token() string {
	if len(ak.Secret) == 0 {
		return ""
	}
	return ak.KeyID + "." + ak.Secret
}
