// Package generate produces random strings for access key material.
package generate

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const CharsetAlphaNumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// CryptoRandom returns a cryptographically random string of length n drawn
// from charset.
func CryptoRandom(n int, charset string) (string, error) {
	if n <= 0 {
		return "", nil
	}

	bytes := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range bytes {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate random string of len %d: %w", n, err)
		}
		bytes[i] = charset[idx.Int64()]
	}

	return string(bytes), nil
}
