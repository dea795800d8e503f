package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltLength       = 16
	keyLength        = 32
)

// HashPassword derives a slow PBKDF2-SHA256 hash from the plaintext using a
// fresh random salt, encoded as "hex(salt)$hex(key)". Two calls with the same
// plaintext produce different encodings.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLength, sha256.New)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// VerifyPassword re-derives the key with the stored salt and compares it in
// constant time. A malformed encoded hash is a programming error and is
// reported as an error rather than a failed match.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 2 {
		return false, fmt.Errorf("malformed password hash: expected 2 fields, got %d", len(parts))
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false, fmt.Errorf("malformed password hash salt: %w", err)
	}
	stored, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("malformed password hash key: %w", err)
	}

	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, len(stored), sha256.New)
	return subtle.ConstantTimeCompare(stored, derived) == 1, nil
}
