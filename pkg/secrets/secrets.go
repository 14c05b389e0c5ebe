// Package secrets centralizes token generation and credential hashing so a
// freshly minted token is only ever handed back to its caller, never logged
// or printed as a side effect.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "shopcore/pkg/domain-errors"
)

// tokenBytes is the entropy of a capability token. 32 bytes exceeds the
// 24-byte floor required for portal and display tokens.
const tokenBytes = 32

// GenerateToken creates a cryptographically secure random token,
// URL-safe base64 encoded. The raw value is returned exactly once;
// callers persist only its digest.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Digest returns the hex-encoded SHA-256 digest of a token. Digests are what
// stores persist; the raw token is never retrievable again.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DigestEqual compares two digests in constant time so a verifier cannot be
// used as a timing oracle for near-matching tokens.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// HashPassword creates a bcrypt hash of a user password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}
	return string(hashed), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
func VerifyPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify password")
	}
	return nil
}
