package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PINCost is the bcrypt cost used for PIN hashes. PINs are short, so the
// cost stays at the library default rather than the minimum.
const PINCost = bcrypt.DefaultCost

// HashPIN returns a bcrypt hash of the supplied PIN.
func HashPIN(pin string) (string, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return "", errors.New("crypto: pin is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), PINCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPIN compares a bcrypt hash with the plaintext candidate.
func VerifyPIN(hashed, pin string) bool {
	if hashed == "" || pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pin)) == nil
}

// IsBcryptHash reports whether value looks like a bcrypt hash.
func IsBcryptHash(value string) bool {
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// ConstantTimeEqual compares two non-empty strings without leaking timing.
func ConstantTimeEqual(a, b string) bool {
	if a == "" || b == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
