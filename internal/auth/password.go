package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Shop owners log in from shared counter devices, so hashing stays cheap
// enough for a login burst at opening time.
const bcryptCost = 10

// MaxPasswordBytes is where bcrypt stops reading input.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned instead of silently truncating.
var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

// HashPassword returns the bcrypt hash stored on the shop row.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches a stored hash. Malformed
// hashes never match.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
