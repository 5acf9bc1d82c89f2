package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no stored hash exists so that lookups
// for unknown accounts take as long as a real password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bookly-dummy-password"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

func CheckPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
