package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/learnforge/trainingportal/internal/errors"
)

// HashPassword returns a bcrypt hash suitable for security.adminpasswordhash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.ValidationError("password must not be empty")
	}
	if len(password) > maxPasswordBytes {
		return "", errors.ValidationError("password must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.New(err).
			Component("security").
			Category(errors.CategorySystem).
			Context("operation", "hash_password").
			Build()
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches a bcrypt hash
func CheckPassword(hash, password string) bool {
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateHash reports whether hash is a well-formed bcrypt hash
func ValidateHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return errors.New(err).
			Component("security").
			Category(errors.CategoryConfiguration).
			Context("setting", "security.adminpasswordhash").
			Build()
	}
	return nil
}
