package services

import (
	"errors"
	"strings"
)

var ErrWeakPassword = errors.New("weak password")

const minPasswordLength = 6

func ValidatePasswordStrength(password string) error {
	if strings.TrimSpace(password) == "" || len([]rune(password)) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
