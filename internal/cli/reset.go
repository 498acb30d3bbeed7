package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/terraincognita07/bemcuidar/internal/models"
	"github.com/terraincognita07/bemcuidar/internal/security"
	"github.com/terraincognita07/bemcuidar/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const temporaryPasswordLength = 12

// PasswordUserStore is the slice of the user repository the reset command needs.
type PasswordUserStore interface {
	FindByNormalizedEmail(email string) (models.User, error)
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
}

// PasswordSource returns the operator-chosen password. A nil source makes the
// command generate a temporary one.
type PasswordSource func() (string, error)

// RunResetPasswordCommand replaces the user's password and forces a change on
// the next login. Existing sessions stop working because the password hash changes.
func RunResetPasswordCommand(users PasswordUserStore, email string, source PasswordSource, out io.Writer) error {
	normalizedEmail := services.NormalizeAuthEmail(email)
	if normalizedEmail == "" {
		return fmt.Errorf("invalid email address %q", email)
	}

	user, err := users.FindByNormalizedEmail(normalizedEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found", normalizedEmail)
		}
		return fmt.Errorf("load user: %w", err)
	}

	password, generated, err := resolvePassword(source)
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.UpdatePassword(user.ID, string(passwordHash), true); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	fmt.Fprintf(out, "Password reset for %s\n", normalizedEmail)
	if generated {
		fmt.Fprintf(out, "Temporary password: %s\n", password)
	}
	fmt.Fprintln(out, "User must change password on next login.")
	return nil
}

func resolvePassword(source PasswordSource) (string, bool, error) {
	if source == nil {
		password, err := security.TemporaryPassword(temporaryPasswordLength)
		if err != nil {
			return "", false, fmt.Errorf("generate temporary password: %w", err)
		}
		return password, true, nil
	}

	password, err := source()
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}
	if err := services.ValidatePasswordStrength(password); err != nil {
		return "", false, err
	}
	return password, false, nil
}

// TerminalPasswordSource reads the password twice from the terminal without echo.
func TerminalPasswordSource(stdin *os.File, prompt io.Writer) PasswordSource {
	return func() (string, error) {
		fmt.Fprint(prompt, "New password: ")
		first, err := readPasswordNoEcho(stdin)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}

		fmt.Fprint(prompt, "Confirm password: ")
		second, err := readPasswordNoEcho(stdin)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}

		if !bytes.Equal(first, second) {
			return "", services.ErrPasswordMismatch
		}
		return string(first), nil
	}
}
