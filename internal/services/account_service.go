package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/terraincognita07/bemcuidar/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const maxFullNameLength = 120

var (
	ErrPasswordChangeInvalidInput = errors.New("password change invalid input")
	ErrInvalidCurrentPassword     = errors.New("invalid current password")
	ErrNewPasswordMustDiffer      = errors.New("new password must differ")
	ErrPasswordUpdateFailed       = errors.New("password update failed")
	ErrFullNameTooLong            = errors.New("full name too long")
)

type AccountUserRepository interface {
	FindByID(userID uint) (models.User, error)
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
	UpdateByID(userID uint, updates map[string]any) error
}

// AccountUpdate holds the personal data a user may edit after sign-up. CPF,
// e-mail and birth date are fixed at registration.
type AccountUpdate struct {
	FullName string
	Phone    string
	Address  models.Address
}

type AccountService struct {
	users AccountUserRepository
}

func NewAccountService(users AccountUserRepository) *AccountService {
	return &AccountService{users: users}
}

func ValidatePasswordChange(passwordHash string, currentPassword string, newPassword string, confirmPassword string) error {
	if currentPassword == "" || newPassword == "" || confirmPassword == "" {
		return ErrPasswordChangeInvalidInput
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCurrentPassword
	}
	if currentPassword == newPassword {
		return ErrNewPasswordMustDiffer
	}
	return ValidatePasswordStrength(newPassword)
}

// ChangePassword returns the user with the new hash so the caller can issue a
// session bound to it. Sessions issued before the change stop validating.
func (service *AccountService) ChangePassword(userID uint, currentPassword string, newPassword string, confirmPassword string) (models.User, error) {
	user, err := service.users.FindByID(userID)
	if err != nil {
		return models.User{}, err
	}
	if err := ValidatePasswordChange(user.PasswordHash, currentPassword, newPassword, confirmPassword); err != nil {
		return models.User{}, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrPasswordUpdateFailed, err)
	}
	if err := service.users.UpdatePassword(userID, string(passwordHash), false); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrPasswordUpdateFailed, err)
	}
	user.PasswordHash = string(passwordHash)
	user.MustChangePassword = false
	return user, nil
}

func NormalizeAccountUpdate(update AccountUpdate) (AccountUpdate, error) {
	update.FullName = strings.Join(strings.FieldsFunc(update.FullName, unicode.IsSpace), " ")
	if update.FullName == "" || strings.TrimSpace(update.Phone) == "" {
		return AccountUpdate{}, ErrRegistrationFieldsMissing
	}
	if utf8.RuneCountInString(update.FullName) > maxFullNameLength {
		return AccountUpdate{}, ErrFullNameTooLong
	}

	update.Phone = DigitsOnly(update.Phone)
	if len(update.Phone) < minPhoneDigits {
		return AccountUpdate{}, ErrInvalidPhone
	}

	address, err := normalizeAddress(update.Address)
	if err != nil {
		return AccountUpdate{}, err
	}
	update.Address = address
	return update, nil
}

func (service *AccountService) UpdateAccount(userID uint, update AccountUpdate) (models.User, error) {
	normalized, err := NormalizeAccountUpdate(update)
	if err != nil {
		return models.User{}, err
	}

	address := normalized.Address
	if err := service.users.UpdateByID(userID, map[string]any{
		"full_name":            normalized.FullName,
		"phone":                normalized.Phone,
		"address_zip_code":     address.ZipCode,
		"address_street":       address.Street,
		"address_number":       address.Number,
		"address_complement":   address.Complement,
		"address_neighborhood": address.Neighborhood,
		"address_city":         address.City,
		"address_state":        address.State,
	}); err != nil {
		return models.User{}, err
	}
	return service.users.FindByID(userID)
}
