package services

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/terraincognita07/bemcuidar/internal/models"
)

var (
	ErrAuthCredentialsInvalid    = errors.New("auth credentials invalid")
	ErrRegistrationFieldsMissing = errors.New("missing required fields")
	ErrInvalidCPF                = errors.New("invalid cpf")
	ErrInvalidPhone              = errors.New("invalid phone")
	ErrInvalidEmail              = errors.New("invalid email")
	ErrAddressIncomplete         = errors.New("incomplete address")
	ErrPasswordMismatch          = errors.New("password mismatch")
)

const (
	cpfDigits      = 11
	minPhoneDigits = 10
)

// RegistrationInput is the whole sign-up wizard in one payload.
type RegistrationInput struct {
	FullName        string
	CPF             string
	BirthDate       time.Time
	Sex             string
	Phone           string
	Email           string
	Password        string
	ConfirmPassword string
	Address         models.Address
	Profile         models.HealthProfile
	ExamHistory     map[string]ExamHistoryEntry
}

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	address, err := mail.ParseAddress(email)
	if err != nil || address.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return ""
	}
	return email
}

func NormalizeCredentialsInput(emailRaw string, passwordRaw string) (string, string, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" || strings.TrimSpace(passwordRaw) == "" {
		return "", "", ErrAuthCredentialsInvalid
	}
	return email, passwordRaw, nil
}

// DigitsOnly strips every non-digit, so masked input like "123.456.789-01" is accepted.
func DigitsOnly(raw string) string {
	var builder strings.Builder
	for _, char := range raw {
		if char >= '0' && char <= '9' {
			builder.WriteRune(char)
		}
	}
	return builder.String()
}

// NormalizeRegistrationInput validates the wizard answers in step order and
// returns them trimmed, with CPF, phone and postal code reduced to digits.
// Exam history is checked against the guideline table by the caller.
func NormalizeRegistrationInput(input RegistrationInput, now time.Time) (RegistrationInput, error) {
	input.FullName = strings.Join(strings.FieldsFunc(input.FullName, unicode.IsSpace), " ")
	input.Sex = NormalizeSex(input.Sex)
	if input.FullName == "" || strings.TrimSpace(input.CPF) == "" || input.BirthDate.IsZero() ||
		input.Sex == "" || strings.TrimSpace(input.Phone) == "" || strings.TrimSpace(input.Email) == "" {
		return RegistrationInput{}, ErrRegistrationFieldsMissing
	}

	input.CPF = DigitsOnly(input.CPF)
	if len(input.CPF) != cpfDigits {
		return RegistrationInput{}, ErrInvalidCPF
	}
	input.Phone = DigitsOnly(input.Phone)
	if len(input.Phone) < minPhoneDigits {
		return RegistrationInput{}, ErrInvalidPhone
	}
	input.Email = NormalizeAuthEmail(input.Email)
	if input.Email == "" {
		return RegistrationInput{}, ErrInvalidEmail
	}
	if err := ValidateBirthDate(input.BirthDate, now); err != nil {
		return RegistrationInput{}, err
	}

	address, err := normalizeAddress(input.Address)
	if err != nil {
		return RegistrationInput{}, err
	}
	input.Address = address

	if input.Password == "" || input.ConfirmPassword == "" {
		return RegistrationInput{}, ErrRegistrationFieldsMissing
	}
	if err := ValidatePasswordStrength(input.Password); err != nil {
		return RegistrationInput{}, err
	}
	if input.Password != input.ConfirmPassword {
		return RegistrationInput{}, ErrPasswordMismatch
	}

	profile, err := SanitizeHealthProfile(input.Profile)
	if err != nil {
		return RegistrationInput{}, err
	}
	input.Profile = profile
	return input, nil
}

func normalizeAddress(address models.Address) (models.Address, error) {
	address.ZipCode = DigitsOnly(address.ZipCode)
	address.Street = strings.TrimSpace(address.Street)
	address.Number = strings.TrimSpace(address.Number)
	address.Complement = strings.TrimSpace(address.Complement)
	address.Neighborhood = strings.TrimSpace(address.Neighborhood)
	address.City = strings.TrimSpace(address.City)
	address.State = strings.ToUpper(strings.TrimSpace(address.State))

	if address.ZipCode == "" || address.Street == "" || address.Number == "" ||
		address.Neighborhood == "" || address.City == "" || address.State == "" {
		return models.Address{}, ErrAddressIncomplete
	}
	return address, nil
}
