package services

import (
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrCPFAlreadyExists      = errors.New("cpf already exists")
	ErrPasswordChangeBlocked = errors.New("password change not allowed")
)

type AuthUserRepository interface {
	ExistsByNormalizedEmail(email string) (bool, error)
	ExistsByCPF(cpf string) (bool, error)
	FindByNormalizedEmail(email string) (models.User, error)
	FindByID(userID uint) (models.User, error)
	CreateWithProfile(user *models.User, profile *models.HealthProfile, history []models.ExamHistory) error
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
}

type AuthService struct {
	users      AuthUserRepository
	guidelines *ExamGuidelines
}

func NewAuthService(users AuthUserRepository, guidelines *ExamGuidelines) *AuthService {
	if guidelines == nil {
		guidelines = DefaultExamGuidelines()
	}
	return &AuthService{users: users, guidelines: guidelines}
}

// Register validates the wizard payload and stores the account, its health
// profile and the exam history answered during sign-up.
func (service *AuthService) Register(input RegistrationInput, now time.Time) (models.User, error) {
	normalized, err := NormalizeRegistrationInput(input, now)
	if err != nil {
		return models.User{}, err
	}
	history, err := service.guidelines.HistoryRecords(normalized.ExamHistory, now)
	if err != nil {
		return models.User{}, err
	}

	exists, err := service.users.ExistsByNormalizedEmail(normalized.Email)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrEmailAlreadyExists
	}
	exists, err = service.users.ExistsByCPF(normalized.CPF)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrCPFAlreadyExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(normalized.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	birthDate := DateAtLocation(normalized.BirthDate, now.Location())
	user := models.User{
		Email:            normalized.Email,
		PasswordHash:     string(passwordHash),
		Role:             models.RoleMember,
		FullName:         normalized.FullName,
		CPF:              normalized.CPF,
		Phone:            normalized.Phone,
		Sex:              normalized.Sex,
		BirthDate:        &birthDate,
		Address:          normalized.Address,
		RemindersEnabled: true,
		CreatedAt:        now,
	}
	profile := normalized.Profile
	profile.BirthDate = birthDate

	if err := service.users.CreateWithProfile(&user, &profile, history); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Authenticate never says which half of the credentials was wrong.
func (service *AuthService) Authenticate(emailRaw string, passwordRaw string) (models.User, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, passwordRaw)
	if err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if err != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	return user, nil
}

func (service *AuthService) FindByID(userID uint) (models.User, error) {
	return service.users.FindByID(userID)
}

// ResetPassword replaces the password of the user a reset token was issued to.
// The token stops working once the password it was pinned to changes.
func (service *AuthService) ResetPassword(claims *TokenClaims, password string, confirmPassword string) (models.User, error) {
	if claims == nil {
		return models.User{}, ErrTokenInvalid
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return models.User{}, err
	}
	if password != confirmPassword {
		return models.User{}, ErrPasswordMismatch
	}

	user, err := service.users.FindByID(claims.UserID)
	if err != nil {
		return models.User{}, err
	}
	if !IsPasswordStateFingerprintMatch(claims.PasswordState, user.PasswordHash) {
		return models.User{}, ErrTokenPasswordState
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
		return models.User{}, ErrPasswordChangeBlocked
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	if err := service.users.UpdatePassword(user.ID, string(passwordHash), false); err != nil {
		return models.User{}, err
	}
	user.PasswordHash = string(passwordHash)
	user.MustChangePassword = false
	return user, nil
}

func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 1 {
		return "***" + email[max(at, 0):]
	}
	return email[:1] + "***" + email[at:]
}
