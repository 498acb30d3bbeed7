package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/models"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

const resetPasswordCookieName = "bemcuidar_reset"

type addressPayload struct {
	ZipCode      string `json:"zip_code"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type examHistoryPayload struct {
	Done     bool   `json:"done"`
	LastDate string `json:"last_date"`
}

type registerPayload struct {
	FullName        string                        `json:"full_name"`
	CPF             string                        `json:"cpf"`
	BirthDate       string                        `json:"birth_date"`
	Sex             string                        `json:"sex"`
	Phone           string                        `json:"phone"`
	Email           string                        `json:"email"`
	Password        string                        `json:"password"`
	ConfirmPassword string                        `json:"confirm_password"`
	Address         addressPayload                `json:"address"`
	Health          healthProfilePayload          `json:"health"`
	ExamHistory     map[string]examHistoryPayload `json:"exam_history"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordPayload struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type sessionResponse struct {
	User          models.User `json:"user"`
	ExpiresAt     time.Time   `json:"expires_at"`
	DaysRemaining int         `json:"days_remaining"`
}

func (handler *Handler) Register(c *fiber.Ctx) error {
	payload := registerPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	input, err := handler.registrationInput(payload)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := handler.authService.Register(input, handler.currentTime())
	if err != nil {
		status, message := registrationErrorResponse(err)
		if status == fiber.StatusInternalServerError {
			handler.logger.WithError(err).Error("register user")
		}
		return apiError(c, status, message)
	}

	response, err := handler.startSession(c, user)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

func (handler *Handler) registrationInput(payload registerPayload) (services.RegistrationInput, error) {
	birthDate, err := handler.parseDay(payload.BirthDate)
	if err != nil {
		return services.RegistrationInput{}, err
	}
	history, err := handler.examHistoryEntries(payload.ExamHistory)
	if err != nil {
		return services.RegistrationInput{}, err
	}

	input := services.RegistrationInput{
		FullName:        payload.FullName,
		CPF:             payload.CPF,
		Sex:             payload.Sex,
		Phone:           payload.Phone,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		Address:         models.Address(payload.Address),
		Profile:         payload.Health.toModel(),
		ExamHistory:     history,
	}
	if birthDate != nil {
		input.BirthDate = *birthDate
	}
	return input, nil
}

func (handler *Handler) examHistoryEntries(payload map[string]examHistoryPayload) (map[string]services.ExamHistoryEntry, error) {
	history := make(map[string]services.ExamHistoryEntry, len(payload))
	for key, entry := range payload {
		lastDate, err := handler.parseDay(entry.LastDate)
		if err != nil {
			return nil, err
		}
		history[key] = services.ExamHistoryEntry{Done: entry.Done, LastDate: lastDate}
	}
	return history, nil
}

func registrationErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrEmailAlreadyExists):
		return fiber.StatusConflict, "email already exists"
	case errors.Is(err, services.ErrCPFAlreadyExists):
		return fiber.StatusConflict, "cpf already exists"
	case errors.Is(err, services.ErrUnknownExam):
		return fiber.StatusBadRequest, "unknown exam"
	case errors.Is(err, services.ErrRegistrationFieldsMissing),
		errors.Is(err, services.ErrInvalidCPF),
		errors.Is(err, services.ErrInvalidPhone),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrAddressIncomplete),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrInvalidProfile),
		errors.Is(err, services.ErrInvalidExamHistory):
		return fiber.StatusBadRequest, err.Error()
	default:
		return fiber.StatusInternalServerError, "failed to create account"
	}
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	payload := credentialsPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	now := handler.currentTime()
	limiterKey := loginLimiterKey(c, services.NormalizeAuthEmail(payload.Email))
	if wait := handler.loginLimiter.retryAfter(limiterKey, now); wait > 0 {
		return tooManyAttempts(c, wait, "too many login attempts")
	}

	user, err := handler.authService.Authenticate(payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			handler.loginLimiter.addFailure(limiterKey, now)
			return apiError(c, fiber.StatusUnauthorized, "invalid credentials")
		}
		handler.logger.WithError(err).Error("authenticate user")
		return apiError(c, fiber.StatusInternalServerError, "failed to authenticate")
	}
	handler.loginLimiter.reset(limiterKey)

	if user.MustChangePassword {
		token, err := handler.tokens.IssuePasswordReset(user, now)
		if err != nil {
			return apiError(c, fiber.StatusInternalServerError, "failed to create reset token")
		}
		handler.setResetPasswordCookie(c, token, now.Add(services.PasswordResetTTL))
		return apiError(c, fiber.StatusForbidden, "password change required")
	}

	response, err := handler.startSession(c, user)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	return c.JSON(response)
}

// ResetPassword completes a forced password change. The reset token comes
// from the cookie set at login or from the request body.
func (handler *Handler) ResetPassword(c *fiber.Ctx) error {
	payload := resetPasswordPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	token := strings.TrimSpace(payload.Token)
	if token == "" {
		token = strings.TrimSpace(c.Cookies(resetPasswordCookieName))
	}

	now := handler.currentTime()
	claims, err := handler.tokens.ParsePasswordReset(token, now)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "invalid reset token")
	}

	user, err := handler.authService.ResetPassword(claims, payload.Password, payload.ConfirmPassword)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrWeakPassword), errors.Is(err, services.ErrPasswordMismatch):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPasswordChangeBlocked):
		return apiError(c, fiber.StatusBadRequest, "new password must differ from the current one")
	case errors.Is(err, services.ErrTokenPasswordState):
		return apiError(c, fiber.StatusUnauthorized, "invalid reset token")
	default:
		handler.logger.WithError(err).Error("reset password")
		return apiError(c, fiber.StatusInternalServerError, "failed to update password")
	}

	handler.clearResetPasswordCookie(c)
	response, err := handler.startSession(c, user)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	return c.JSON(response)
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	handler.clearResetPasswordCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) RenewSession(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	response, err := handler.startSession(c, *user)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	return c.JSON(response)
}

func (handler *Handler) SessionStatus(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	now := handler.currentTime()
	claims, err := handler.tokens.ParseSession(requestToken(c), now)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	expiresAt := claims.ExpiresAt.Time
	return c.JSON(sessionResponse{
		User:          *user,
		ExpiresAt:     expiresAt,
		DaysRemaining: services.SessionDaysRemaining(expiresAt, now),
	})
}

func (handler *Handler) startSession(c *fiber.Ctx, user models.User) (sessionResponse, error) {
	now := handler.currentTime()
	token, expiresAt, err := handler.tokens.IssueSession(user, now)
	if err != nil {
		return sessionResponse{}, err
	}
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  expiresAt,
	})
	c.Set("X-Session-Token", token)
	return sessionResponse{
		User:          user,
		ExpiresAt:     expiresAt,
		DaysRemaining: services.SessionDaysRemaining(expiresAt, now),
	}, nil
}

func (handler *Handler) clearAuthCookie(c *fiber.Ctx) {
	handler.expireCookie(c, authCookieName)
}

func (handler *Handler) setResetPasswordCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     resetPasswordCookieName,
		Value:    token,
		Path:     "/api/auth",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Strict",
		Expires:  expiresAt,
	})
}

func (handler *Handler) clearResetPasswordCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     resetPasswordCookieName,
		Value:    "",
		Path:     "/api/auth",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Strict",
		Expires:  handler.currentTime().Add(-time.Hour),
	})
}

func (handler *Handler) expireCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  handler.currentTime().Add(-time.Hour),
	})
}
