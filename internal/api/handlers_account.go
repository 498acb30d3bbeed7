package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/models"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

type changePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type accountPayload struct {
	FullName string         `json:"full_name"`
	Phone    string         `json:"phone"`
	Address  addressPayload `json:"address"`
}

// ChangePassword re-issues the session because the old one is pinned to the
// previous password hash.
func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	payload := changePasswordPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	now := handler.currentTime()
	limiterKey := passwordChangeLimiterKey(user.ID)
	if wait := handler.passwordChangeLimiter.retryAfter(limiterKey, now); wait > 0 {
		return tooManyAttempts(c, wait, "too many password change attempts")
	}

	updated, err := handler.accounts.ChangePassword(user.ID, payload.CurrentPassword, payload.NewPassword, payload.ConfirmPassword)
	switch {
	case err == nil:
		handler.passwordChangeLimiter.reset(limiterKey)
	case errors.Is(err, services.ErrInvalidCurrentPassword):
		handler.passwordChangeLimiter.addFailure(limiterKey, now)
		return apiError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrPasswordChangeInvalidInput),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrNewPasswordMustDiffer),
		errors.Is(err, services.ErrWeakPassword):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	default:
		handler.logger.WithError(err).WithField("user_id", user.ID).Error("change password")
		return apiError(c, fiber.StatusInternalServerError, "failed to update password")
	}

	response, err := handler.startSession(c, updated)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	return c.JSON(response)
}

func (handler *Handler) UpdateAccount(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	payload := accountPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	updated, err := handler.accounts.UpdateAccount(user.ID, services.AccountUpdate{
		FullName: payload.FullName,
		Phone:    payload.Phone,
		Address:  models.Address(payload.Address),
	})
	switch {
	case err == nil:
		return c.JSON(updated)
	case errors.Is(err, services.ErrRegistrationFieldsMissing),
		errors.Is(err, services.ErrFullNameTooLong),
		errors.Is(err, services.ErrInvalidPhone),
		errors.Is(err, services.ErrAddressIncomplete):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	default:
		handler.logger.WithError(err).WithField("user_id", user.ID).Error("update account")
		return apiError(c, fiber.StatusInternalServerError, "failed to update account")
	}
}
