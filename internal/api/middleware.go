package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/models"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

const (
	authCookieName = "bemcuidar_auth"
	contextUserKey = "current_user"
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok
}

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	user, err := handler.authenticateRequest(c)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			return apiError(c, fiber.StatusUnauthorized, "session expired")
		}
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	c.Locals(contextUserKey, user)
	return c.Next()
}

// authenticateRequest accepts the session cookie or an Authorization bearer
// token. Sessions issued before the latest password change are rejected.
func (handler *Handler) authenticateRequest(c *fiber.Ctx) (*models.User, error) {
	claims, err := handler.tokens.ParseSession(requestToken(c), handler.currentTime())
	if err != nil {
		return nil, err
	}

	user, err := handler.authService.FindByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if !services.IsPasswordStateFingerprintMatch(claims.PasswordState, user.PasswordHash) {
		return nil, services.ErrTokenPasswordState
	}
	if user.MustChangePassword {
		return nil, services.ErrTokenPasswordState
	}
	return &user, nil
}

func requestToken(c *fiber.Ctx) string {
	if header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(c.Cookies(authCookieName))
}
