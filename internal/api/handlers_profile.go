package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/models"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

type familyHistoryPayload struct {
	BreastCancer     bool   `json:"breast_cancer"`
	ColonCancer      bool   `json:"colon_cancer"`
	ProstateCancer   bool   `json:"prostate_cancer"`
	LungCancer       bool   `json:"lung_cancer"`
	SkinCancer       bool   `json:"skin_cancer"`
	Other            bool   `json:"other"`
	OtherDescription string `json:"other_description"`
}

type healthProfilePayload struct {
	SmokingStatus   string               `json:"smoking_status"`
	HasDiabetes     bool                 `json:"has_diabetes"`
	HasHypertension bool                 `json:"has_hypertension"`
	HasHeartDisease bool                 `json:"has_heart_disease"`
	HasObesity      bool                 `json:"has_obesity"`
	OtherConditions string               `json:"other_conditions"`
	FamilyHistory   familyHistoryPayload `json:"family_history"`
}

type profileUpdatePayload struct {
	healthProfilePayload
	RemindersEnabled *bool `json:"reminders_enabled"`
}

func (payload healthProfilePayload) toModel() models.HealthProfile {
	return models.HealthProfile{
		SmokingStatus:   payload.SmokingStatus,
		HasDiabetes:     payload.HasDiabetes,
		HasHypertension: payload.HasHypertension,
		HasHeartDisease: payload.HasHeartDisease,
		HasObesity:      payload.HasObesity,
		OtherConditions: payload.OtherConditions,
		FamilyHistory:   models.FamilyHistory(payload.FamilyHistory),
	}
}

func (handler *Handler) GetProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := handler.preventive.Profile(user.ID)
	if err != nil {
		return handler.preventiveError(c, err, "load profile")
	}
	return c.JSON(view)
}

func (handler *Handler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	payload := profileUpdatePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	view, err := handler.preventive.UpdateProfile(c.UserContext(), user.ID, payload.toModel(), payload.RemindersEnabled, handler.currentTime())
	if err != nil {
		return handler.preventiveError(c, err, "update profile")
	}
	return c.JSON(view)
}

func (handler *Handler) DeleteAccount(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := handler.preventive.DeleteAccount(c.UserContext(), user.ID, handler.currentTime()); err != nil {
		handler.logger.WithError(err).WithField("user_id", user.ID).Error("delete account")
		return apiError(c, fiber.StatusInternalServerError, "failed to delete account")
	}
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// preventiveError maps service errors shared by the profile and exam routes.
func (handler *Handler) preventiveError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, services.ErrHealthProfileNotFound):
		return apiError(c, fiber.StatusNotFound, "health profile not found")
	case errors.Is(err, services.ErrUnknownExam):
		return apiError(c, fiber.StatusNotFound, "unknown exam")
	case errors.Is(err, services.ErrInvalidProfile), errors.Is(err, services.ErrInvalidExamHistory):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	default:
		handler.logger.WithError(err).Error(action)
		return apiError(c, fiber.StatusInternalServerError, "failed to "+action)
	}
}
