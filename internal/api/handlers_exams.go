package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

const defaultRecommendationLimit = 5

type examsResponse struct {
	Exams []services.CalculatedExam `json:"exams"`
}

func (handler *Handler) ListGuidelines(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"exams": handler.preventive.Guidelines().All()})
}

func (handler *Handler) ListExams(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	exams, err := handler.preventive.Exams(c.UserContext(), user.ID, handler.currentTime())
	if err != nil {
		return handler.preventiveError(c, err, "load exams")
	}
	return c.JSON(examsResponse{Exams: exams})
}

func (handler *Handler) ListExamAlerts(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	alerts, err := handler.preventive.Alerts(c.UserContext(), user.ID, handler.currentTime())
	if err != nil {
		return handler.preventiveError(c, err, "load exam alerts")
	}
	return c.JSON(examsResponse{Exams: alerts})
}

func (handler *Handler) ExamSummary(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	summary, err := handler.preventive.Summary(c.UserContext(), user.ID, handler.currentTime())
	if err != nil {
		return handler.preventiveError(c, err, "load exam summary")
	}
	return c.JSON(summary)
}

func (handler *Handler) RecordExamHistory(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	payload := examHistoryPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	lastDate, err := handler.parseDay(payload.LastDate)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	entry := services.ExamHistoryEntry{Done: payload.Done, LastDate: lastDate}
	record, err := handler.preventive.RecordExamHistory(c.UserContext(), user.ID, c.Params("key"), entry, handler.currentTime())
	if err != nil {
		return handler.preventiveError(c, err, "save exam history")
	}
	return c.JSON(record)
}

// ListRecommendations shows the top five by default; limit=0 returns all.
func (handler *Handler) ListRecommendations(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	limit, err := parseRecommendationLimit(c.Query("limit"))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid limit")
	}

	list, err := handler.preventive.Recommendations(user.ID, limit, handler.currentTime())
	if err != nil {
		return handler.preventiveError(c, err, "load recommendations")
	}
	return c.JSON(list)
}

func parseRecommendationLimit(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultRecommendationLimit, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 0 {
		return 0, strconv.ErrSyntax
	}
	return limit, nil
}
