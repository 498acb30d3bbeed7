package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportBuilder func(ctx context.Context, userID uint, now time.Time) ([]byte, error)

func (handler *Handler) ExportCSV(c *fiber.Ctx) error {
	return handler.sendExport(c, handler.exports.BuildCSV, "text/csv; charset=utf-8", "csv")
}

func (handler *Handler) ExportJSON(c *fiber.Ctx) error {
	return handler.sendExport(c, handler.exports.BuildJSON, fiber.MIMEApplicationJSONCharsetUTF8, "json")
}

func (handler *Handler) ExportXLSX(c *fiber.Ctx) error {
	return handler.sendExport(c, handler.exports.BuildXLSX, xlsxContentType, "xlsx")
}

func (handler *Handler) sendExport(c *fiber.Ctx, build exportBuilder, contentType string, extension string) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	now := handler.currentTime()
	payload, err := build(c.UserContext(), user.ID, now)
	if err != nil {
		return handler.preventiveError(c, err, "export exams")
	}

	setExportAttachmentHeaders(c, contentType, services.BuildExportFilename(now, extension))
	return c.Send(payload)
}
