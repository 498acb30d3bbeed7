package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	if handler.metrics != nil {
		app.Get("/metrics", handler.metrics.Handler())
	}
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/reset-password", handler.ResetPassword)
	auth.Post("/logout", handler.Logout)
	auth.Post("/renew", handler.AuthRequired, handler.RenewSession)
	auth.Get("/session", handler.AuthRequired, handler.SessionStatus)
	auth.Put("/password", handler.AuthRequired, handler.ChangePassword)

	api.Get("/address/:cep", handler.LookupAddress)
	api.Get("/guidelines", handler.ListGuidelines)

	exams := api.Group("/exams", handler.AuthRequired)
	exams.Get("", handler.ListExams)
	exams.Get("/alerts", handler.ListExamAlerts)
	exams.Get("/summary", handler.ExamSummary)
	exams.Put("/history/:key", handler.RecordExamHistory)

	api.Put("/account", handler.AuthRequired, handler.UpdateAccount)
	api.Get("/recommendations", handler.AuthRequired, handler.ListRecommendations)

	profile := api.Group("/profile", handler.AuthRequired)
	profile.Get("", handler.GetProfile)
	profile.Put("", handler.UpdateProfile)
	profile.Delete("", handler.DeleteAccount)

	export := api.Group("/export", handler.AuthRequired)
	export.Get("/csv", handler.ExportCSV)
	export.Get("/json", handler.ExportJSON)
	export.Get("/xlsx", handler.ExportXLSX)

	api.Use(handler.NotFound)
}
