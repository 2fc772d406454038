package routes

import (
	"surveyhub-backend/src/controllers"
	"surveyhub-backend/src/middleware"

	"github.com/gofiber/fiber/v2"
)

// ResponseRoutes covers the respondent surface. Identity is optional here:
// public surveys accept anonymous sessions, the eligibility gate decides.
func ResponseRoutes(app *fiber.App) {
	app.Post("/surveys/:id/sessions", middleware.OptionalAuthJWT, controllers.StartSession)
	app.Get("/surveys/:id/my-result", middleware.OptionalAuthJWT, controllers.GetMyResult)

	sessions := app.Group("/sessions", middleware.OptionalAuthJWT)
	sessions.Put("/:id/answers/:questionId", controllers.SubmitAnswer)
	sessions.Post("/:id/submit", controllers.SubmitResponse)
}
