package routes

import (
	"surveyhub-backend/src/controllers"
	"surveyhub-backend/src/middleware"

	"github.com/gofiber/fiber/v2"
)

// SurveyRoutes covers authoring and lifecycle management. Everything here is
// an admin surface and requires a signed-in caller.
func SurveyRoutes(app *fiber.App) {
	surveys := app.Group("/surveys", middleware.AuthJWT)

	surveys.Post("/", controllers.CreateSurvey)
	surveys.Get("/", controllers.GetAllSurveys)
	surveys.Get("/:id", controllers.GetSurveyByID)
	surveys.Put("/:id", controllers.UpdateSurvey)
	surveys.Delete("/:id", controllers.DeleteSurvey)

	surveys.Patch("/:id/status", controllers.ChangeSurveyStatus)
	surveys.Patch("/:id/review", controllers.ToggleReview)
	surveys.Post("/:id/join-tokens", controllers.IssueJoinToken)
}
