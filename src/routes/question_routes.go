package routes

import (
	"surveyhub-backend/src/controllers"
	"surveyhub-backend/src/middleware"

	"github.com/gofiber/fiber/v2"
)

// QuestionRoutes covers question and group authoring.
func QuestionRoutes(app *fiber.App) {
	surveys := app.Group("/surveys", middleware.AuthJWT)
	surveys.Post("/:id/groups", controllers.CreateGroup)
	surveys.Get("/:id/groups", controllers.ListGroups)
	surveys.Post("/:id/questions", controllers.CreateQuestion)
	surveys.Get("/:id/questions", controllers.ListSurveyQuestions)

	groups := app.Group("/groups", middleware.AuthJWT)
	groups.Put("/:id", controllers.UpdateGroup)
	groups.Delete("/:id", controllers.DeleteGroup)

	questions := app.Group("/questions", middleware.AuthJWT)
	questions.Get("/:id", controllers.GetQuestion)
	questions.Put("/:id", controllers.UpdateQuestion)
	questions.Delete("/:id", controllers.DeleteQuestion)
}
