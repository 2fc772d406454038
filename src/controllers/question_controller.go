package controllers

import (
	"context"
	"errors"
	"net/http"

	"surveyhub-backend/src/models"
	"surveyhub-backend/src/services/questions"
	"surveyhub-backend/src/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateGroup adds an ordered question group to a survey.
func CreateGroup(c *fiber.Ctx) error {
	surveyID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	var group models.QuestionGroup
	if err := c.BodyParser(&group); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}
	if group.Title == "" {
		return utils.HandleError(c, http.StatusBadRequest, "Group title is required")
	}
	group.SurveyID = surveyID

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := questions.CreateGroup(ctx, &group); err != nil {
		return handleAuthoringError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(group)
}

// UpdateGroup renames or reorders a group.
func UpdateGroup(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid group ID")
	}

	var group models.QuestionGroup
	if err := c.BodyParser(&group); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := questions.UpdateGroup(ctx, id, group.Title, group.Position); err != nil {
		return handleAuthoringError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Group updated"})
}

// DeleteGroup removes a group with its questions and options.
func DeleteGroup(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid group ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := questions.DeleteGroup(ctx, id); err != nil {
		return handleAuthoringError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Group deleted"})
}

// ListGroups lists a survey's groups in position order.
func ListGroups(c *fiber.Ctx) error {
	surveyID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	groups, err := questions.ListGroups(ctx, surveyID)
	if err != nil {
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to list groups")
	}
	return c.JSON(groups)
}

// CreateQuestion validates and adds a question with its options.
func CreateQuestion(c *fiber.Ctx) error {
	surveyID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	var q models.Question
	if err := c.BodyParser(&q); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}
	q.SurveyID = surveyID
	if q.Required == "" {
		q.Required = models.RequiredNone
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := questions.CreateQuestion(ctx, &q); err != nil {
		return handleAuthoringError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(q)
}

// UpdateQuestion replaces a question definition and its option set.
func UpdateQuestion(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid question ID")
	}

	var q models.Question
	if err := c.BodyParser(&q); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}
	q.ID = id
	if q.Required == "" {
		q.Required = models.RequiredNone
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := questions.UpdateQuestion(ctx, &q); err != nil {
		return handleAuthoringError(c, err)
	}
	return c.JSON(q)
}

// DeleteQuestion removes a question and its options.
func DeleteQuestion(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid question ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := questions.DeleteQuestion(ctx, id); err != nil {
		return handleAuthoringError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Question deleted"})
}

// ListSurveyQuestions returns a survey's questions with options, in order.
func ListSurveyQuestions(c *fiber.Ctx) error {
	surveyID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	qs, err := questions.ListSurveyQuestions(ctx, surveyID)
	if err != nil {
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to list questions")
	}
	return c.JSON(qs)
}

// GetQuestion returns one question with its options.
func GetQuestion(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid question ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	q, err := questions.GetQuestion(ctx, id)
	if err != nil {
		return handleAuthoringError(c, err)
	}
	return c.JSON(q)
}

func handleAuthoringError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, questions.ErrQuestionNotFound):
		return utils.HandleError(c, http.StatusNotFound, "Question not found")
	case errors.Is(err, questions.ErrGroupNotFound):
		return utils.HandleError(c, http.StatusNotFound, "Group not found")
	case errors.Is(err, questions.ErrHasResponses):
		return utils.HandleError(c, http.StatusConflict, err.Error())
	default:
		// Structural validation failures carry a descriptive message.
		return utils.HandleError(c, http.StatusBadRequest, err.Error())
	}
}
