package controllers

import (
	"context"
	"errors"
	"net/http"

	"surveyhub-backend/src/models"
	"surveyhub-backend/src/services/responses"
	"surveyhub-backend/src/services/surveys"
	"surveyhub-backend/src/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func callerIdentity(c *fiber.Ctx) (primitive.ObjectID, string) {
	var userID primitive.ObjectID
	if raw, ok := c.Locals("userId").(string); ok && raw != "" {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			userID = id
		}
	}
	role, _ := c.Locals("role").(string)
	return userID, role
}

// StartSessionRequest optionally carries a join credential for gated surveys.
type StartSessionRequest struct {
	JoinCredential string `json:"joinCredential"`
}

// StartSession opens or resumes a response session against a survey.
func StartSession(c *fiber.Ctx) error {
	surveyID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	var req StartSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
		}
	}
	userID, role := callerIdentity(c)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := responses.StartSession(ctx, surveyID, userID, role, req.JoinCredential)
	if err != nil {
		return handleResponseError(c, err)
	}
	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	return c.Status(status).JSON(result)
}

// SubmitAnswer stores the latest value for one question of an open session.
func SubmitAnswer(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	questionID, err := primitive.ObjectIDFromHex(c.Params("questionId"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid question ID")
	}

	var raw models.RawAnswer
	if err := c.BodyParser(&raw); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := responses.SubmitAnswer(ctx, sessionID, questionID, raw); err != nil {
		return handleResponseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Answer saved"})
}

// SubmitResponse finalizes a session into a committed response.
func SubmitResponse(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := responses.SubmitResponse(ctx, sessionID)
	if err != nil {
		return handleResponseError(c, err)
	}
	return c.JSON(result)
}

// GetMyResult returns the caller's committed response for a survey, with quiz
// scores included only when the survey allows review.
func GetMyResult(c *fiber.Ctx) error {
	surveyID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}
	userID, _ := callerIdentity(c)
	if userID.IsZero() {
		return utils.HandleCodedError(c, http.StatusUnauthorized, models.CodeAuthRequired, "Sign in to view your result")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, answers, err := responses.GetResult(ctx, surveyID, userID)
	if err != nil {
		if errors.Is(err, responses.ErrSessionNotFound) {
			return utils.HandleError(c, http.StatusNotFound, "No response found for this survey")
		}
		return handleResponseError(c, err)
	}
	return c.JSON(fiber.Map{"response": resp, "answers": answers})
}

func handleResponseError(c *fiber.Ctx, err error) error {
	var vErr *responses.ValidationError
	switch {
	case errors.As(err, &vErr):
		return utils.HandleCodedError(c, http.StatusUnprocessableEntity, models.CodeValidationFailed, "Submission failed validation", vErr.QuestionIDs()...)
	case errors.Is(err, responses.ErrSurveyClosed):
		return utils.HandleCodedError(c, http.StatusGone, models.CodeSurveyClosed, "This survey is closed")
	case errors.Is(err, responses.ErrNotEligible):
		return utils.HandleCodedError(c, http.StatusForbidden, models.CodeNotEligible, "You are not eligible to respond to this survey")
	case errors.Is(err, responses.ErrAuthRequired):
		return utils.HandleCodedError(c, http.StatusUnauthorized, models.CodeAuthRequired, "Sign in to respond to this survey")
	case errors.Is(err, responses.ErrAlreadySubmitted):
		return utils.HandleCodedError(c, http.StatusConflict, models.CodeAlreadySubmitted, "A response has already been submitted")
	case errors.Is(err, responses.ErrSessionNotFound):
		return utils.HandleError(c, http.StatusNotFound, "Session not found")
	case errors.Is(err, surveys.ErrSurveyNotFound):
		return utils.HandleError(c, http.StatusNotFound, "Survey not found")
	default:
		return utils.HandleError(c, http.StatusInternalServerError, "Operation failed")
	}
}
