package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"surveyhub-backend/src/models"
	"surveyhub-backend/src/services/surveys"
	"surveyhub-backend/src/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 5 * time.Second

// CreateSurveyRequest is the authoring payload for a new survey.
type CreateSurveyRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Type        string     `json:"type" validate:"omitempty,oneof=survey quiz"`
	Object      string     `json:"object" validate:"omitempty,oneof=public students lecturers"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	AllowReview bool       `json:"allowReview"`
	TimeLimit   int        `json:"timeLimit" validate:"gte=0"` // minutes
}

// CreateSurvey creates a survey in pending state.
func CreateSurvey(c *fiber.Ctx) error {
	var req CreateSurveyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, err.Error())
	}
	if req.StartAt != nil && req.EndAt != nil && !req.EndAt.After(*req.StartAt) {
		return utils.HandleError(c, http.StatusBadRequest, "endAt must be after startAt")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sv := &models.Survey{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Object:      req.Object,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		AllowReview: req.AllowReview,
		TimeLimit:   req.TimeLimit,
	}
	created, err := surveys.CreateSurvey(ctx, sv)
	if err != nil {
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to create survey")
	}
	return c.Status(http.StatusCreated).JSON(created)
}

// GetAllSurveys lists surveys with pagination, search and status filters.
func GetAllSurveys(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	params := models.PaginationParams{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
		SortBy: c.Query("sortBy", "createdAt"),
		Order:  c.Query("order", "desc"),
	}
	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := surveys.GetAllSurveys(ctx, params, statuses)
	if err != nil {
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to list surveys")
	}
	return c.JSON(result)
}

// GetSurveyByID returns one survey.
func GetSurveyByID(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sv, err := surveys.GetSurveyByID(ctx, id)
	if err != nil {
		if errors.Is(err, surveys.ErrSurveyNotFound) {
			return utils.HandleError(c, http.StatusNotFound, "Survey not found")
		}
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to fetch survey")
	}
	return c.JSON(sv)
}

// UpdateSurvey edits descriptive fields and the time window. Status never
// changes here.
func UpdateSurvey(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	var req CreateSurveyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, err.Error())
	}
	if req.StartAt != nil && req.EndAt != nil && !req.EndAt.After(*req.StartAt) {
		return utils.HandleError(c, http.StatusBadRequest, "endAt must be after startAt")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sv := &models.Survey{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Object:      req.Object,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		TimeLimit:   req.TimeLimit,
	}
	updated, err := surveys.UpdateSurveyInfo(ctx, id, sv)
	if err != nil {
		if errors.Is(err, surveys.ErrSurveyNotFound) {
			return utils.HandleError(c, http.StatusNotFound, "Survey not found")
		}
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to update survey")
	}
	return c.JSON(updated)
}

// DeleteSurvey soft-deletes a survey.
func DeleteSurvey(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := surveys.DeleteSurvey(ctx, id); err != nil {
		if errors.Is(err, surveys.ErrSurveyNotFound) {
			return utils.HandleError(c, http.StatusNotFound, "Survey not found")
		}
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to delete survey")
	}
	return c.JSON(fiber.Map{"message": "Survey deleted"})
}

// ChangeStatusRequest is the manual transition payload.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused closed"`
}

// ChangeSurveyStatus applies a manual lifecycle transition.
func ChangeSurveyStatus(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	var req ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sv, warning, err := surveys.ChangeSurveyStatus(ctx, id, req.Status)
	if err != nil {
		return handleLifecycleError(c, err)
	}

	resp := fiber.Map{"survey": sv}
	if warning != "" {
		resp["warning"] = warning
	}
	return c.JSON(resp)
}

// ToggleReviewRequest flips the review-visibility flag.
type ToggleReviewRequest struct {
	AllowReview bool `json:"allowReview"`
}

// ToggleReview updates whether respondents may review quiz scores.
func ToggleReview(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	var req ToggleReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid input")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sv, err := surveys.ToggleReviewPermission(ctx, id, req.AllowReview)
	if err != nil {
		return handleLifecycleError(c, err)
	}
	return c.JSON(sv)
}

// IssueJoinToken mints a single-use join credential. The plaintext credential
// appears in this response only.
func IssueJoinToken(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.HandleError(c, http.StatusBadRequest, "Invalid survey ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	credential, token, err := surveys.IssueJoinToken(ctx, id)
	if err != nil {
		if errors.Is(err, surveys.ErrSurveyNotFound) {
			return utils.HandleError(c, http.StatusNotFound, "Survey not found")
		}
		return utils.HandleError(c, http.StatusInternalServerError, "Failed to issue join token")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"credential": credential,
		"expiresAt":  token.ExpiresAt,
	})
}

func handleLifecycleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, surveys.ErrSurveyNotFound):
		return utils.HandleError(c, http.StatusNotFound, "Survey not found")
	case errors.Is(err, surveys.ErrOperationInProgress):
		return utils.HandleCodedError(c, http.StatusConflict, models.CodeOperationInProgress, "Another operation on this survey is in progress, retry shortly")
	case errors.Is(err, surveys.ErrStaleVersion):
		return utils.HandleCodedError(c, http.StatusConflict, models.CodeStaleVersion, "The survey changed underneath this request, retry with fresh state")
	case errors.Is(err, surveys.ErrInvalidTransition):
		return utils.HandleCodedError(c, http.StatusBadRequest, models.CodeInvalidTransition, err.Error())
	default:
		return utils.HandleError(c, http.StatusInternalServerError, "Operation failed")
	}
}
