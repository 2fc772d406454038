package surveys

import (
	"context"
	"math"
	"strings"
	"time"

	DB "surveyhub-backend/src/database"
	"surveyhub-backend/src/models"
	"surveyhub-backend/src/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var defaultService *Service

// Init wires the default lifecycle service to MongoDB, the delayed-task
// scheduler and the survey cache. Must run after database.ConnectMongoDB.
func Init() {
	defaultService = NewService(NewMongoSurveyStore())
	defaultService.SetCloseScheduler(ScheduleSurveyCloseJob)
	defaultService.SetCacheInvalidator(func(id primitive.ObjectID) {
		utils.DelCache(surveyCacheKey(id))
	})
}

// Default returns the process-wide lifecycle service.
func Default() *Service {
	return defaultService
}

func surveyCacheKey(id primitive.ObjectID) string {
	return "survey:" + id.Hex()
}

// ChangeSurveyStatus applies a manual transition through the guarded path.
func ChangeSurveyStatus(ctx context.Context, id primitive.ObjectID, target string) (*models.Survey, string, error) {
	return defaultService.ChangeStatus(ctx, id, target)
}

// ToggleReviewPermission flips the review flag through the guarded path.
func ToggleReviewPermission(ctx context.Context, id primitive.ObjectID, allow bool) (*models.Survey, error) {
	return defaultService.ToggleReview(ctx, id, allow)
}

// CreateSurvey inserts a new survey in pending state with version 1.
func CreateSurvey(ctx context.Context, sv *models.Survey) (*models.Survey, error) {
	now := time.Now()
	sv.ID = primitive.NewObjectID()
	sv.Status = models.SurveyStatusPending
	if sv.Type == "" {
		sv.Type = models.SurveyTypeNormal
	}
	if sv.Object == "" {
		sv.Object = models.AudiencePublic
	}
	sv.Version = 1
	sv.CreatedAt = now
	sv.UpdatedAt = now

	if _, err := DB.SurveyCollection.InsertOne(ctx, sv); err != nil {
		return nil, err
	}
	return sv, nil
}

// GetSurveyByID fetches one survey, served from cache when possible.
func GetSurveyByID(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	var cached models.Survey
	if utils.GetCache(surveyCacheKey(id), &cached) {
		return &cached, nil
	}

	var sv models.Survey
	err := DB.SurveyCollection.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&sv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	utils.SetCache(surveyCacheKey(id), sv, 5*time.Minute)
	return &sv, nil
}

// PaginatedSurveys is the list envelope.
type PaginatedSurveys struct {
	Surveys    []models.Survey `json:"surveys"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

// GetAllSurveys lists surveys with pagination, search and status filters.
func GetAllSurveys(ctx context.Context, params models.PaginationParams, statuses []string) (*PaginatedSurveys, error) {
	params = models.DefaultPagination(params)

	filter := bson.M{"deletedAt": nil}
	if params.Search != "" {
		filter["title"] = bson.M{"$regex": params.Search, "$options": "i"}
	}
	if len(statuses) > 0 && statuses[0] != "" {
		filter["status"] = bson.M{"$in": statuses}
	}

	total, err := DB.SurveyCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	order := 1
	if strings.ToLower(params.Order) == "desc" {
		order = -1
	}
	opts := options.Find().
		SetSkip(int64((params.Page - 1) * params.Limit)).
		SetLimit(int64(params.Limit)).
		SetSort(bson.D{{Key: params.SortBy, Value: order}})

	cursor, err := DB.SurveyCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var surveys []models.Survey
	if err := cursor.All(ctx, &surveys); err != nil {
		return nil, err
	}

	return &PaginatedSurveys{
		Surveys:    surveys,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(params.Limit))),
	}, nil
}

// UpdateSurveyInfo edits the descriptive fields and time window. Status is
// never changed here; that is the state machine's job.
func UpdateSurveyInfo(ctx context.Context, id primitive.ObjectID, sv *models.Survey) (*models.Survey, error) {
	update := bson.M{
		"$set": bson.M{
			"title":       sv.Title,
			"description": sv.Description,
			"type":        sv.Type,
			"object":      sv.Object,
			"startAt":     sv.StartAt,
			"endAt":       sv.EndAt,
			"timeLimit":   sv.TimeLimit,
			"updatedAt":   time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := DB.SurveyCollection.UpdateOne(ctx, bson.M{"_id": id, "deletedAt": nil}, update)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrSurveyNotFound
	}

	utils.DelCache(surveyCacheKey(id))
	updated, err := GetSurveyByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// A moved end boundary needs the delayed close task moved with it.
	if updated.Status == models.SurveyStatusActive && updated.EndAt != nil && updated.EndAt.After(time.Now()) {
		ScheduleSurveyCloseJob(updated)
	}
	return updated, nil
}

// DeleteSurvey soft-deletes a survey and drops its scheduled close task.
func DeleteSurvey(ctx context.Context, id primitive.ObjectID) error {
	res, err := DB.SurveyCollection.UpdateOne(ctx,
		bson.M{"_id": id, "deletedAt": nil},
		bson.M{"$set": bson.M{"deletedAt": time.Now()}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrSurveyNotFound
	}

	utils.DelCache(surveyCacheKey(id))
	if DB.RedisURI != "" {
		DeleteTask("close-survey-"+id.Hex(), DB.RedisURI)
	}
	return nil
}

const joinTokenTTL = 7 * 24 * time.Hour

// IssueJoinToken mints a single-use join credential for a survey. The
// plaintext credential "<id>.<secret>" is returned exactly once; only the
// bcrypt hash of the secret is stored.
func IssueJoinToken(ctx context.Context, surveyID primitive.ObjectID) (string, *models.JoinToken, error) {
	if _, err := GetSurveyByID(ctx, surveyID); err != nil {
		return "", nil, err
	}

	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	token := &models.JoinToken{
		ID:         primitive.NewObjectID(),
		SurveyID:   surveyID,
		SecretHash: string(hash),
		ExpiresAt:  time.Now().Add(joinTokenTTL),
		CreatedAt:  time.Now(),
	}
	if _, err := DB.JoinTokenCollection.InsertOne(ctx, token); err != nil {
		return "", nil, err
	}

	return token.ID.Hex() + "." + secret, token, nil
}
