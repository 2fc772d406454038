package surveys

import (
	"context"
	"time"

	DB "surveyhub-backend/src/database"
	"surveyhub-backend/src/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SurveyStore abstracts the persistence operations the lifecycle service needs.
type SurveyStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Survey, error)
	// UpdateCAS applies set only if the stored version still matches and
	// increments the version. It reports whether the write happened.
	UpdateCAS(ctx context.Context, id primitive.ObjectID, version int64, set bson.M) (bool, error)
	// ListDueForClose returns surveys whose end boundary has been crossed and
	// whose status still allows responses.
	ListDueForClose(ctx context.Context, now time.Time) ([]models.Survey, error)
}

type mongoSurveyStore struct {
	coll *mongo.Collection
}

// NewMongoSurveyStore binds the store to the shared surveys collection.
func NewMongoSurveyStore() SurveyStore {
	return &mongoSurveyStore{coll: DB.SurveyCollection}
}

func (m *mongoSurveyStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	var s models.Survey
	err := m.coll.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (m *mongoSurveyStore) UpdateCAS(ctx context.Context, id primitive.ObjectID, version int64, set bson.M) (bool, error) {
	res, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (m *mongoSurveyStore) ListDueForClose(ctx context.Context, now time.Time) ([]models.Survey, error) {
	filter := bson.M{
		"status":    bson.M{"$in": []string{models.SurveyStatusActive, models.SurveyStatusPaused}},
		"endAt":     bson.M{"$ne": nil, "$lte": now},
		"deletedAt": nil,
	}
	cursor, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var due []models.Survey
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}
