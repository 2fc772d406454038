package responses

import (
	"context"
	"errors"
	"time"

	DB "surveyhub-backend/src/database"
	"surveyhub-backend/src/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore abstracts the persistence the session controller needs. The
// completion guard (CompleteSession) is a conditional write so that a manual
// submit racing the expiry auto-submit commits at most once.
type SessionStore interface {
	InsertSession(ctx context.Context, sess *models.ResponseSession) error
	GetSession(ctx context.Context, id string) (*models.ResponseSession, error)
	FindOpenSession(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.ResponseSession, error)
	SaveAnswer(ctx context.Context, sessionID, questionHex string, raw models.RawAnswer) error
	// CompleteSession flips in_progress → completed, reporting whether this
	// caller won the flip.
	CompleteSession(ctx context.Context, id string, at time.Time) (bool, error)
	InsertResponse(ctx context.Context, resp *models.Response, rows []models.Answer) error
	FindResponse(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.Response, error)
	ListAnswers(ctx context.Context, responseID primitive.ObjectID) ([]models.Answer, error)
	GetJoinToken(ctx context.Context, id primitive.ObjectID) (*models.JoinToken, error)
	// RedeemJoinToken marks a token used, reporting whether this caller
	// redeemed it (single use).
	RedeemJoinToken(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
}

type mongoSessionStore struct {
	sessions  *mongo.Collection
	responses *mongo.Collection
	answers   *mongo.Collection
	tokens    *mongo.Collection
}

// NewMongoSessionStore binds the store to the shared collections.
func NewMongoSessionStore() SessionStore {
	return &mongoSessionStore{
		sessions:  DB.SessionCollection,
		responses: DB.ResponseCollection,
		answers:   DB.AnswerCollection,
		tokens:    DB.JoinTokenCollection,
	}
}

func (m *mongoSessionStore) InsertSession(ctx context.Context, sess *models.ResponseSession) error {
	_, err := m.sessions.InsertOne(ctx, sess)
	return err
}

func (m *mongoSessionStore) GetSession(ctx context.Context, id string) (*models.ResponseSession, error) {
	var sess models.ResponseSession
	err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&sess)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (m *mongoSessionStore) FindOpenSession(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.ResponseSession, error) {
	var sess models.ResponseSession
	err := m.sessions.FindOne(ctx, bson.M{
		"surveyId": surveyID,
		"userId":   userID,
		"status":   models.SessionInProgress,
	}).Decode(&sess)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

func (m *mongoSessionStore) SaveAnswer(ctx context.Context, sessionID, questionHex string, raw models.RawAnswer) error {
	res, err := m.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID, "status": models.SessionInProgress},
		bson.M{"$set": bson.M{"answers." + questionHex: raw, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (m *mongoSessionStore) CompleteSession(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := m.sessions.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SessionInProgress},
		bson.M{"$set": bson.M{"status": models.SessionCompleted, "updatedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (m *mongoSessionStore) InsertResponse(ctx context.Context, resp *models.Response, rows []models.Answer) error {
	if _, err := m.responses.InsertOne(ctx, resp); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row)
	}
	_, err := m.answers.InsertMany(ctx, docs)
	return err
}

func (m *mongoSessionStore) FindResponse(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.Response, error) {
	var resp models.Response
	err := m.responses.FindOne(ctx, bson.M{"surveyId": surveyID, "userId": userID}).Decode(&resp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &resp, nil
}

func (m *mongoSessionStore) ListAnswers(ctx context.Context, responseID primitive.ObjectID) ([]models.Answer, error) {
	cursor, err := m.answers.Find(ctx, bson.M{"responseId": responseID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []models.Answer
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (m *mongoSessionStore) GetJoinToken(ctx context.Context, id primitive.ObjectID) (*models.JoinToken, error) {
	var token models.JoinToken
	err := m.tokens.FindOne(ctx, bson.M{"_id": id}).Decode(&token)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (m *mongoSessionStore) RedeemJoinToken(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	res, err := m.tokens.UpdateOne(ctx,
		bson.M{"_id": id, "used": false, "expiresAt": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
