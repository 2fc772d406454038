package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Survey statuses. Transitions are guarded by the lifecycle service:
// pending → active ⇄ paused → closed, closed is terminal.
const (
	SurveyStatusPending = "pending"
	SurveyStatusActive  = "active"
	SurveyStatusPaused  = "paused"
	SurveyStatusClosed  = "closed"
)

// Survey types.
const (
	SurveyTypeNormal = "survey"
	SurveyTypeQuiz   = "quiz"
)

// Survey audiences.
const (
	AudiencePublic    = "public"
	AudienceStudents  = "students"
	AudienceLecturers = "lecturers"
)

// Survey is a container of questions with a lifecycle status and an optional
// time window. Version is the optimistic-concurrency token and is incremented
// on every committed mutation.
type Survey struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Type        string             `bson:"type" json:"type"`
	Status      string             `bson:"status" json:"status"`
	Object      string             `bson:"object" json:"object"`
	StartAt     *time.Time         `bson:"startAt,omitempty" json:"startAt,omitempty"`
	EndAt       *time.Time         `bson:"endAt,omitempty" json:"endAt,omitempty"`
	AllowReview bool               `bson:"allowReview" json:"allowReview"`
	TimeLimit   int                `bson:"timeLimit,omitempty" json:"timeLimit,omitempty"` // minutes, 0 = none
	Version     int64              `bson:"version" json:"version"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"-"`
}

// IsQuiz reports whether answers against this survey are scored.
func (s *Survey) IsQuiz() bool {
	return s.Type == SurveyTypeQuiz
}

// JoinToken is a single-use join credential for a survey. Only the bcrypt hash
// of the secret is stored; the plaintext credential is returned once at issue
// time as "<id>.<secret>".
type JoinToken struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SurveyID   primitive.ObjectID `bson:"surveyId" json:"surveyId"`
	SecretHash string             `bson:"secretHash" json:"-"`
	Used       bool               `bson:"used" json:"used"`
	ExpiresAt  time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt  time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}
