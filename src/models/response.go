package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Response statuses.
const (
	ResponseInProgress = "in_progress"
	ResponseCompleted  = "completed"
)

// Response is one respondent's single attempt at a survey, unique per
// (survey, user). Scores are computed once at submission time and never
// recomputed afterwards.
type Response struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SurveyID       primitive.ObjectID `bson:"surveyId" json:"surveyId"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Status         string             `bson:"status" json:"status"`
	TotalScore     int                `bson:"totalScore" json:"totalScore"`
	MaxScore       int                `bson:"maxScore" json:"maxScore"`
	QuestionScores []QuestionScore    `bson:"questionScores,omitempty" json:"questionScores,omitempty"`
	SubmittedAt    time.Time          `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// QuestionScore is the per-question share of a quiz response's score.
type QuestionScore struct {
	QuestionID primitive.ObjectID `bson:"questionId" json:"questionId"`
	Awarded    int                `bson:"awarded" json:"awarded"`
	Possible   int                `bson:"possible" json:"possible"`
}

// FileRef is a validated reference into the blob store. The core never
// handles raw bytes.
type FileRef struct {
	Name       string `bson:"name" json:"name"`
	Size       int64  `bson:"size" json:"size"` // bytes
	MimeType   string `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	StorageKey string `bson:"storageKey" json:"storageKey"`
}

// Answer is the smallest persisted unit of an answer: one row per question for
// single-valued types, one per selected option for multi-select, one per
// sub-question for matrix and multi-short-text.
type Answer struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	ResponseID  primitive.ObjectID  `bson:"responseId" json:"responseId"`
	QuestionID  primitive.ObjectID  `bson:"questionId" json:"questionId"`
	OptionID    *primitive.ObjectID `bson:"optionId,omitempty" json:"optionId,omitempty"`
	SubOptionID *primitive.ObjectID `bson:"subOptionId,omitempty" json:"subOptionId,omitempty"`
	AnswerText  *string             `bson:"answerText,omitempty" json:"answerText,omitempty"`
	ScaleValue  *int                `bson:"scaleValue,omitempty" json:"scaleValue,omitempty"`
	Comment     *string             `bson:"comment,omitempty" json:"comment,omitempty"`
	Files       []FileRef           `bson:"files,omitempty" json:"files,omitempty"`
}

// RawAnswer is one client-submitted value for one question, before
// normalization. Which fields are meaningful depends on the question type.
type RawAnswer struct {
	OptionIDs []string          `bson:"optionIds,omitempty" json:"optionIds,omitempty"`
	Text      string            `bson:"text,omitempty" json:"text,omitempty"`
	Cells     map[string]string `bson:"cells,omitempty" json:"cells,omitempty"` // sub-question id → column option id or free text
	Scale     *int              `bson:"scale,omitempty" json:"scale,omitempty"`
	Comment   string            `bson:"comment,omitempty" json:"comment,omitempty"`
	Files     []FileRef         `bson:"files,omitempty" json:"files,omitempty"`
}

// Session statuses.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

// ResponseSession tracks one respondent's pass through a survey. Remaining
// time is always re-derived server-side from StartedAt plus the survey's time
// limit; a client countdown is a UI hint only.
type ResponseSession struct {
	ID        string               `bson:"_id" json:"id"`
	SurveyID  primitive.ObjectID   `bson:"surveyId" json:"surveyId"`
	UserID    primitive.ObjectID   `bson:"userId" json:"userId"`
	Status    string               `bson:"status" json:"status"`
	StartedAt time.Time            `bson:"startedAt" json:"startedAt"`
	ExpiresAt *time.Time           `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	Answers   map[string]RawAnswer `bson:"answers,omitempty" json:"answers,omitempty"` // question id (hex) → latest raw value
	UpdatedAt time.Time            `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Expired reports whether the session's server-side time limit has passed.
func (s *ResponseSession) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
