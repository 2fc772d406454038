package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionType enumerates the supported question kinds. The normalizer and the
// validator dispatch on this tag; there is no per-type inheritance.
type QuestionType string

const (
	SingleChoice      QuestionType = "single_choice"
	MultiChoice       QuestionType = "multi_choice"
	Matrix            QuestionType = "matrix"
	ShortText         QuestionType = "short_text"
	LongText          QuestionType = "long_text"
	NumberText        QuestionType = "number"
	DateText          QuestionType = "date"
	FileUpload        QuestionType = "file_upload"
	FivePointScale    QuestionType = "five_point_scale"
	YesNo             QuestionType = "yes_no"
	Gender            QuestionType = "gender"
	ChoiceWithComment QuestionType = "choice_with_comment"
	ImageSingleChoice QuestionType = "image_single_choice"
	ImageMultiChoice  QuestionType = "image_multi_choice"
	MultiShortText    QuestionType = "multi_short_text"
)

// IsSingleSelect reports whether the type stores exactly one selected option.
func (t QuestionType) IsSingleSelect() bool {
	switch t {
	case SingleChoice, YesNo, Gender, ImageSingleChoice, ChoiceWithComment:
		return true
	}
	return false
}

// IsMultiSelect reports whether the type stores one row per selected option.
func (t QuestionType) IsMultiSelect() bool {
	return t == MultiChoice || t == ImageMultiChoice
}

// IsTextual reports whether the type stores a single free-text row.
func (t QuestionType) IsTextual() bool {
	switch t {
	case ShortText, LongText, NumberText, DateText:
		return true
	}
	return false
}

// IsMatrixKind reports whether the type stores one row per sub-question.
func (t QuestionType) IsMatrixKind() bool {
	return t == Matrix || t == MultiShortText
}

// IsChoiceKind reports whether the type selects among authored options at all.
func (t QuestionType) IsChoiceKind() bool {
	return t.IsSingleSelect() || t.IsMultiSelect()
}

// Required levels.
const (
	RequiredNone = "none"
	RequiredSoft = "soft"
	RequiredHard = "hard"
)

// QuestionGroup is an ordered, purely organizational container of questions.
type QuestionGroup struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SurveyID primitive.ObjectID `bson:"surveyId" json:"surveyId"`
	Title    string             `bson:"title" json:"title"`
	Position int                `bson:"position" json:"position"`
}

// Condition makes a question visible when a prior question's answer contains
// Value. Multiple conditions on one question are OR-ed.
type Condition struct {
	Field string `bson:"field" json:"field"` // referenced question id (hex)
	Value string `bson:"value" json:"value"`
	Type  string `bson:"type" json:"type"` // always "question"
}

// Question belongs to exactly one survey and optionally one group.
type Question struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	SurveyID     primitive.ObjectID  `bson:"surveyId" json:"surveyId"`
	GroupID      *primitive.ObjectID `bson:"groupId,omitempty" json:"groupId,omitempty"`
	QuestionType QuestionType        `bson:"questionType" json:"questionType"`
	Text         string              `bson:"text" json:"text"`
	Required     string              `bson:"required" json:"required"` // none | soft | hard
	Points       int                 `bson:"points,omitempty" json:"points,omitempty"`
	Position     int                 `bson:"position" json:"position"`
	Conditions   []Condition         `bson:"conditions,omitempty" json:"conditions,omitempty"`

	// Type-specific constraints
	MaxLength        int      `bson:"maxLength,omitempty" json:"maxLength,omitempty"`
	NumericOnly      bool     `bson:"numericOnly,omitempty" json:"numericOnly,omitempty"`
	AllowedFileTypes []string `bson:"allowedFileTypes,omitempty" json:"allowedFileTypes,omitempty"`
	MaxFileSizeKB    int64    `bson:"maxFileSizeKb,omitempty" json:"maxFileSizeKb,omitempty"`
	MaxQuestions     int      `bson:"maxQuestions,omitempty" json:"maxQuestions,omitempty"`

	Options []Option `bson:"options,omitempty" json:"options,omitempty"`
}

// SubQuestions returns the options marked as matrix / multi-short-text rows.
func (q *Question) SubQuestions() []Option {
	var rows []Option
	for _, o := range q.Options {
		if o.IsSubquestion {
			rows = append(rows, o)
		}
	}
	return rows
}

// SelectableOptions returns the options a respondent can actually pick
// (matrix columns, choice entries), excluding sub-question rows.
func (q *Question) SelectableOptions() []Option {
	var cols []Option
	for _, o := range q.Options {
		if !o.IsSubquestion {
			cols = append(cols, o)
		}
	}
	return cols
}

// Option belongs to a question. IsSubquestion marks it as a matrix or
// multi-short-text row rather than a selectable column.
type Option struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	QuestionID    primitive.ObjectID `bson:"questionId" json:"questionId"`
	OptionText    string             `bson:"optionText" json:"optionText"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"`
	IsCorrect     bool               `bson:"isCorrect,omitempty" json:"isCorrect,omitempty"`
	IsSubquestion bool               `bson:"isSubquestion,omitempty" json:"isSubquestion,omitempty"`
	Position      int                `bson:"position" json:"position"`
}
