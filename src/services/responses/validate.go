package responses

import (
	"fmt"
	"strings"

	"surveyhub-backend/src/models"
)

// FieldError ties a validation failure to the offending question.
type FieldError struct {
	QuestionID string `json:"questionId"`
	Message    string `json:"message"`
}

// ValidationError carries every field-level failure of a submission. Nothing
// is committed when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	ids := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		ids = append(ids, f.QuestionID)
	}
	return fmt.Sprintf("validation failed for questions: %s", strings.Join(ids, ", "))
}

// QuestionIDs lists the offending question ids.
func (e *ValidationError) QuestionIDs() []string {
	ids := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		ids = append(ids, f.QuestionID)
	}
	return ids
}

// IsAnswered reports whether a question counts as answered by its normalized
// rows. Emptiness is type-aware; for matrix and multi-short-text the question
// counts as answered only when every sub-question has a value.
func IsAnswered(q *models.Question, rows []models.Answer) bool {
	if len(rows) == 0 {
		return false
	}
	if q.QuestionType.IsMatrixKind() {
		answered := make(map[string]bool)
		for _, row := range rows {
			if row.SubOptionID != nil {
				answered[row.SubOptionID.Hex()] = true
			}
		}
		return len(answered) == len(q.SubQuestions())
	}
	return true
}

// CheckRequired enforces per-question required levels over the questions
// visible to this respondent. Hard failures are collected into one
// ValidationError; soft misses come back as warnings and never block.
func CheckRequired(visible []models.Question, answers map[string][]models.Answer) ([]string, error) {
	var warnings []string
	var failed []FieldError

	for _, q := range visible {
		if IsAnswered(&q, answers[q.ID.Hex()]) {
			continue
		}
		switch q.Required {
		case models.RequiredHard:
			failed = append(failed, FieldError{
				QuestionID: q.ID.Hex(),
				Message:    "a required question was not answered",
			})
		case models.RequiredSoft:
			warnings = append(warnings, "question "+q.ID.Hex()+" was left unanswered")
		}
	}

	if len(failed) > 0 {
		return warnings, &ValidationError{Fields: failed}
	}
	return warnings, nil
}
