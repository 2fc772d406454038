package responses

import (
	"testing"

	"surveyhub-backend/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func quizSurvey() *models.Survey {
	return &models.Survey{Type: models.SurveyTypeQuiz}
}

func TestScoreResponse(t *testing.T) {
	t.Run("NonQuizNeverScored", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		q.Points = 10
		q.Options[0].IsCorrect = true

		summary := ScoreResponse(&models.Survey{Type: models.SurveyTypeNormal}, []models.Question{*q}, map[string][]models.Answer{
			q.ID.Hex(): answerFor(q, models.RawAnswer{OptionIDs: []string{q.Options[0].ID.Hex()}}),
		})
		assert.Zero(t, summary.Total)
		assert.Zero(t, summary.Max)
	})

	t.Run("CorrectSingleChoiceEarnsPoints", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		q.Points = 10
		q.Options[1].IsCorrect = true

		summary := ScoreResponse(quizSurvey(), []models.Question{*q}, map[string][]models.Answer{
			q.ID.Hex(): answerFor(q, models.RawAnswer{OptionIDs: []string{q.Options[1].ID.Hex()}}),
		})
		assert.Equal(t, 10, summary.Total)
		assert.Equal(t, 10, summary.Max)
		require.Len(t, summary.PerQuestion, 1)
		assert.Equal(t, 10, summary.PerQuestion[0].Awarded)
	})

	t.Run("WrongAnswerEarnsZeroButCountsInMax", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		q.Points = 10
		q.Options[1].IsCorrect = true

		summary := ScoreResponse(quizSurvey(), []models.Question{*q}, map[string][]models.Answer{
			q.ID.Hex(): answerFor(q, models.RawAnswer{OptionIDs: []string{q.Options[0].ID.Hex()}}),
		})
		assert.Zero(t, summary.Total)
		assert.Equal(t, 10, summary.Max)
	})

	t.Run("MultiChoiceNeedsExactSet", func(t *testing.T) {
		q := choiceQuestion(models.MultiChoice, "A", "B", "C")
		q.Points = 5
		q.Options[0].IsCorrect = true
		q.Options[2].IsCorrect = true

		exact := ScoreResponse(quizSurvey(), []models.Question{*q}, map[string][]models.Answer{
			q.ID.Hex(): answerFor(q, models.RawAnswer{OptionIDs: []string{q.Options[2].ID.Hex(), q.Options[0].ID.Hex()}}),
		})
		assert.Equal(t, 5, exact.Total)

		subset := ScoreResponse(quizSurvey(), []models.Question{*q}, map[string][]models.Answer{
			q.ID.Hex(): answerFor(q, models.RawAnswer{OptionIDs: []string{q.Options[0].ID.Hex()}}),
		})
		assert.Zero(t, subset.Total)

		superset := ScoreResponse(quizSurvey(), []models.Question{*q}, map[string][]models.Answer{
			q.ID.Hex(): answerFor(q, models.RawAnswer{OptionIDs: []string{
				q.Options[0].ID.Hex(), q.Options[1].ID.Hex(), q.Options[2].ID.Hex(),
			}}),
		})
		assert.Zero(t, superset.Total)
	})

	t.Run("TextQuestionNeverAutoGraded", func(t *testing.T) {
		q := &models.Question{ID: primitive.NewObjectID(), QuestionType: models.ShortText, Points: 10}
		text := "42"

		summary := ScoreResponse(quizSurvey(), []models.Question{*q}, map[string][]models.Answer{
			q.ID.Hex(): {{QuestionID: q.ID, AnswerText: &text}},
		})
		assert.Zero(t, summary.Total)
		assert.Equal(t, 10, summary.Max)
		assert.Zero(t, summary.PerQuestion[0].Awarded)
	})

	t.Run("HiddenQuestionExcludedFromMax", func(t *testing.T) {
		shown := choiceQuestion(models.SingleChoice, "A", "B")
		shown.Points = 10
		shown.Options[0].IsCorrect = true
		hidden := choiceQuestion(models.SingleChoice, "A", "B")
		hidden.Points = 10
		hidden.Options[0].IsCorrect = true

		// Only the shown question is in the visible slice.
		summary := ScoreResponse(quizSurvey(), []models.Question{*shown}, map[string][]models.Answer{
			shown.ID.Hex(): answerFor(shown, models.RawAnswer{OptionIDs: []string{shown.Options[0].ID.Hex()}}),
		})
		assert.Equal(t, 10, summary.Max)
		assert.Equal(t, 10, summary.Total)
	})
}
