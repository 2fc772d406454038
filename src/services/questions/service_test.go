package questions

import (
	"testing"

	"surveyhub-backend/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func option(text string, sub bool) models.Option {
	return models.Option{ID: primitive.NewObjectID(), OptionText: text, IsSubquestion: sub}
}

func TestValidateQuestion(t *testing.T) {
	t.Run("TextRequired", func(t *testing.T) {
		q := &models.Question{QuestionType: models.ShortText}
		assert.Error(t, ValidateQuestion(q))
	})

	t.Run("UnknownRequiredLevel", func(t *testing.T) {
		q := &models.Question{QuestionType: models.ShortText, Text: "x", Required: "mandatory"}
		assert.Error(t, ValidateQuestion(q))
	})

	t.Run("SingleChoiceNeedsTwoOptions", func(t *testing.T) {
		q := &models.Question{
			QuestionType: models.SingleChoice,
			Text:         "pick",
			Options:      []models.Option{option("A", false)},
		}
		assert.Error(t, ValidateQuestion(q))

		q.Options = append(q.Options, option("B", false))
		assert.NoError(t, ValidateQuestion(q))
	})

	t.Run("YesNoNeedsExactlyTwo", func(t *testing.T) {
		q := &models.Question{
			QuestionType: models.YesNo,
			Text:         "attend?",
			Options:      []models.Option{option("Yes", false), option("No", false), option("Maybe", false)},
		}
		assert.Error(t, ValidateQuestion(q))
	})

	t.Run("SelectionCapOnlyForMultiSelect", func(t *testing.T) {
		q := &models.Question{
			QuestionType: models.SingleChoice,
			Text:         "pick",
			MaxQuestions: 2,
			Options:      []models.Option{option("A", false), option("B", false)},
		}
		assert.Error(t, ValidateQuestion(q))
	})

	t.Run("SelectionCapBoundedByOptions", func(t *testing.T) {
		q := &models.Question{
			QuestionType: models.MultiChoice,
			Text:         "pick",
			MaxQuestions: 3,
			Options:      []models.Option{option("A", false), option("B", false)},
		}
		assert.Error(t, ValidateQuestion(q))

		q.MaxQuestions = 2
		assert.NoError(t, ValidateQuestion(q))
	})

	t.Run("MatrixNeedsSubQuestionsAndColumns", func(t *testing.T) {
		q := &models.Question{
			QuestionType: models.Matrix,
			Text:         "rate",
			Options:      []models.Option{option("Good", false)},
		}
		assert.Error(t, ValidateQuestion(q))

		q.Options = append(q.Options, option("Lectures", true))
		assert.NoError(t, ValidateQuestion(q))
	})

	t.Run("MultiShortTextTakesNoColumns", func(t *testing.T) {
		q := &models.Question{
			QuestionType: models.MultiShortText,
			Text:         "names",
			Options:      []models.Option{option("First", true), option("Good", false)},
		}
		assert.Error(t, ValidateQuestion(q))
	})

	t.Run("TextTypesTakeNoOptions", func(t *testing.T) {
		q := &models.Question{
			QuestionType: models.ShortText,
			Text:         "say",
			Options:      []models.Option{option("A", false)},
		}
		assert.Error(t, ValidateQuestion(q))
	})

	t.Run("PointsNeedChoiceKindWithCorrectOption", func(t *testing.T) {
		text := &models.Question{QuestionType: models.ShortText, Text: "x", Points: 5}
		assert.Error(t, ValidateQuestion(text))

		noCorrect := &models.Question{
			QuestionType: models.SingleChoice,
			Text:         "pick",
			Points:       5,
			Options:      []models.Option{option("A", false), option("B", false)},
		}
		assert.Error(t, ValidateQuestion(noCorrect))

		noCorrect.Options[0].IsCorrect = true
		assert.NoError(t, ValidateQuestion(noCorrect))
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		q := &models.Question{QuestionType: "ranking", Text: "x"}
		assert.Error(t, ValidateQuestion(q))
	})
}

func TestCheckConditionSources(t *testing.T) {
	first := models.Question{ID: primitive.NewObjectID(), Position: 1}
	second := models.Question{ID: primitive.NewObjectID(), Position: 2}
	all := []models.Question{first, second}

	t.Run("EarlierSourceAccepted", func(t *testing.T) {
		q := &models.Question{
			ID:       second.ID,
			Position: 2,
			Conditions: []models.Condition{
				{Field: first.ID.Hex(), Value: "yes", Type: "question"},
			},
		}
		assert.NoError(t, checkConditionSources(q, all))
	})

	t.Run("UnknownSourceRejected", func(t *testing.T) {
		q := &models.Question{
			ID:       second.ID,
			Position: 2,
			Conditions: []models.Condition{
				{Field: primitive.NewObjectID().Hex(), Value: "yes", Type: "question"},
			},
		}
		assert.Error(t, checkConditionSources(q, all))
	})

	t.Run("SelfReferenceRejected", func(t *testing.T) {
		q := &models.Question{
			ID:       first.ID,
			Position: 1,
			Conditions: []models.Condition{
				{Field: first.ID.Hex(), Value: "yes", Type: "question"},
			},
		}
		assert.Error(t, checkConditionSources(q, all))
	})

	t.Run("ForwardReferenceRejected", func(t *testing.T) {
		q := &models.Question{
			ID:       first.ID,
			Position: 1,
			Conditions: []models.Condition{
				{Field: second.ID.Hex(), Value: "yes", Type: "question"},
			},
		}
		assert.Error(t, checkConditionSources(q, all))
	})
}

func TestOptionIDs(t *testing.T) {
	t.Run("CollectsEveryID", func(t *testing.T) {
		opts := []models.Option{
			{ID: primitive.NewObjectID(), OptionText: "A"},
			{ID: primitive.NewObjectID(), OptionText: "B"},
		}
		ids := optionIDs(opts)
		require.Len(t, ids, 2)
		assert.Equal(t, opts[0].ID, ids[0])
		assert.Equal(t, opts[1].ID, ids[1])
	})

	t.Run("EmptySetKeepsNothing", func(t *testing.T) {
		assert.Empty(t, optionIDs(nil))
	})
}
