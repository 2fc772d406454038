package seeder

import (
	"context"
	"log"
	"time"

	"surveyhub-backend/src/models"
	"surveyhub-backend/src/services/questions"
	"surveyhub-backend/src/services/surveys"
)

// SeedSampleSurveys creates sample surveys for testing.
func SeedSampleSurveys() error {
	ctx := context.Background()

	endAt := time.Now().Add(14 * 24 * time.Hour)
	feedback := &models.Survey{
		Title:       "Course Feedback",
		Description: "Tell us about your experience with this course",
		Type:        models.SurveyTypeNormal,
		Object:      models.AudienceStudents,
		EndAt:       &endAt,
	}
	if _, err := surveys.CreateSurvey(ctx, feedback); err != nil {
		return err
	}

	attended := &models.Question{
		SurveyID:     feedback.ID,
		QuestionType: models.YesNo,
		Text:         "Did you attend the lectures regularly?",
		Required:     models.RequiredHard,
		Position:     1,
		Options: []models.Option{
			{OptionText: "Yes", Position: 1},
			{OptionText: "No", Position: 2},
		},
	}
	if err := questions.CreateQuestion(ctx, attended); err != nil {
		return err
	}

	whyNot := &models.Question{
		SurveyID:     feedback.ID,
		QuestionType: models.LongText,
		Text:         "What kept you from attending?",
		Required:     models.RequiredSoft,
		Position:     2,
		MaxLength:    500,
		Conditions: []models.Condition{
			{Field: attended.ID.Hex(), Value: attended.Options[1].ID.Hex(), Type: "question"},
		},
	}
	if err := questions.CreateQuestion(ctx, whyNot); err != nil {
		return err
	}

	rating := &models.Question{
		SurveyID:     feedback.ID,
		QuestionType: models.FivePointScale,
		Text:         "How would you rate the course overall?",
		Required:     models.RequiredHard,
		Position:     3,
	}
	if err := questions.CreateQuestion(ctx, rating); err != nil {
		return err
	}

	aspects := &models.Question{
		SurveyID:     feedback.ID,
		QuestionType: models.Matrix,
		Text:         "Rate the following aspects of the course",
		Required:     models.RequiredNone,
		Position:     4,
		Options: []models.Option{
			{OptionText: "Lectures", IsSubquestion: true, Position: 1},
			{OptionText: "Assignments", IsSubquestion: true, Position: 2},
			{OptionText: "Grading", IsSubquestion: true, Position: 3},
			{OptionText: "Poor", Position: 4},
			{OptionText: "Fair", Position: 5},
			{OptionText: "Good", Position: 6},
			{OptionText: "Excellent", Position: 7},
		},
	}
	if err := questions.CreateQuestion(ctx, aspects); err != nil {
		return err
	}

	quiz := &models.Survey{
		Title:       "Go Basics Quiz",
		Description: "A short graded quiz",
		Type:        models.SurveyTypeQuiz,
		Object:      models.AudienceStudents,
		TimeLimit:   10,
		AllowReview: true,
	}
	if _, err := surveys.CreateSurvey(ctx, quiz); err != nil {
		return err
	}

	q1 := &models.Question{
		SurveyID:     quiz.ID,
		QuestionType: models.SingleChoice,
		Text:         "Which keyword declares a constant in Go?",
		Required:     models.RequiredHard,
		Points:       10,
		Position:     1,
		Options: []models.Option{
			{OptionText: "var", Position: 1},
			{OptionText: "const", IsCorrect: true, Position: 2},
			{OptionText: "let", Position: 3},
		},
	}
	if err := questions.CreateQuestion(ctx, q1); err != nil {
		return err
	}

	q2 := &models.Question{
		SurveyID:     quiz.ID,
		QuestionType: models.MultiChoice,
		Text:         "Which of these are built-in Go types?",
		Required:     models.RequiredHard,
		Points:       10,
		Position:     2,
		Options: []models.Option{
			{OptionText: "rune", IsCorrect: true, Position: 1},
			{OptionText: "decimal", Position: 2},
			{OptionText: "complex128", IsCorrect: true, Position: 3},
			{OptionText: "bigint", Position: 4},
		},
	}
	if err := questions.CreateQuestion(ctx, q2); err != nil {
		return err
	}

	log.Println("✅ Sample surveys seeded")
	return nil
}
