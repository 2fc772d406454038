package responses

import (
	"surveyhub-backend/src/models"
)

// ScoreSummary is the outcome of scoring one submission.
type ScoreSummary struct {
	Total       int
	Max         int
	PerQuestion []models.QuestionScore
}

// ScoreResponse grades a submission. Only quiz surveys are scored. A
// choice-family question with points earns them when the selected option set
// exactly matches its correct option set; text-family questions are never
// auto-graded. MaxScore accumulates over the questions visible to this
// respondent, so branched-away questions do not count against them.
func ScoreResponse(sv *models.Survey, visible []models.Question, answers map[string][]models.Answer) ScoreSummary {
	var summary ScoreSummary
	if !sv.IsQuiz() {
		return summary
	}

	for _, q := range visible {
		if q.Points <= 0 {
			continue
		}
		summary.Max += q.Points

		awarded := 0
		if q.QuestionType.IsChoiceKind() && selectionMatchesCorrect(&q, answers[q.ID.Hex()]) {
			awarded = q.Points
		}
		summary.Total += awarded
		summary.PerQuestion = append(summary.PerQuestion, models.QuestionScore{
			QuestionID: q.ID,
			Awarded:    awarded,
			Possible:   q.Points,
		})
	}
	return summary
}

func selectionMatchesCorrect(q *models.Question, rows []models.Answer) bool {
	correct := make(map[string]bool)
	for _, o := range q.SelectableOptions() {
		if o.IsCorrect {
			correct[o.ID.Hex()] = true
		}
	}
	if len(correct) == 0 {
		return false
	}

	selected := make(map[string]bool)
	for _, row := range rows {
		if row.OptionID != nil {
			selected[row.OptionID.Hex()] = true
		}
	}
	if len(selected) != len(correct) {
		return false
	}
	for hex := range selected {
		if !correct[hex] {
			return false
		}
	}
	return true
}
