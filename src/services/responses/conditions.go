package responses

import (
	"strconv"
	"strings"

	"surveyhub-backend/src/models"
)

// answerValues flattens a question's normalized rows into the comparable
// string values a condition can match against: selected option ids, trimmed
// texts and the scale value.
func answerValues(rows []models.Answer) []string {
	var values []string
	for _, row := range rows {
		if row.OptionID != nil {
			values = append(values, row.OptionID.Hex())
		}
		if row.AnswerText != nil {
			if t := strings.TrimSpace(*row.AnswerText); t != "" {
				values = append(values, t)
			}
		}
		if row.ScaleValue != nil {
			values = append(values, strconv.Itoa(*row.ScaleValue))
		}
	}
	return values
}

// VisibleQuestions evaluates conditional visibility over the questions in
// position order. A question with no conditions is always shown; otherwise it
// is shown when ANY condition matches a value of a visible, answered prior
// question. Answers of hidden questions never satisfy a condition. The
// evaluation is pure and deterministic for identical answer snapshots.
func VisibleQuestions(questions []models.Question, answers map[string][]models.Answer) []models.Question {
	collected := make(map[string][]string) // visible+answered question id → values

	var visible []models.Question
	for _, q := range questions {
		if !questionVisible(&q, collected) {
			continue
		}
		visible = append(visible, q)
		if rows := answers[q.ID.Hex()]; len(rows) > 0 {
			collected[q.ID.Hex()] = answerValues(rows)
		}
	}
	return visible
}

func questionVisible(q *models.Question, collected map[string][]string) bool {
	if len(q.Conditions) == 0 {
		return true
	}
	for _, cond := range q.Conditions {
		values, answered := collected[cond.Field]
		if !answered {
			continue
		}
		for _, v := range values {
			if v == cond.Value {
				return true
			}
		}
	}
	return false
}
