package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TypeCloseSurvey = "survey:close"

type SurveyPayload struct {
	SurveyID string `json:"survey_id"`
}

// NewCloseSurveyTask builds the delayed auto-close task for a survey.
func NewCloseSurveyTask(surveyID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SurveyPayload{SurveyID: surveyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCloseSurvey, payload), nil
}

const TypeExpireSession = "session:expire"

type SessionPayload struct {
	SessionID string `json:"session_id"`
}

// NewExpireSessionTask builds the delayed time-limit expiry task for a
// response session.
func NewExpireSessionTask(sessionID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SessionPayload{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExpireSession, payload), nil
}
