package surveys

import (
	"errors"
	"fmt"
	"time"

	"surveyhub-backend/src/models"
)

var (
	// ErrOperationInProgress is returned when another transition holds the
	// survey's advisory lock. The caller should retry shortly.
	ErrOperationInProgress = errors.New("another operation is in progress for this survey")
	// ErrStaleVersion is returned when the optimistic version check fails.
	// The caller must re-read the survey and re-issue the command.
	ErrStaleVersion = errors.New("survey was modified concurrently, re-read and retry")
	// ErrInvalidTransition is returned for a target status the current status
	// does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSurveyNotFound is returned when the survey does not exist or was deleted.
	ErrSurveyNotFound = errors.New("survey not found")
)

// TransitionDecision is the outcome of evaluating a requested transition
// against the current survey state, before anything is written.
type TransitionDecision struct {
	NewStatus string
	NoOp      bool   // report success without writing (e.g. closing a closed survey)
	Warning   string // surfaced to the caller alongside success
}

// Transition evaluates a manual transition request. It is pure: the time check
// for the end boundary happens here so that callers running it inside the
// guarded section cannot lose the race against an auto-close.
//
// pending → active ⇄ paused → closed, closed terminal.
func Transition(s *models.Survey, target string, now time.Time) (TransitionDecision, error) {
	switch target {
	case models.SurveyStatusActive:
		if s.Status != models.SurveyStatusPending && s.Status != models.SurveyStatusPaused {
			return TransitionDecision{}, fmt.Errorf("%w: cannot activate a %s survey", ErrInvalidTransition, s.Status)
		}
		if s.EndAt != nil && !now.Before(*s.EndAt) {
			// End boundary already crossed: the auto-close wins.
			return TransitionDecision{}, fmt.Errorf("%w: survey end time has passed", ErrInvalidTransition)
		}
		d := TransitionDecision{NewStatus: models.SurveyStatusActive}
		if s.StartAt != nil && now.Before(*s.StartAt) {
			d.Warning = "survey activated before its scheduled start time"
		}
		return d, nil

	case models.SurveyStatusPaused:
		if s.Status != models.SurveyStatusActive {
			return TransitionDecision{}, fmt.Errorf("%w: cannot pause a %s survey", ErrInvalidTransition, s.Status)
		}
		return TransitionDecision{NewStatus: models.SurveyStatusPaused}, nil

	case models.SurveyStatusClosed:
		if s.Status == models.SurveyStatusClosed {
			return TransitionDecision{NewStatus: models.SurveyStatusClosed, NoOp: true}, nil
		}
		if s.Status != models.SurveyStatusActive && s.Status != models.SurveyStatusPaused {
			return TransitionDecision{}, fmt.Errorf("%w: cannot close a %s survey", ErrInvalidTransition, s.Status)
		}
		return TransitionDecision{NewStatus: models.SurveyStatusClosed}, nil

	case models.SurveyStatusPending:
		return TransitionDecision{}, fmt.Errorf("%w: cannot move a survey back to pending", ErrInvalidTransition)

	default:
		return TransitionDecision{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
}

// DueForAutoClose reports whether the sweep should request a close for the
// survey at the given instant. Pending surveys are never touched here:
// crossing StartAt does not auto-activate, activation is always manual.
func DueForAutoClose(s *models.Survey, now time.Time) bool {
	if s.Status != models.SurveyStatusActive && s.Status != models.SurveyStatusPaused {
		return false
	}
	return s.EndAt != nil && !now.Before(*s.EndAt)
}
