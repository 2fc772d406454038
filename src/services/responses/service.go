package responses

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"surveyhub-backend/src/models"
	"surveyhub-backend/src/services/questions"
	"surveyhub-backend/src/services/surveys"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrSurveyClosed     = errors.New("survey is closed")
	ErrNotEligible      = errors.New("not eligible to respond to this survey")
	ErrAuthRequired     = errors.New("authentication required for this survey")
	ErrAlreadySubmitted = errors.New("a response has already been submitted")
)

// SurveyDirectory resolves the survey and its questions for a session. It is
// an interface so tests can run the controller against fixtures.
type SurveyDirectory interface {
	Survey(ctx context.Context, id primitive.ObjectID) (*models.Survey, error)
	Questions(ctx context.Context, surveyID primitive.ObjectID) ([]models.Question, error)
}

// Service is the response session controller. All deadline checks read the
// injected clock, never a client-reported one.
type Service struct {
	store           SessionStore
	dir             SurveyDirectory
	now             func() time.Time
	newID           func() string
	allowPausedJoin bool
	scheduleExpiry  func(*models.ResponseSession)
}

// NewService wires a session controller with a real clock and uuid ids.
func NewService(store SessionStore, dir SurveyDirectory) *Service {
	return &Service{
		store: store,
		dir:   dir,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SetExpiryScheduler installs the hook that enqueues the delayed expiry task
// for time-limited sessions.
func (s *Service) SetExpiryScheduler(fn func(*models.ResponseSession)) {
	s.scheduleExpiry = fn
}

// StartSessionResult is what a respondent gets back when a session opens or
// resumes: the session id, the full question set and the seconds left on the
// clock (nil when the survey has no time limit).
type StartSessionResult struct {
	Session          *models.ResponseSession `json:"session"`
	Questions        []models.Question       `json:"questions"`
	RemainingSeconds *int                    `json:"remainingSeconds,omitempty"`
	Resumed          bool                    `json:"resumed"`
}

// SubmitResult is the outcome of a committed submission.
type SubmitResult struct {
	ResponseID primitive.ObjectID `json:"responseId"`
	TotalScore int                `json:"totalScore"`
	MaxScore   int                `json:"maxScore"`
	Warnings   []string           `json:"warnings,omitempty"`
	Forced     bool               `json:"forced"`
}

// StartSession opens (or resumes) a response session after the eligibility
// gate: the survey must be joinable in its current status, the respondent must
// match the audience, and a quiz join credential must redeem. A respondent who
// already submitted is turned away.
func (s *Service) StartSession(ctx context.Context, surveyID, userID primitive.ObjectID, role, joinCredential string) (*StartSessionResult, error) {
	sv, err := s.dir.Survey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if err := s.checkJoinable(sv, now); err != nil {
		return nil, err
	}
	if err := s.checkAudience(sv, userID, role); err != nil {
		return nil, err
	}

	if joinCredential != "" {
		if err := s.redeemCredential(ctx, sv, joinCredential, now); err != nil {
			return nil, err
		}
	}

	qs, err := s.dir.Questions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	// An anonymous respondent on a public survey gets a fresh identity per
	// session; resume and submit-once only apply to identified users.
	anonymous := userID.IsZero()
	if !anonymous {
		prev, err := s.store.FindResponse(ctx, surveyID, userID)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return nil, ErrAlreadySubmitted
		}

		if open, err := s.store.FindOpenSession(ctx, surveyID, userID); err != nil {
			return nil, err
		} else if open != nil {
			if open.Expired(now) {
				if _, err := s.finalize(ctx, open, true); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
					return nil, err
				}
				return nil, ErrAlreadySubmitted
			}
			return &StartSessionResult{
				Session:          open,
				Questions:        qs,
				RemainingSeconds: remainingSeconds(open, now),
				Resumed:          true,
			}, nil
		}
	} else {
		userID = primitive.NewObjectID()
	}

	sess := &models.ResponseSession{
		ID:        s.newID(),
		SurveyID:  surveyID,
		UserID:    userID,
		Status:    models.SessionInProgress,
		StartedAt: now,
		UpdatedAt: now,
	}
	if sv.TimeLimit > 0 {
		exp := now.Add(time.Duration(sv.TimeLimit) * time.Minute)
		sess.ExpiresAt = &exp
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	if sess.ExpiresAt != nil && s.scheduleExpiry != nil {
		s.scheduleExpiry(sess)
	}

	return &StartSessionResult{
		Session:          sess,
		Questions:        qs,
		RemainingSeconds: remainingSeconds(sess, now),
	}, nil
}

func remainingSeconds(sess *models.ResponseSession, now time.Time) *int {
	if sess.ExpiresAt == nil {
		return nil
	}
	secs := int(sess.ExpiresAt.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// checkJoinable applies the status gate. A survey whose end time has passed is
// treated as closed even if the sweep has not caught up with it yet.
func (s *Service) checkJoinable(sv *models.Survey, now time.Time) error {
	if sv.Status == models.SurveyStatusClosed {
		return ErrSurveyClosed
	}
	if sv.EndAt != nil && !now.Before(*sv.EndAt) {
		return ErrSurveyClosed
	}
	switch sv.Status {
	case models.SurveyStatusActive:
		return nil
	case models.SurveyStatusPaused:
		if s.allowPausedJoin {
			return nil
		}
		return ErrNotEligible
	default:
		return ErrNotEligible
	}
}

func (s *Service) checkAudience(sv *models.Survey, userID primitive.ObjectID, role string) error {
	if sv.Object == models.AudiencePublic {
		return nil
	}
	if userID.IsZero() {
		return ErrAuthRequired
	}
	switch sv.Object {
	case models.AudienceStudents:
		if role != "Student" {
			return ErrNotEligible
		}
	case models.AudienceLecturers:
		if role != "Lecturer" {
			return ErrNotEligible
		}
	}
	return nil
}

// redeemCredential verifies and consumes a "<id>.<secret>" join credential.
// The redeem is a conditional write so a credential is spent exactly once.
func (s *Service) redeemCredential(ctx context.Context, sv *models.Survey, credential string, now time.Time) error {
	idHex, secret, found := strings.Cut(credential, ".")
	if !found {
		return ErrNotEligible
	}
	tokenID, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return ErrNotEligible
	}

	token, err := s.store.GetJoinToken(ctx, tokenID)
	if err != nil {
		return err
	}
	if token == nil || token.SurveyID != sv.ID || token.Used || !now.Before(token.ExpiresAt) {
		return ErrNotEligible
	}
	if bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(secret)) != nil {
		return ErrNotEligible
	}

	ok, err := s.store.RedeemJoinToken(ctx, tokenID, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotEligible
	}
	return nil
}

// SubmitAnswer stores the latest raw value for one question of an open
// session, replacing any earlier value. The value is normalized eagerly so a
// malformed answer is rejected while the respondent can still fix it.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID string, questionID primitive.ObjectID, raw models.RawAnswer) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != models.SessionInProgress {
		return ErrAlreadySubmitted
	}
	now := s.now()
	if sess.Expired(now) {
		if _, err := s.finalize(ctx, sess, true); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
			log.Println("⚠️ forced submit on expired session failed:", err)
		}
		return ErrAlreadySubmitted
	}

	qs, err := s.dir.Questions(ctx, sess.SurveyID)
	if err != nil {
		return err
	}
	var q *models.Question
	for i := range qs {
		if qs[i].ID == questionID {
			q = &qs[i]
			break
		}
	}
	if q == nil {
		return fmt.Errorf("question %s does not belong to this survey", questionID.Hex())
	}
	if _, err := NormalizeAnswer(q, raw); err != nil {
		return &ValidationError{Fields: []FieldError{{QuestionID: questionID.Hex(), Message: err.Error()}}}
	}

	return s.store.SaveAnswer(ctx, sessionID, questionID.Hex(), raw)
}

// SubmitResponse finalizes a session. If the server-side deadline has passed
// the submission is forced: whatever is stored commits as-is, skipping the
// hard-required check. An already-completed session reports ALREADY_SUBMITTED
// no matter who completed it.
func (s *Service) SubmitResponse(ctx context.Context, sessionID string) (*SubmitResult, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, ErrAlreadySubmitted
	}
	return s.finalize(ctx, sess, sess.Expired(s.now()))
}

// ExpireSession is the delayed-task entry point. A session already completed
// by a manual submit is a no-op, not an error.
func (s *Service) ExpireSession(ctx context.Context, sessionID string) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			log.Println("⚠️ expire task for unknown session, skipping:", sessionID)
			return nil
		}
		return err
	}
	if sess.Status != models.SessionInProgress {
		return nil
	}
	if !sess.Expired(s.now()) {
		return nil
	}
	if _, err := s.finalize(ctx, sess, true); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			return nil
		}
		return err
	}
	log.Println("✅ session auto-submitted at deadline:", sessionID)
	return nil
}

// finalize runs the full submission pipeline: normalize every stored value,
// evaluate visibility, enforce required levels, score, then commit behind the
// submit-once guard. On a forced submit malformed answers are dropped and the
// hard-required check is skipped; otherwise any failure commits nothing.
func (s *Service) finalize(ctx context.Context, sess *models.ResponseSession, forced bool) (*SubmitResult, error) {
	sv, err := s.dir.Survey(ctx, sess.SurveyID)
	if err != nil {
		return nil, err
	}
	qs, err := s.dir.Questions(ctx, sess.SurveyID)
	if err != nil {
		return nil, err
	}

	byHex := make(map[string]*models.Question, len(qs))
	for i := range qs {
		byHex[qs[i].ID.Hex()] = &qs[i]
	}

	normalized := make(map[string][]models.Answer)
	var fieldErrs []FieldError
	for hex, raw := range sess.Answers {
		q, ok := byHex[hex]
		if !ok {
			continue
		}
		rows, err := NormalizeAnswer(q, raw)
		if err != nil {
			if forced {
				log.Println("⚠️ dropping malformed answer on forced submit:", hex, err)
				continue
			}
			fieldErrs = append(fieldErrs, FieldError{QuestionID: hex, Message: err.Error()})
			continue
		}
		if len(rows) > 0 {
			normalized[hex] = rows
		}
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	visible := VisibleQuestions(qs, normalized)
	warnings, err := CheckRequired(visible, normalized)
	if err != nil && !forced {
		return nil, err
	}

	score := ScoreResponse(sv, visible, normalized)

	now := s.now()
	won, err := s.store.CompleteSession(ctx, sess.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrAlreadySubmitted
	}

	resp := &models.Response{
		ID:             primitive.NewObjectID(),
		SurveyID:       sess.SurveyID,
		UserID:         sess.UserID,
		Status:         models.ResponseCompleted,
		TotalScore:     score.Total,
		MaxScore:       score.Max,
		QuestionScores: score.PerQuestion,
		SubmittedAt:    now,
		CreatedAt:      now,
	}

	var rows []models.Answer
	for _, q := range visible {
		for _, row := range normalized[q.ID.Hex()] {
			row.ID = primitive.NewObjectID()
			row.ResponseID = resp.ID
			rows = append(rows, row)
		}
	}
	if err := s.store.InsertResponse(ctx, resp, rows); err != nil {
		return nil, err
	}

	return &SubmitResult{
		ResponseID: resp.ID,
		TotalScore: score.Total,
		MaxScore:   score.Max,
		Warnings:   warnings,
		Forced:     forced,
	}, nil
}

// GetResult returns a respondent's committed response with the answers
// rebuilt into their client shape. Quiz scores are withheld unless the survey
// allows review.
func (s *Service) GetResult(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.Response, map[string]models.RawAnswer, error) {
	resp, err := s.store.FindResponse(ctx, surveyID, userID)
	if err != nil {
		return nil, nil, err
	}
	if resp == nil {
		return nil, nil, ErrSessionNotFound
	}

	sv, err := s.dir.Survey(ctx, surveyID)
	if err != nil {
		return nil, nil, err
	}
	if sv.IsQuiz() && !sv.AllowReview {
		resp.TotalScore = 0
		resp.MaxScore = 0
		resp.QuestionScores = nil
	}

	qs, err := s.dir.Questions(ctx, surveyID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.store.ListAnswers(ctx, resp.ID)
	if err != nil {
		return nil, nil, err
	}

	grouped := make(map[string][]models.Answer)
	for _, row := range rows {
		hex := row.QuestionID.Hex()
		grouped[hex] = append(grouped[hex], row)
	}

	answers := make(map[string]models.RawAnswer)
	for i := range qs {
		hex := qs[i].ID.Hex()
		if g, ok := grouped[hex]; ok {
			answers[hex] = DenormalizeAnswer(&qs[i], g)
		}
	}
	return resp, answers, nil
}

// ---- package-level wiring ----

type liveDirectory struct{}

func (liveDirectory) Survey(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	return surveys.GetSurveyByID(ctx, id)
}

func (liveDirectory) Questions(ctx context.Context, surveyID primitive.ObjectID) ([]models.Question, error) {
	return questions.ListSurveyQuestions(ctx, surveyID)
}

var defaultService *Service

// Init wires the default controller against Mongo. Call after the database
// package is connected.
func Init() {
	defaultService = NewService(NewMongoSessionStore(), liveDirectory{})
	defaultService.allowPausedJoin = os.Getenv("SURVEY_ALLOW_PAUSED_JOIN") == "true"
	defaultService.SetExpiryScheduler(ScheduleSessionExpiryJob)
}

// Default returns the controller wired by Init.
func Default() *Service {
	return defaultService
}

func StartSession(ctx context.Context, surveyID, userID primitive.ObjectID, role, joinCredential string) (*StartSessionResult, error) {
	return defaultService.StartSession(ctx, surveyID, userID, role, joinCredential)
}

func SubmitAnswer(ctx context.Context, sessionID string, questionID primitive.ObjectID, raw models.RawAnswer) error {
	return defaultService.SubmitAnswer(ctx, sessionID, questionID, raw)
}

func SubmitResponse(ctx context.Context, sessionID string) (*SubmitResult, error) {
	return defaultService.SubmitResponse(ctx, sessionID)
}

func GetResult(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.Response, map[string]models.RawAnswer, error) {
	return defaultService.GetResult(ctx, surveyID, userID)
}
