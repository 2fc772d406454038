package responses

import (
	"context"
	"testing"
	"time"

	"surveyhub-backend/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fakeSessionStore struct {
	sessions  map[string]*models.ResponseSession
	responses []*models.Response
	answers   []models.Answer
	tokens    map[primitive.ObjectID]*models.JoinToken
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*models.ResponseSession),
		tokens:   make(map[primitive.ObjectID]*models.JoinToken),
	}
}

func (f *fakeSessionStore) InsertSession(ctx context.Context, sess *models.ResponseSession) error {
	cp := *sess
	if cp.Answers == nil {
		cp.Answers = make(map[string]models.RawAnswer)
	}
	f.sessions[sess.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, id string) (*models.ResponseSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeSessionStore) FindOpenSession(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.ResponseSession, error) {
	for _, sess := range f.sessions {
		if sess.SurveyID == surveyID && sess.UserID == userID && sess.Status == models.SessionInProgress {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) SaveAnswer(ctx context.Context, sessionID, questionHex string, raw models.RawAnswer) error {
	sess, ok := f.sessions[sessionID]
	if !ok || sess.Status != models.SessionInProgress {
		return ErrSessionNotFound
	}
	if sess.Answers == nil {
		sess.Answers = make(map[string]models.RawAnswer)
	}
	sess.Answers[questionHex] = raw
	return nil
}

func (f *fakeSessionStore) CompleteSession(ctx context.Context, id string, at time.Time) (bool, error) {
	sess, ok := f.sessions[id]
	if !ok || sess.Status != models.SessionInProgress {
		return false, nil
	}
	sess.Status = models.SessionCompleted
	sess.UpdatedAt = at
	return true, nil
}

func (f *fakeSessionStore) InsertResponse(ctx context.Context, resp *models.Response, rows []models.Answer) error {
	f.responses = append(f.responses, resp)
	f.answers = append(f.answers, rows...)
	return nil
}

func (f *fakeSessionStore) FindResponse(ctx context.Context, surveyID, userID primitive.ObjectID) (*models.Response, error) {
	for _, resp := range f.responses {
		if resp.SurveyID == surveyID && resp.UserID == userID {
			return resp, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) ListAnswers(ctx context.Context, responseID primitive.ObjectID) ([]models.Answer, error) {
	var rows []models.Answer
	for _, row := range f.answers {
		if row.ResponseID == responseID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeSessionStore) GetJoinToken(ctx context.Context, id primitive.ObjectID) (*models.JoinToken, error) {
	token, ok := f.tokens[id]
	if !ok {
		return nil, nil
	}
	cp := *token
	return &cp, nil
}

func (f *fakeSessionStore) RedeemJoinToken(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	token, ok := f.tokens[id]
	if !ok || token.Used || !now.Before(token.ExpiresAt) {
		return false, nil
	}
	token.Used = true
	return true, nil
}

type fakeDirectory struct {
	survey    *models.Survey
	questions []models.Question
}

func (f *fakeDirectory) Survey(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	cp := *f.survey
	return &cp, nil
}

func (f *fakeDirectory) Questions(ctx context.Context, surveyID primitive.ObjectID) ([]models.Question, error) {
	return f.questions, nil
}

type sessionFixture struct {
	svc   *Service
	store *fakeSessionStore
	dir   *fakeDirectory
	now   time.Time
}

func newSessionFixture(sv *models.Survey, qs ...models.Question) *sessionFixture {
	f := &sessionFixture{
		store: newFakeSessionStore(),
		dir:   &fakeDirectory{survey: sv, questions: qs},
		now:   time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.dir)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func openSurvey() *models.Survey {
	return &models.Survey{
		ID:     primitive.NewObjectID(),
		Title:  "Course Feedback",
		Type:   models.SurveyTypeNormal,
		Status: models.SurveyStatusActive,
		Object: models.AudiencePublic,
	}
}

func TestStartSessionEligibility(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()

	t.Run("ClosedSurvey", func(t *testing.T) {
		sv := openSurvey()
		sv.Status = models.SurveyStatusClosed
		f := newSessionFixture(sv)
		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		assert.ErrorIs(t, err, ErrSurveyClosed)
	})

	t.Run("PastEndTreatedAsClosed", func(t *testing.T) {
		sv := openSurvey()
		past := time.Date(2026, 6, 15, 11, 0, 0, 0, time.UTC)
		sv.EndAt = &past
		f := newSessionFixture(sv)
		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		assert.ErrorIs(t, err, ErrSurveyClosed)
	})

	t.Run("PendingSurvey", func(t *testing.T) {
		sv := openSurvey()
		sv.Status = models.SurveyStatusPending
		f := newSessionFixture(sv)
		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("PausedSurveyFollowsPolicy", func(t *testing.T) {
		sv := openSurvey()
		sv.Status = models.SurveyStatusPaused
		f := newSessionFixture(sv)
		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		assert.ErrorIs(t, err, ErrNotEligible)

		f.svc.allowPausedJoin = true
		_, err = f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		assert.NoError(t, err)
	})

	t.Run("AnonymousOnGatedSurvey", func(t *testing.T) {
		sv := openSurvey()
		sv.Object = models.AudienceStudents
		f := newSessionFixture(sv)
		_, err := f.svc.StartSession(ctx, sv.ID, primitive.NilObjectID, "", "")
		assert.ErrorIs(t, err, ErrAuthRequired)
	})

	t.Run("WrongRole", func(t *testing.T) {
		sv := openSurvey()
		sv.Object = models.AudienceLecturers
		f := newSessionFixture(sv)
		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("AnonymousOnPublicSurvey", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)
		result, err := f.svc.StartSession(ctx, sv.ID, primitive.NilObjectID, "", "")
		require.NoError(t, err)
		assert.False(t, result.Session.UserID.IsZero())
	})
}

func TestStartSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()

	t.Run("TimeLimitSetsDeadline", func(t *testing.T) {
		sv := openSurvey()
		sv.TimeLimit = 10
		f := newSessionFixture(sv)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		require.NotNil(t, result.Session.ExpiresAt)
		assert.Equal(t, f.now.Add(10*time.Minute), *result.Session.ExpiresAt)
		require.NotNil(t, result.RemainingSeconds)
		assert.Equal(t, 600, *result.RemainingSeconds)
	})

	t.Run("ResumeReturnsSameSession", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)

		first, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		second, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		assert.True(t, second.Resumed)
		assert.Equal(t, first.Session.ID, second.Session.ID)
	})

	t.Run("AfterSubmitStartIsRejected", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		_, err = f.svc.SubmitResponse(ctx, result.Session.ID)
		require.NoError(t, err)

		_, err = f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
	})
}

func TestJoinCredential(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()

	mint := func(f *sessionFixture, surveyID primitive.ObjectID) string {
		secret := "s3cret"
		hash, _ := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
		token := &models.JoinToken{
			ID:         primitive.NewObjectID(),
			SurveyID:   surveyID,
			SecretHash: string(hash),
			ExpiresAt:  f.now.Add(time.Hour),
		}
		f.store.tokens[token.ID] = token
		return token.ID.Hex() + "." + secret
	}

	t.Run("ValidCredentialIsSingleUse", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)
		credential := mint(f, sv.ID)

		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", credential)
		require.NoError(t, err)

		_, err = f.svc.StartSession(ctx, sv.ID, primitive.NewObjectID(), "Student", credential)
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("WrongSecretRejected", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)
		credential := mint(f, sv.ID)
		idHex := credential[:len(credential)-len(".s3cret")]

		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", idHex+".wrong")
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("CredentialForOtherSurveyRejected", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)
		credential := mint(f, primitive.NewObjectID())

		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", credential)
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("MalformedCredentialRejected", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)
		_, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "garbage")
		assert.ErrorIs(t, err, ErrNotEligible)
	})
}

func TestSubmitAnswer(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()

	t.Run("ReplacesEarlierValue", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		sv := openSurvey()
		f := newSessionFixture(sv, *q)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		sessID := result.Session.ID

		require.NoError(t, f.svc.SubmitAnswer(ctx, sessID, q.ID, models.RawAnswer{OptionIDs: []string{q.Options[0].ID.Hex()}}))
		require.NoError(t, f.svc.SubmitAnswer(ctx, sessID, q.ID, models.RawAnswer{OptionIDs: []string{q.Options[1].ID.Hex()}}))

		stored := f.store.sessions[sessID].Answers[q.ID.Hex()]
		assert.Equal(t, []string{q.Options[1].ID.Hex()}, stored.OptionIDs)
	})

	t.Run("MalformedValueRejected", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		sv := openSurvey()
		f := newSessionFixture(sv, *q)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)

		err = f.svc.SubmitAnswer(ctx, result.Session.ID, q.ID, models.RawAnswer{
			OptionIDs: []string{primitive.NewObjectID().Hex()},
		})
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("UnknownQuestionRejected", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)

		err = f.svc.SubmitAnswer(ctx, result.Session.ID, primitive.NewObjectID(), models.RawAnswer{Text: "x"})
		assert.Error(t, err)
	})

	t.Run("ExpiredSessionForcesSubmit", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		sv := openSurvey()
		sv.TimeLimit = 10
		f := newSessionFixture(sv, *q)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		sessID := result.Session.ID
		require.NoError(t, f.svc.SubmitAnswer(ctx, sessID, q.ID, models.RawAnswer{OptionIDs: []string{q.Options[0].ID.Hex()}}))

		f.now = f.now.Add(11 * time.Minute)
		err = f.svc.SubmitAnswer(ctx, sessID, q.ID, models.RawAnswer{OptionIDs: []string{q.Options[1].ID.Hex()}})
		assert.ErrorIs(t, err, ErrAlreadySubmitted)

		// The earlier value was committed by the forced submit.
		assert.Equal(t, models.SessionCompleted, f.store.sessions[sessID].Status)
		require.Len(t, f.store.responses, 1)
	})
}

func TestSubmitResponse(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()

	t.Run("HardRequiredMissingBlocks", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		q.Required = models.RequiredHard
		sv := openSurvey()
		f := newSessionFixture(sv, *q)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)

		_, err = f.svc.SubmitResponse(ctx, result.Session.ID)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{q.ID.Hex()}, vErr.QuestionIDs())
		assert.Empty(t, f.store.responses)
	})

	t.Run("DoubleSubmitRejected", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		_, err = f.svc.SubmitResponse(ctx, result.Session.ID)
		require.NoError(t, err)

		_, err = f.svc.SubmitResponse(ctx, result.Session.ID)
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		assert.Len(t, f.store.responses, 1)
	})

	t.Run("BranchingDropsHiddenAnswers", func(t *testing.T) {
		q1, q2, q3, _ := branchedSurvey()
		sv := openSurvey()
		f := newSessionFixture(sv, q1, q2, q3)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		sessID := result.Session.ID

		// Answer "No" first (shows Q2), answer Q2, then flip to "Yes".
		require.NoError(t, f.svc.SubmitAnswer(ctx, sessID, q1.ID, models.RawAnswer{OptionIDs: []string{q1.Options[1].ID.Hex()}}))
		require.NoError(t, f.svc.SubmitAnswer(ctx, sessID, q2.ID, models.RawAnswer{Text: "too early"}))
		require.NoError(t, f.svc.SubmitAnswer(ctx, sessID, q1.ID, models.RawAnswer{OptionIDs: []string{q1.Options[0].ID.Hex()}}))

		// Q2 is hard-required but hidden now, so the submit goes through and
		// its stale answer is not persisted.
		submit, err := f.svc.SubmitResponse(ctx, sessID)
		require.NoError(t, err)
		assert.False(t, submit.Forced)

		for _, row := range f.store.answers {
			assert.NotEqual(t, q2.ID, row.QuestionID)
		}
	})

	t.Run("QuizScoresPersisted", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		q.Points = 10
		q.Options[1].IsCorrect = true
		sv := openSurvey()
		sv.Type = models.SurveyTypeQuiz
		f := newSessionFixture(sv, *q)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		require.NoError(t, f.svc.SubmitAnswer(ctx, result.Session.ID, q.ID, models.RawAnswer{OptionIDs: []string{q.Options[1].ID.Hex()}}))

		submit, err := f.svc.SubmitResponse(ctx, result.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, submit.TotalScore)
		assert.Equal(t, 10, submit.MaxScore)
		require.Len(t, f.store.responses, 1)
		assert.Equal(t, 10, f.store.responses[0].TotalScore)
	})

	t.Run("ExpiredSubmitIsForcedAndSkipsHardCheck", func(t *testing.T) {
		q := choiceQuestion(models.SingleChoice, "A", "B")
		q.Required = models.RequiredHard
		sv := openSurvey()
		sv.TimeLimit = 5
		f := newSessionFixture(sv, *q)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)

		f.now = f.now.Add(6 * time.Minute)
		submit, err := f.svc.SubmitResponse(ctx, result.Session.ID)
		require.NoError(t, err)
		assert.True(t, submit.Forced)
		assert.Len(t, f.store.responses, 1)
	})
}

func TestExpireSession(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()

	t.Run("ForcesSubmitAtDeadline", func(t *testing.T) {
		sv := openSurvey()
		sv.TimeLimit = 5
		f := newSessionFixture(sv)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)

		f.now = f.now.Add(6 * time.Minute)
		require.NoError(t, f.svc.ExpireSession(ctx, result.Session.ID))
		assert.Equal(t, models.SessionCompleted, f.store.sessions[result.Session.ID].Status)
		assert.Len(t, f.store.responses, 1)
	})

	t.Run("CompletedSessionIsNoOp", func(t *testing.T) {
		sv := openSurvey()
		f := newSessionFixture(sv)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)
		_, err = f.svc.SubmitResponse(ctx, result.Session.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.ExpireSession(ctx, result.Session.ID))
		assert.Len(t, f.store.responses, 1)
	})

	t.Run("NotYetExpiredIsNoOp", func(t *testing.T) {
		sv := openSurvey()
		sv.TimeLimit = 5
		f := newSessionFixture(sv)

		result, err := f.svc.StartSession(ctx, sv.ID, user, "Student", "")
		require.NoError(t, err)

		require.NoError(t, f.svc.ExpireSession(ctx, result.Session.ID))
		assert.Equal(t, models.SessionInProgress, f.store.sessions[result.Session.ID].Status)
	})

	t.Run("UnknownSessionIsNoOp", func(t *testing.T) {
		f := newSessionFixture(openSurvey())
		assert.NoError(t, f.svc.ExpireSession(ctx, "gone"))
	})
}
