package surveys

import (
	"context"
	"sync"
	"testing"
	"time"

	"surveyhub-backend/src/models"
	"surveyhub-backend/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore keeps surveys in memory with real CAS semantics. onGet runs after
// each read, which lets a test commit a competing write in the window between
// read and CAS.
type fakeStore struct {
	mu      sync.Mutex
	surveys map[primitive.ObjectID]*models.Survey
	onGet   func(*fakeStore, primitive.ObjectID)
}

func newFakeStore(svs ...*models.Survey) *fakeStore {
	f := &fakeStore{surveys: make(map[primitive.ObjectID]*models.Survey)}
	for _, sv := range svs {
		f.surveys[sv.ID] = sv
	}
	return f
}

func (f *fakeStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	f.mu.Lock()
	sv, ok := f.surveys[id]
	if !ok {
		f.mu.Unlock()
		return nil, ErrSurveyNotFound
	}
	cp := *sv
	f.mu.Unlock()

	if f.onGet != nil {
		f.onGet(f, id)
	}
	return &cp, nil
}

func (f *fakeStore) UpdateCAS(ctx context.Context, id primitive.ObjectID, version int64, set bson.M) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sv, ok := f.surveys[id]
	if !ok || sv.Version != version {
		return false, nil
	}
	if status, ok := set["status"].(string); ok {
		sv.Status = status
	}
	if allow, ok := set["allowReview"].(bool); ok {
		sv.AllowReview = allow
	}
	if at, ok := set["updatedAt"].(time.Time); ok {
		sv.UpdatedAt = at
	}
	sv.Version++
	return true, nil
}

func (f *fakeStore) ListDueForClose(ctx context.Context, now time.Time) ([]models.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.Survey
	for _, sv := range f.surveys {
		if DueForAutoClose(sv, now) {
			due = append(due, *sv)
		}
	}
	return due, nil
}

func newTestService(store SurveyStore, now time.Time) *Service {
	svc := NewService(store)
	svc.now = func() time.Time { return now }
	return svc
}

func activeSurvey(endAt *time.Time) *models.Survey {
	return &models.Survey{
		ID:      primitive.NewObjectID(),
		Title:   "Course Feedback",
		Status:  models.SurveyStatusActive,
		Version: 3,
		EndAt:   endAt,
	}
}

func TestChangeStatus(t *testing.T) {
	now := *ts("2026-06-15T12:00:00Z")

	t.Run("PauseBumpsVersion", func(t *testing.T) {
		sv := activeSurvey(nil)
		svc := newTestService(newFakeStore(sv), now)

		got, warning, err := svc.ChangeStatus(context.Background(), sv.ID, models.SurveyStatusPaused)
		require.NoError(t, err)
		assert.Empty(t, warning)
		assert.Equal(t, models.SurveyStatusPaused, got.Status)
		assert.Equal(t, int64(4), got.Version)
	})

	t.Run("CloseClosedDoesNotBumpVersion", func(t *testing.T) {
		sv := activeSurvey(nil)
		sv.Status = models.SurveyStatusClosed
		store := newFakeStore(sv)
		svc := newTestService(store, now)

		got, warning, err := svc.ChangeStatus(context.Background(), sv.ID, models.SurveyStatusClosed)
		require.NoError(t, err)
		assert.Equal(t, "survey is already closed", warning)
		assert.Equal(t, int64(3), got.Version)
		assert.Equal(t, int64(3), store.surveys[sv.ID].Version)
	})

	t.Run("ConcurrentWriteIsStaleVersion", func(t *testing.T) {
		sv := activeSurvey(nil)
		store := newFakeStore(sv)
		// A competing writer commits between the read and the CAS.
		fired := false
		store.onGet = func(f *fakeStore, id primitive.ObjectID) {
			if fired {
				return
			}
			fired = true
			ok, err := f.UpdateCAS(context.Background(), id, 3, bson.M{"status": models.SurveyStatusClosed})
			require.NoError(t, err)
			require.True(t, ok)
		}
		svc := newTestService(store, now)

		_, _, err := svc.ChangeStatus(context.Background(), sv.ID, models.SurveyStatusPaused)
		assert.ErrorIs(t, err, ErrStaleVersion)
		assert.Equal(t, models.SurveyStatusClosed, store.surveys[sv.ID].Status)
	})

	t.Run("HeldLockIsOperationInProgress", func(t *testing.T) {
		sv := activeSurvey(nil)
		svc := newTestService(newFakeStore(sv), now)

		require.True(t, utils.TryLock(lockKey(sv.ID), time.Minute))
		defer utils.Unlock(lockKey(sv.ID))

		_, _, err := svc.ChangeStatus(context.Background(), sv.ID, models.SurveyStatusPaused)
		assert.ErrorIs(t, err, ErrOperationInProgress)
	})

	t.Run("ActivationSchedulesClose", func(t *testing.T) {
		sv := activeSurvey(ts("2026-06-20T00:00:00Z"))
		sv.Status = models.SurveyStatusPending
		svc := newTestService(newFakeStore(sv), now)

		var scheduled *models.Survey
		svc.SetCloseScheduler(func(s *models.Survey) { scheduled = s })

		got, _, err := svc.ChangeStatus(context.Background(), sv.ID, models.SurveyStatusActive)
		require.NoError(t, err)
		require.NotNil(t, scheduled)
		assert.Equal(t, got.ID, scheduled.ID)
	})

	t.Run("CommittedWriteDropsCachedCopy", func(t *testing.T) {
		sv := activeSurvey(nil)
		svc := newTestService(newFakeStore(sv), now)

		dropped := 0
		svc.SetCacheInvalidator(func(primitive.ObjectID) { dropped++ })

		_, _, err := svc.ChangeStatus(context.Background(), sv.ID, models.SurveyStatusPaused)
		require.NoError(t, err)
		assert.Equal(t, 1, dropped)
	})

	t.Run("IdempotentCloseDoesNotDropCache", func(t *testing.T) {
		sv := activeSurvey(nil)
		sv.Status = models.SurveyStatusClosed
		svc := newTestService(newFakeStore(sv), now)

		dropped := 0
		svc.SetCacheInvalidator(func(primitive.ObjectID) { dropped++ })

		_, _, err := svc.ChangeStatus(context.Background(), sv.ID, models.SurveyStatusClosed)
		require.NoError(t, err)
		assert.Zero(t, dropped)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := newTestService(newFakeStore(), now)
		_, _, err := svc.ChangeStatus(context.Background(), primitive.NewObjectID(), models.SurveyStatusPaused)
		assert.ErrorIs(t, err, ErrSurveyNotFound)
	})
}

func TestToggleReview(t *testing.T) {
	now := *ts("2026-06-15T12:00:00Z")

	t.Run("FlipBumpsVersion", func(t *testing.T) {
		sv := activeSurvey(nil)
		svc := newTestService(newFakeStore(sv), now)

		got, err := svc.ToggleReview(context.Background(), sv.ID, true)
		require.NoError(t, err)
		assert.True(t, got.AllowReview)
		assert.Equal(t, int64(4), got.Version)
	})

	t.Run("SameValueIsNoOp", func(t *testing.T) {
		sv := activeSurvey(nil)
		sv.AllowReview = true
		svc := newTestService(newFakeStore(sv), now)

		got, err := svc.ToggleReview(context.Background(), sv.ID, true)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Version)
	})
}

func TestAutoCloseAndSweep(t *testing.T) {
	now := *ts("2026-06-15T12:00:00Z")

	t.Run("ClosesDueSurvey", func(t *testing.T) {
		sv := activeSurvey(ts("2026-06-15T11:00:00Z"))
		store := newFakeStore(sv)
		svc := newTestService(store, now)

		require.NoError(t, svc.AutoClose(context.Background(), sv.ID))
		assert.Equal(t, models.SurveyStatusClosed, store.surveys[sv.ID].Status)
		assert.Equal(t, int64(4), store.surveys[sv.ID].Version)
	})

	t.Run("NotDueIsNoOp", func(t *testing.T) {
		sv := activeSurvey(ts("2026-06-16T00:00:00Z"))
		store := newFakeStore(sv)
		svc := newTestService(store, now)

		require.NoError(t, svc.AutoClose(context.Background(), sv.ID))
		assert.Equal(t, models.SurveyStatusActive, store.surveys[sv.ID].Status)
	})

	t.Run("DeletedSurveyIsNoOp", func(t *testing.T) {
		svc := newTestService(newFakeStore(), now)
		assert.NoError(t, svc.AutoClose(context.Background(), primitive.NewObjectID()))
	})

	t.Run("SweepClosesOnlyDue", func(t *testing.T) {
		dueActive := activeSurvey(ts("2026-06-15T11:00:00Z"))
		duePaused := activeSurvey(ts("2026-06-15T10:00:00Z"))
		duePaused.Status = models.SurveyStatusPaused
		notDue := activeSurvey(ts("2026-06-16T00:00:00Z"))
		pending := &models.Survey{
			ID:      primitive.NewObjectID(),
			Status:  models.SurveyStatusPending,
			Version: 1,
			StartAt: ts("2026-06-01T00:00:00Z"),
			EndAt:   ts("2026-06-10T00:00:00Z"),
		}
		store := newFakeStore(dueActive, duePaused, notDue, pending)
		svc := newTestService(store, now)

		closed := svc.SweepOnce(context.Background())
		assert.Equal(t, 2, closed)
		assert.Equal(t, models.SurveyStatusClosed, store.surveys[dueActive.ID].Status)
		assert.Equal(t, models.SurveyStatusClosed, store.surveys[duePaused.ID].Status)
		assert.Equal(t, models.SurveyStatusActive, store.surveys[notDue.ID].Status)
		// A pending survey past its whole window still is not activated or closed.
		assert.Equal(t, models.SurveyStatusPending, store.surveys[pending.ID].Status)
	})

	t.Run("SweepDropsCachedCopy", func(t *testing.T) {
		due := activeSurvey(ts("2026-06-15T11:00:00Z"))
		notDue := activeSurvey(ts("2026-06-16T00:00:00Z"))
		svc := newTestService(newFakeStore(due, notDue), now)

		var dropped []primitive.ObjectID
		svc.SetCacheInvalidator(func(id primitive.ObjectID) { dropped = append(dropped, id) })

		require.Equal(t, 1, svc.SweepOnce(context.Background()))
		assert.Equal(t, []primitive.ObjectID{due.ID}, dropped)
	})

	t.Run("SweepIsIdempotent", func(t *testing.T) {
		sv := activeSurvey(ts("2026-06-15T11:00:00Z"))
		store := newFakeStore(sv)
		svc := newTestService(store, now)

		assert.Equal(t, 1, svc.SweepOnce(context.Background()))
		assert.Equal(t, 0, svc.SweepOnce(context.Background()))
		assert.Equal(t, int64(4), store.surveys[sv.ID].Version)
	})
}
