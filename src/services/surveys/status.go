package surveys

import (
	"context"
	"log"
	"time"

	"surveyhub-backend/src/models"
	"surveyhub-backend/src/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const transitionLockTTL = 10 * time.Second

// Service owns guarded survey mutations: status transitions and the review
// flag. Every write goes through the per-survey advisory lock plus the
// optimistic version check, so a losing concurrent writer fails fast instead
// of overwriting.
type Service struct {
	store SurveyStore
	now   func() time.Time

	// scheduleClose, when set, enqueues the delayed auto-close task after a
	// survey becomes active with a future end time.
	scheduleClose func(*models.Survey)

	// invalidate, when set, drops the cached copy of a survey after every
	// committed write, the sweep's auto-closes included.
	invalidate func(primitive.ObjectID)
}

// NewService builds a lifecycle service over the given store.
func NewService(store SurveyStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// SetCloseScheduler wires the delayed-task hook (nil disables scheduling).
func (s *Service) SetCloseScheduler(fn func(*models.Survey)) {
	s.scheduleClose = fn
}

// SetCacheInvalidator wires the cache-drop hook (nil disables it).
func (s *Service) SetCacheInvalidator(fn func(primitive.ObjectID)) {
	s.invalidate = fn
}

func (s *Service) dropCached(id primitive.ObjectID) {
	if s.invalidate != nil {
		s.invalidate(id)
	}
}

func lockKey(id primitive.ObjectID) string {
	return "survey:" + id.Hex()
}

// ChangeStatus applies a manual transition. It returns the updated survey and
// an optional warning message (early activation).
func (s *Service) ChangeStatus(ctx context.Context, id primitive.ObjectID, target string) (*models.Survey, string, error) {
	if !utils.TryLock(lockKey(id), transitionLockTTL) {
		return nil, "", ErrOperationInProgress
	}
	defer utils.Unlock(lockKey(id))

	sv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	decision, err := Transition(sv, target, now)
	if err != nil {
		return nil, "", err
	}
	if decision.NoOp {
		// Closing a closed survey: success, nothing written, version untouched.
		return sv, "survey is already closed", nil
	}

	ok, err := s.store.UpdateCAS(ctx, id, sv.Version, bson.M{
		"status":    decision.NewStatus,
		"updatedAt": now,
	})
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrStaleVersion
	}

	sv.Status = decision.NewStatus
	sv.Version++
	sv.UpdatedAt = now
	s.dropCached(id)

	if decision.NewStatus == models.SurveyStatusActive && sv.EndAt != nil && sv.EndAt.After(now) && s.scheduleClose != nil {
		s.scheduleClose(sv)
	}

	return sv, decision.Warning, nil
}

// ToggleReview flips the review-permission flag under the same lock and
// version discipline. The flag is orthogonal to status; it only has an
// observable effect once the survey is closed.
func (s *Service) ToggleReview(ctx context.Context, id primitive.ObjectID, allow bool) (*models.Survey, error) {
	if !utils.TryLock(lockKey(id), transitionLockTTL) {
		return nil, ErrOperationInProgress
	}
	defer utils.Unlock(lockKey(id))

	sv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv.AllowReview == allow {
		return sv, nil
	}

	now := s.now()
	ok, err := s.store.UpdateCAS(ctx, id, sv.Version, bson.M{
		"allowReview": allow,
		"updatedAt":   now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleVersion
	}

	sv.AllowReview = allow
	sv.Version++
	sv.UpdatedAt = now
	s.dropCached(id)
	return sv, nil
}

// AutoClose closes a survey whose end boundary has been crossed. It is
// idempotent: a survey already closed (or whose boundary turns out not to be
// crossed after re-reading inside the lock) is a no-op.
func (s *Service) AutoClose(ctx context.Context, id primitive.ObjectID) error {
	if !utils.TryLock(lockKey(id), transitionLockTTL) {
		return ErrOperationInProgress
	}
	defer utils.Unlock(lockKey(id))

	sv, err := s.store.Get(ctx, id)
	if err != nil {
		if err == ErrSurveyNotFound {
			// Deleted since the sweep listed it. Nothing to do.
			return nil
		}
		return err
	}

	if !DueForAutoClose(sv, s.now()) {
		return nil
	}

	ok, err := s.store.UpdateCAS(ctx, id, sv.Version, bson.M{
		"status":    models.SurveyStatusClosed,
		"updatedAt": s.now(),
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleVersion
	}
	s.dropCached(id)

	log.Println("✅ Survey auto-closed after end time:", id.Hex())
	return nil
}
