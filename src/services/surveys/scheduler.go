package surveys

import (
	"context"
	"log"
	"os"
	"time"

	DB "surveyhub-backend/src/database"
	"surveyhub-backend/src/jobs"
	"surveyhub-backend/src/models"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// Scheduler is the lifecycle sweep: a background task with an explicit
// start/stop lifecycle that periodically closes surveys whose end boundary
// has been crossed. The sweep is the backstop behind the per-survey delayed
// close tasks, so a missed tick or a lost task is recovered on the next run.
//
// The sweep never activates a pending survey when its start time passes;
// activation is always a manual transition.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
	spec string
}

// NewScheduler builds a sweep over the given service. The interval comes from
// SWEEP_INTERVAL (cron "@every" syntax), defaulting to 30 seconds.
func NewScheduler(svc *Service) *Scheduler {
	spec := os.Getenv("SWEEP_INTERVAL")
	if spec == "" {
		spec = "@every 30s"
	}
	return &Scheduler{
		cron: cron.New(),
		svc:  svc,
		spec: spec,
	}
}

// Start begins the periodic sweep.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.svc.SweepOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Println("✅ Lifecycle sweep started:", s.spec)
	return nil
}

// Stop halts the sweep. Already-running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 Lifecycle sweep stopped")
}

// SweepOnce runs one sweep cycle and returns how many surveys were closed.
// Lock and version conflicts are left for the next tick, never escalated.
func (s *Service) SweepOnce(ctx context.Context) int {
	now := s.now()
	due, err := s.store.ListDueForClose(ctx, now)
	if err != nil {
		log.Println("⚠️ sweep: listing due surveys failed:", err)
		return 0
	}

	closed := 0
	for i := range due {
		sv := &due[i]
		if !DueForAutoClose(sv, now) {
			continue
		}
		if err := s.AutoClose(ctx, sv.ID); err != nil {
			log.Println("⚠️ sweep: close deferred for", sv.ID.Hex(), "-", err)
			continue
		}
		closed++
	}
	if closed > 0 {
		log.Printf("✅ sweep: closed %d survey(s)", closed)
	}
	return closed
}

// DeleteTask removes a previously scheduled task, if any.
func DeleteTask(taskID string, redisURI string) {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisURI})
	err := inspector.DeleteTask("default", taskID)
	if err != nil && err != asynq.ErrTaskNotFound {
		log.Println("⚠️ Failed to delete old task "+taskID+", then skipping:", err)
	} else if err == nil {
		log.Println("🗑️ Deleted previous task:", taskID)
	}
}

// ScheduleSurveyCloseJob enqueues the delayed auto-close task at the survey's
// end time, replacing any previously scheduled one.
func ScheduleSurveyCloseJob(sv *models.Survey) {
	if DB.AsynqClient == nil || sv.EndAt == nil {
		return
	}

	taskID := "close-survey-" + sv.ID.Hex()
	task, err := jobs.NewCloseSurveyTask(sv.ID.Hex())
	if err != nil {
		log.Printf("❌ Failed to create task %s: %v", taskID, err)
		return
	}

	DeleteTask(taskID, DB.RedisURI)
	if _, err := DB.AsynqClient.Enqueue(task, asynq.ProcessAt(*sv.EndAt), asynq.TaskID(taskID)); err != nil {
		log.Printf("❌ Failed to enqueue task %s: %v", taskID, err)
		return
	}
	log.Printf("✅ Task scheduled: %s | RunAt=%s", taskID, sv.EndAt.Format(time.RFC3339))
}
