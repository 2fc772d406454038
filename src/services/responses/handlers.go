package responses

import (
	"context"
	"encoding/json"
	"log"
	"time"

	DB "surveyhub-backend/src/database"
	"surveyhub-backend/src/jobs"
	"surveyhub-backend/src/models"
	"surveyhub-backend/src/services/surveys"

	"github.com/hibiken/asynq"
)

// ScheduleSessionExpiryJob enqueues the delayed expiry task at the session's
// deadline. Without Redis the periodic checks in the controller still catch
// expiry on the next client call.
func ScheduleSessionExpiryJob(sess *models.ResponseSession) {
	if DB.AsynqClient == nil || sess.ExpiresAt == nil {
		return
	}

	taskID := "expire-session-" + sess.ID
	task, err := jobs.NewExpireSessionTask(sess.ID)
	if err != nil {
		log.Printf("❌ Failed to create task %s: %v", taskID, err)
		return
	}

	surveys.DeleteTask(taskID, DB.RedisURI)
	if _, err := DB.AsynqClient.Enqueue(task, asynq.ProcessAt(*sess.ExpiresAt), asynq.TaskID(taskID)); err != nil {
		log.Printf("❌ Failed to enqueue task %s: %v", taskID, err)
		return
	}
	log.Printf("✅ Task scheduled: %s | RunAt=%s", taskID, sess.ExpiresAt.Format(time.RFC3339))
}

// HandleExpireSessionTask force-submits a session whose time limit has passed.
func HandleExpireSessionTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SessionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	log.Println("⏰ Expiring session:", payload.SessionID)
	return defaultService.ExpireSession(ctx, payload.SessionID)
}

// RegisterTaskHandlers attaches this package's delayed-task handlers.
func RegisterTaskHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(jobs.TypeExpireSession, HandleExpireSessionTask)
}
