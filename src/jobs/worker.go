package jobs

import (
	"context"
	"encoding/json"
	"log"
	"time"

	DB "surveyhub-backend/src/database"
	"surveyhub-backend/src/models"
	"surveyhub-backend/src/utils"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleCloseSurveyTask closes a survey whose end time has passed. The write
// is a single conditional update so it cannot race a concurrent manual
// transition: if the survey moved on (or was deleted) in the meantime the
// task is simply done.
func HandleCloseSurveyTask(ctx context.Context, t *asynq.Task) error {
	var payload SurveyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	surveyID, err := primitive.ObjectIDFromHex(payload.SurveyID)
	if err != nil {
		return err
	}
	log.Println("⏰ Closing survey:", payload.SurveyID)

	now := time.Now()
	res, err := DB.SurveyCollection.UpdateOne(ctx,
		bson.M{
			"_id":       surveyID,
			"status":    bson.M{"$in": []string{models.SurveyStatusActive, models.SurveyStatusPaused}},
			"endAt":     bson.M{"$lte": now},
			"deletedAt": nil,
		},
		bson.M{
			"$set": bson.M{"status": models.SurveyStatusClosed, "updatedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		log.Println("⚠️ Survey not due for close anymore, skipping:", payload.SurveyID)
		return nil
	}

	utils.DelCache("survey:" + payload.SurveyID)
	log.Println("✅ Survey closed:", payload.SurveyID)
	return nil
}

// RegisterSurveyHandlers attaches the survey lifecycle task handlers.
func RegisterSurveyHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCloseSurvey, HandleCloseSurveyTask)
}
