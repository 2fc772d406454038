package questions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	DB "surveyhub-backend/src/database"
	"surveyhub-backend/src/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrGroupNotFound    = errors.New("question group not found")
	// ErrHasResponses guards structural edits: once a survey has committed
	// responses its questions and options are frozen.
	ErrHasResponses = errors.New("survey already has responses, structure is frozen")
)

// ValidateQuestion checks a question definition against its type's structural
// rules. It is pure so authoring tests can exercise every branch without a
// database.
func ValidateQuestion(q *models.Question) error {
	if q.Text == "" {
		return fmt.Errorf("question text is required")
	}

	switch q.Required {
	case "", models.RequiredNone, models.RequiredSoft, models.RequiredHard:
	default:
		return fmt.Errorf("unknown required level %q", q.Required)
	}

	selectable := q.SelectableOptions()
	subs := q.SubQuestions()

	switch {
	case q.QuestionType.IsChoiceKind():
		if len(selectable) < 2 {
			return fmt.Errorf("%s questions need at least two options", q.QuestionType)
		}
		if len(subs) > 0 {
			return fmt.Errorf("%s questions cannot have sub-questions", q.QuestionType)
		}
		if q.QuestionType == models.YesNo && len(selectable) != 2 {
			return fmt.Errorf("yes/no questions need exactly two options")
		}
		if q.MaxQuestions > 0 {
			if !q.QuestionType.IsMultiSelect() {
				return fmt.Errorf("a selection cap only applies to multi-select questions")
			}
			if q.MaxQuestions > len(selectable) {
				return fmt.Errorf("selection cap %d exceeds the %d available options", q.MaxQuestions, len(selectable))
			}
		}
	case q.QuestionType.IsMatrixKind():
		if len(subs) == 0 {
			return fmt.Errorf("%s questions need at least one sub-question", q.QuestionType)
		}
		if q.QuestionType == models.Matrix && len(selectable) == 0 {
			return fmt.Errorf("matrix questions need at least one column option")
		}
		if q.QuestionType == models.MultiShortText && len(selectable) > 0 {
			return fmt.Errorf("multi-short-text questions cannot have column options")
		}
	case q.QuestionType.IsTextual(), q.QuestionType == models.FivePointScale, q.QuestionType == models.FileUpload:
		if len(q.Options) > 0 {
			return fmt.Errorf("%s questions cannot have options", q.QuestionType)
		}
	default:
		return fmt.Errorf("unsupported question type %q", q.QuestionType)
	}

	if q.Points > 0 {
		if !q.QuestionType.IsChoiceKind() {
			return fmt.Errorf("only choice questions can carry points")
		}
		hasCorrect := false
		for _, o := range selectable {
			if o.IsCorrect {
				hasCorrect = true
				break
			}
		}
		if !hasCorrect {
			return fmt.Errorf("a scored question needs at least one correct option")
		}
	}

	for _, cond := range q.Conditions {
		if cond.Field == "" || cond.Value == "" {
			return fmt.Errorf("a visibility condition needs both a source question and a value")
		}
	}

	if q.MaxLength < 0 || q.MaxFileSizeKB < 0 || q.MaxQuestions < 0 {
		return fmt.Errorf("constraints cannot be negative")
	}
	return nil
}

func surveyHasResponses(ctx context.Context, surveyID primitive.ObjectID) (bool, error) {
	n, err := DB.ResponseCollection.CountDocuments(ctx, bson.M{"surveyId": surveyID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func guardStructure(ctx context.Context, surveyID primitive.ObjectID) error {
	frozen, err := surveyHasResponses(ctx, surveyID)
	if err != nil {
		return err
	}
	if frozen {
		return ErrHasResponses
	}
	return nil
}

// CreateGroup inserts an ordered question group.
func CreateGroup(ctx context.Context, group *models.QuestionGroup) error {
	if err := guardStructure(ctx, group.SurveyID); err != nil {
		return err
	}
	group.ID = primitive.NewObjectID()
	_, err := DB.QuestionGroupCollection.InsertOne(ctx, group)
	return err
}

// UpdateGroup renames or reorders a group.
func UpdateGroup(ctx context.Context, id primitive.ObjectID, title string, position int) error {
	res, err := DB.QuestionGroupCollection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"title": title, "position": position}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// DeleteGroup removes a group together with its questions and their options.
func DeleteGroup(ctx context.Context, id primitive.ObjectID) error {
	var group models.QuestionGroup
	if err := DB.QuestionGroupCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&group); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrGroupNotFound
		}
		return err
	}
	if err := guardStructure(ctx, group.SurveyID); err != nil {
		return err
	}

	cursor, err := DB.QuestionCollection.Find(ctx, bson.M{"groupId": id})
	if err != nil {
		return err
	}
	var qs []models.Question
	if err := cursor.All(ctx, &qs); err != nil {
		return err
	}
	for _, q := range qs {
		if _, err := DB.OptionCollection.DeleteMany(ctx, bson.M{"questionId": q.ID}); err != nil {
			return err
		}
	}
	if _, err := DB.QuestionCollection.DeleteMany(ctx, bson.M{"groupId": id}); err != nil {
		return err
	}
	_, err = DB.QuestionGroupCollection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListGroups returns a survey's groups in position order.
func ListGroups(ctx context.Context, surveyID primitive.ObjectID) ([]models.QuestionGroup, error) {
	cursor, err := DB.QuestionGroupCollection.Find(ctx,
		bson.M{"surveyId": surveyID},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var groups []models.QuestionGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// checkConditionSources verifies that every visibility condition points at an
// existing earlier question of the same survey. Self and forward references
// can never fire, so they are rejected at authoring time.
func checkConditionSources(q *models.Question, all []models.Question) error {
	byHex := make(map[string]*models.Question, len(all))
	for i := range all {
		byHex[all[i].ID.Hex()] = &all[i]
	}
	for _, cond := range q.Conditions {
		src, ok := byHex[cond.Field]
		if !ok {
			return fmt.Errorf("condition references unknown question %q", cond.Field)
		}
		if src.ID == q.ID {
			return fmt.Errorf("a question cannot depend on its own answer")
		}
		if src.Position >= q.Position {
			return fmt.Errorf("condition source %q must come before the question it controls", cond.Field)
		}
	}
	return nil
}

// CreateQuestion validates and inserts a question; its options are persisted
// separately so answer rows can reference them by id.
func CreateQuestion(ctx context.Context, q *models.Question) error {
	if err := guardStructure(ctx, q.SurveyID); err != nil {
		return err
	}
	if err := ValidateQuestion(q); err != nil {
		return err
	}
	existing, err := ListSurveyQuestions(ctx, q.SurveyID)
	if err != nil {
		return err
	}
	if err := checkConditionSources(q, existing); err != nil {
		return err
	}

	q.ID = primitive.NewObjectID()
	opts := q.Options
	q.Options = nil
	if _, err := DB.QuestionCollection.InsertOne(ctx, q); err != nil {
		return err
	}
	if err := insertOptions(ctx, q.ID, opts); err != nil {
		return err
	}
	q.Options = opts
	return nil
}

func insertOptions(ctx context.Context, questionID primitive.ObjectID, opts []models.Option) error {
	if len(opts) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(opts))
	for i := range opts {
		if opts[i].ID.IsZero() {
			opts[i].ID = primitive.NewObjectID()
		}
		opts[i].QuestionID = questionID
		docs = append(docs, opts[i])
	}
	_, err := DB.OptionCollection.InsertMany(ctx, docs)
	return err
}

// UpdateQuestion replaces a question definition and its option set.
func UpdateQuestion(ctx context.Context, q *models.Question) error {
	var current models.Question
	if err := DB.QuestionCollection.FindOne(ctx, bson.M{"_id": q.ID}).Decode(&current); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrQuestionNotFound
		}
		return err
	}
	q.SurveyID = current.SurveyID

	if err := guardStructure(ctx, q.SurveyID); err != nil {
		return err
	}
	if err := ValidateQuestion(q); err != nil {
		return err
	}
	existing, err := ListSurveyQuestions(ctx, q.SurveyID)
	if err != nil {
		return err
	}
	if err := checkConditionSources(q, existing); err != nil {
		return err
	}

	opts := q.Options
	update := bson.M{
		"groupId":          q.GroupID,
		"questionType":     q.QuestionType,
		"text":             q.Text,
		"required":         q.Required,
		"points":           q.Points,
		"position":         q.Position,
		"conditions":       q.Conditions,
		"maxLength":        q.MaxLength,
		"numericOnly":      q.NumericOnly,
		"allowedFileTypes": q.AllowedFileTypes,
		"maxFileSizeKb":    q.MaxFileSizeKB,
		"maxQuestions":     q.MaxQuestions,
	}
	if _, err := DB.QuestionCollection.UpdateOne(ctx, bson.M{"_id": q.ID}, bson.M{"$set": update}); err != nil {
		return err
	}

	// Insert the replacement set under fresh ids, then drop everything outside
	// it. A failure between the two writes leaves both sets readable instead
	// of an optionless question; the structure guard means no answer rows
	// reference the old ids.
	for i := range opts {
		opts[i].ID = primitive.NewObjectID()
	}
	if err := insertOptions(ctx, q.ID, opts); err != nil {
		return err
	}
	_, err = DB.OptionCollection.DeleteMany(ctx, bson.M{
		"questionId": q.ID,
		"_id":        bson.M{"$nin": optionIDs(opts)},
	})
	return err
}

func optionIDs(opts []models.Option) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	return ids
}

// DeleteQuestion removes a question and its options.
func DeleteQuestion(ctx context.Context, id primitive.ObjectID) error {
	var q models.Question
	if err := DB.QuestionCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrQuestionNotFound
		}
		return err
	}
	if err := guardStructure(ctx, q.SurveyID); err != nil {
		return err
	}
	if _, err := DB.OptionCollection.DeleteMany(ctx, bson.M{"questionId": id}); err != nil {
		return err
	}
	_, err := DB.QuestionCollection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListSurveyQuestions returns a survey's questions in position order with
// their options attached, options sorted by position with sub-question rows
// and selectable columns interleaved as authored.
func ListSurveyQuestions(ctx context.Context, surveyID primitive.ObjectID) ([]models.Question, error) {
	cursor, err := DB.QuestionCollection.Find(ctx,
		bson.M{"surveyId": surveyID},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var qs []models.Question
	if err := cursor.All(ctx, &qs); err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return qs, nil
	}

	ids := make([]primitive.ObjectID, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	optCursor, err := DB.OptionCollection.Find(ctx, bson.M{"questionId": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var opts []models.Option
	if err := optCursor.All(ctx, &opts); err != nil {
		return nil, err
	}

	byQuestion := make(map[primitive.ObjectID][]models.Option)
	for _, o := range opts {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	for i := range qs {
		group := byQuestion[qs[i].ID]
		sort.Slice(group, func(a, b int) bool { return group[a].Position < group[b].Position })
		qs[i].Options = group
	}
	return qs, nil
}

// GetQuestion returns one question with its options.
func GetQuestion(ctx context.Context, id primitive.ObjectID) (*models.Question, error) {
	var q models.Question
	if err := DB.QuestionCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	cursor, err := DB.OptionCollection.Find(ctx,
		bson.M{"questionId": id},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &q.Options); err != nil {
		return nil, err
	}
	return &q, nil
}
