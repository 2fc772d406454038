package responses

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"surveyhub-backend/src/models"
)

// NormalizeAnswer converts one client-submitted value into its atomic answer
// rows. It is a pure function of (raw value, question definition): either all
// derived rows are returned or the answer is rejected as a whole. Zero rows
// means "no answer"; the required-level check decides whether that matters.
func NormalizeAnswer(q *models.Question, raw models.RawAnswer) ([]models.Answer, error) {
	switch {
	case q.QuestionType == models.FivePointScale:
		return normalizeScale(q, raw)
	case q.QuestionType.IsSingleSelect():
		return normalizeSingleSelect(q, raw)
	case q.QuestionType.IsMultiSelect():
		return normalizeMultiSelect(q, raw)
	case q.QuestionType.IsTextual():
		return normalizeText(q, raw)
	case q.QuestionType.IsMatrixKind():
		return normalizeMatrix(q, raw)
	case q.QuestionType == models.FileUpload:
		return normalizeFiles(q, raw)
	default:
		return nil, fmt.Errorf("unsupported question type %q", q.QuestionType)
	}
}

func selectableByHex(q *models.Question) map[string]models.Option {
	m := make(map[string]models.Option)
	for _, o := range q.SelectableOptions() {
		m[o.ID.Hex()] = o
	}
	return m
}

func subQuestionsByHex(q *models.Question) map[string]models.Option {
	m := make(map[string]models.Option)
	for _, o := range q.SubQuestions() {
		m[o.ID.Hex()] = o
	}
	return m
}

func normalizeSingleSelect(q *models.Question, raw models.RawAnswer) ([]models.Answer, error) {
	if len(raw.OptionIDs) == 0 {
		return nil, nil
	}
	if len(raw.OptionIDs) > 1 {
		return nil, fmt.Errorf("question accepts a single selection, got %d", len(raw.OptionIDs))
	}

	opts := selectableByHex(q)
	opt, ok := opts[raw.OptionIDs[0]]
	if !ok {
		return nil, fmt.Errorf("unknown option %q", raw.OptionIDs[0])
	}

	row := models.Answer{QuestionID: q.ID, OptionID: &opt.ID}
	if q.QuestionType == models.ChoiceWithComment {
		if c := strings.TrimSpace(raw.Comment); c != "" {
			if q.MaxLength > 0 && len([]rune(c)) > q.MaxLength {
				return nil, fmt.Errorf("comment exceeds max length of %d characters", q.MaxLength)
			}
			row.Comment = &c
		}
	}
	return []models.Answer{row}, nil
}

func normalizeMultiSelect(q *models.Question, raw models.RawAnswer) ([]models.Answer, error) {
	if len(raw.OptionIDs) == 0 {
		return nil, nil
	}
	if q.MaxQuestions > 0 && len(raw.OptionIDs) > q.MaxQuestions {
		return nil, fmt.Errorf("at most %d selections allowed, got %d", q.MaxQuestions, len(raw.OptionIDs))
	}

	opts := selectableByHex(q)
	seen := make(map[string]bool)
	var rows []models.Answer
	for _, hex := range raw.OptionIDs {
		if seen[hex] {
			continue
		}
		seen[hex] = true
		opt, ok := opts[hex]
		if !ok {
			return nil, fmt.Errorf("unknown option %q", hex)
		}
		id := opt.ID
		rows = append(rows, models.Answer{QuestionID: q.ID, OptionID: &id})
	}
	return rows, nil
}

func normalizeText(q *models.Question, raw models.RawAnswer) ([]models.Answer, error) {
	text := strings.TrimSpace(raw.Text)
	if text == "" {
		return nil, nil
	}
	if q.MaxLength > 0 && len([]rune(text)) > q.MaxLength {
		return nil, fmt.Errorf("answer exceeds max length of %d characters", q.MaxLength)
	}
	if q.QuestionType == models.NumberText || q.NumericOnly {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return nil, fmt.Errorf("a numeric answer is required")
		}
	}
	if q.QuestionType == models.DateText {
		if _, err := time.Parse("2006-01-02", text); err != nil {
			return nil, fmt.Errorf("a date answer in YYYY-MM-DD format is required")
		}
	}
	return []models.Answer{{QuestionID: q.ID, AnswerText: &text}}, nil
}

func normalizeScale(q *models.Question, raw models.RawAnswer) ([]models.Answer, error) {
	if raw.Scale == nil {
		return nil, nil
	}
	v := *raw.Scale
	if v < 1 || v > 5 {
		return nil, fmt.Errorf("scale value must be between 1 and 5, got %d", v)
	}
	return []models.Answer{{QuestionID: q.ID, ScaleValue: &v}}, nil
}

// normalizeMatrix produces one row per answered sub-question. A sub-question
// without a value is simply omitted; whether that blocks submission is the
// required-level check's call, made at the whole-question level.
func normalizeMatrix(q *models.Question, raw models.RawAnswer) ([]models.Answer, error) {
	if len(raw.Cells) == 0 {
		return nil, nil
	}

	subs := subQuestionsByHex(q)
	cols := selectableByHex(q)

	var rows []models.Answer
	for subHex, value := range raw.Cells {
		sub, ok := subs[subHex]
		if !ok {
			return nil, fmt.Errorf("unknown sub-question %q", subHex)
		}
		subID := sub.ID

		if q.QuestionType == models.Matrix {
			col, ok := cols[value]
			if !ok {
				return nil, fmt.Errorf("unknown column option %q for sub-question %q", value, subHex)
			}
			colID := col.ID
			rows = append(rows, models.Answer{QuestionID: q.ID, SubOptionID: &subID, OptionID: &colID})
			continue
		}

		// multi-short-text: the cell value is free text.
		text := strings.TrimSpace(value)
		if text == "" {
			continue
		}
		if q.MaxLength > 0 && len([]rune(text)) > q.MaxLength {
			return nil, fmt.Errorf("answer for sub-question %q exceeds max length of %d characters", subHex, q.MaxLength)
		}
		t := text
		rows = append(rows, models.Answer{QuestionID: q.ID, SubOptionID: &subID, AnswerText: &t})
	}
	return rows, nil
}

// normalizeFiles validates every file reference before any row is derived.
// A single violation rejects the whole answer; files are never silently
// dropped.
func normalizeFiles(q *models.Question, raw models.RawAnswer) ([]models.Answer, error) {
	if len(raw.Files) == 0 {
		return nil, nil
	}

	for _, f := range raw.Files {
		if err := checkFileRef(q, f); err != nil {
			return nil, err
		}
	}

	var rows []models.Answer
	for _, f := range raw.Files {
		rows = append(rows, models.Answer{QuestionID: q.ID, Files: []models.FileRef{f}})
	}
	return rows, nil
}

func checkFileRef(q *models.Question, f models.FileRef) error {
	if f.StorageKey == "" {
		return fmt.Errorf("file %q has no storage reference", f.Name)
	}
	if len(q.AllowedFileTypes) > 0 {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
		allowed := false
		for _, t := range q.AllowedFileTypes {
			if strings.ToLower(strings.TrimPrefix(t, ".")) == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("file %q has disallowed type %q (allowed: %s)", f.Name, ext, strings.Join(q.AllowedFileTypes, ", "))
		}
	}
	if q.MaxFileSizeKB > 0 && f.Size > q.MaxFileSizeKB*1024 {
		return fmt.Errorf("file %q exceeds the %d KB size limit", f.Name, q.MaxFileSizeKB)
	}
	return nil
}

// DenormalizeAnswer rebuilds the client shape from a question's atomic rows.
// Round-tripping a normalized submission reproduces the original value as a
// set (ordering of multi-select rows is not significant).
func DenormalizeAnswer(q *models.Question, rows []models.Answer) models.RawAnswer {
	var raw models.RawAnswer
	for _, row := range rows {
		switch {
		case row.SubOptionID != nil:
			if raw.Cells == nil {
				raw.Cells = make(map[string]string)
			}
			if row.OptionID != nil {
				raw.Cells[row.SubOptionID.Hex()] = row.OptionID.Hex()
			} else if row.AnswerText != nil {
				raw.Cells[row.SubOptionID.Hex()] = *row.AnswerText
			}
		case row.OptionID != nil:
			raw.OptionIDs = append(raw.OptionIDs, row.OptionID.Hex())
			if row.Comment != nil {
				raw.Comment = *row.Comment
			}
		case row.ScaleValue != nil:
			v := *row.ScaleValue
			raw.Scale = &v
		case row.AnswerText != nil:
			raw.Text = *row.AnswerText
		case len(row.Files) > 0:
			raw.Files = append(raw.Files, row.Files...)
		}
	}
	return raw
}
