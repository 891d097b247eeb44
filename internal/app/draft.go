package app

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-portal-client/internal/domain"
)

// ValidationErrors maps a form field key to a user-facing message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "invalid quiz: " + strings.Join(parts, "; ")
}

// QuizMeta is the quiz-level part of an authoring form.
type QuizMeta struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	StartTime   time.Time `yaml:"startTime"`
	EndTime     time.Time `yaml:"endTime"`
	Duration    int       `yaml:"duration"`
}

func (m QuizMeta) validate(errs ValidationErrors) {
	if strings.TrimSpace(m.Name) == "" {
		errs["name"] = "Quiz name is required"
	}
	if m.StartTime.IsZero() {
		errs["startTime"] = "Start time is required"
	}
	if m.EndTime.IsZero() {
		errs["endTime"] = "End time is required"
	}
	if !m.StartTime.IsZero() && !m.EndTime.IsZero() && !m.EndTime.After(m.StartTime) {
		errs["endTime"] = "End time must be after start time"
	}
	if m.Duration <= 0 {
		errs["duration"] = "Duration must be greater than 0"
	}
}

// DraftField names an editable quiz-level field.
type DraftField string

const (
	FieldName        DraftField = "name"
	FieldDescription DraftField = "description"
	FieldStartTime   DraftField = "startTime"
	FieldEndTime     DraftField = "endTime"
	FieldDuration    DraftField = "duration"
)

// DraftQuestion is a question under construction. AnswerKeyMode is view state only.
type DraftQuestion struct {
	Text          string              `yaml:"text"`
	Type          domain.QuestionType `yaml:"type"`
	Options       []string            `yaml:"options"`
	AnswerKey     string              `yaml:"answer"`
	Points        int                 `yaml:"points"`
	AnswerKeyMode bool                `yaml:"-"`
}

// QuestionPatch updates the non-nil fields of a question.
type QuestionPatch struct {
	Text      *string
	Type      *domain.QuestionType
	AnswerKey *string
	Points    *int
}

// Draft is the in-memory quiz being authored. It always holds at least one question.
// A Draft is owned by one authoring flow and is not safe for concurrent use.
type Draft struct {
	meta      QuizMeta
	questions []DraftQuestion
}

func NewDraft() *Draft {
	d := &Draft{}
	d.Reset()
	return d
}

func seedQuestion() DraftQuestion {
	return DraftQuestion{
		Text: "What is your Question No. 1?",
		Type: domain.MultipleChoice,
		Options: []string{
			"My First Option",
			"My Second Option",
			"My Third Option",
			"My Fourth Option",
		},
	}
}

func blankQuestion() DraftQuestion {
	return DraftQuestion{
		Text:    "New Question",
		Type:    domain.MultipleChoice,
		Options: []string{"Option 1"},
	}
}

// Reset restores the single-seed-question initial shape.
func (d *Draft) Reset() {
	d.meta = QuizMeta{}
	d.questions = []DraftQuestion{seedQuestion()}
}

// Meta returns the quiz-level fields.
func (d *Draft) Meta() QuizMeta {
	return d.meta
}

// Questions returns a copy of the question list.
func (d *Draft) Questions() []DraftQuestion {
	out := make([]DraftQuestion, len(d.questions))
	for i, q := range d.questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// UpdateField sets a quiz-level field from its text form. Times accept RFC 3339 or the
// "2006-01-02T15:04" form of a datetime input; an empty value clears the field.
func (d *Draft) UpdateField(field DraftField, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case FieldName:
		d.meta.Name = value
	case FieldDescription:
		d.meta.Description = value
	case FieldStartTime, FieldEndTime:
		t, err := ParseFormTime(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if field == FieldStartTime {
			d.meta.StartTime = t
		} else {
			d.meta.EndTime = t
		}
	case FieldDuration:
		if value == "" {
			d.meta.Duration = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("duration: %q is not a whole number of minutes", value)
		}
		d.meta.Duration = n
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

var formTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseFormTime parses the time formats accepted by authoring forms. Empty yields the zero time.
func ParseFormTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range formTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", value)
}

// UpdateQuestion applies patch to the question at index. Changing the type reshapes the
// option list: true-false gets the fixed pair, short-answer gets none.
func (d *Draft) UpdateQuestion(index int, patch QuestionPatch) error {
	q, err := d.question(index)
	if err != nil {
		return err
	}
	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return fmt.Errorf("unknown question type %q", *patch.Type)
		}
		q.Type = *patch.Type
		normalizeOptions(q)
	}
	if patch.AnswerKey != nil {
		q.AnswerKey = *patch.AnswerKey
	}
	if patch.Points != nil {
		q.Points = *patch.Points
	}
	return nil
}

// UpdateOption replaces the text of one option, carrying the answer key along with it.
func (d *Draft) UpdateOption(qIndex, oIndex int, text string) error {
	q, err := d.question(qIndex)
	if err != nil {
		return err
	}
	if q.Type == domain.TrueFalse {
		return fmt.Errorf("question %d: true-false options are fixed", qIndex+1)
	}
	if oIndex < 0 || oIndex >= len(q.Options) {
		return fmt.Errorf("%w: option %d of question %d", domain.ErrIndexOutOfRange, oIndex, qIndex)
	}
	if q.AnswerKey != "" && q.AnswerKey == q.Options[oIndex] {
		q.AnswerKey = text
	}
	q.Options[oIndex] = text
	return nil
}

// AddQuestion inserts a default question right after the given index and returns the new
// question's index. Indexes outside the list insert at the nearest end.
func (d *Draft) AddQuestion(after int) int {
	if after < -1 {
		after = -1
	}
	if after > len(d.questions)-1 {
		after = len(d.questions) - 1
	}
	at := after + 1
	d.questions = append(d.questions, DraftQuestion{})
	copy(d.questions[at+1:], d.questions[at:])
	d.questions[at] = blankQuestion()
	return at
}

// RemoveQuestion deletes the question at index. It refuses to remove the last question.
func (d *Draft) RemoveQuestion(index int) bool {
	if len(d.questions) <= 1 || index < 0 || index >= len(d.questions) {
		return false
	}
	d.questions = append(d.questions[:index], d.questions[index+1:]...)
	return true
}

// AddOption grows the option list according to the question type.
func (d *Draft) AddOption(qIndex int) error {
	q, err := d.question(qIndex)
	if err != nil {
		return err
	}
	switch q.Type {
	case domain.ShortAnswer:
		q.Options = nil
	case domain.TrueFalse:
		q.Options = domain.TrueFalseOptions()
	default:
		if len(q.Options) < domain.MaxOptions {
			q.Options = append(q.Options, "Option "+strconv.Itoa(len(q.Options)+1))
		}
	}
	return nil
}

// RemoveOption deletes one option. It refuses to leave a question without options and
// never touches the fixed true-false pair.
func (d *Draft) RemoveOption(qIndex, oIndex int) bool {
	q, err := d.question(qIndex)
	if err != nil || q.Type == domain.TrueFalse {
		return false
	}
	if len(q.Options) <= 1 || oIndex < 0 || oIndex >= len(q.Options) {
		return false
	}
	if q.AnswerKey == q.Options[oIndex] {
		q.AnswerKey = ""
	}
	q.Options = append(q.Options[:oIndex], q.Options[oIndex+1:]...)
	return true
}

// SetAnswerKeyMode toggles the "pick the correct option" sub-view of a question.
func (d *Draft) SetAnswerKeyMode(index int, on bool) error {
	q, err := d.question(index)
	if err != nil {
		return err
	}
	q.AnswerKeyMode = on
	return nil
}

// Validate checks the whole form. It returns nil when the draft can be submitted.
func (d *Draft) Validate() ValidationErrors {
	errs := ValidationErrors{}
	d.meta.validate(errs)
	if len(d.questions) == 0 {
		errs["questions"] = "At least one question is required"
	}
	for i, q := range d.questions {
		if strings.TrimSpace(q.Text) == "" {
			errs[fmt.Sprintf("question_%d", i)] = fmt.Sprintf("Question %d text is required", i+1)
		}
		if q.Points < 0 {
			errs[fmt.Sprintf("points_%d", i)] = fmt.Sprintf("Question %d points must be non-negative", i+1)
		}
		if q.Type != domain.ShortAnswer && strings.TrimSpace(q.AnswerKey) == "" {
			errs[fmt.Sprintf("answer_%d", i)] = fmt.Sprintf("Question %d requires a correct answer", i+1)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Build validates the draft and renders the create payload.
func (d *Draft) Build(createdBy string, now time.Time) (domain.NewQuiz, error) {
	if errs := d.Validate(); errs != nil {
		return domain.NewQuiz{}, errs
	}
	questions := make([]domain.Question, 0, len(d.questions))
	for _, q := range d.questions {
		question := domain.Question{
			Text:          q.Text,
			Type:          q.Type,
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: q.AnswerKey,
			Points:        q.Points,
		}
		if q.Type == domain.ShortAnswer {
			question.Options = nil
			question.CorrectAnswer = ""
		}
		question.Points = question.Worth()
		questions = append(questions, question)
	}
	return newQuizPayload(d.meta, createdBy, now, questions), nil
}

func newQuizPayload(meta QuizMeta, createdBy string, now time.Time, questions []domain.Question) domain.NewQuiz {
	return domain.NewQuiz{
		Name:        strings.TrimSpace(meta.Name),
		Description: meta.Description,
		DateCreated: now,
		StartTime:   meta.StartTime,
		EndTime:     meta.EndTime,
		Duration:    meta.Duration,
		CreatedBy:   createdBy,
		AttemptedBy: []string{},
		Questions:   questions,
	}
}

func (d *Draft) question(index int) (*DraftQuestion, error) {
	if index < 0 || index >= len(d.questions) {
		return nil, fmt.Errorf("%w: question %d", domain.ErrIndexOutOfRange, index)
	}
	return &d.questions[index], nil
}

func normalizeOptions(q *DraftQuestion) {
	switch q.Type {
	case domain.TrueFalse:
		q.Options = domain.TrueFalseOptions()
	case domain.ShortAnswer:
		q.Options = nil
		q.AnswerKey = ""
		return
	default:
		if len(q.Options) == 0 {
			q.Options = []string{"Option 1"}
		}
		if len(q.Options) > domain.MaxOptions {
			q.Options = q.Options[:domain.MaxOptions]
		}
	}
	for _, opt := range q.Options {
		if opt == q.AnswerKey {
			return
		}
	}
	q.AnswerKey = ""
}

type draftFile struct {
	QuizMeta  `yaml:",inline"`
	Questions []DraftQuestion `yaml:"questions"`
}

// LoadDraft reads a YAML authoring file into a draft, reshaping each question's options to
// its type. The draft is not validated.
func LoadDraft(r io.Reader) (*Draft, error) {
	var file draftFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	d := NewDraft()
	d.meta = file.QuizMeta
	if len(file.Questions) == 0 {
		return d, nil
	}
	d.questions = make([]DraftQuestion, 0, len(file.Questions))
	for i, q := range file.Questions {
		if q.Type == "" {
			q.Type = domain.MultipleChoice
		}
		if !q.Type.Valid() {
			return nil, fmt.Errorf("question %d: unknown type %q", i+1, q.Type)
		}
		normalizeOptions(&q)
		d.questions = append(d.questions, q)
	}
	return d, nil
}

// LoadDraftFile opens path and reads it with LoadDraft.
func LoadDraftFile(path string) (*Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open draft: %w", err)
	}
	defer f.Close()
	return LoadDraft(f)
}
