package domain

import "time"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// MaxOptions caps the option list of a multiple-choice question.
const MaxOptions = 5

// TrueFalseOptions is the fixed option pair of a true-false question.
func TrueFalseOptions() []string {
	return []string{"True", "False"}
}

// Question is owned by exactly one quiz.
type Question struct {
	ID            string       `json:"_id,omitempty"`
	Text          string       `json:"questionText"`
	Type          QuestionType `json:"questionType"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Points        int          `json:"marks,omitempty"` // defaults to 1 if zero
}

// Worth returns the points the question is worth.
func (q Question) Worth() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Quiz is a timed set of questions. Its ID doubles as the join code.
type Quiz struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DateCreated time.Time  `json:"dateCreated"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	Duration    int        `json:"duration"` // minutes
	CreatedBy   string     `json:"createdBy"`
	AttemptedBy []string   `json:"attemptedBy"`
	Questions   []Question `json:"questions"`
}

// QuizStatus describes where now falls relative to a quiz's window.
type QuizStatus string

const (
	StatusScheduled QuizStatus = "Scheduled"
	StatusActive    QuizStatus = "Active"
	StatusEnded     QuizStatus = "Ended"
)

// Status classifies now against the quiz start and end times.
func (q Quiz) Status(now time.Time) QuizStatus {
	switch {
	case now.Before(q.StartTime):
		return StatusScheduled
	case now.After(q.EndTime):
		return StatusEnded
	default:
		return StatusActive
	}
}

// TotalPoints sums Worth over all questions.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Worth()
	}
	return total
}

// NewQuiz is the create payload sent once at the end of authoring.
type NewQuiz struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DateCreated time.Time  `json:"dateCreated"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	Duration    int        `json:"duration"`
	CreatedBy   string     `json:"createdBy"`
	AttemptedBy []string   `json:"attemptedBy"`
	Questions   []Question `json:"questions"`
}

// MarkedOption is one question's submitted answer; nil means unanswered.
type MarkedOption struct {
	Question       string  `json:"question"`
	SelectedOption *string `json:"selectedOption"`
}

// Submission is the payload of one finished attempt.
type Submission struct {
	UserID        string         `json:"userId"`
	QuizID        string         `json:"quizId"`
	MarkedOptions []MarkedOption `json:"markedOptions"`
	TimeTaken     int            `json:"timeTaken"` // whole minutes
}

// ResultVisibility controls whether a participant may see a published result.
type ResultVisibility struct {
	UserID                string `json:"userId"`
	IsAllowedToViewResult bool   `json:"isAllowedToViewResult"`
}
