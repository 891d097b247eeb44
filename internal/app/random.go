package app

import (
	"fmt"

	"quiz-portal-client/internal/domain"
	"quiz-portal-client/internal/opentdb"
)

const (
	MinRandomQuestions = 1
	MaxRandomQuestions = 50
)

// RandomQuizRequest describes a quiz generated from the trivia source.
// Empty Category, Difficulty and Type mean "any".
type RandomQuizRequest struct {
	Meta       QuizMeta
	Amount     int
	Category   string
	Difficulty string
	Type       string // "multiple" or "boolean"
}

// Validate applies the draft's metadata rules plus the amount and filter bounds.
func (r RandomQuizRequest) Validate() ValidationErrors {
	errs := ValidationErrors{}
	r.Meta.validate(errs)
	if r.Amount < MinRandomQuestions || r.Amount > MaxRandomQuestions {
		errs["amount"] = fmt.Sprintf("Number of questions must be between %d and %d", MinRandomQuestions, MaxRandomQuestions)
	}
	switch r.Difficulty {
	case "", "easy", "medium", "hard":
	default:
		errs["difficulty"] = "Difficulty must be easy, medium or hard"
	}
	switch r.Type {
	case "", "multiple", "boolean":
	default:
		errs["type"] = "Type must be multiple or boolean"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r RandomQuizRequest) query() opentdb.Query {
	return opentdb.Query{
		Amount:     r.Amount,
		Category:   r.Category,
		Difficulty: r.Difficulty,
		Type:       r.Type,
	}
}

// Shuffler permutes n elements through swap, as rand.Shuffle does.
type Shuffler func(n int, swap func(i, j int))

// TriviaQuestions converts trivia results into quiz questions worth one point each.
// The text is taken as is: the trivia client has already decoded its HTML entities.
// Multiple-choice options are shuffled; true-false keeps the fixed pair.
func TriviaQuestions(raw []opentdb.RawQuestion, shuffle Shuffler) []domain.Question {
	out := make([]domain.Question, 0, len(raw))
	for _, r := range raw {
		q := domain.Question{
			Text:          r.Question,
			CorrectAnswer: r.CorrectAnswer,
			Points:        1,
		}
		if r.Type == "boolean" {
			q.Type = domain.TrueFalse
			q.Options = domain.TrueFalseOptions()
		} else {
			q.Type = domain.MultipleChoice
			q.Options = append([]string{r.CorrectAnswer}, r.IncorrectAnswers...)
			if shuffle != nil {
				shuffle(len(q.Options), func(i, j int) {
					q.Options[i], q.Options[j] = q.Options[j], q.Options[i]
				})
			}
		}
		out = append(out, q)
	}
	return out
}
