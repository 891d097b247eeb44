package app

import (
	"math"

	"quiz-portal-client/internal/domain"
)

// ScoreResult is the aggregate of one graded attempt.
type ScoreResult struct {
	Obtained   int `json:"obtained"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Score compares answers (keyed by question id) with each question's correct answer by exact
// string match. Short-answer questions have no correct answer and never contribute to Obtained.
func Score(questions []domain.Question, answers map[string]string) ScoreResult {
	var res ScoreResult
	for _, q := range questions {
		points := q.Worth()
		res.Total += points
		if q.CorrectAnswer == "" {
			continue
		}
		if answer, ok := answers[q.ID]; ok && answer == q.CorrectAnswer {
			res.Obtained += points
		}
	}
	res.Percentage = percentage(res.Obtained, res.Total)
	return res
}

// ScoreDetails grades the per-question rows returned with a published result.
func ScoreDetails(details []domain.ResultDetail) ScoreResult {
	var res ScoreResult
	for _, d := range details {
		points := domain.Question{Points: d.Points}.Worth()
		res.Total += points
		if d.CorrectAnswer != "" && d.Correct() {
			res.Obtained += points
		}
	}
	res.Percentage = percentage(res.Obtained, res.Total)
	return res
}

func percentage(obtained, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(obtained) / float64(total) * 100))
}
