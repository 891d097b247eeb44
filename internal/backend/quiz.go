package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"quiz-portal-client/internal/domain"
)

type quizIDRequest struct {
	QuizID string `json:"quizId"`
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

type userQuizRequest struct {
	UserID string `json:"userId"`
	QuizID string `json:"quizId"`
}

type adminQuizRequest struct {
	AdminID string `json:"adminId"`
	QuizID  string `json:"quizId"`
}

type publishRequest struct {
	AdminID string                    `json:"adminId"`
	UserIDs []domain.ResultVisibility `json:"userIds"`
	QuizID  string                    `json:"quizId"`
}

type createQuizResponse struct {
	QuizID string `json:"quizId"`
}

type quizResponse struct {
	Quiz *domain.Quiz `json:"quiz"`
}

type quizzesResponse struct {
	Quizzes []domain.Quiz `json:"quizzes"`
}

type historyResponse struct {
	UserHistory []domain.HistoryEntry `json:"userHistory"`
}

type resultResponse struct {
	QuizDetails []domain.ResultDetail `json:"quizDetails"`
}

type leaderboardResponse struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type publishedResponse struct {
	IsResultPublished bool `json:"isresultPublished"`
}

type adminHistoryResponse struct {
	Result []domain.Attempt `json:"result"`
}

// CreateQuiz calls POST /add-quiz and returns the generated quiz id (the join code).
func (c *Client) CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (string, error) {
	if quiz.AttemptedBy == nil {
		quiz.AttemptedBy = []string{}
	}
	var payload createQuizResponse
	if err := c.postJSON(ctx, "/add-quiz", quiz, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.QuizID) == "" {
		return "", errors.New("backend did not return a quiz id")
	}
	return payload.QuizID, nil
}

// GetQuiz calls POST /get-quiz. A 422 or an empty body maps to domain.ErrQuizNotFound.
func (c *Client) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var payload quizResponse
	if err := c.postJSON(ctx, "/get-quiz", quizIDRequest{QuizID: quizID}, &payload); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, err
	}
	if payload.Quiz == nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return *payload.Quiz, nil
}

// GetQuizzes calls POST /get-quizzes for an admin's quiz ids.
func (c *Client) GetQuizzes(ctx context.Context, quizIDs []string) ([]domain.Quiz, error) {
	if quizIDs == nil {
		quizIDs = []string{}
	}
	var payload quizzesResponse
	if err := c.postJSON(ctx, "/get-quizzes", struct {
		QuizIDs []string `json:"quizIds"`
	}{quizIDs}, &payload); err != nil {
		return nil, err
	}
	return payload.Quizzes, nil
}

// DeleteQuiz calls POST /delete-quiz.
func (c *Client) DeleteQuiz(ctx context.Context, quizID string) error {
	return c.postJSON(ctx, "/delete-quiz", quizIDRequest{QuizID: quizID}, nil)
}

// SubmitQuiz calls POST /save-quiz.
func (c *Client) SubmitQuiz(ctx context.Context, submission domain.Submission) error {
	return c.postJSON(ctx, "/save-quiz", submission, nil)
}

// UserHistory calls POST /get-userHistory.
func (c *Client) UserHistory(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	var payload historyResponse
	if err := c.postJSON(ctx, "/get-userHistory", userIDRequest{UserID: userID}, &payload); err != nil {
		return nil, err
	}
	return payload.UserHistory, nil
}

// GetResult calls POST /get-result.
func (c *Client) GetResult(ctx context.Context, userID, quizID string) ([]domain.ResultDetail, error) {
	var payload resultResponse
	if err := c.postJSON(ctx, "/get-result", userQuizRequest{UserID: userID, QuizID: quizID}, &payload); err != nil {
		return nil, err
	}
	return payload.QuizDetails, nil
}

// PublishResult calls POST /publish-result.
func (c *Client) PublishResult(ctx context.Context, adminID, quizID string, visibility []domain.ResultVisibility) error {
	if visibility == nil {
		visibility = []domain.ResultVisibility{}
	}
	return c.postJSON(ctx, "/publish-result", publishRequest{AdminID: adminID, UserIDs: visibility, QuizID: quizID}, nil)
}

// CalculateScore calls POST /calculate-score.
func (c *Client) CalculateScore(ctx context.Context, quizID string) error {
	return c.postJSON(ctx, "/calculate-score", quizIDRequest{QuizID: quizID}, nil)
}

// Leaderboard calls POST /get-leaderboard.
func (c *Client) Leaderboard(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error) {
	var payload leaderboardResponse
	if err := c.postJSON(ctx, "/get-leaderboard", quizIDRequest{QuizID: quizID}, &payload); err != nil {
		return nil, err
	}
	return payload.Leaderboard, nil
}

// ResultPublished calls POST /check-result-published.
func (c *Client) ResultPublished(ctx context.Context, adminID, quizID string) (bool, error) {
	var payload publishedResponse
	if err := c.postJSON(ctx, "/check-result-published", adminQuizRequest{AdminID: adminID, QuizID: quizID}, &payload); err != nil {
		return false, err
	}
	return payload.IsResultPublished, nil
}

// AdminUserHistory calls POST /admin-user-history.
func (c *Client) AdminUserHistory(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	var payload adminHistoryResponse
	if err := c.postJSON(ctx, "/admin-user-history", quizIDRequest{QuizID: quizID}, &payload); err != nil {
		return nil, err
	}
	return payload.Result, nil
}
