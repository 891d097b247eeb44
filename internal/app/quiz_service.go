package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"quiz-portal-client/internal/domain"
	"quiz-portal-client/internal/opentdb"
)

// MinCodeLength is the shortest join code the backend can issue.
const MinCodeLength = 8

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string) error
}

// QuizAPI is the backend surface behind the quiz use cases.
type QuizAPI interface {
	Submitter
	CreateQuiz(ctx context.Context, quiz domain.NewQuiz) (string, error)
	GetQuizzes(ctx context.Context, quizIDs []string) ([]domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	UserHistory(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
	GetResult(ctx context.Context, userID, quizID string) ([]domain.ResultDetail, error)
	PublishResult(ctx context.Context, adminID, quizID string, visibility []domain.ResultVisibility) error
	CalculateScore(ctx context.Context, quizID string) error
	Leaderboard(ctx context.Context, quizID string) ([]domain.LeaderboardEntry, error)
	ResultPublished(ctx context.Context, adminID, quizID string) (bool, error)
	AdminUserHistory(ctx context.Context, quizID string) ([]domain.Attempt, error)
}

// TriviaSource supplies questions for random quizzes.
type TriviaSource interface {
	FetchQuestions(ctx context.Context, q opentdb.Query) ([]opentdb.RawQuestion, error)
}

// QuizService contains the quiz use cases for both roles.
type QuizService struct {
	identity *IdentityStore
	api      QuizAPI
	quizzes  QuizRepository
	trivia   TriviaSource
	clock    Clock
	shuffle  Shuffler
}

type ServiceOption func(*QuizService)

// WithServiceClock replaces the clock used for quiz status and new sessions.
func WithServiceClock(clock Clock) ServiceOption {
	return func(s *QuizService) { s.clock = clock }
}

// WithShuffler replaces the option shuffler of random quizzes.
func WithShuffler(shuffle Shuffler) ServiceOption {
	return func(s *QuizService) { s.shuffle = shuffle }
}

func NewQuizService(identity *IdentityStore, api QuizAPI, quizzes QuizRepository, trivia TriviaSource, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		identity: identity,
		api:      api,
		quizzes:  quizzes,
		trivia:   trivia,
		clock:    SystemClock{},
		shuffle:  rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JoinedQuiz is a quiz looked up by code, with its status at lookup time.
type JoinedQuiz struct {
	Quiz   domain.Quiz
	Status domain.QuizStatus
}

// Join looks up a quiz by its code for the current user.
func (s *QuizService) Join(ctx context.Context, code string) (JoinedQuiz, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return JoinedQuiz{}, fmt.Errorf("%w: quiz code is required", domain.ErrInvalidCode)
	}
	if len(code) < MinCodeLength {
		return JoinedQuiz{}, fmt.Errorf("%w: quiz code must be at least %d characters", domain.ErrInvalidCode, MinCodeLength)
	}
	if _, err := s.identity.RequireUser(); err != nil {
		return JoinedQuiz{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, code)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return JoinedQuiz{}, fmt.Errorf("%w: %w", domain.ErrInvalidCode, err)
	}
	if err != nil {
		return JoinedQuiz{}, err
	}
	return JoinedQuiz{Quiz: quiz, Status: quiz.Status(s.clock.Now())}, nil
}

// StartSession prepares a timed attempt for the current user. Only ended quizzes are refused.
func (s *QuizService) StartSession(quiz domain.Quiz, opts ...SessionOption) (*TakeSession, error) {
	user, err := s.identity.RequireUser()
	if err != nil {
		return nil, err
	}
	if status := quiz.Status(s.clock.Now()); status == domain.StatusEnded {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotActive, status)
	}
	opts = append([]SessionOption{WithClock(s.clock)}, opts...)
	return NewTakeSession(quiz, user.ID, s.api, opts...)
}

// CreateFromDraft submits a validated draft, resets it and records the quiz on the admin.
func (s *QuizService) CreateFromDraft(ctx context.Context, draft *Draft) (string, error) {
	admin, err := s.identity.RequireAdmin()
	if err != nil {
		return "", err
	}
	payload, err := draft.Build(admin.ID, s.clock.Now())
	if err != nil {
		return "", err
	}
	quizID, err := s.create(ctx, admin, payload)
	if err != nil {
		return "", err
	}
	draft.Reset()
	return quizID, nil
}

// CreateRandom builds a quiz from trivia questions and submits it.
func (s *QuizService) CreateRandom(ctx context.Context, req RandomQuizRequest) (string, error) {
	admin, err := s.identity.RequireAdmin()
	if err != nil {
		return "", err
	}
	if errs := req.Validate(); errs != nil {
		return "", errs
	}
	raw, err := s.trivia.FetchQuestions(ctx, req.query())
	if err != nil {
		return "", fmt.Errorf("fetch trivia: %w", err)
	}
	if len(raw) == 0 {
		return "", domain.ErrNoTriviaQuestions
	}
	payload := newQuizPayload(req.Meta, admin.ID, s.clock.Now(), TriviaQuestions(raw, s.shuffle))
	return s.create(ctx, admin, payload)
}

func (s *QuizService) create(ctx context.Context, admin domain.Admin, payload domain.NewQuiz) (string, error) {
	quizID, err := s.api.CreateQuiz(ctx, payload)
	if err != nil {
		return "", err
	}
	ids := append(append([]string(nil), admin.QuizIDs...), quizID)
	if _, err := s.identity.UpdateUser(ctx, PrincipalPatch{QuizIDs: ids}); err != nil {
		return quizID, fmt.Errorf("record quiz %s: %w", quizID, err)
	}
	return quizID, nil
}

// AdminQuizzes lists the quizzes the current admin created, newest first.
func (s *QuizService) AdminQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	admin, err := s.identity.RequireAdmin()
	if err != nil {
		return nil, err
	}
	if len(admin.QuizIDs) == 0 {
		return nil, nil
	}
	quizzes, err := s.api.GetQuizzes(ctx, admin.QuizIDs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].DateCreated.After(quizzes[j].DateCreated)
	})
	return quizzes, nil
}

// DeleteQuiz removes a quiz and drops it from the admin's quiz list.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string) error {
	admin, err := s.identity.RequireAdmin()
	if err != nil {
		return err
	}
	if err := s.api.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	if err := s.quizzes.Invalidate(ctx, quizID); err != nil {
		return fmt.Errorf("invalidate quiz %s: %w", quizID, err)
	}
	ids := make([]string, 0, len(admin.QuizIDs))
	for _, id := range admin.QuizIDs {
		if id != quizID {
			ids = append(ids, id)
		}
	}
	_, err = s.identity.UpdateUser(ctx, PrincipalPatch{QuizIDs: ids})
	return err
}

// QuizDetail is the admin view of one quiz.
type QuizDetail struct {
	Quiz            domain.Quiz
	Status          domain.QuizStatus
	Attempts        []domain.Attempt
	ResultPublished bool
}

// QuizDetail fetches the quiz, its attempts and the published flag concurrently.
func (s *QuizService) QuizDetail(ctx context.Context, quizID string) (QuizDetail, error) {
	admin, err := s.identity.RequireAdmin()
	if err != nil {
		return QuizDetail{}, err
	}

	var detail QuizDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quiz, err := s.quizzes.GetQuiz(gctx, quizID)
		if err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}
		detail.Quiz = quiz
		return nil
	})
	g.Go(func() error {
		attempts, err := s.api.AdminUserHistory(gctx, quizID)
		if err != nil {
			return fmt.Errorf("load attempts: %w", err)
		}
		detail.Attempts = attempts
		return nil
	})
	g.Go(func() error {
		published, err := s.api.ResultPublished(gctx, admin.ID, quizID)
		if err != nil {
			return fmt.Errorf("load publish status: %w", err)
		}
		detail.ResultPublished = published
		return nil
	})
	if err := g.Wait(); err != nil {
		return QuizDetail{}, err
	}
	detail.Status = detail.Quiz.Status(s.clock.Now())
	return detail, nil
}

// CalculateScores asks the backend to grade every attempt of a quiz.
func (s *QuizService) CalculateScores(ctx context.Context, quizID string) error {
	if _, err := s.identity.RequireAdmin(); err != nil {
		return err
	}
	return s.api.CalculateScore(ctx, quizID)
}

// PublishResults sets per-participant result visibility.
func (s *QuizService) PublishResults(ctx context.Context, quizID string, visibility []domain.ResultVisibility) error {
	admin, err := s.identity.RequireAdmin()
	if err != nil {
		return err
	}
	return s.api.PublishResult(ctx, admin.ID, quizID, visibility)
}

// HistorySummary aggregates a participant's history.
type HistorySummary struct {
	Completed int
	Pending   int
	Average   int
}

// History returns the current user's attempts, newest first.
func (s *QuizService) History(ctx context.Context) ([]domain.HistoryEntry, HistorySummary, error) {
	user, err := s.identity.RequireUser()
	if err != nil {
		return nil, HistorySummary{}, err
	}
	entries, err := s.api.UserHistory(ctx, user.ID)
	if err != nil {
		return nil, HistorySummary{}, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, Summarize(entries), nil
}

// Summarize counts graded and pending attempts and averages the graded scores.
func Summarize(entries []domain.HistoryEntry) HistorySummary {
	var sum HistorySummary
	total := 0.0
	for _, e := range entries {
		if !e.Score.Available {
			sum.Pending++
			continue
		}
		sum.Completed++
		total += e.Score.Percent
	}
	if sum.Completed > 0 {
		sum.Average = int(math.Round(total / float64(sum.Completed)))
	}
	return sum
}

// QuizResult is a graded attempt with its aggregate score.
type QuizResult struct {
	Details []domain.ResultDetail
	Score   ScoreResult
}

// Result returns the current user's graded answers for a quiz.
func (s *QuizService) Result(ctx context.Context, quizID string) (QuizResult, error) {
	user, err := s.identity.RequireUser()
	if err != nil {
		return QuizResult{}, err
	}
	details, err := s.api.GetResult(ctx, user.ID, quizID)
	if err != nil {
		return QuizResult{}, err
	}
	return QuizResult{Details: details, Score: ScoreDetails(details)}, nil
}

// LeaderboardFilter limits the leaderboard to the best scorers.
type LeaderboardFilter string

const (
	FilterAll   LeaderboardFilter = "all"
	FilterTop10 LeaderboardFilter = "top10"
	FilterTop50 LeaderboardFilter = "top50"
)

// LeaderboardSort orders the displayed rows.
type LeaderboardSort string

const (
	SortByScore LeaderboardSort = "score"
	SortByTime  LeaderboardSort = "time"
	SortByName  LeaderboardSort = "name"
)

type LeaderboardView struct {
	Filter LeaderboardFilter
	SortBy LeaderboardSort
}

// Leaderboard returns the ranked rows of a quiz shaped by view.
func (s *QuizService) Leaderboard(ctx context.Context, quizID string, view LeaderboardView) ([]domain.LeaderboardEntry, error) {
	if s.identity.Current() == nil {
		return nil, domain.ErrNotLoggedIn
	}
	entries, err := s.api.Leaderboard(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return ShapeLeaderboard(entries, view), nil
}

// ShapeLeaderboard keeps the top scorers named by the filter, then orders them by view.SortBy.
func ShapeLeaderboard(entries []domain.LeaderboardEntry, view LeaderboardView) []domain.LeaderboardEntry {
	out := append([]domain.LeaderboardEntry(nil), entries...)
	sort.SliceStable(out, byScore(out))

	switch view.Filter {
	case FilterTop10:
		out = out[:min(len(out), 10)]
	case FilterTop50:
		out = out[:min(len(out), 50)]
	}

	switch view.SortBy {
	case SortByTime:
		sort.SliceStable(out, func(i, j int) bool { return out[i].TimeTaken < out[j].TimeTaken })
	case SortByName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}
	return out
}

func byScore(entries []domain.LeaderboardEntry) func(i, j int) bool {
	return func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].TimeTaken < entries[j].TimeTaken
	}
}
