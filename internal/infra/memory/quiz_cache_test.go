package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz-portal-client/internal/domain"
)

func TestQuizCacheCaches(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-0001": sampleQuiz()}}
	cache := NewQuizCache(loader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "quiz-0001"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.Calls() != 1 {
		t.Fatalf("expected loader once, got %d", loader.Calls())
	}

	quiz, err := cache.GetQuiz(context.Background(), "quiz-0001")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.Calls() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.Calls())
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].CorrectAnswer != "4" {
		t.Fatalf("unexpected cached quiz: %+v", quiz)
	}
}

func TestQuizCacheExpires(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-0001": sampleQuiz()}}
	cache := NewQuizCache(loader, time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.GetQuiz(context.Background(), "quiz-0001")
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetQuiz(context.Background(), "quiz-0001")

	if loader.Calls() != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", loader.Calls())
	}
}

func TestQuizCacheDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{}}
	cache := NewQuizCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected ErrQuizNotFound, got %v", err)
		}
	}
	if loader.Calls() != 2 {
		t.Fatalf("expected each miss to reach the loader, got %d", loader.Calls())
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-0001": sampleQuiz()}}
	cache := NewQuizCache(loader, time.Minute)

	_, _ = cache.GetQuiz(context.Background(), "quiz-0001")
	if err := cache.Invalidate(context.Background(), "quiz-0001"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.GetQuiz(context.Background(), "quiz-0001")
	if loader.Calls() != 2 {
		t.Fatalf("expected reload after invalidate, got %d", loader.Calls())
	}
}

func TestQuizCacheCoalescesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-0001": sampleQuiz()}, wait: release}
	cache := NewQuizCache(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.GetQuiz(context.Background(), "quiz-0001")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.Calls() != 1 {
		t.Fatalf("expected one backend load, got %d", loader.Calls())
	}
}

func TestQuizCacheDisabledWithoutTTL(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-0001": sampleQuiz()}}
	cache := NewQuizCache(loader, 0)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetQuiz(context.Background(), "quiz-0001"); err != nil {
			t.Fatalf("get quiz: %v", err)
		}
	}
	if loader.Calls() != 2 {
		t.Fatalf("expected every lookup to reach the loader, got %d calls", loader.Calls())
	}
}

type countingLoader struct {
	quizzes map[string]domain.Quiz
	wait    chan struct{}
	calls   atomic.Int32
}

func (l *countingLoader) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	if l.wait != nil {
		<-l.wait
	}
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (l *countingLoader) Calls() int {
	return int(l.calls.Load())
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-0001",
		Name:     "Arithmetic",
		Duration: 10,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "What is 2 + 2?",
				Type:          domain.MultipleChoice,
				Options:       []string{"3", "4"},
				CorrectAnswer: "4",
				Points:        1,
			},
		},
	}
}
