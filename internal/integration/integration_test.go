package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quiz-portal-client/internal/app"
	"quiz-portal-client/internal/backend"
	"quiz-portal-client/internal/cli"
	"quiz-portal-client/internal/config"
	"quiz-portal-client/internal/domain"
	pgstore "quiz-portal-client/internal/infra/postgres"
	infraredis "quiz-portal-client/internal/infra/redis"
)

func TestLoginJoinAndSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	cfg := config.Default()
	cfg.Postgres.URL = pgURL
	if err := cli.RunMigrations(ctx, cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	fake := newFakeBackend(sampleQuiz())
	server := httptest.NewServer(fake)
	defer server.Close()

	api := backend.NewClient(server.URL, server.Client())
	storage := pgstore.NewStorage(pool, "workstation-1")
	identity := app.NewIdentityStore(api, storage)
	api.SetCredentials(identity)

	if res := identity.Login(ctx, "alice@example.com", "secret1", domain.RoleUser); !res.Success {
		t.Fatalf("login: %+v", res)
	}

	// A second client on the same namespace picks the principal up from Postgres.
	reloaded := app.NewIdentityStore(api, pgstore.NewStorage(pool, "workstation-1"))
	if err := reloaded.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if p := reloaded.Current(); p == nil || p.PrincipalID() != "u1" {
		t.Fatalf("expected principal u1 from postgres, got %#v", p)
	}
	other := app.NewIdentityStore(api, pgstore.NewStorage(pool, "workstation-2"))
	if err := other.Hydrate(ctx); err != nil || other.Current() != nil {
		t.Fatalf("namespaces must not share principals: %v %#v", err, other.Current())
	}

	quizzes := infraredis.NewQuizCache(redisClient, api, 5*time.Minute)
	service := app.NewQuizService(identity, api, quizzes, nil)

	for i := 0; i < 2; i++ {
		if _, err := service.Join(ctx, "quiz-int-0001"); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if got := fake.calls("/get-quiz"); got != 1 {
		t.Fatalf("expected one backend lookup behind the redis cache, got %d", got)
	}

	joined, err := service.Join(ctx, "quiz-int-0001")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	session, err := service.StartSession(joined.Quiz)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.SelectAnswer("q1", "4"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := session.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if err := session.ConfirmSubmit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sub := fake.lastSubmission()
	if sub.UserID != "u1" || sub.QuizID != "quiz-int-0001" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if sel := sub.MarkedOptions[0].SelectedOption; sel == nil || *sel != "4" {
		t.Fatalf("expected answer 4, got %v", sel)
	}
	if auth := fake.lastAuth(); auth != "Bearer tok-u1" {
		t.Fatalf("expected bearer token on submit, got %q", auth)
	}
}

// fakeBackend answers the handful of quiz-portal routes this flow touches.
type fakeBackend struct {
	quiz domain.Quiz

	mu         sync.Mutex
	hits       map[string]int
	submission domain.Submission
	auth       string
}

func newFakeBackend(quiz domain.Quiz) *fakeBackend {
	return &fakeBackend{quiz: quiz, hits: make(map[string]int)}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.auth = r.Header.Get("Authorization")
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/login-user":
		_ = json.NewEncoder(w).Encode(domain.LoginReply{
			UserInfo: &domain.LoginUser{ID: "u1", Name: "Alice", Email: "alice@example.com"},
			Token:    "tok-u1",
		})
	case "/get-quiz":
		var req struct {
			QuizID string `json:"quizId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.QuizID != f.quiz.ID {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"Quiz not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"quiz": f.quiz})
	case "/save-quiz":
		var sub domain.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.submission = sub
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"message":"saved"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeBackend) calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeBackend) lastSubmission() domain.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submission
}

func (f *fakeBackend) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuiz() domain.Quiz {
	now := time.Now()
	return domain.Quiz{
		ID:        "quiz-int-0001",
		Name:      "Integration",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		Duration:  10,
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Type: domain.MultipleChoice, Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 1},
			{ID: "q2", Text: "Zero is even.", Type: domain.TrueFalse, Options: domain.TrueFalseOptions(), CorrectAnswer: "True"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
