package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-portal-client/internal/app"
	"quiz-portal-client/internal/backend"
	"quiz-portal-client/internal/config"
	"quiz-portal-client/internal/infra/memory"
	pgstore "quiz-portal-client/internal/infra/postgres"
	redisstore "quiz-portal-client/internal/infra/redis"
	"quiz-portal-client/internal/infra/sqlite"
	"quiz-portal-client/internal/opentdb"
)

// runtime is the wired client: backend, identity and quiz use cases over the configured stores.
type runtime struct {
	cfg      config.Config
	api      *backend.Client
	identity *app.IdentityStore
	quizzes  *app.QuizService
	closers  []func()
}

func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	timeout := config.TTLDuration(cfg.API.Timeout, backend.DefaultTimeout)
	httpClient := &http.Client{Timeout: timeout}
	rt.api = backend.NewClient(cfg.API.URL, httpClient)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	storage, err := rt.openStorage(ctx, redisClient)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.identity = app.NewIdentityStore(rt.api, storage)
	if err := rt.identity.Hydrate(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	rt.api.SetCredentials(rt.identity)
	rt.api.OnUnauthorized(func() {
		log.Printf("session expired, logging out")
		if err := rt.identity.Logout(context.Background()); err != nil {
			log.Printf("logout: %v", err)
		}
	})

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 5*time.Minute)
	var quizCache app.QuizRepository
	if redisClient != nil {
		quizCache = redisstore.NewQuizCache(redisClient, rt.api, quizTTL)
	} else {
		quizCache = memory.NewQuizCache(rt.api, quizTTL)
	}

	trivia := opentdb.NewClientWithURL(cfg.Trivia.URL, httpClient)
	rt.quizzes = app.NewQuizService(rt.identity, rt.api, quizCache, trivia)
	return rt, nil
}

func (rt *runtime) openStorage(ctx context.Context, redisClient *redis.Client) (app.Storage, error) {
	cfg := rt.cfg
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.NewStorage(), nil
	case config.DriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("storage driver redis needs redis.addr")
		}
		return redisstore.NewStorage(redisClient, cfg.Redis.Prefix), nil
	case config.DriverPostgres:
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("storage driver postgres needs postgres.url")
		}
		if err := RunMigrations(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		namespace := cfg.Storage.Namespace
		if namespace == "" {
			namespace = os.Getenv("USER")
		}
		return pgstore.NewStorage(pool, namespace), nil
	case config.DriverSQLite, "":
		store, err := sqlite.NewStorage(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Close releases stores in reverse order of opening.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
