package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-portal-client/internal/domain"
)

// Storage keeps client state in the client_state table, so a principal can follow a
// user across machines that share one database. Run the migrations first.
type Storage struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewStorage scopes every key to namespace (e.g. an OS user or workstation name).
func NewStorage(pool *pgxpool.Pool, namespace string) *Storage {
	if namespace == "" {
		namespace = "default"
	}
	return &Storage{pool: pool, namespace: namespace}
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM client_state WHERE namespace=$1 AND key=$2`,
		s.namespace, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return raw, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_state (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM client_state WHERE namespace=$1 AND key=$2`, s.namespace, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
