package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

const opTimeout = 5 * time.Second

const (
	selectBlobSQL = `SELECT value FROM kv_blobs WHERE key = $1`
	upsertBlobSQL = `
		INSERT INTO kv_blobs (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// BlobStore реализует domain.BlobStore поверх таблицы kv_blobs, по одному запросу на операцию.
type BlobStore struct {
	pool *pgxpool.Pool
}

// NewBlobStore создаёт хранилище на открытом Store.
func NewBlobStore(store *Store) *BlobStore {
	return &BlobStore{pool: store.Pool()}
}

func (s *BlobStore) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value []byte
	if err := s.pool.QueryRow(ctx, selectBlobSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select blob %s: %w", key, err)
	}
	return value, true, nil
}

func (s *BlobStore) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, upsertBlobSQL, key, value); err != nil {
		return fmt.Errorf("upsert blob %s: %w", key, err)
	}
	return nil
}

var _ domain.BlobStore = (*BlobStore)(nil)
