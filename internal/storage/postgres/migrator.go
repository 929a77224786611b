package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationState описывает схему относительно встроенных миграций.
type MigrationState struct {
	// Version равна 0, пока не применено ни одной миграции.
	Version int64
	Applied int
	Pending int
}

func migrationsFS() (fs.FS, error) {
	return fs.Sub(embeddedMigrations, "migrations")
}

// newProvider собирает goose provider; параллельные запуски сериализуются advisory lock'ом.
func (s *Store) newProvider(fsys fs.FS) (*goose.Provider, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres store is not initialized")
	}

	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("create migration locker: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, fsys, goose.WithSessionLocker(locker))
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}

func (s *Store) provider() (*goose.Provider, error) {
	fsys, err := migrationsFS()
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return s.newProvider(fsys)
}

// MigrateUp применяет steps миграций; steps<=0 применяет все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	provider, err := s.provider()
	if err != nil {
		return err
	}

	if steps <= 0 {
		if _, err := provider.Up(ctx); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	}

	for i := 0; i < steps; i++ {
		if _, err := provider.UpByOne(ctx); err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				return nil
			}
			return fmt.Errorf("migrate up step %d: %w", i+1, err)
		}
	}
	return nil
}

// MigrateDown откатывает steps миграций; steps<=0 откатывает одну.
// Откат пустой схемы ничего не делает.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	provider, err := s.provider()
	if err != nil {
		return err
	}
	if steps <= 0 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		if _, err := provider.Down(ctx); err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				return nil
			}
			return fmt.Errorf("migrate down step %d: %w", i+1, err)
		}
	}
	return nil
}

// MigrationStatus возвращает текущую версию и число применённых и ожидающих миграций.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationState, error) {
	provider, err := s.provider()
	if err != nil {
		return MigrationState{}, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return MigrationState{}, fmt.Errorf("migration status: %w", err)
	}
	return summarize(statuses), nil
}

func summarize(statuses []*goose.MigrationStatus) MigrationState {
	var state MigrationState
	for _, status := range statuses {
		if status == nil || status.Source == nil {
			continue
		}
		if status.State == goose.StateApplied {
			state.Applied++
			if status.Source.Version > state.Version {
				state.Version = status.Source.Version
			}
			continue
		}
		state.Pending++
	}
	return state
}
