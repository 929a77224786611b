package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/foodtruck/internal/health"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/orders"
	"github.com/vladislavdragonenkov/foodtruck/internal/storage/file"
	"github.com/vladislavdragonenkov/foodtruck/internal/storage/memory"
	"github.com/vladislavdragonenkov/foodtruck/internal/storage/postgres"
)

// runtimeDependencies держит хранилище выбранного драйвера и связанные с ним ресурсы.
type runtimeDependencies struct {
	store          domain.BlobStore
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d runtimeDependencies) close() error {
	if d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// initRuntimeDependencies открывает хранилище по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewBlobStore()
		logger.Warn("using in-memory storage, orders are lost on restart")
		return runtimeDependencies{
			store:          store,
			storageChecker: healthcheck.NewStoreChecker(store, orders.StoreKey),
		}, nil

	case StorageDriverFile:
		store, err := file.Open(cfg.StorageDir)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open file storage: %w", err)
		}
		logger.WithField("dir", store.Dir()).Info("file storage initialized")
		return runtimeDependencies{
			store:          store,
			storageChecker: healthcheck.NewSimpleChecker("storage", store.Ping),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return runtimeDependencies{}, fmt.Errorf("postgres dsn is required for %q storage driver", StorageDriverPostgres)
		}
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return runtimeDependencies{}, fmt.Errorf("migrate postgres storage: %w", err)
			}
		}
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("postgres storage initialized")
		return runtimeDependencies{
			store:          postgres.NewBlobStore(pg),
			storageChecker: healthcheck.NewSimpleChecker("storage", pg.HealthCheck),
			closeFn:        pg.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
