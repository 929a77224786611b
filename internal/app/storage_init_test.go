package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/foodtruck/internal/health"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/orders"
)

func TestInitRuntimeDependencies(t *testing.T) {
	t.Parallel()

	drivers := map[string]Config{
		"memory": {StorageDriver: StorageDriverMemory},
		"file":   {StorageDriver: StorageDriverFile, StorageDir: t.TempDir()},
	}
	for name, cfg := range drivers {
		t.Run(name, func(t *testing.T) {
			deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", name))
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, deps.close()) })

			require.NotNil(t, deps.storageChecker)
			assert.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check().Status)

			_, found, err := deps.store.Get(orders.StoreKey)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, deps.store.Set(orders.StoreKey, []byte(`{"schemaVersion":1,"orders":[]}`)))
			value, found, err := deps.store.Get(orders.StoreKey)
			require.NoError(t, err)
			assert.True(t, found)
			assert.JSONEq(t, `{"schemaVersion":1,"orders":[]}`, string(value))
		})
	}
}

func TestInitRuntimeDependencies_Rejects(t *testing.T) {
	t.Parallel()

	for name, cfg := range map[string]Config{
		"postgres without dsn": {StorageDriver: StorageDriverPostgres},
		"unknown driver":       {StorageDriver: "sqlite"},
		"file without dir":     {StorageDriver: StorageDriverFile},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", name))
			assert.Error(t, err)
		})
	}
}
