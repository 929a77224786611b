package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	requireState := func(want MigrationState) {
		t.Helper()
		state, err := store.MigrationStatus(ctx)
		require.NoError(t, err)
		require.Equal(t, want, state)
	}

	require.NoError(t, store.MigrateDown(ctx, 100))
	requireState(MigrationState{Version: 0, Applied: 0, Pending: 2})

	require.NoError(t, store.MigrateUp(ctx, 1))
	requireState(MigrationState{Version: 1, Applied: 1, Pending: 1})

	require.NoError(t, store.MigrateUp(ctx, 0))
	requireState(MigrationState{Version: 2, Applied: 2, Pending: 0})

	// Повторный up и лишние шаги ничего не меняют.
	require.NoError(t, store.MigrateUp(ctx, 0))
	require.NoError(t, store.MigrateUp(ctx, 5))
	requireState(MigrationState{Version: 2, Applied: 2, Pending: 0})

	require.NoError(t, store.MigrateDown(ctx, 0))
	requireState(MigrationState{Version: 1, Applied: 1, Pending: 1})

	require.NoError(t, store.MigrateDown(ctx, 1))
	requireState(MigrationState{Version: 0, Applied: 0, Pending: 2})

	require.NoError(t, store.MigrateDown(ctx, 1), "rollback of an empty schema must be a no-op")

	require.NoError(t, store.EnsureSchema(ctx))
	requireState(MigrationState{Version: 2, Applied: 2, Pending: 0})
}
