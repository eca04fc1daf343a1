package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/agromercado/cartstate/internal/port"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			"../migrations/01_cart_snapshots.up.sql"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return postgresContainer, connStr, nil
}

func startRedis(ctx context.Context) (testcontainers.Container, string, error) {
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.4-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("testcontainers.GenericContainer: %w", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		return nil, "", fmt.Errorf("rc.Endpoint: %w", err)
	}

	return redisContainer, endpoint, nil
}

// testStoreRoundTrip exercises the Store contract shared by all backends.
func testStoreRoundTrip(t *testing.T, s port.Store) {
	t.Helper()
	ctx := t.Context()

	key := "cart:" + gofakeit.UUID()
	first := []byte(`{"items":[],"version":"1"}`)
	second := []byte(`{"items":[{"id":"a"}],"version":"1"}`)

	_, err := s.Load(ctx, key)
	require.ErrorIs(t, err, port.ErrSnapshotNotFound)

	require.NoError(t, s.Save(ctx, key, first))

	got, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	// overwrite wins
	require.NoError(t, s.Save(ctx, key, second))

	got, err = s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Load(ctx, key)
	require.ErrorIs(t, err, port.ErrSnapshotNotFound)
}
