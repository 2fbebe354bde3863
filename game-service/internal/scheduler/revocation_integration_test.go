package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// Отзыв задач живет целиком в Redis, поэтому тестируется без брокера.
func TestRevocationRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	ctx := context.Background()
	rdContainer, err := tcredis.Run(ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(t, err, "Failed to start redis container")
	defer func() { _ = rdContainer.Terminate(ctx) }()

	redisHost, err := rdContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := rdContainer.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port())})
	defer redisClient.Close()
	require.NoError(t, redisClient.Ping(ctx).Err())

	s := &RabbitMQScheduler{
		redisClient:   redisClient,
		revocationTTL: time.Minute,
		logger:        zap.NewNop(),
	}

	revoked, err := s.IsRevoked(ctx, "task-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Cancel(ctx, "task-1"))

	revoked, err = s.IsRevoked(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Другая задача не затронута
	revoked, err = s.IsRevoked(ctx, "task-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Отмена без хэндла — no-op
	require.NoError(t, s.Cancel(ctx, ""))
}
