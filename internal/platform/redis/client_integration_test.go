//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companyapp/internal/platform/config"
	"companyapp/pkg/testutil/containers"
)

func TestNewConnectsAndReportsHealth(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	c, err := New(ctx, config.RedisConfig{URL: rc.Addr, PoolSize: 4, DialTimeout: 2 * time.Second})
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, 4, c.Options().PoolSize)
	assert.NoError(t, c.Health(ctx))

	require.NoError(t, c.Close())
	assert.Error(t, c.Health(ctx))
}
