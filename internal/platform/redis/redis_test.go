package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bot-backend/internal/common/config"
)

func TestNewFromConfig_HealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port

	ctx := context.Background()
	c, err := NewFromConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.NoError(t, c.HealthCheck(ctx))

	mr.Close()
	assert.Error(t, c.HealthCheck(ctx))
}

func TestOpen_EmptyAddr(t *testing.T) {
	_, err := Open(context.Background(), "", "", 0)
	assert.Error(t, err)
}
