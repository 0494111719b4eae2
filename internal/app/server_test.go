package app

import (
	"context"
	"testing"

	"fieldcrm-service/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectScopeCache(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		s := NewServer(config.AppConfig{}, zap.NewNop())
		c, health, closeFn := s.connectScopeCache(ctx)
		defer closeFn()

		assert.Nil(t, c)
		assert.Nil(t, health)
	})

	t.Run("unreachable runs uncached", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		s := NewServer(config.AppConfig{RedisAddr: addr}, zap.NewNop())
		c, health, closeFn := s.connectScopeCache(ctx)
		defer closeFn()

		assert.Nil(t, c)
		assert.Nil(t, health)
	})

	t.Run("reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)

		s := NewServer(config.AppConfig{RedisAddr: mr.Addr()}, zap.NewNop())
		c, health, closeFn := s.connectScopeCache(ctx)
		defer closeFn()

		require.NotNil(t, c)
		require.NotNil(t, health)
		assert.NoError(t, health(ctx))
	})
}
