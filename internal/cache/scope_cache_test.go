package cache

import (
	"context"
	"testing"
	"time"

	"fieldcrm-service/internal/domain/rep"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*ScopeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewScopeCache(client, time.Minute, zap.NewNop()), mr
}

func TestScopeCacheProfileRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := c.GetProfile(ctx, "rep1@example.com")
	assert.False(t, ok)

	territory := int64(7)
	c.SetProfile(ctx, &rep.Profile{ID: 3, Name: "Rep One", Email: "Rep1@Example.com", TerritoryID: &territory, RepType: rep.TypeMedicalRep})

	got, ok := c.GetProfile(ctx, " rep1@example.com ")
	require.True(t, ok)
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, rep.TypeMedicalRep, got.RepType)
	require.NotNil(t, got.TerritoryID)
	assert.Equal(t, int64(7), *got.TerritoryID)
}

func TestScopeCacheTerritoriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetTerritories(ctx, "rep1@example.com", nil)
	ids, ok := c.GetTerritories(ctx, "rep1@example.com")
	require.True(t, ok)
	assert.Empty(t, ids)

	c.SetTerritories(ctx, "rep1@example.com", []int64{1, 2})
	ids, ok = c.GetTerritories(ctx, "rep1@example.com")
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2}, ids)

	mr.FastForward(2 * time.Minute)
	_, ok = c.GetTerritories(ctx, "rep1@example.com")
	assert.False(t, ok)
}

func TestScopeCacheCorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(profileKey("a@example.com"), "{not json"))

	_, ok := c.GetProfile(context.Background(), "a@example.com")
	assert.False(t, ok)
}

func TestNilScopeCache(t *testing.T) {
	var c *ScopeCache
	ctx := context.Background()

	c.SetProfile(ctx, &rep.Profile{ID: 1})
	_, ok := c.GetProfile(ctx, "a@example.com")
	assert.False(t, ok)
}
