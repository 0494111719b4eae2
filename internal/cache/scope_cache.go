// internal/cache/scope_cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"fieldcrm-service/internal/domain/rep"
	"fieldcrm-service/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultScopeTTL = 5 * time.Minute

// ScopeCache keeps rep profiles and territory assignments per caller email
// so the write path does not hit Postgres on every request. A nil
// *ScopeCache is a valid, always-missing cache. Redis failures degrade to
// misses.
type ScopeCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewScopeCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *ScopeCache {
	if ttl <= 0 {
		ttl = DefaultScopeTTL
	}
	return &ScopeCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func profileKey(email string) string {
	return "fieldcrm:scope:profile:" + strings.ToLower(strings.TrimSpace(email))
}

func territoriesKey(email string) string {
	return "fieldcrm:scope:territories:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *ScopeCache) GetProfile(ctx context.Context, email string) (*rep.Profile, bool) {
	var p rep.Profile
	if !s.get(ctx, "profile", profileKey(email), &p) {
		return nil, false
	}
	return &p, true
}

func (s *ScopeCache) SetProfile(ctx context.Context, p *rep.Profile) {
	if p == nil {
		return
	}
	s.set(ctx, profileKey(p.Email), p)
}

func (s *ScopeCache) GetTerritories(ctx context.Context, email string) ([]int64, bool) {
	var ids []int64
	if !s.get(ctx, "territories", territoriesKey(email), &ids) {
		return nil, false
	}
	return ids, true
}

func (s *ScopeCache) SetTerritories(ctx context.Context, email string, ids []int64) {
	if ids == nil {
		ids = []int64{}
	}
	s.set(ctx, territoriesKey(email), ids)
}

func (s *ScopeCache) get(ctx context.Context, kind, key string, dst interface{}) bool {
	if s == nil || s.client == nil {
		return false
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("scope cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.ScopeCacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("scope cache entry corrupt", zap.String("key", key), zap.Error(err))
		metrics.ScopeCacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	}

	metrics.ScopeCacheLookups.WithLabelValues(kind, "hit").Inc()
	return true
}

func (s *ScopeCache) set(ctx context.Context, key string, value interface{}) {
	if s == nil || s.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to encode scope cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("scope cache write failed", zap.String("key", key), zap.Error(err))
	}
}
