package ephemeris

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AstroPull/internal/domain/models"
	domsvc "AstroPull/internal/domain/service"
	"AstroPull/pkg/cache"
	applogger "AstroPull/pkg/logger"
)

// CachedProvider caches raw Subject output. Everything else passes through.
type CachedProvider struct {
	domsvc.EphemerisProvider
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

// NewCachedProvider decorates next with a cache. A nil cache disables caching.
func NewCachedProvider(next domsvc.EphemerisProvider, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CachedProvider{EphemerisProvider: next, cache: c, ttl: ttl, l: l}
}

func (p *CachedProvider) Subject(ctx context.Context, d models.BirthData) (models.RawChart, error) {
	if p.cache == nil {
		return p.EphemerisProvider.Subject(ctx, d)
	}
	key, err := subjectKey(d)
	if err != nil {
		return p.EphemerisProvider.Subject(ctx, d)
	}

	var raw models.RawChart
	err = p.cache.Get(ctx, key, &raw)
	switch {
	case err == nil && len(raw) > 0:
		return raw, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		p.l.Warn("ephemeris cache get failed", applogger.String("key", key), applogger.Error(err))
	}

	raw, err = p.EphemerisProvider.Subject(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, raw, p.ttl); err != nil {
		p.l.Warn("ephemeris cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return raw, nil
}

// subjectKey hashes the normalized request so equivalent inputs share an entry.
func subjectKey(d models.BirthData) (string, error) {
	b, err := json.Marshal(newSubjectRequest(d))
	if err != nil {
		return "", fmt.Errorf("subject key: %w", err)
	}
	return cache.Key("ephemeris:subject", cache.HashKey(string(b))), nil
}
