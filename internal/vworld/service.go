package vworld

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/novarobotics/stormdrain/internal/cache"
	"github.com/novarobotics/stormdrain/internal/metrics"
	"github.com/novarobotics/stormdrain/internal/models"
)

// FeatureSource is the upstream half of the boundary service; *Client implements it.
type FeatureSource interface {
	SeoulDistrictFeatures(ctx context.Context, domain string) (*geojson.FeatureCollection, error)
}

// Service serves converted district boundaries, caching them per calling domain.
type Service struct {
	source        FeatureSource
	cache         cache.Cache
	ttl           time.Duration
	maxRingPoints int
}

func NewService(source FeatureSource, c cache.Cache, ttl time.Duration, maxRingPoints int) *Service {
	return &Service{
		source:        source,
		cache:         c,
		ttl:           ttl,
		maxRingPoints: maxRingPoints,
	}
}

func (s *Service) SeoulDistricts(ctx context.Context, domain string) ([]models.DistrictPolygon, error) {
	key := "vworld:districts:" + domain

	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			slog.Warn("boundary cache read failed", "key", key, "error", err)
		case ok:
			var districts []models.DistrictPolygon
			if err := json.Unmarshal(raw, &districts); err == nil {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				return districts, nil
			}
			slog.Warn("discarding unreadable boundary cache entry", "key", key)
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	fc, err := s.source.SeoulDistrictFeatures(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("error fetching district boundaries: %w", err)
	}

	districts := ToDistricts(fc, s.maxRingPoints)
	slog.Info("district boundaries loaded", "domain", domain, "features", len(fc.Features), "districts", len(districts))

	if s.cache != nil && len(districts) > 0 {
		raw, err := json.Marshal(districts)
		if err == nil {
			err = s.cache.Set(ctx, key, raw, s.ttl)
		}
		if err != nil {
			slog.Warn("boundary cache write failed", "key", key, "error", err)
		}
	}

	return districts, nil
}
