package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom-service/internal/domain"
	"github.com/spec-kit/mailroom-service/internal/tracking"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

const trackingCachePrefix = "tracking:usps:"

// TrackingService answers tracking-number questions for the API: format
// classification, configuration status, and full validation lookups.
// Lookups are cached in Redis best-effort; cache failures fall through to
// the carrier.
type TrackingService struct {
	carrier  tracking.Client
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// FormatCheck is the public format-classification result.
type FormatCheck struct {
	IsUSPS         bool           `json:"isUSPS"`
	TrackingNumber string         `json:"trackingNumber"`
	Carrier        domain.Carrier `json:"carrier"`
}

// NewTrackingService constructs the service. cache may be nil.
func NewTrackingService(carrier tracking.Client, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *TrackingService {
	return &TrackingService{carrier: carrier, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// CheckFormat classifies a tracking number without touching the carrier.
func (s *TrackingService) CheckFormat(trackingNumber string) FormatCheck {
	classification := tracking.Classify(trackingNumber)
	carrier := domain.Carrier("Unknown")
	if classification.IsUSPS {
		carrier = domain.CarrierUSPS
	}
	return FormatCheck{
		IsUSPS:         classification.IsUSPS,
		TrackingNumber: trackingNumber,
		Carrier:        carrier,
	}
}

// IsConfigured reports whether carrier credentials are present.
func (s *TrackingService) IsConfigured() bool {
	return s.carrier != nil && s.carrier.IsConfigured()
}

// Validate confirms a USPS-format number against the live tracking API.
func (s *TrackingService) Validate(ctx context.Context, trackingNumber string) (*tracking.TrackingInfo, error) {
	if trackingNumber == "" {
		return nil, apperrors.NewValidationError("tracking number is required", nil)
	}
	if !s.IsConfigured() {
		return nil, apperrors.NewUnavailable("USPS API not configured", map[string]any{
			"message": "add USPS_CONSUMER_KEY and USPS_CONSUMER_SECRET to environment variables",
		})
	}

	classification := tracking.Classify(trackingNumber)
	if !classification.IsUSPS {
		return nil, apperrors.NewValidationError("invalid USPS tracking number format", map[string]any{
			"tracking_number": trackingNumber,
		})
	}

	if info := s.cacheGet(ctx, classification.Normalized); info != nil {
		return info, nil
	}

	info, err := s.carrier.Track(ctx, classification.Normalized)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			return nil, apperrors.NewNotFound("tracking number", map[string]any{"tracking_number": classification.Normalized})
		}
		return nil, apperrors.NewUpstream("failed to validate tracking number", err)
	}

	s.cacheSet(ctx, classification.Normalized, info)
	return info, nil
}

func (s *TrackingService) cacheGet(ctx context.Context, trackingNumber string) *tracking.TrackingInfo {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, trackingCachePrefix+trackingNumber).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("tracking cache read failed", zap.Error(err))
		}
		return nil
	}
	var info tracking.TrackingInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil
	}
	return &info
}

func (s *TrackingService) cacheSet(ctx context.Context, trackingNumber string, info *tracking.TrackingInfo) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, trackingCachePrefix+trackingNumber, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("tracking cache write failed", zap.Error(err))
	}
}
