// Package settings resolves which provider and config deliver a hotel's
// notifications on a given channel.
package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"github.com/kursadbilgin/notify-outbox/internal/provider"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	DefaultDefaultsTTL = 30 * time.Second
	defaultsCacheKey   = "platform_defaults"
)

// Store reads tenant settings and the platform-wide defaults record.
// GetHotelSettings returns domain.ErrNotFound when the hotel has no row.
type Store interface {
	GetHotelSettings(ctx context.Context, hotelID string) (*domain.NotificationSettings, error)
	GetPlatformDefaults(ctx context.Context) (*domain.NotificationSettings, error)
}

// Service looks up tenant settings on every call and platform defaults through
// a short TTL cache. The cache is not invalidated on write.
type Service struct {
	store  Store
	cache  *gocache.Cache
	logger *zap.Logger
}

func NewService(store Store, defaultsTTL time.Duration, logger *zap.Logger) *Service {
	if defaultsTTL <= 0 {
		defaultsTTL = DefaultDefaultsTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		cache:  gocache.New(defaultsTTL, 2*defaultsTTL),
		logger: logger,
	}
}

// HotelSettings loads the tenant's settings. A missing row is reported as the
// missing_hotel_notifications delivery error.
func (s *Service) HotelSettings(ctx context.Context, hotelID string) (*domain.NotificationSettings, error) {
	settings, err := s.store.GetHotelSettings(ctx, hotelID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && settings == nil) {
		return nil, provider.ErrMissingSettings()
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// PlatformDefaults returns the cached defaults record. Read failures are logged
// and yield nil, meaning "no defaults"; they are not cached.
func (s *Service) PlatformDefaults(ctx context.Context) *domain.NotificationSettings {
	if cached, ok := s.cache.Get(defaultsCacheKey); ok {
		defaults, _ := cached.(*domain.NotificationSettings)
		return defaults
	}

	defaults, err := s.store.GetPlatformDefaults(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("failed to read platform notification defaults", zap.Error(err))
		return nil
	}

	s.cache.SetDefault(defaultsCacheKey, defaults)
	return defaults
}

// Resolve picks the provider for channel: the tenant's own when it names a
// concrete provider, otherwise the platform default. Neither resolving means
// the channel is disabled.
func (s *Service) Resolve(ctx context.Context, tenant *domain.NotificationSettings, channel domain.Channel) (domain.ChannelSettings, error) {
	if chosen := tenant.ForChannel(channel); chosen.IsUsable() {
		return normalize(chosen), nil
	}

	if fallback := s.PlatformDefaults(ctx).ForChannel(channel); fallback.IsUsable() {
		return normalize(fallback), nil
	}

	return domain.ChannelSettings{}, provider.ErrDisabled(channel)
}

func normalize(cs domain.ChannelSettings) domain.ChannelSettings {
	cs.Provider = strings.ToLower(strings.TrimSpace(cs.Provider))
	if cs.Config == nil {
		cs.Config = map[string]any{}
	}
	return cs
}
