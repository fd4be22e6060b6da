package domain

import "strings"

// Provider names with special meaning in tenant settings.
const (
	ProviderNone            = "none"
	ProviderPlatformDefault = "platform_default"
	ProviderMock            = "mock"
)

// ChannelSettings selects the provider and its config for one channel.
type ChannelSettings struct {
	Provider string
	Config   map[string]any
}

// IsUsable reports whether the settings name a concrete provider.
func (c ChannelSettings) IsUsable() bool {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	return p != "" && p != ProviderNone && p != ProviderPlatformDefault
}

// NotificationSettings holds per-channel provider configuration. It is used both
// for a hotel's own settings and for the platform-wide defaults.
type NotificationSettings struct {
	HotelID string
	Email   ChannelSettings
	SMS     ChannelSettings
	Push    ChannelSettings
}

// ForChannel returns the settings configured for channel.
func (s *NotificationSettings) ForChannel(channel Channel) ChannelSettings {
	if s == nil {
		return ChannelSettings{}
	}
	switch channel {
	case ChannelEmail:
		return s.Email
	case ChannelSMS:
		return s.SMS
	case ChannelPush:
		return s.Push
	}
	return ChannelSettings{}
}
