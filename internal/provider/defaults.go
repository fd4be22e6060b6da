package provider

import (
	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-outbox/internal/credential"
	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"go.uber.org/zap"
)

// Options configures the built-in adapter set. Zero values select production
// endpoints, a fresh HTTP client and env-backed credential resolution.
type Options struct {
	Logger          *zap.Logger
	Client          *resty.Client
	Resolver        *credential.Resolver
	Tokens          TokenSource
	SendGridBaseURL string
	TwilioBaseURL   string
	FCMBaseURL      string
}

// NewDefaultRegistry registers mock adapters for every channel plus the
// sendgrid, twilio and fcm adapters.
func NewDefaultRegistry(opts Options) *Registry {
	client := ensureClient(opts.Client)
	resolver := opts.Resolver
	if resolver == nil {
		resolver = credential.NewEnvResolver()
	}

	registry := NewRegistry()

	mock := NewMockAdapter(opts.Logger)
	for _, channel := range domain.Channels() {
		registry.Register(channel, domain.ProviderMock, mock)
	}

	registry.Register(domain.ChannelEmail, ProviderSendGrid, NewSendGridAdapter(client, resolver, opts.SendGridBaseURL))
	registry.Register(domain.ChannelSMS, ProviderTwilio, NewTwilioAdapter(client, resolver, opts.TwilioBaseURL))
	registry.Register(domain.ChannelPush, ProviderFCM, NewFCMAdapter(client, resolver, opts.Tokens, opts.FCMBaseURL))

	return registry
}
