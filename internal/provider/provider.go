package provider

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
)

// SendRequest is the channel-neutral input handed to an adapter. Config holds the
// provider config exactly as stored, secret references unresolved.
type SendRequest struct {
	JobID    string
	HotelID  string
	Channel  domain.Channel
	Provider string
	Config   map[string]any
	To       string
	Subject  string
	Body     string
	Data     map[string]any
}

// SendResult stores provider call metadata for audit and persistence.
type SendResult struct {
	ExternalID string
	StatusCode int
}

// Adapter is the outbound delivery port for one (channel, provider) pair.
type Adapter interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

// AdapterFunc lets a plain function act as an Adapter.
type AdapterFunc func(ctx context.Context, req SendRequest) (*SendResult, error)

func (f AdapterFunc) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	return f(ctx, req)
}

type registryKey struct {
	channel  domain.Channel
	provider string
}

// Registry dispatches send requests by (channel, provider).
type Registry struct {
	mu       sync.RWMutex
	adapters map[registryKey]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[registryKey]Adapter)}
}

func (r *Registry) Register(channel domain.Channel, provider string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[registryKey{channel: channel, provider: normalizeProvider(provider)}] = adapter
}

func (r *Registry) Lookup(channel domain.Channel, provider string) (Adapter, error) {
	r.mu.RLock()
	adapter, ok := r.adapters[registryKey{channel: channel, provider: normalizeProvider(provider)}]
	r.mu.RUnlock()
	if !ok || adapter == nil {
		return nil, ErrUnsupportedProvider(channel, provider)
	}
	return adapter, nil
}

// Send looks up the adapter for req and calls it.
func (r *Registry) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	adapter, err := r.Lookup(req.Channel, req.Provider)
	if err != nil {
		return nil, err
	}
	return adapter.Send(ctx, req)
}

// Providers lists the provider names registered for channel, sorted.
func (r *Registry) Providers(channel domain.Channel) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for key := range r.adapters {
		if key.channel == channel {
			names = append(names, key.provider)
		}
	}
	sort.Strings(names)
	return names
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
