package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"github.com/kursadbilgin/notify-outbox/internal/provider"
)

// memoryStore mimics the outbox store state machine, including the
// processing guard on every transition.
type memoryStore struct {
	mu         sync.Mutex
	now        func() time.Time
	jobs       map[string]*domain.NotificationJob
	claimErr   error
	claimCalls int
	conflictOn map[string]bool
}

func newMemoryStore(now func() time.Time, jobs ...domain.NotificationJob) *memoryStore {
	s := &memoryStore{
		now:        now,
		jobs:       make(map[string]*domain.NotificationJob),
		conflictOn: make(map[string]bool),
	}
	for i := range jobs {
		job := jobs[i]
		if job.Status == "" {
			job.Status = domain.StatusPending
		}
		s.jobs[job.ID] = &job
	}
	return s
}

func (s *memoryStore) ClaimBatch(_ context.Context, limit int) ([]domain.NotificationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claimCalls++
	if s.claimErr != nil {
		return nil, s.claimErr
	}

	now := s.now()
	due := make([]*domain.NotificationJob, 0)
	for _, job := range s.jobs {
		if job.Status == domain.StatusPending && !job.NextAttemptAt.After(now) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].CreatedAt.Before(due[k].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]domain.NotificationJob, 0, len(due))
	for _, job := range due {
		job.Status = domain.StatusProcessing
		job.UpdatedAt = now
		claimed = append(claimed, *job)
	}
	return claimed, nil
}

func (s *memoryStore) transition(id string, apply func(job *domain.NotificationJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != domain.StatusProcessing || s.conflictOn[id] {
		return domain.ErrConflict
	}
	apply(job)
	job.UpdatedAt = s.now()
	return nil
}

func (s *memoryStore) MarkSent(_ context.Context, id, providerName string, attempts int, externalID string) error {
	return s.transition(id, func(job *domain.NotificationJob) {
		job.Status = domain.StatusSent
		job.Provider = providerName
		job.Attempts = attempts
		job.LastError = nil
		if externalID != "" {
			job.ExternalID = &externalID
		}
	})
}

func (s *memoryStore) MarkRetry(_ context.Context, id, providerName string, attempts int, errorMessage string, delay time.Duration) error {
	return s.transition(id, func(job *domain.NotificationJob) {
		job.Status = domain.StatusPending
		job.Provider = providerName
		job.Attempts = attempts
		job.LastError = &errorMessage
		job.NextAttemptAt = s.now().Add(delay)
	})
}

func (s *memoryStore) MarkFailed(_ context.Context, id, providerName string, attempts int, errorMessage string) error {
	return s.transition(id, func(job *domain.NotificationJob) {
		job.Status = domain.StatusFailed
		job.Provider = providerName
		job.Attempts = attempts
		job.LastError = &errorMessage
	})
}

func (s *memoryStore) get(id string) domain.NotificationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

type fakeSettings struct {
	hotelSettingsFn func(ctx context.Context, hotelID string) (*domain.NotificationSettings, error)
	resolveFn       func(ctx context.Context, tenant *domain.NotificationSettings, channel domain.Channel) (domain.ChannelSettings, error)
}

func (f *fakeSettings) HotelSettings(ctx context.Context, hotelID string) (*domain.NotificationSettings, error) {
	if f.hotelSettingsFn != nil {
		return f.hotelSettingsFn(ctx, hotelID)
	}
	return &domain.NotificationSettings{HotelID: hotelID}, nil
}

func (f *fakeSettings) Resolve(ctx context.Context, tenant *domain.NotificationSettings, channel domain.Channel) (domain.ChannelSettings, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, tenant, channel)
	}
	return domain.ChannelSettings{Provider: domain.ProviderMock, Config: map[string]any{}}, nil
}

type fakeSender struct {
	mu       sync.Mutex
	sendFn   func(ctx context.Context, req provider.SendRequest) (*provider.SendResult, error)
	requests []provider.SendRequest
}

func (f *fakeSender) Send(ctx context.Context, req provider.SendRequest) (*provider.SendResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, req)
	}
	return &provider.SendResult{ExternalID: "ext-" + req.JobID}, nil
}

func (f *fakeSender) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeLimiter struct {
	waitFn func(ctx context.Context, key string) error
	keys   []string
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

func (f *fakeLimiter) Wait(ctx context.Context, key string) error {
	f.keys = append(f.keys, key)
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}
