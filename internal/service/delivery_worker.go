package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"github.com/kursadbilgin/notify-outbox/internal/observability"
	"github.com/kursadbilgin/notify-outbox/internal/provider"
	"github.com/kursadbilgin/notify-outbox/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 1500 * time.Millisecond
	DefaultBatchSize    = 10
	DefaultMaxAttempts  = 8

	baseRetryDelay     = 5 * time.Second
	maxRetryDelay      = 600 * time.Second
	maxRetryJitterSecs = 3
	maxClaimBackoff    = 5 * time.Second
)

// JobStore is the part of the outbox store the worker drives.
type JobStore interface {
	ClaimBatch(ctx context.Context, limit int) ([]domain.NotificationJob, error)
	MarkSent(ctx context.Context, id, provider string, attempts int, externalID string) error
	MarkRetry(ctx context.Context, id, provider string, attempts int, errorMessage string, delay time.Duration) error
	MarkFailed(ctx context.Context, id, provider string, attempts int, errorMessage string) error
}

// SettingsResolver finds the provider that should deliver a job.
type SettingsResolver interface {
	HotelSettings(ctx context.Context, hotelID string) (*domain.NotificationSettings, error)
	Resolve(ctx context.Context, tenant *domain.NotificationSettings, channel domain.Channel) (domain.ChannelSettings, error)
}

// Sender dispatches a request to the adapter registered for its provider.
type Sender interface {
	Send(ctx context.Context, req provider.SendRequest) (*provider.SendResult, error)
}

// WorkerConfig holds the tunables read once at startup.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// DeliveryWorker polls the outbox, sends each claimed job and records the
// outcome. Jobs within a batch are processed one at a time.
type DeliveryWorker struct {
	store    JobStore
	settings SettingsResolver
	sender   Sender
	limiter  ratelimit.Limiter
	logger   *zap.Logger
	metrics  *observability.Metrics
	cfg      WorkerConfig
	now      func() time.Time
	randIntn func(n int) int
	sleep    func(ctx context.Context, d time.Duration)
}

func NewDeliveryWorker(
	store JobStore,
	settings SettingsResolver,
	sender Sender,
	limiter ratelimit.Limiter,
	cfg WorkerConfig,
	logger *zap.Logger,
) *DeliveryWorker {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryWorker{
		store:    store,
		settings: settings,
		sender:   sender,
		limiter:  limiter,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		randIntn: rand.Intn,
		sleep:    sleepContext,
	}
}

func (w *DeliveryWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Run polls until ctx is cancelled. Cancellation is observed between cycles
// only; a claimed batch is always finished.
func (w *DeliveryWorker) Run(ctx context.Context) error {
	w.logger.Info("delivery worker started",
		zap.Duration("pollInterval", w.cfg.PollInterval),
		zap.Int("batchSize", w.cfg.BatchSize),
		zap.Int("maxAttempts", w.cfg.MaxAttempts),
	)

	for {
		if ctx.Err() != nil {
			w.logger.Info("delivery worker stopped")
			return nil
		}

		claimed, err := w.RunOnce(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			w.metrics.IncClaimError()
			w.logger.Error("failed to claim notification jobs", zap.Error(err))
			w.sleep(ctx, w.claimErrorBackoff())
		case claimed == 0:
			w.sleep(ctx, w.cfg.PollInterval)
		}
	}
}

// RunOnce claims one batch and processes it. It returns the number of jobs
// claimed; only a claim failure is returned as an error.
func (w *DeliveryWorker) RunOnce(ctx context.Context) (int, error) {
	jobs, err := w.store.ClaimBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	w.metrics.AddJobsClaimed(len(jobs))

	// In-flight sends are never interrupted by shutdown.
	itemCtx := context.WithoutCancel(ctx)
	for i := range jobs {
		w.processItem(itemCtx, jobs[i])
	}
	return len(jobs), nil
}

func (w *DeliveryWorker) processItem(ctx context.Context, job domain.NotificationJob) {
	attemptNumber := job.Attempts + 1
	ctx = observability.WithJobScope(ctx, observability.JobScope{
		JobID:   job.ID,
		HotelID: job.HotelID,
		Channel: job.Channel.String(),
	})
	logger := observability.ScopedLogger(w.logger, ctx).With(zap.Int("attempt", attemptNumber))

	tenant, err := w.settings.HotelSettings(ctx, job.HotelID)
	if err != nil {
		w.handleFailure(ctx, logger, job, job.Provider, attemptNumber, err)
		return
	}

	if attemptNumber > w.cfg.MaxAttempts {
		w.markFailed(ctx, logger, job, job.Provider, job.Attempts, provider.ErrMaxAttemptsExceeded())
		return
	}

	chosen, err := w.settings.Resolve(ctx, tenant, job.Channel)
	if err != nil {
		w.handleFailure(ctx, logger, job, job.Provider, attemptNumber, err)
		return
	}
	logger = logger.With(zap.String("provider", chosen.Provider))

	if err := w.limiter.Wait(ctx, ratelimit.Key(job.Channel.String(), chosen.Provider)); err != nil {
		w.handleFailure(ctx, logger, job, chosen.Provider, attemptNumber, provider.ErrTransport("ratelimit", err))
		return
	}

	start := w.now()
	result, err := w.sender.Send(ctx, provider.SendRequest{
		JobID:    job.ID,
		HotelID:  job.HotelID,
		Channel:  job.Channel,
		Provider: chosen.Provider,
		Config:   chosen.Config,
		To:       job.ToAddress,
		Subject:  job.SubjectOrEmpty(),
		Body:     job.BodyText,
		Data:     job.Payload,
	})
	w.metrics.ObserveNotificationSendDuration(job.Channel.String(), chosen.Provider, w.now().Sub(start))
	if err != nil {
		w.handleFailure(ctx, logger, job, chosen.Provider, attemptNumber, err)
		return
	}

	externalID := ""
	if result != nil {
		externalID = result.ExternalID
	}
	if err := w.store.MarkSent(ctx, job.ID, chosen.Provider, attemptNumber, externalID); err != nil {
		w.logMarkError(logger, "sent", err)
		return
	}

	w.metrics.IncNotificationSent(job.Channel.String(), chosen.Provider)
	logger.Info("notification sent", zap.String("externalId", externalID))
}

// handleFailure turns a per-item error into a retry, or a terminal failure once
// the attempt budget is spent. A spent budget is recorded as
// max_attempts_exceeded; the last cause is kept in the log and metrics reason.
func (w *DeliveryWorker) handleFailure(
	ctx context.Context,
	logger *zap.Logger,
	job domain.NotificationJob,
	providerName string,
	attemptNumber int,
	cause error,
) {
	if attemptNumber >= w.cfg.MaxAttempts {
		w.markFailed(ctx, logger, job, providerName, attemptNumber, cause)
		return
	}

	kind := provider.KindOf(cause)
	delay := w.computeRetryDelay(attemptNumber)
	if err := w.store.MarkRetry(ctx, job.ID, providerName, attemptNumber, cause.Error(), delay); err != nil {
		w.logMarkError(logger, "retry", err)
		return
	}

	w.metrics.IncRetryScheduled(job.Channel.String(), kind.String())

	fields := []zap.Field{
		zap.String("reason", kind.String()),
		zap.Duration("retryIn", delay),
		zap.Error(cause),
	}
	if provider.IsTransient(cause) {
		logger.Info("notification retry scheduled", fields...)
		return
	}
	logger.Warn("notification retry scheduled", fields...)
}

func (w *DeliveryWorker) markFailed(
	ctx context.Context,
	logger *zap.Logger,
	job domain.NotificationJob,
	providerName string,
	attempts int,
	cause error,
) {
	kind := provider.KindOf(cause)
	exhausted := provider.ErrMaxAttemptsExceeded()
	if err := w.store.MarkFailed(ctx, job.ID, providerName, attempts, exhausted.Error()); err != nil {
		w.logMarkError(logger, "failed", err)
		return
	}

	w.metrics.IncNotificationFailed(job.Channel.String(), kind.String())
	logger.Warn("notification failed permanently",
		zap.String("reason", kind.String()),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	)
}

func (w *DeliveryWorker) logMarkError(logger *zap.Logger, transition string, err error) {
	if errors.Is(err, domain.ErrConflict) {
		logger.Warn("job no longer owned by this worker, transition skipped",
			zap.String("transition", transition),
		)
		return
	}
	logger.Error("failed to record job transition",
		zap.String("transition", transition),
		zap.Error(err),
	)
}

// computeRetryDelay returns min(600s, 5s * 2^(n-1)) plus 0-3s of jitter.
func (w *DeliveryWorker) computeRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := baseRetryDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}

	jitter := 0
	if w.randIntn != nil {
		jitter = w.randIntn(maxRetryJitterSecs + 1)
	}
	return delay + time.Duration(jitter)*time.Second
}

func (w *DeliveryWorker) claimErrorBackoff() time.Duration {
	return min(2*w.cfg.PollInterval, maxClaimBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
