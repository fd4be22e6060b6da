package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"gorm.io/gorm"
)

const DefaultStaleAfter = 5 * time.Minute

// claimSQL flips due pending rows, plus processing rows whose owner went quiet,
// to processing. SKIP LOCKED keeps concurrent workers from waiting on each
// other's rows; each row goes to exactly one of them.
const claimSQL = `
WITH candidates AS (
	SELECT id FROM notification_jobs
	WHERE (status = ? AND next_attempt_at <= ?)
	   OR (status = ? AND updated_at < ?)
	ORDER BY created_at ASC
	LIMIT ?
	FOR UPDATE SKIP LOCKED
)
UPDATE notification_jobs AS j
SET status = ?, updated_at = ?
FROM candidates
WHERE j.id = candidates.id
RETURNING j.*`

// JobRepository is the outbox store.
type JobRepository interface {
	Enqueue(ctx context.Context, job *domain.NotificationJob) error
	GetByID(ctx context.Context, id string) (*domain.NotificationJob, error)
	ClaimBatch(ctx context.Context, limit int) ([]domain.NotificationJob, error)
	MarkSent(ctx context.Context, id, provider string, attempts int, externalID string) error
	MarkRetry(ctx context.Context, id, provider string, attempts int, errorMessage string, delay time.Duration) error
	MarkFailed(ctx context.Context, id, provider string, attempts int, errorMessage string) error
	ListAttempts(ctx context.Context, jobID string) ([]domain.DeliveryAttempt, error)
}

type GormJobRepo struct {
	db         *gorm.DB
	staleAfter time.Duration
	now        func() time.Time
	newID      func() string
}

func NewGormJobRepo(db *gorm.DB, staleAfter time.Duration) *GormJobRepo {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &GormJobRepo{
		db:         db,
		staleAfter: staleAfter,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Enqueue inserts a new pending job. Unset id and nextAttemptAt are filled in.
func (r *GormJobRepo) Enqueue(ctx context.Context, job *domain.NotificationJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is required", domain.ErrValidation)
	}
	if err := job.Validate(); err != nil {
		return err
	}

	now := r.now().UTC()
	if strings.TrimSpace(job.ID) == "" {
		job.ID = r.newID()
	}
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = now
	}
	job.Status = domain.StatusPending
	job.Attempts = 0
	job.LastError = nil
	job.ExternalID = nil
	job.CreatedAt = now
	job.UpdatedAt = now

	model := jobModelFromDomain(job)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*job = *jobModelToDomain(model)
	return nil
}

func (r *GormJobRepo) GetByID(ctx context.Context, id string) (*domain.NotificationJob, error) {
	var model NotificationJobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return jobModelToDomain(&model), nil
}

// ClaimBatch atomically takes up to limit due or stale jobs, oldest first.
func (r *GormJobRepo) ClaimBatch(ctx context.Context, limit int) ([]domain.NotificationJob, error) {
	if limit <= 0 {
		return nil, nil
	}

	now := r.now().UTC()
	staleBefore := now.Add(-r.staleAfter)

	var models []NotificationJobModel
	err := r.db.WithContext(ctx).
		Raw(claimSQL,
			domain.StatusPending, now,
			domain.StatusProcessing, staleBefore,
			limit,
			domain.StatusProcessing, now,
		).
		Scan(&models).Error
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}

	// RETURNING does not preserve the CTE's ordering.
	sort.SliceStable(models, func(i, k int) bool {
		return models[i].CreatedAt.Before(models[k].CreatedAt)
	})

	jobs := make([]domain.NotificationJob, 0, len(models))
	for i := range models {
		jobs = append(jobs, *jobModelToDomain(&models[i]))
	}
	return jobs, nil
}

func (r *GormJobRepo) MarkSent(ctx context.Context, id, provider string, attempts int, externalID string) error {
	var external *string
	if trimmed := strings.TrimSpace(externalID); trimmed != "" {
		external = &trimmed
	}

	return r.transition(ctx, id, map[string]any{
		"status":      domain.StatusSent,
		"provider":    provider,
		"attempts":    attempts,
		"external_id": external,
		"last_error":  nil,
	}, domain.DeliveryAttempt{
		AttemptNumber: attempts,
		Provider:      provider,
		Outcome:       domain.StatusSent,
		ExternalID:    external,
	})
}

func (r *GormJobRepo) MarkRetry(ctx context.Context, id, provider string, attempts int, errorMessage string, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	return r.transition(ctx, id, map[string]any{
		"status":          domain.StatusPending,
		"provider":        provider,
		"attempts":        attempts,
		"last_error":      errorMessage,
		"next_attempt_at": r.now().UTC().Add(delay),
	}, domain.DeliveryAttempt{
		AttemptNumber: attempts,
		Provider:      provider,
		Outcome:       domain.StatusPending,
		Error:         &errorMessage,
	})
}

func (r *GormJobRepo) MarkFailed(ctx context.Context, id, provider string, attempts int, errorMessage string) error {
	return r.transition(ctx, id, map[string]any{
		"status":     domain.StatusFailed,
		"provider":   provider,
		"attempts":   attempts,
		"last_error": errorMessage,
	}, domain.DeliveryAttempt{
		AttemptNumber: attempts,
		Provider:      provider,
		Outcome:       domain.StatusFailed,
		Error:         &errorMessage,
	})
}

// transition applies updates only while the job is still processing and writes
// the audit row in the same transaction. A guard miss means another worker
// reclaimed the job; it is reported as ErrConflict.
func (r *GormJobRepo) transition(ctx context.Context, id string, updates map[string]any, attempt domain.DeliveryAttempt) error {
	now := r.now().UTC()
	updates["updated_at"] = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&NotificationJobModel{}).
			Where("id = ? AND status = ?", id, domain.StatusProcessing).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrConflict
		}

		return tx.Create(&DeliveryAttemptModel{
			ID:            r.newID(),
			JobID:         id,
			AttemptNumber: attempt.AttemptNumber,
			Provider:      attempt.Provider,
			Outcome:       attempt.Outcome,
			Error:         attempt.Error,
			ExternalID:    attempt.ExternalID,
			CreatedAt:     now,
		}).Error
	})
}

func (r *GormJobRepo) ListAttempts(ctx context.Context, jobID string) ([]domain.DeliveryAttempt, error) {
	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("attempt_number ASC").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}
	return attempts, nil
}
