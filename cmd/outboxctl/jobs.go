package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"github.com/kursadbilgin/notify-outbox/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type enqueueFlags struct {
	hotelID string
	channel string
	to      string
	subject string
	body    string
	payload string
	delay   time.Duration
}

func enqueueCommand(a *app) *cobra.Command {
	flags := &enqueueFlags{}

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Insert a pending notification job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := flags.job(time.Now())
			if err != nil {
				return err
			}

			repo := repository.NewGormJobRepo(a.db, a.cfg.StaleAfter())
			if err := repo.Enqueue(cmd.Context(), job); err != nil {
				return err
			}

			a.logger.Info("notification job enqueued",
				zap.String("jobId", job.ID),
				zap.String("hotelId", job.HotelID),
				zap.String("channel", job.Channel.String()),
			)
			return writeJSON(cmd.OutOrStdout(), jobView(job, nil))
		},
	}

	cmd.Flags().StringVar(&flags.hotelID, "hotel", "", "hotel id (required)")
	cmd.Flags().StringVar(&flags.channel, "channel", "", "email, sms or push (required)")
	cmd.Flags().StringVar(&flags.to, "to", "", "recipient address, phone number or device token (required)")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "subject or push title")
	cmd.Flags().StringVar(&flags.body, "body", "", "rendered message body (required)")
	cmd.Flags().StringVar(&flags.payload, "payload", "", "JSON object of extra data")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "hold the job back for this long")
	_ = cmd.MarkFlagRequired("hotel")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("body")

	return cmd
}

func (f *enqueueFlags) job(now time.Time) (*domain.NotificationJob, error) {
	channel, err := domain.ParseChannelFromString(f.channel)
	if err != nil {
		return nil, err
	}

	payload, err := parseObject("payload", f.payload)
	if err != nil {
		return nil, err
	}

	job := &domain.NotificationJob{
		HotelID:   strings.TrimSpace(f.hotelID),
		Channel:   channel,
		ToAddress: strings.TrimSpace(f.to),
		BodyText:  f.body,
		Payload:   payload,
	}
	if subject := strings.TrimSpace(f.subject); subject != "" {
		job.Subject = &subject
	}
	if f.delay > 0 {
		job.NextAttemptAt = now.Add(f.delay).UTC()
	}
	return job, nil
}

func getCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a job and its delivery attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repository.NewGormJobRepo(a.db, a.cfg.StaleAfter())

			job, err := repo.GetByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("job %s: %w", args[0], err)
			}
			attempts, err := repo.ListAttempts(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), jobView(job, attempts))
		},
	}
}

func jobView(job *domain.NotificationJob, attempts []domain.DeliveryAttempt) map[string]any {
	view := map[string]any{
		"id":            job.ID,
		"hotelId":       job.HotelID,
		"channel":       job.Channel,
		"provider":      job.Provider,
		"toAddress":     job.ToAddress,
		"subject":       job.Subject,
		"status":        job.Status,
		"attempts":      job.Attempts,
		"nextAttemptAt": job.NextAttemptAt,
		"lastError":     job.LastError,
		"externalId":    job.ExternalID,
		"createdAt":     job.CreatedAt,
		"updatedAt":     job.UpdatedAt,
	}
	if attempts == nil {
		return view
	}

	history := make([]map[string]any, 0, len(attempts))
	for _, attempt := range attempts {
		history = append(history, map[string]any{
			"attemptNumber": attempt.AttemptNumber,
			"provider":      attempt.Provider,
			"outcome":       attempt.Outcome,
			"error":         attempt.Error,
			"externalId":    attempt.ExternalID,
			"createdAt":     attempt.CreatedAt,
		})
	}
	view["deliveryAttempts"] = history
	return view
}

// parseObject decodes an optional JSON object flag.
func parseObject(name, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: --%s must be a JSON object: %v", domain.ErrValidation, name, err)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
