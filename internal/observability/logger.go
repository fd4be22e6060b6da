package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type jobScopeKey struct{}

const serviceName = "notify-outbox"

// NewLogger builds the JSON production logger used by every binary.
func NewLogger(level string) (*zap.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsedLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCaller(), zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var parsed zapcore.Level
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		normalized = "info"
	}

	if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return parsed, nil
}

// JobScope identifies the job a unit of work belongs to. Empty fields are
// omitted from log output.
type JobScope struct {
	JobID   string
	HotelID string
	Channel string
}

func (s JobScope) fields() []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if s.JobID != "" {
		fields = append(fields, zap.String("jobId", s.JobID))
	}
	if s.HotelID != "" {
		fields = append(fields, zap.String("hotelId", s.HotelID))
	}
	if s.Channel != "" {
		fields = append(fields, zap.String("channel", s.Channel))
	}
	return fields
}

func WithJobScope(ctx context.Context, scope JobScope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, jobScopeKey{}, scope)
}

// JobScopeFromContext reports the scope carried by ctx; a scope without a job
// id counts as absent.
func JobScopeFromContext(ctx context.Context) (JobScope, bool) {
	if ctx == nil {
		return JobScope{}, false
	}
	scope, ok := ctx.Value(jobScopeKey{}).(JobScope)
	if !ok || scope.JobID == "" {
		return JobScope{}, false
	}
	return scope, true
}

// ScopedLogger returns logger annotated with the job scope carried by ctx.
func ScopedLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}
	scope, ok := JobScopeFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(scope.fields()...)
}
