package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		level        string
		debugEnabled bool
		warnEnabled  bool
	}{
		{name: "debug level", level: "debug", debugEnabled: true, warnEnabled: true},
		{name: "info level", level: "INFO", debugEnabled: false, warnEnabled: true},
		{name: "error level", level: " error ", debugEnabled: false, warnEnabled: false},
		{name: "empty level defaults to info", level: "", debugEnabled: false, warnEnabled: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tc.debugEnabled {
				t.Fatalf("debug enabled=%v, want=%v", got, tc.debugEnabled)
			}
			if got := logger.Core().Enabled(zapcore.WarnLevel); got != tc.warnEnabled {
				t.Fatalf("warn enabled=%v, want=%v", got, tc.warnEnabled)
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("verbose")
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
	if logger != nil {
		t.Fatal("expected nil logger for invalid level")
	}
}

func TestJobScopeContext(t *testing.T) {
	t.Parallel()

	ctx := WithJobScope(context.Background(), JobScope{JobID: "job-123", HotelID: "h-1", Channel: "sms"})
	scope, ok := JobScopeFromContext(ctx)
	if !ok || scope.JobID != "job-123" || scope.HotelID != "h-1" || scope.Channel != "sms" {
		t.Fatalf("JobScopeFromContext() = (%+v, %v)", scope, ok)
	}

	if _, ok := JobScopeFromContext(context.Background()); ok {
		t.Fatal("expected scope to be missing")
	}
	if _, ok := JobScopeFromContext(WithJobScope(context.Background(), JobScope{HotelID: "h-1"})); ok {
		t.Fatal("scope without job id should be reported as missing")
	}
}

func TestScopedLogger(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		ctx        context.Context
		wantFields map[string]any
	}{
		{
			name:       "adds every scope field",
			ctx:        WithJobScope(context.Background(), JobScope{JobID: "job-789", HotelID: "h-2", Channel: "push"}),
			wantFields: map[string]any{"jobId": "job-789", "hotelId": "h-2", "channel": "push"},
		},
		{
			name:       "omits empty fields",
			ctx:        WithJobScope(context.Background(), JobScope{JobID: "job-1"}),
			wantFields: map[string]any{"jobId": "job-1"},
		},
		{
			name:       "leaves logger untouched without scope",
			ctx:        context.Background(),
			wantFields: map[string]any{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			core, recorded := observer.New(zapcore.InfoLevel)
			ScopedLogger(zap.New(core), tc.ctx).Info("job claimed")

			entries := recorded.All()
			if len(entries) != 1 {
				t.Fatalf("entries=%d, want=1", len(entries))
			}

			got := entries[0].ContextMap()
			if len(got) != len(tc.wantFields) {
				t.Fatalf("fields=%v, want=%v", got, tc.wantFields)
			}
			for key, want := range tc.wantFields {
				if got[key] != want {
					t.Fatalf("%s=%v, want=%v", key, got[key], want)
				}
			}
		})
	}

	if got := ScopedLogger(nil, context.Background()); got != nil {
		t.Fatal("expected nil logger")
	}
}
