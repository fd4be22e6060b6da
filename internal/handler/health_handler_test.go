package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-outbox/internal/transport"
	"go.uber.org/zap"
)

func okPing(context.Context) error { return nil }

func downPing(context.Context) error { return errors.New("connection refused") }

func TestLivez(t *testing.T) {
	t.Parallel()

	app := newHealthTestApp(Dependencies{})
	resp, body := performRequest(t, app, "/livez")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deps       Dependencies
		wantStatus int
		wantPG     string
		wantRedis  string
	}{
		{
			name:       "postgres only",
			deps:       Dependencies{Postgres: okPing},
			wantStatus: fiber.StatusOK,
			wantPG:     "ok",
			wantRedis:  "disabled",
		},
		{
			name:       "postgres and redis",
			deps:       Dependencies{Postgres: okPing, Redis: okPing},
			wantStatus: fiber.StatusOK,
			wantPG:     "ok",
			wantRedis:  "ok",
		},
		{
			name:       "postgres down",
			deps:       Dependencies{Postgres: downPing, Redis: okPing},
			wantStatus: fiber.StatusServiceUnavailable,
			wantPG:     "down",
			wantRedis:  "ok",
		},
		{
			name:       "redis down",
			deps:       Dependencies{Postgres: okPing, Redis: downPing},
			wantStatus: fiber.StatusServiceUnavailable,
			wantPG:     "ok",
			wantRedis:  "down",
		},
		{
			name:       "postgres not wired",
			deps:       Dependencies{},
			wantStatus: fiber.StatusServiceUnavailable,
			wantPG:     "down",
			wantRedis:  "disabled",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newHealthTestApp(tt.deps)
			resp, body := performRequest(t, app, "/readyz")
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			checks, ok := body["checks"].(map[string]any)
			if !ok {
				t.Fatalf("checks missing in %v", body)
			}
			if checks["postgres"] != tt.wantPG || checks["redis"] != tt.wantRedis {
				t.Fatalf("checks = %v, want postgres=%s redis=%s", checks, tt.wantPG, tt.wantRedis)
			}
		})
	}
}

func TestUnknownRouteUsesErrorHandler(t *testing.T) {
	t.Parallel()

	app := newHealthTestApp(Dependencies{Postgres: okPing})
	resp, body := performRequest(t, app, "/nope")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if _, ok := body["error"]; !ok {
		t.Fatalf("body = %v, want error field", body)
	}
}

func newHealthTestApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	RegisterHealthRoutes(app, deps)
	return app
}

func performRequest(t *testing.T, app *fiber.App, path string) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("json unmarshal error = %v, body=%s", err, string(raw))
	}
	return resp, body
}
