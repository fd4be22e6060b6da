package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandlerStatusAndLogLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/gone", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusGone, "gone") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/gone", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusGone {
		t.Fatalf("status = %d, want 410", resp.StatusCode)
	}

	if got := logs.FilterMessage("request error").FilterLevelExact(zapcore.ErrorLevel).Len(); got != 1 {
		t.Fatalf("error logs = %d, want 1", got)
	}
	if got := logs.FilterMessage("request rejected").FilterLevelExact(zapcore.WarnLevel).Len(); got != 1 {
		t.Fatalf("warn logs = %d, want 1", got)
	}
}
