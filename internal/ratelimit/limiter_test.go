package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key(" Email ", "SendGrid"); got != "email:sendgrid" {
		t.Fatalf("Key() = %q, want email:sendgrid", got)
	}
}

func TestLocalAllowPerKey(t *testing.T) {
	t.Parallel()

	limiter := NewLocal(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, err := limiter.Allow(ctx, "sms:twilio"); err != nil || !ok {
			t.Fatalf("Allow() #%d = %v, %v, want allowed", i+1, ok, err)
		}
	}
	if ok, _ := limiter.Allow(ctx, "sms:twilio"); ok {
		t.Fatal("third call in the same instant should be throttled")
	}
	if ok, _ := limiter.Allow(ctx, "email:sendgrid"); !ok {
		t.Fatal("other keys have their own bucket")
	}
}

func TestLocalWaitHonoursContext(t *testing.T) {
	t.Parallel()

	limiter := NewLocal(1)
	if err := limiter.Wait(context.Background(), "push:fcm"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "push:fcm"); err == nil {
		t.Fatal("Wait() should fail when the next token is past the deadline")
	}
}

func TestLocalRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewLocal(5).Allow(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank key")
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var limiter Limiter = Noop{}
	if ok, err := limiter.Allow(context.Background(), ""); !ok || err != nil {
		t.Fatalf("Allow() = %v, %v", ok, err)
	}
	if err := limiter.Wait(context.Background(), ""); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}
