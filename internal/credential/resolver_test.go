package credential

import "testing"

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	secrets := map[string]string{
		"SENDGRID_API_KEY": "SG.live-key",
		"PADDED":           "  value  ",
	}
	resolver := NewResolver(func(name string) (string, bool) {
		v, ok := secrets[name]
		return v, ok
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "blank", input: "   ", want: ""},
		{name: "literal", input: "SG.literal", want: "SG.literal"},
		{name: "env reference", input: "env:SENDGRID_API_KEY", want: "SG.live-key"},
		{name: "secret reference", input: "secret:SENDGRID_API_KEY", want: "SG.live-key"},
		{name: "prefix is case insensitive", input: "ENV:SENDGRID_API_KEY", want: "SG.live-key"},
		{name: "resolved value is trimmed", input: "env:PADDED", want: "value"},
		{name: "unknown reference", input: "env:MISSING", want: ""},
		{name: "empty reference name", input: "env:", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolver.Resolve(tt.input); got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolverField(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(func(name string) (string, bool) {
		if name == "TWILIO_TOKEN" {
			return "tok", true
		}
		return "", false
	})

	config := map[string]any{
		"authToken":  "env:TWILIO_TOKEN",
		"fromNumber": "+15550100",
		"retries":    3,
	}

	if got := resolver.Field(config, "authToken"); got != "tok" {
		t.Fatalf("Field(authToken) = %q, want tok", got)
	}
	if got := resolver.Field(config, "fromNumber"); got != "+15550100" {
		t.Fatalf("Field(fromNumber) = %q, want +15550100", got)
	}
	if got := resolver.Field(config, "retries"); got != "3" {
		t.Fatalf("Field(retries) = %q, want 3", got)
	}
	if got := resolver.Field(config, "missing"); got != "" {
		t.Fatalf("Field(missing) = %q, want empty", got)
	}
	if got := resolver.Field(nil, "authToken"); got != "" {
		t.Fatalf("Field(nil config) = %q, want empty", got)
	}
}

func TestIsReference(t *testing.T) {
	t.Parallel()

	if !IsReference(" env:KEY") {
		t.Fatal("env:KEY should be a reference")
	}
	if IsReference("SG.literal") {
		t.Fatal("literal should not be a reference")
	}
}

func TestNewEnvResolver(t *testing.T) {
	t.Setenv("NOTIFY_OUTBOX_TEST_SECRET", "from-env")

	if got := NewEnvResolver().Resolve("env:NOTIFY_OUTBOX_TEST_SECRET"); got != "from-env" {
		t.Fatalf("Resolve() = %q, want from-env", got)
	}
}
