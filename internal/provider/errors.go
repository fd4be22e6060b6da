package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
)

const maxErrorBodyChars = 200

// ErrorKind classifies why a delivery did not succeed.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindDisabled
	KindUnsupportedProvider
	KindCredentialMissing
	KindProviderHTTP
	KindTransport
	KindMissingSettings
	KindMaxAttemptsExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindDisabled:
		return "disabled"
	case KindUnsupportedProvider:
		return "unsupported_provider"
	case KindCredentialMissing:
		return "credential_missing"
	case KindProviderHTTP:
		return "provider_http"
	case KindTransport:
		return "transport"
	case KindMissingSettings:
		return "missing_settings"
	case KindMaxAttemptsExceeded:
		return "max_attempts_exceeded"
	default:
		return "internal"
	}
}

// IsConfiguration reports whether the failure recurs until config is fixed.
func (k ErrorKind) IsConfiguration() bool {
	switch k {
	case KindDisabled, KindUnsupportedProvider, KindCredentialMissing, KindMissingSettings:
		return true
	}
	return false
}

// DeliveryError is a classified delivery failure. Error() returns the stable code
// persisted as the job's lastError.
type DeliveryError struct {
	Kind       ErrorKind
	Code       string
	StatusCode int
	Cause      error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.String()
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Transient reports whether the same request could succeed without a config change.
func (e *DeliveryError) Transient() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindTransport:
		return true
	case KindProviderHTTP:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func ErrDisabled(channel domain.Channel) *DeliveryError {
	return &DeliveryError{Kind: KindDisabled, Code: fmt.Sprintf("%s_disabled", channel)}
}

func ErrUnsupportedProvider(channel domain.Channel, provider string) *DeliveryError {
	return &DeliveryError{
		Kind: KindUnsupportedProvider,
		Code: fmt.Sprintf("%s_provider_not_supported:%s", channel, provider),
	}
}

// ErrMissingCredential reports a required config field that resolved to "".
func ErrMissingCredential(name string) *DeliveryError {
	return &DeliveryError{Kind: KindCredentialMissing, Code: "missing_" + name}
}

func ErrMissingSettings() *DeliveryError {
	return &DeliveryError{Kind: KindMissingSettings, Code: "missing_hotel_notifications"}
}

func ErrMaxAttemptsExceeded() *DeliveryError {
	return &DeliveryError{Kind: KindMaxAttemptsExceeded, Code: "max_attempts_exceeded"}
}

// ErrHTTPStatus builds "<prefix>_error_<status>:<body>" with the body truncated.
func ErrHTTPStatus(prefix string, statusCode int, body string) *DeliveryError {
	return &DeliveryError{
		Kind:       KindProviderHTTP,
		Code:       fmt.Sprintf("%s_error_%d:%s", prefix, statusCode, truncate(strings.TrimSpace(body), maxErrorBodyChars)),
		StatusCode: statusCode,
	}
}

// ErrTransport wraps a failure to complete the HTTP exchange at all.
func ErrTransport(prefix string, cause error) *DeliveryError {
	return &DeliveryError{
		Kind:  KindTransport,
		Code:  fmt.Sprintf("%s_request_failed:%s", prefix, truncate(errorText(cause), maxErrorBodyChars)),
		Cause: cause,
	}
}

// KindOf classifies any error returned along the delivery path.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}

	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}

	return KindInternal
}

// IsTransient reports whether an error is worth logging as a passing provider issue.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Transient()
	}
	return KindOf(err) == KindTransport
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
