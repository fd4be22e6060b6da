package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-outbox/internal/credential"
	"github.com/kursadbilgin/notify-outbox/internal/oauth"
)

const (
	ProviderFCM       = "fcm"
	DefaultFCMBaseURL = "https://fcm.googleapis.com"
	FCMScope          = "https://www.googleapis.com/auth/firebase.messaging"
)

// TokenSource hands out bearer tokens for a service-account identity.
type TokenSource interface {
	Token(ctx context.Context, id oauth.Identity) (string, error)
}

type tokenInvalidator interface {
	Invalidate(id oauth.Identity)
}

type fcmNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmEnvelope struct {
	Message fcmMessage `json:"message"`
}

type fcmResponse struct {
	Name string `json:"name"`
}

// FCMAdapter sends push messages through the FCM HTTP v1 API.
type FCMAdapter struct {
	client   *resty.Client
	resolver *credential.Resolver
	tokens   TokenSource
	baseURL  string
}

func NewFCMAdapter(client *resty.Client, resolver *credential.Resolver, tokens TokenSource, baseURL string) *FCMAdapter {
	if resolver == nil {
		resolver = credential.NewEnvResolver()
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultFCMBaseURL
	}
	client = ensureClient(client)
	if tokens == nil {
		tokens = oauth.NewTokenCache(nil)
	}
	return &FCMAdapter{
		client:   client,
		resolver: resolver,
		tokens:   tokens,
		baseURL:  baseURL,
	}
}

func (a *FCMAdapter) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	sa := oauth.ParseServiceAccount(req.Config["serviceAccount"], a.resolver)
	if sa == nil || sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, ErrMissingCredential("fcm_service_account")
	}

	projectID := a.resolver.Field(req.Config, "projectId")
	if projectID == "" {
		projectID = sa.ProjectID
	}
	if projectID == "" {
		return nil, ErrMissingCredential("fcm_project_id")
	}

	identity := sa.Identity(FCMScope)
	accessToken, err := a.tokens.Token(ctx, identity)
	if err != nil {
		return nil, tokenError(err)
	}

	envelope := fcmEnvelope{
		Message: fcmMessage{
			Token: req.To,
			Notification: fcmNotification{
				Title: pushTitle(req),
				Body:  req.Body,
			},
			Data: StringifyData(req.Data),
		},
	}

	endpoint := joinURL(a.baseURL, fmt.Sprintf("/v1/projects/%s/messages:send", url.PathEscape(projectID)))
	response, err := execute(ctx, ProviderFCM,
		a.client.R().
			SetAuthToken(accessToken).
			SetHeader("Content-Type", "application/json").
			SetBody(envelope),
		endpoint,
	)
	if err != nil {
		var deliveryErr *DeliveryError
		if errors.As(err, &deliveryErr) && deliveryErr.StatusCode == http.StatusUnauthorized {
			if invalidator, ok := a.tokens.(tokenInvalidator); ok {
				invalidator.Invalidate(identity)
			}
		}
		return nil, err
	}

	var body fcmResponse
	_ = json.Unmarshal(response.Body(), &body)

	return &SendResult{
		ExternalID: strings.TrimSpace(body.Name),
		StatusCode: response.StatusCode(),
	}, nil
}

func tokenError(err error) error {
	if errors.Is(err, oauth.ErrMissingAccessToken) {
		return &DeliveryError{Kind: KindProviderHTTP, Code: "missing_access_token", Cause: err}
	}
	if errors.Is(err, oauth.ErrInvalidIdentity) {
		return &DeliveryError{Kind: KindCredentialMissing, Code: "missing_fcm_service_account", Cause: err}
	}

	var exchangeErr *oauth.ExchangeError
	if errors.As(err, &exchangeErr) {
		deliveryErr := ErrHTTPStatus("fcm_oauth", exchangeErr.StatusCode, exchangeErr.Body)
		deliveryErr.Cause = err
		return deliveryErr
	}
	return ErrTransport("fcm_oauth", err)
}

// pushTitle prefers the job subject and falls back to a "title" payload field.
func pushTitle(req SendRequest) string {
	if title := strings.TrimSpace(req.Subject); title != "" {
		return title
	}
	if title, ok := req.Data["title"].(string); ok {
		return strings.TrimSpace(title)
	}
	return ""
}

// StringifyData flattens payload values into the string map FCM requires.
// Strings pass through, nil values are dropped, everything else is JSON encoded.
func StringifyData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}

	out := make(map[string]string, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			out[key] = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				out[key] = fmt.Sprint(v)
				continue
			}
			out[key] = string(encoded)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
