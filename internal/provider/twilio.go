package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-outbox/internal/credential"
)

const (
	ProviderTwilio       = "twilio"
	DefaultTwilioBaseURL = "https://api.twilio.com"
)

type twilioMessage struct {
	SID string `json:"sid"`
}

// TwilioAdapter sends SMS through the Messages resource with account Basic auth.
type TwilioAdapter struct {
	client   *resty.Client
	resolver *credential.Resolver
	baseURL  string
}

func NewTwilioAdapter(client *resty.Client, resolver *credential.Resolver, baseURL string) *TwilioAdapter {
	if resolver == nil {
		resolver = credential.NewEnvResolver()
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultTwilioBaseURL
	}
	return &TwilioAdapter{
		client:   ensureClient(client),
		resolver: resolver,
		baseURL:  baseURL,
	}
}

func (a *TwilioAdapter) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	accountSID := a.resolver.Field(req.Config, "accountSid")
	if accountSID == "" {
		return nil, ErrMissingCredential("twilio_account_sid")
	}
	authToken := a.resolver.Field(req.Config, "authToken")
	if authToken == "" {
		return nil, ErrMissingCredential("twilio_auth_token")
	}
	fromNumber := a.resolver.Field(req.Config, "fromNumber")
	if fromNumber == "" {
		return nil, ErrMissingCredential("twilio_from_number")
	}

	endpoint := joinURL(a.baseURL, fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", url.PathEscape(accountSID)))

	response, err := execute(ctx, ProviderTwilio,
		a.client.R().
			SetBasicAuth(accountSID, authToken).
			SetFormData(map[string]string{
				"To":   req.To,
				"From": fromNumber,
				"Body": req.Body,
			}),
		endpoint,
	)
	if err != nil {
		return nil, err
	}

	// A 2xx without a parseable body still counts as delivered.
	var message twilioMessage
	_ = json.Unmarshal(response.Body(), &message)

	return &SendResult{
		ExternalID: strings.TrimSpace(message.SID),
		StatusCode: response.StatusCode(),
	}, nil
}
