package provider

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/notify-outbox/internal/credential"
)

const (
	ProviderSendGrid       = "sendgrid"
	DefaultSendGridBaseURL = "https://api.sendgrid.com"
)

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

// SendGridAdapter sends single-recipient plain-text mail through the v3 mail API.
type SendGridAdapter struct {
	client   *resty.Client
	resolver *credential.Resolver
	baseURL  string
}

func NewSendGridAdapter(client *resty.Client, resolver *credential.Resolver, baseURL string) *SendGridAdapter {
	if resolver == nil {
		resolver = credential.NewEnvResolver()
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultSendGridBaseURL
	}
	return &SendGridAdapter{
		client:   ensureClient(client),
		resolver: resolver,
		baseURL:  baseURL,
	}
}

func (a *SendGridAdapter) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	apiKey := a.resolver.Field(req.Config, "apiKey")
	if apiKey == "" {
		return nil, ErrMissingCredential("sendgrid_api_key")
	}
	fromEmail := a.resolver.Field(req.Config, "fromEmail")
	if fromEmail == "" {
		return nil, ErrMissingCredential("sendgrid_from_email")
	}

	mail := sendGridMail{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: req.To}}}},
		From: sendGridAddress{
			Email: fromEmail,
			Name:  a.resolver.Field(req.Config, "fromName"),
		},
		Subject: req.Subject,
		Content: []sendGridContent{{Type: "text/plain", Value: req.Body}},
	}

	response, err := execute(ctx, ProviderSendGrid,
		a.client.R().
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json").
			SetBody(mail),
		joinURL(a.baseURL, "/v3/mail/send"),
	)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		ExternalID: strings.TrimSpace(response.Header().Get("X-Message-Id")),
		StatusCode: response.StatusCode(),
	}, nil
}
