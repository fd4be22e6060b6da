package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultHTTPTimeout = 10 * time.Second

// NewHTTPClient returns the resty client shared by the real adapters. Retries are
// owned by the worker's backoff, so the client never retries on its own.
func NewHTTPClient() *resty.Client {
	client := resty.New()
	client.SetTimeout(defaultHTTPTimeout)
	client.SetRetryCount(0)
	return client
}

func ensureClient(client *resty.Client) *resty.Client {
	if client == nil {
		return NewHTTPClient()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultHTTPTimeout)
	}
	client.SetRetryCount(0)
	return client
}

// execute runs a POST and maps transport failures and non-2xx replies to
// DeliveryError values tagged with prefix.
func execute(ctx context.Context, prefix string, request *resty.Request, url string) (*resty.Response, error) {
	response, err := request.SetContext(ctx).Post(url)
	if err != nil {
		return nil, ErrTransport(prefix, err)
	}
	if response == nil {
		return nil, ErrTransport(prefix, context.DeadlineExceeded)
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, ErrHTTPStatus(prefix, statusCode, response.String())
	}
	return response, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}
