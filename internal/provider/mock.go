package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockAdapter logs the request and always succeeds. It never calls out.
type MockAdapter struct {
	logger *zap.Logger
	newID  func() string
}

func NewMockAdapter(logger *zap.Logger) *MockAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockAdapter{
		logger: logger,
		newID:  uuid.NewString,
	}
}

func (m *MockAdapter) Send(_ context.Context, req SendRequest) (*SendResult, error) {
	externalID := fmt.Sprintf("mock-%s-%s", req.Channel, m.newID())

	m.logger.Info("mock notification delivered",
		zap.String("jobId", req.JobID),
		zap.String("channel", req.Channel.String()),
		zap.String("to", req.To),
		zap.String("subject", req.Subject),
		zap.Int("bodyLength", len(req.Body)),
		zap.String("externalId", externalID),
	)

	return &SendResult{ExternalID: externalID}, nil
}
