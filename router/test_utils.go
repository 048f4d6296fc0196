package router

import (
	"context"

	"sms-ingress-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockMessagingService is a mock implementation of handlers.MessagingServiceInterface
type MockMessagingService struct {
	mock.Mock
}

func (m *MockMessagingService) SendA2P(ctx context.Context, config models.SmscConfig, req *models.A2PRequest) (*models.A2PResponse, error) {
	args := m.Called(ctx, config, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.A2PResponse), args.Error(1)
}

func (m *MockMessagingService) SendOTP(ctx context.Context, config models.SmscConfig, req *models.SendOTPRequest) (*models.SendOTPResponse, error) {
	args := m.Called(ctx, config, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SendOTPResponse), args.Error(1)
}

func (m *MockMessagingService) VerifyOTP(ctx context.Context, config models.SmscConfig, req *models.VerifyOTPRequest) error {
	args := m.Called(ctx, config, req)
	return args.Error(0)
}
