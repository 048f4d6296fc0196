package handlers

import (
	"context"

	"sms-ingress-server/internal/models"
)

// MessagingServiceInterface defines the contract for messaging operations
// This interface is used for dependency injection and testing
type MessagingServiceInterface interface {
	SendA2P(ctx context.Context, config models.SmscConfig, req *models.A2PRequest) (*models.A2PResponse, error)
	SendOTP(ctx context.Context, config models.SmscConfig, req *models.SendOTPRequest) (*models.SendOTPResponse, error)
	VerifyOTP(ctx context.Context, config models.SmscConfig, req *models.VerifyOTPRequest) error
}
