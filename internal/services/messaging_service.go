package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/mailer"
)

// OTPMessageFormat is the SMS text carrying a verification code
const OTPMessageFormat = "Your verification code is %s"

// Submitter hands jobs to the delivery queue
type Submitter interface {
	Submit(ctx context.Context, serviceType models.ServiceType, job *models.QueueJob, override *JobOptionsOverride) error
}

// MessagingService validates outgoing messages and queues them for delivery
type MessagingService struct {
	segmenter *Segmenter
	queue     Submitter
	otp       *OTPService
	mailer    mailer.OTPMailer
	now       func() time.Time
}

// NewMessagingService creates a new messaging service. mail may be nil, in
// which case additional delivery channels are skipped.
func NewMessagingService(segmenter *Segmenter, queue Submitter, otp *OTPService, mail mailer.OTPMailer) *MessagingService {
	if segmenter == nil {
		segmenter = NewSegmenter(DefaultMaxSegments)
	}
	return &MessagingService{
		segmenter: segmenter,
		queue:     queue,
		otp:       otp,
		mailer:    mail,
		now:       time.Now,
	}
}

// NewJob packages a message for the queue with a fresh id.
// The routing config is copied as is.
func (s *MessagingService) NewJob(serviceType models.ServiceType, to, text string, encoding models.SmsEncoding, callbacks models.Callbacks, config models.SmscConfig, meta any) *models.QueueJob {
	return &models.QueueJob{
		ID:                  uuid.New().String(),
		To:                  to,
		Text:                text,
		SmsEncoding:         encoding,
		ServiceType:         serviceType,
		SuccessCallbackURL:  callbacks.SuccessCallbackURL,
		ErrorCallbackURL:    callbacks.ErrorCallbackURL,
		CallbacksHTTPMethod: callbacks.CallbacksHTTPMethod,
		ExpireAt:            callbacks.ExpireAt,
		Config:              config,
		CreatedAt:           s.now().UnixMilli(),
		Meta:                meta,
	}
}

// SendA2P checks the text against the segment budget and queues it
func (s *MessagingService) SendA2P(ctx context.Context, config models.SmscConfig, req *models.A2PRequest) (*models.A2PResponse, error) {
	result, err := s.segmenter.Evaluate(req.Text, req.SmsEncoding)
	if err != nil {
		return nil, err
	}

	job := s.NewJob(models.ServiceA2P, req.To, result.Text, result.Encoding, req.Callbacks, config, nil)
	if err := s.queue.Submit(ctx, models.ServiceA2P, job, nil); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info("A2P message queued",
		zap.String("message_id", job.ID),
		zap.String("to", job.To),
		zap.String("encoding", string(result.Encoding)),
		zap.Int("chunks", result.Segments))

	return &models.A2PResponse{
		To:          req.To,
		SmsEncoding: result.Encoding,
		Chunks:      result.Segments,
		MessageID:   job.ID,
	}, nil
}

// SendOTP issues a new code for the recipient and sender, queues the SMS
// carrying it and mails it to any additional channels.
func (s *MessagingService) SendOTP(ctx context.Context, config models.SmscConfig, req *models.SendOTPRequest) (*models.SendOTPResponse, error) {
	code, err := s.otp.GenerateCode(req.Length, req.CharSet)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf(OTPMessageFormat, code.Plain)
	result, err := s.segmenter.Evaluate(text, "")
	if err != nil {
		return nil, err
	}

	otpID, err := s.otp.Issue(ctx, req.To, config.From, code)
	if err != nil {
		return nil, err
	}

	job := s.NewJob(models.ServiceOTP, req.To, result.Text, result.Encoding, req.Callbacks, config, map[string]string{"otpId": otpID})
	if err := s.queue.Submit(ctx, models.ServiceOTP, job, nil); err != nil {
		// A timed out job may still be delivered, so only a rejected one frees the key
		if errors.Is(err, ErrBrokerFailure) {
			_ = s.otp.Revoke(ctx, otpID)
		}
		return nil, err
	}

	logger.Ctx(ctx).Info("OTP message queued",
		zap.String("message_id", job.ID),
		zap.String("otp_id", otpID),
		zap.String("to", job.To))

	s.deliverToChannels(ctx, code.Plain, req.AdditionalDeliveryChannel)

	return &models.SendOTPResponse{To: req.To, MessageID: job.ID}, nil
}

// VerifyOTP consumes the active code sent to `to` by the authenticated sender
func (s *MessagingService) VerifyOTP(ctx context.Context, config models.SmscConfig, req *models.VerifyOTPRequest) error {
	return s.otp.Verify(ctx, req.To, config.From, req.OTP)
}

// deliverToChannels is best effort; the SMS is already queued.
func (s *MessagingService) deliverToChannels(ctx context.Context, code string, channels []models.DeliveryChannel) {
	channels = models.DedupeChannels(channels)
	if len(channels) == 0 {
		return
	}
	if s.mailer == nil {
		logger.Ctx(ctx).Warn("Additional delivery channels requested but no mailer is configured",
			zap.Int("channels", len(channels)))
		return
	}

	for _, ch := range channels {
		if err := s.mailer.SendOTP(ch.Address, code, s.otp.TTL()); err != nil {
			logger.Ctx(ctx).Error("Failed to deliver OTP to channel",
				zap.String("provider", ch.Provider),
				zap.String("address", ch.Address),
				zap.Error(err))
		}
	}
}
