package services

import (
	"context"
	"fmt"
	"time"

	"sms-ingress-server/internal/db"
	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/utils"

	"go.uber.org/zap"
)

const (
	// DefaultOTPTTL is how long an issued code stays valid
	DefaultOTPTTL = 10 * time.Minute

	// DefaultOTPLength is used when the caller does not ask for a length
	DefaultOTPLength = 4

	// MinOTPLength is the shortest code that can be generated
	MinOTPLength = 4

	// MaxOTPLength is the longest code that can be generated
	MaxOTPLength = 20
)

// Code is a freshly generated verification code. Plain is only ever sent to
// the recipient; Hash is what gets stored.
type Code struct {
	Plain string
	Hash  string
}

// OTPService manages the issue and verification of single-use codes
// per (recipient, sender) pair.
type OTPService struct {
	repo   db.OTPRepository
	hasher *utils.SecretHasher
	ttl    time.Duration
	now    func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(repo db.OTPRepository, hasher *utils.SecretHasher, ttl time.Duration) *OTPService {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	if hasher == nil {
		hasher = utils.NewSecretHasher(utils.DefaultHashCost)
	}
	return &OTPService{
		repo:   repo,
		hasher: hasher,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetClock replaces the time source
func (s *OTPService) SetClock(now func() time.Time) {
	s.now = now
}

// TTL returns the validity window of issued codes
func (s *OTPService) TTL() time.Duration {
	return s.ttl
}

// GenerateCode draws a random code and hashes it. Zero values select the
// default length and the numeric charset.
func (s *OTPService) GenerateCode(length int, charset models.OTPCharset) (Code, error) {
	if length == 0 {
		length = DefaultOTPLength
	}
	if charset == "" {
		charset = models.CharsetNumeric
	}
	if length < MinOTPLength || length > MaxOTPLength {
		return Code{}, fmt.Errorf("%w: length %d", ErrInvalidOTPOptions, length)
	}
	alphabet := charset.Alphabet()
	if alphabet == "" {
		return Code{}, fmt.Errorf("%w: charset %q", ErrInvalidOTPOptions, charset)
	}

	plain, err := utils.RandomString(length, alphabet)
	if err != nil {
		return Code{}, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return Code{}, fmt.Errorf("failed to hash code: %w", err)
	}
	return Code{Plain: plain, Hash: hash}, nil
}

// Issue stores code as the active code for (to, from) and returns the id of
// the new record. It fails with ErrAlreadyActive while an earlier code is
// still usable.
func (s *OTPService) Issue(ctx context.Context, to, from string, code Code) (string, error) {
	now := s.now()

	latest, err := s.repo.GetLatest(ctx, to, from)
	if err != nil {
		logger.Ctx(ctx).Error("Failed to load latest OTP", zap.String("to", to), zap.String("from", from), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if models.ClassifyOTP(latest, now) == models.OTPActive {
		return "", ErrAlreadyActive
	}

	hash := code.Hash
	if hash == "" {
		if hash, err = s.hasher.Hash(code.Plain); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidOTPOptions, err)
		}
	}

	record := models.NewOTP(to, from, hash, now, s.ttl)
	created, err := s.repo.CreateIfNoneActive(ctx, record, now)
	if err != nil {
		logger.Ctx(ctx).Error("Failed to store OTP", zap.String("to", to), zap.String("from", from), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !created {
		// a concurrent request issued a code after our read
		return "", ErrAlreadyActive
	}

	logger.Ctx(ctx).Info("OTP issued",
		zap.String("otp_id", record.ID),
		zap.String("to", to),
		zap.String("from", from),
		zap.Int64("expires_at", record.ExpiresAt))
	return record.ID, nil
}

// Verify consumes the active code for (to, from) if supplied matches it.
// Unknown, expired, consumed and wrong codes all yield ErrInvalidOTP.
func (s *OTPService) Verify(ctx context.Context, to, from, supplied string) error {
	now := s.now()

	latest, err := s.repo.GetLatest(ctx, to, from)
	if err != nil {
		logger.Ctx(ctx).Error("Failed to load latest OTP", zap.String("to", to), zap.String("from", from), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	state := models.ClassifyOTP(latest, now)
	if state != models.OTPActive {
		logger.Ctx(ctx).Debug("OTP verification rejected", zap.String("to", to), zap.Stringer("state", state))
		return ErrInvalidOTP
	}
	if !s.hasher.Compare(latest.SecretHash, supplied) {
		logger.Ctx(ctx).Debug("OTP verification rejected", zap.String("to", to), zap.String("reason", "mismatch"))
		return ErrInvalidOTP
	}

	swapped, err := s.repo.Invalidate(ctx, latest.ID)
	if err != nil {
		logger.Ctx(ctx).Error("Failed to invalidate OTP", zap.String("otp_id", latest.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !swapped {
		// consumed by a concurrent verification
		return ErrInvalidOTP
	}

	logger.Ctx(ctx).Info("OTP verified", zap.String("otp_id", latest.ID), zap.String("to", to))
	return nil
}

// Revoke invalidates an issued code that could not be delivered so a new one
// can be requested straight away.
func (s *OTPService) Revoke(ctx context.Context, id string) error {
	if _, err := s.repo.Invalidate(ctx, id); err != nil {
		logger.Ctx(ctx).Error("Failed to revoke OTP", zap.String("otp_id", id), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	logger.Ctx(ctx).Info("OTP revoked", zap.String("otp_id", id))
	return nil
}
