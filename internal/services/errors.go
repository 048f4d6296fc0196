package services

import (
	"errors"
	"fmt"

	"sms-ingress-server/internal/models"
)

var (
	// ErrEmptyMessage indicates there is no text to send
	ErrEmptyMessage = errors.New("message text is required")
	// ErrUnknownEncoding indicates the requested encoding is not GSM or Unicode
	ErrUnknownEncoding = errors.New("unknown sms encoding")
	// ErrEncodingMismatch indicates the text cannot be sent with the requested encoding
	ErrEncodingMismatch = errors.New("message and the provided encoding do not match")

	// ErrInvalidOTPOptions indicates an unsupported code length or charset
	ErrInvalidOTPOptions = errors.New("invalid otp length or charset")
	// ErrAlreadyActive indicates a live code already exists for the recipient and sender
	ErrAlreadyActive = errors.New("can't generate new OTP when there is valid entry")
	// ErrInvalidOTP covers every verification failure: unknown, expired, consumed or wrong code
	ErrInvalidOTP = errors.New("invalid OTP")
	// ErrStorageFailure wraps persistence errors
	ErrStorageFailure = errors.New("otp storage failure")

	// ErrQueueTimeout indicates the broker did not accept the job in time.
	// The job may still be accepted later.
	ErrQueueTimeout = errors.New("timed out adding job to queue")
	// ErrBrokerFailure indicates the broker rejected the job
	ErrBrokerFailure = errors.New("failed to add job to queue")
)

// TooManySegmentsError is returned when a message needs more segments than allowed
type TooManySegmentsError struct {
	Encoding      models.SmsEncoding
	Segments      int
	MaxSegments   int
	MaxCharacters int
}

func (e *TooManySegmentsError) Error() string {
	return fmt.Sprintf("Message too long for %s encoding. Max allowed is %d characters for %d chunk(s).",
		e.Encoding, e.MaxCharacters, e.MaxSegments)
}
