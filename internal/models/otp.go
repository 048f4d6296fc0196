package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OTP is a single issued verification code. The plaintext code is never stored.
type OTP struct {
	ID         string `json:"id"`
	To         string `json:"to"`
	From       string `json:"from"`
	SecretHash string `json:"-"`
	IsValid    bool   `json:"is_valid"`
	CreatedAt  int64  `json:"created_at"` // Unix milliseconds
	ExpiresAt  int64  `json:"expires_at"` // Unix milliseconds
}

// NewOTP creates a valid OTP record expiring ttl after now
func NewOTP(to, from, secretHash string, now time.Time, ttl time.Duration) *OTP {
	return &OTP{
		ID:         uuid.New().String(),
		To:         to,
		From:       from,
		SecretHash: secretHash,
		IsValid:    true,
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  now.Add(ttl).UnixMilli(),
	}
}

// IsExpired reports whether the record's fixed window has passed at now
func (o *OTP) IsExpired(now time.Time) bool {
	return o.ExpiresAt <= now.UnixMilli()
}

// OTPState is the lifecycle state of the current code for a (to, from) pair
type OTPState int

const (
	OTPAbsent OTPState = iota
	OTPActive
	OTPExpired
	OTPConsumed
)

func (s OTPState) String() string {
	switch s {
	case OTPActive:
		return "active"
	case OTPExpired:
		return "expired"
	case OTPConsumed:
		return "consumed"
	default:
		return "absent"
	}
}

// ClassifyOTP derives the lifecycle state of the latest record at now.
// A nil record means no code was ever issued.
func ClassifyOTP(o *OTP, now time.Time) OTPState {
	switch {
	case o == nil:
		return OTPAbsent
	case !o.IsValid:
		return OTPConsumed
	case o.IsExpired(now):
		return OTPExpired
	default:
		return OTPActive
	}
}

// OTPCharset selects the alphabet a code is drawn from
type OTPCharset string

const (
	CharsetNumeric      OTPCharset = "numeric"
	CharsetAlphabetic   OTPCharset = "alphabetic"
	CharsetAlphanumeric OTPCharset = "alphanumeric"
)

// Alphabet returns the characters of the charset, or "" if unknown
func (c OTPCharset) Alphabet() string {
	const (
		digits  = "0123456789"
		letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	)
	switch c {
	case CharsetNumeric:
		return digits
	case CharsetAlphabetic:
		return letters
	case CharsetAlphanumeric:
		return digits + letters
	default:
		return ""
	}
}

// DeliveryChannel is an extra destination that receives the code besides SMS
type DeliveryChannel struct {
	Provider string `json:"provider" binding:"required,oneof=email"`
	Address  string `json:"address" binding:"required,email"`
}

// Key identifies the channel case-insensitively
func (d DeliveryChannel) Key() string {
	return strings.ToLower(d.Provider) + ":" + strings.ToLower(d.Address)
}

// DedupeChannels drops repeated channels keeping the first occurrence
func DedupeChannels(channels []DeliveryChannel) []DeliveryChannel {
	if channels == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(channels))
	out := make([]DeliveryChannel, 0, len(channels))
	for _, ch := range channels {
		k := ch.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ch)
	}
	return out
}

// SendOTPRequest represents the request body for issuing a verification code
type SendOTPRequest struct {
	To                        string            `json:"to" binding:"required,min=9,max=16,phone"`
	Length                    int               `json:"length" binding:"omitempty,min=4,max=20"`
	CharSet                   OTPCharset        `json:"charSet" binding:"omitempty,oneof=numeric alphabetic alphanumeric"`
	AdditionalDeliveryChannel []DeliveryChannel `json:"additionalDeliveryChannel" binding:"omitempty,dive"`
	Callbacks
}

// VerifyOTPRequest represents the request body for checking a verification code
type VerifyOTPRequest struct {
	To  string `json:"to" binding:"required,min=9,max=16,phone"`
	OTP string `json:"otp" binding:"required,min=4,max=20"`
}

// SendOTPResponse is the data returned once an OTP message has been queued
type SendOTPResponse struct {
	To        string `json:"to"`
	MessageID string `json:"messageId"`
}
