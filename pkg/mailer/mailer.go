package mailer

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// ErrNotConfigured indicates no SMTP host was configured
var ErrNotConfigured = errors.New("smtp is not configured")

// SMTPConfig holds the outgoing mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// OTPMailer delivers verification codes by email
type OTPMailer interface {
	SendOTP(to, code string, ttl time.Duration) error
}

type smtpMailer struct {
	config SMTPConfig
	sender gomail.Sender
}

// NewSMTPMailer creates a mailer that dials the SMTP server for every message
func NewSMTPMailer(config SMTPConfig) OTPMailer {
	return &smtpMailer{config: config}
}

// NewMailerWithSender creates a mailer that hands messages to sender
func NewMailerWithSender(config SMTPConfig, sender gomail.Sender) OTPMailer {
	return &smtpMailer{config: config, sender: sender}
}

func (s *smtpMailer) SendOTP(to, code string, ttl time.Duration) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Verification Code")
	m.SetBody("text/plain", otpBody(code, ttl))

	if s.sender != nil {
		return gomail.Send(s.sender, m)
	}
	if s.config.Host == "" {
		return ErrNotConfigured
	}

	d := gomail.NewDialer(s.config.Host, s.config.Port, s.config.Username, s.config.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func otpBody(code string, ttl time.Duration) string {
	body := fmt.Sprintf("Your verification code is: %s", code)
	if minutes := int(ttl.Minutes()); minutes > 0 {
		body += fmt.Sprintf("\n\nThis code will expire in %d minutes.", minutes)
	}
	return body
}
