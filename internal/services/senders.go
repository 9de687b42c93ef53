package services

import (
	"context"
	"errors"
	"log"
)

// ErrChannelNotConfigured is returned by adapters missing credentials.
var ErrChannelNotConfigured = errors.New("delivery channel not configured")

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailMessage is a single outbound email.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailSender delivers an email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// LogSender prints messages instead of delivering them. Development only.
type LogSender struct{}

func (LogSender) SendSMS(_ context.Context, to, body string) error {
	log.Printf("[DevSMS] to=%s body=%q", to, body)
	return nil
}

func (LogSender) SendEmail(_ context.Context, msg EmailMessage) error {
	log.Printf("[DevEmail] to=%s subject=%q text=%q", msg.To, msg.Subject, msg.Text)
	return nil
}
