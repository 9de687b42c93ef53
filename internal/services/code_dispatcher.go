package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/example/faithconnect/internal/metrics"
	"github.com/example/faithconnect/internal/models"
)

// CodePurpose tells the recipient why a code was sent.
type CodePurpose string

const (
	PurposeSignup CodePurpose = "signup"
	PurposeLogin  CodePurpose = "login"
	PurposeResend CodePurpose = "resend"
)

// CodeDispatcher delivers one-time codes over SMS or email.
type CodeDispatcher struct {
	sms      SMSSender
	email    EmailSender
	timeout  time.Duration
	validFor time.Duration
}

// NewCodeDispatcher creates a CodeDispatcher. validFor is only used in message text.
func NewCodeDispatcher(sms SMSSender, email EmailSender, timeout, validFor time.Duration) *CodeDispatcher {
	return &CodeDispatcher{sms: sms, email: email, timeout: timeout, validFor: validFor}
}

// SendCode delivers code to destination and reports success. It never panics.
func (d *CodeDispatcher) SendCode(ctx context.Context, destination string, channel models.Channel, code string, purpose CodePurpose) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatch] panic sending %s code: %v", channel, r)
			ok = false
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var err error
	switch channel {
	case models.ChannelSMS:
		if d.sms == nil {
			err = ErrChannelNotConfigured
			break
		}
		err = d.sms.SendSMS(ctx, destination, d.smsText(code))
	case models.ChannelEmail:
		if d.email == nil {
			err = ErrChannelNotConfigured
			break
		}
		err = d.email.SendEmail(ctx, d.emailMessage(destination, code, purpose))
	default:
		err = fmt.Errorf("unknown channel %q", channel)
	}

	metrics.RecordDelivery(string(channel), "code", err)
	if err != nil {
		log.Printf("[Dispatch] %s %s code to %s failed: %v", purpose, channel, MaskDestination(destination), err)
		return false
	}
	return true
}

func (d *CodeDispatcher) minutes() int {
	m := int(d.validFor / time.Minute)
	if m <= 0 {
		m = 10
	}
	return m
}

func (d *CodeDispatcher) smsText(code string) string {
	return fmt.Sprintf("Your Faith Connect verification code is: %s. Valid for %d minutes.", code, d.minutes())
}

func (d *CodeDispatcher) emailMessage(to, code string, purpose CodePurpose) EmailMessage {
	intro := "Use the code below to sign in to Faith Connect."
	if purpose == PurposeSignup {
		intro = "Welcome to Faith Connect! Use the code below to finish creating your account."
	}

	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #2c3e50;">Faith Connect Verification</h2>
<p>%s</p>
<div style="background: #f4f6f8; padding: 20px; text-align: center; font-size: 32px; letter-spacing: 8px; font-weight: bold;">%s</div>
<p>This code is valid for %d minutes. If you did not request it, you can ignore this email.</p>
</div>`, html.EscapeString(intro), code, d.minutes())

	return EmailMessage{
		To:      to,
		Subject: "Faith Connect Verification Code",
		HTML:    body,
		Text:    fmt.Sprintf("%s\n\nYour code: %s (valid for %d minutes)", intro, code, d.minutes()),
	}
}

// MaskDestination hides most of a phone number or email for logs.
func MaskDestination(destination string) string {
	if at := strings.IndexByte(destination, '@'); at > 0 {
		return destination[:1] + "***" + destination[at:]
	}
	if len(destination) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(destination)-4) + destination[len(destination)-4:]
}
