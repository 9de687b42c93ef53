// Package identity resolves phone and email identifiers to accounts or
// pending registrations and verifies one-time codes.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/services"
	"github.com/example/faithconnect/internal/utils"
)

// Method selects the channel a code is sent on.
type Method string

const (
	MethodPhone Method = "phone"
	MethodEmail Method = "email"
)

// ParseMethod validates a requested method. An empty value means phone.
func ParseMethod(s string) (Method, bool) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodPhone:
		return MethodPhone, true
	case MethodEmail:
		return MethodEmail, true
	}
	return "", false
}

func (m Method) channel() models.Channel {
	if m == MethodEmail {
		return models.ChannelEmail
	}
	return models.ChannelSMS
}

func methodOf(channel models.Channel) Method {
	if channel == models.ChannelEmail {
		return MethodEmail
	}
	return MethodPhone
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone trims a phone number.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// NormalizeIdentifier normalizes a value that may be a phone or an email.
func NormalizeIdentifier(identifier string) string {
	if strings.Contains(identifier, "@") {
		return NormalizeEmail(identifier)
	}
	return NormalizePhone(identifier)
}

// Store persists accounts and pending registrations.
type Store interface {
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindAccountByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	IdentifiersTaken(ctx context.Context, phone, email string) (bool, bool, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	FindPendingByIdentifier(ctx context.Context, identifier string) (*models.PendingRegistration, error)
	ReplacePending(ctx context.Context, pending *models.PendingRegistration) error
	SavePending(ctx context.Context, pending *models.PendingRegistration) error
	PromotePending(ctx context.Context, pending *models.PendingRegistration, account *models.Account) error
}

// CodeSender delivers a code and reports success.
type CodeSender interface {
	SendCode(ctx context.Context, destination string, channel models.Channel, code string, purpose services.CodePurpose) bool
}

// SessionIssuer mints session credentials.
type SessionIssuer interface {
	IssuePair(userID uuid.UUID) (utils.TokenPair, error)
	Refresh(refreshToken string) (uuid.UUID, utils.TokenPair, error)
}

// SignupRequest carries the fields of a signup form.
type SignupRequest struct {
	Phone             string
	Email             string
	FirstName         string
	PartnershipNumber string
	Method            string
}

// Ack acknowledges that a code was issued.
type Ack struct {
	Identifier string `json:"identifier"`
	Method     Method `json:"method"`
}

// Session is the result of a successful verification.
type Session struct {
	Account *models.Account
	Tokens  utils.TokenPair
	// Created is true when the verification promoted a pending registration.
	Created bool
}

// Options tunes code lifetime and throttling.
type Options struct {
	CodeTTL           time.Duration
	MaxAttempts       int
	HashCost          int
	RequestsPerMinute float64
	Burst             int
}
