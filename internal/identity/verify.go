package identity

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/example/faithconnect/internal/apperr"
	"github.com/example/faithconnect/internal/metrics"
	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
	"github.com/example/faithconnect/internal/utils"
)

// VerifyCode checks code against the account bound to identifier, then
// against its pending registration. Unknown identifiers, wrong codes,
// expired codes and exhausted attempts all yield the same InvalidCode.
func (s *Service) VerifyCode(ctx context.Context, identifier, code string) (*Session, error) {
	identifier = NormalizeIdentifier(identifier)
	code = strings.TrimSpace(code)
	if identifier == "" || code == "" {
		return nil, apperr.New(apperr.CodeValidationFailed, "Identifier and code are required")
	}

	now := s.now()
	compared := false

	account, err := s.store.FindAccountByIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("Failed to load account", err)
	}
	if account != nil && account.HasCode() {
		compared = true
		matched, changed := s.check(&account.OneTimeCode, code, now)
		if matched {
			return s.confirmLogin(ctx, account, deliveredOn(account.OneTimeCode, account.PhoneNumber(), identifier))
		}
		if changed {
			if err := s.store.SaveAccount(ctx, account); err != nil {
				log.Printf("[Auth] failed to record attempt for account %s: %v", account.ID, err)
			}
		}
	}

	pending, err := s.store.FindPendingByIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("Failed to load registration", err)
	}
	if pending != nil && pending.HasCode() {
		compared = true
		matched, changed := s.check(&pending.OneTimeCode, code, now)
		if matched {
			return s.confirmSignup(ctx, pending, deliveredOn(pending.OneTimeCode, pending.PhoneNumber(), identifier))
		}
		if changed {
			if err := s.store.SavePending(ctx, pending); err != nil {
				log.Printf("[Auth] failed to record attempt for registration %s: %v", pending.ID, err)
			}
		}
	}

	if !compared {
		utils.CheckCode(s.dummyHash, code)
	}
	metrics.RecordVerification("invalid")
	return nil, errInvalidCode
}

// check compares code with slot. changed reports whether slot was modified
// and needs saving.
func (s *Service) check(slot *models.OneTimeCode, code string, now time.Time) (matched, changed bool) {
	if now.Sub(*slot.CodeIssuedAt) > s.codeTTL || slot.CodeAttempts >= s.maxAttempts {
		utils.CheckCode(s.dummyHash, code)
		slot.Clear()
		return false, true
	}
	if utils.CheckCode(slot.CodeHash, code) {
		return true, false
	}
	slot.CodeAttempts++
	if slot.CodeAttempts >= s.maxAttempts {
		slot.Clear()
	}
	return false, true
}

// deliveredOn returns the channel the matched code was sent on. Codes stored
// before the channel was recorded fall back to the identifier typed.
func deliveredOn(slot models.OneTimeCode, phone, identifier string) models.Channel {
	if slot.CodeChannel != "" {
		return slot.CodeChannel
	}
	if phone != "" && phone == identifier {
		return models.ChannelSMS
	}
	return models.ChannelEmail
}

func (s *Service) confirmLogin(ctx context.Context, account *models.Account, channel models.Channel) (*Session, error) {
	account.OneTimeCode.Clear()
	if channel == models.ChannelSMS {
		account.PhoneVerified = true
	} else {
		account.EmailVerified = true
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, internal("Failed to update account", err)
	}

	tokens, err := s.sessions.IssuePair(account.ID)
	if err != nil {
		return nil, internal("Failed to issue session", err)
	}
	metrics.RecordVerification("login")
	return &Session{Account: account, Tokens: tokens}, nil
}

func (s *Service) confirmSignup(ctx context.Context, pending *models.PendingRegistration, channel models.Channel) (*Session, error) {
	account := &models.Account{
		Phone:             pending.Phone,
		Email:             pending.Email,
		FirstName:         pending.FirstName,
		PartnershipNumber: pending.PartnershipNumber,
		UserType:          models.UserTypeMember,
		IsActive:          true,
	}
	if channel == models.ChannelSMS {
		account.PhoneVerified = true
	} else {
		account.EmailVerified = true
	}

	if err := s.store.PromotePending(ctx, pending, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrConflict) {
			metrics.RecordVerification("conflict")
			return nil, apperr.Wrap(apperr.CodeAccountConflict, "Account could not be created. Please sign up again", err)
		}
		return nil, internal("Failed to create account", err)
	}

	tokens, err := s.sessions.IssuePair(account.ID)
	if err != nil {
		return nil, internal("Failed to issue session", err)
	}
	metrics.RecordVerification("signup")
	log.Printf("[Auth] account %s created", account.ID)
	return &Session{Account: account, Tokens: tokens, Created: true}, nil
}

// Refresh exchanges a refresh token for a new pair if the account is still active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (utils.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return utils.TokenPair{}, apperr.New(apperr.CodeValidationFailed, "Refresh token is required")
	}

	userID, tokens, err := s.sessions.Refresh(refreshToken)
	if err != nil {
		return utils.TokenPair{}, apperr.Wrap(apperr.CodeUnauthorized, "Invalid or expired refresh token", err)
	}

	account, err := s.store.FindAccountByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !account.IsActive) {
		return utils.TokenPair{}, apperr.New(apperr.CodeUnauthorized, "Account is not active")
	}
	if err != nil {
		return utils.TokenPair{}, internal("Failed to load account", err)
	}
	return tokens, nil
}
