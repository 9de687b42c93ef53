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
	"github.com/example/faithconnect/internal/services"
	"github.com/example/faithconnect/internal/utils"
)

// Service implements signup, login, resend and verification.
type Service struct {
	store       Store
	sender      CodeSender
	sessions    SessionIssuer
	limiter     *utils.KeyedLimiter
	codeTTL     time.Duration
	maxAttempts int
	hashCost    int
	dummyHash   string
	now         func() time.Time
	newCode     func() (string, error)
}

// NewService creates a Service.
func NewService(store Store, sender CodeSender, sessions SessionIssuer, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}

	var limiter *utils.KeyedLimiter
	if opts.RequestsPerMinute > 0 {
		limiter = utils.NewKeyedLimiter(opts.RequestsPerMinute, opts.Burst, time.Hour)
	}

	dummy, err := utils.HashCode("000000", opts.HashCost)
	if err != nil {
		log.Printf("[Auth] failed to prepare dummy hash: %v", err)
	}

	return &Service{
		store:       store,
		sender:      sender,
		sessions:    sessions,
		limiter:     limiter,
		codeTTL:     opts.CodeTTL,
		maxAttempts: opts.MaxAttempts,
		hashCost:    opts.HashCost,
		dummyHash:   dummy,
		now:         func() time.Time { return time.Now().UTC() },
		newCode:     utils.GenerateCode,
	}
}

var (
	errInvalidCode = apperr.New(apperr.CodeInvalidCode, "Invalid or expired code")
	errRateLimited = apperr.New(apperr.CodeRateLimited, "Too many code requests. Please wait a minute and try again")
)

func deliveryFailed(method Method) error {
	return apperr.New(apperr.CodeDeliveryFailed, "Failed to send code via "+string(method))
}

func internal(message string, err error) error {
	log.Printf("[Auth] %s: %v", message, err)
	return apperr.Wrap(apperr.CodeInternal, message, err)
}

// RequestSignup stores a pending registration and sends its code.
// On delivery failure the acknowledgement is returned together with a
// DeliveryFailed error; the pending registration is kept for ResendCode.
func (s *Service) RequestSignup(ctx context.Context, req SignupRequest) (Ack, error) {
	method, ok := ParseMethod(req.Method)
	if !ok {
		return Ack{}, apperr.New(apperr.CodeValidationFailed, "Method must be phone or email")
	}

	phone := NormalizePhone(req.Phone)
	email := NormalizeEmail(req.Email)
	identifier := phone
	if method == MethodEmail {
		identifier = email
	}
	if identifier == "" {
		return Ack{}, apperr.New(apperr.CodeValidationFailed, "A "+string(method)+" is required to sign up by "+string(method))
	}
	if email != "" && !strings.Contains(email, "@") {
		return Ack{}, apperr.New(apperr.CodeValidationFailed, "Email address is invalid")
	}

	now := s.now()
	if !s.limiter.AllowAt(identifier, now) {
		return Ack{}, errRateLimited
	}

	phoneTaken, emailTaken, err := s.store.IdentifiersTaken(ctx, phone, email)
	if err != nil {
		return Ack{}, internal("Failed to check identifiers", err)
	}
	if phoneTaken || emailTaken {
		return Ack{}, apperr.New(apperr.CodeDuplicateIdentifier, "An account with these details already exists")
	}

	code, slot, err := s.issue(now, method.channel())
	if err != nil {
		return Ack{}, internal("Failed to generate code", err)
	}

	pending := &models.PendingRegistration{
		Phone:             models.StringPtr(phone),
		Email:             models.StringPtr(email),
		FirstName:         strings.TrimSpace(req.FirstName),
		PartnershipNumber: strings.TrimSpace(req.PartnershipNumber),
		Method:            string(method),
		OneTimeCode:       slot,
	}
	if err := s.store.ReplacePending(ctx, pending); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Ack{}, apperr.New(apperr.CodeDuplicateIdentifier, "An account with these details already exists")
		}
		return Ack{}, internal("Registration failed", err)
	}

	ack := Ack{Identifier: identifier, Method: method}
	if !s.dispatch(ctx, identifier, method.channel(), code, services.PurposeSignup) {
		return ack, deliveryFailed(method)
	}
	return ack, nil
}

// RequestLogin sends a fresh code to an existing account.
func (s *Service) RequestLogin(ctx context.Context, identifier, requested string) (Ack, error) {
	identifier, method, err := s.admit(identifier, requested)
	if err != nil {
		return Ack{}, err
	}

	account, err := s.store.FindAccountByIdentifier(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return Ack{}, apperr.New(apperr.CodeNotFound, "Account not found. Please sign up")
	}
	if err != nil {
		return Ack{}, internal("Failed to load account", err)
	}

	return s.sendToAccount(ctx, account, identifier, method, services.PurposeLogin)
}

// ResendCode regenerates the code of an account, or failing that of a
// pending registration, and sends it again.
func (s *Service) ResendCode(ctx context.Context, identifier, requested string) (Ack, error) {
	identifier, method, err := s.admit(identifier, requested)
	if err != nil {
		return Ack{}, err
	}

	account, err := s.store.FindAccountByIdentifier(ctx, identifier)
	switch {
	case err == nil:
		return s.sendToAccount(ctx, account, identifier, method, services.PurposeResend)
	case !errors.Is(err, repository.ErrNotFound):
		return Ack{}, internal("Failed to load account", err)
	}

	pending, err := s.store.FindPendingByIdentifier(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return Ack{}, apperr.New(apperr.CodeNotFound, "No account or pending registration found")
	}
	if err != nil {
		return Ack{}, internal("Failed to load registration", err)
	}

	if strings.TrimSpace(requested) == "" && pending.Method != "" {
		method = Method(pending.Method)
	}
	destination, channel := pickDestination(pending.PhoneNumber(), pending.EmailAddress(), method)

	code, slot, err := s.issue(s.now(), channel)
	if err != nil {
		return Ack{}, internal("Failed to generate code", err)
	}
	pending.OneTimeCode = slot
	if err := s.store.SavePending(ctx, pending); err != nil {
		return Ack{}, internal("Failed to store code", err)
	}

	ack := Ack{Identifier: identifier, Method: methodOf(channel)}
	if !s.dispatch(ctx, destination, channel, code, services.PurposeResend) {
		return ack, deliveryFailed(ack.Method)
	}
	return ack, nil
}

func (s *Service) admit(identifier, requested string) (string, Method, error) {
	method, ok := ParseMethod(requested)
	if !ok {
		return "", "", apperr.New(apperr.CodeValidationFailed, "Method must be phone or email")
	}
	identifier = NormalizeIdentifier(identifier)
	if identifier == "" {
		return "", "", apperr.New(apperr.CodeValidationFailed, "Identifier is required")
	}
	if !s.limiter.AllowAt(identifier, s.now()) {
		return "", "", errRateLimited
	}
	return identifier, method, nil
}

func (s *Service) sendToAccount(ctx context.Context, account *models.Account, identifier string, method Method, purpose services.CodePurpose) (Ack, error) {
	destination, channel := pickDestination(account.PhoneNumber(), account.EmailAddress(), method)
	if destination == "" {
		return Ack{}, apperr.New(apperr.CodeValidationFailed, "Account has no phone or email")
	}

	code, slot, err := s.issue(s.now(), channel)
	if err != nil {
		return Ack{}, internal("Failed to generate code", err)
	}
	account.OneTimeCode = slot
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return Ack{}, internal("Failed to store code", err)
	}

	ack := Ack{Identifier: identifier, Method: methodOf(channel)}
	if !s.dispatch(ctx, destination, channel, code, purpose) {
		return ack, deliveryFailed(ack.Method)
	}
	return ack, nil
}

// pickDestination prefers email when asked for and present, then the phone,
// then the email.
func pickDestination(phone, email string, method Method) (string, models.Channel) {
	if method == MethodEmail && email != "" {
		return email, models.ChannelEmail
	}
	if phone != "" {
		return phone, models.ChannelSMS
	}
	return email, models.ChannelEmail
}

// issue generates a code bound to the channel it will be delivered on.
func (s *Service) issue(now time.Time, channel models.Channel) (string, models.OneTimeCode, error) {
	code, err := s.newCode()
	if err != nil {
		return "", models.OneTimeCode{}, err
	}
	hash, err := utils.HashCode(code, s.hashCost)
	if err != nil {
		return "", models.OneTimeCode{}, err
	}
	issuedAt := now
	return code, models.OneTimeCode{CodeHash: hash, CodeIssuedAt: &issuedAt, CodeChannel: channel}, nil
}

func (s *Service) dispatch(ctx context.Context, destination string, channel models.Channel, code string, purpose services.CodePurpose) bool {
	metrics.RecordCodeIssued(string(channel), string(purpose))
	ok := s.sender.SendCode(ctx, destination, channel, code, purpose)
	if !ok {
		log.Printf("[Auth] %s code delivery to %s failed", channel, services.MaskDestination(destination))
	}
	return ok
}
