package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/faithconnect/internal/apperr"
	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
	"github.com/example/faithconnect/internal/services"
	"github.com/example/faithconnect/internal/utils"
)

type fakeStore struct {
	accounts   map[uuid.UUID]*models.Account
	pending    map[uuid.UUID]*models.PendingRegistration
	promoteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[uuid.UUID]*models.Account{},
		pending:  map[uuid.UUID]*models.PendingRegistration{},
	}
}

func matches(phone, email *string, identifier string) bool {
	return (phone != nil && *phone == identifier) || (email != nil && *email == identifier)
}

func (f *fakeStore) FindAccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) FindAccountByIdentifier(_ context.Context, identifier string) (*models.Account, error) {
	for _, a := range f.accounts {
		if matches(a.Phone, a.Email, identifier) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) IdentifiersTaken(_ context.Context, phone, email string) (bool, bool, error) {
	var phoneTaken, emailTaken bool
	for _, a := range f.accounts {
		if phone != "" && a.PhoneNumber() == phone {
			phoneTaken = true
		}
		if email != "" && a.EmailAddress() == email {
			emailTaken = true
		}
	}
	return phoneTaken, emailTaken, nil
}

func (f *fakeStore) SaveAccount(_ context.Context, account *models.Account) error {
	copied := *account
	f.accounts[account.ID] = &copied
	return nil
}

func (f *fakeStore) FindPendingByIdentifier(_ context.Context, identifier string) (*models.PendingRegistration, error) {
	for _, p := range f.pending {
		if matches(p.Phone, p.Email, identifier) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ReplacePending(_ context.Context, pending *models.PendingRegistration) error {
	for id, p := range f.pending {
		if (pending.Phone != nil && p.PhoneNumber() == *pending.Phone) ||
			(pending.Email != nil && p.EmailAddress() == *pending.Email) {
			delete(f.pending, id)
		}
	}
	pending.ID = uuid.New()
	copied := *pending
	f.pending[pending.ID] = &copied
	return nil
}

func (f *fakeStore) SavePending(_ context.Context, pending *models.PendingRegistration) error {
	copied := *pending
	f.pending[pending.ID] = &copied
	return nil
}

func (f *fakeStore) PromotePending(_ context.Context, pending *models.PendingRegistration, account *models.Account) error {
	if f.promoteErr != nil {
		return f.promoteErr
	}
	if _, ok := f.pending[pending.ID]; !ok {
		return repository.ErrConflict
	}
	account.ID = uuid.New()
	copied := *account
	f.accounts[account.ID] = &copied
	delete(f.pending, pending.ID)
	return nil
}

type sentCode struct {
	destination string
	channel     models.Channel
	code        string
	purpose     services.CodePurpose
}

type fakeSender struct {
	sent []sentCode
	fail bool
}

func (f *fakeSender) SendCode(_ context.Context, destination string, channel models.Channel, code string, purpose services.CodePurpose) bool {
	f.sent = append(f.sent, sentCode{destination, channel, code, purpose})
	return !f.fail
}

func (f *fakeSender) last(t *testing.T) sentCode {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no code was sent")
	}
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	store  *fakeStore
	sender *fakeSender
	svc    *Service
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newFakeStore(),
		sender: &fakeSender{},
		now:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.sender, utils.NewJWTIssuer("test-secret", time.Hour, 24*time.Hour), Options{
		CodeTTL:     10 * time.Minute,
		MaxAttempts: 5,
		HashCost:    bcrypt.MinCost,
	})
	f.svc.now = func() time.Time { return f.now }
	seq := 123455
	f.svc.newCode = func() (string, error) {
		seq++
		return fmt.Sprintf("%06d", seq), nil
	}
	return f
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if !apperr.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

const testPhone = "+254700000001"

func TestSignupVerifyRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ack, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: " " + testPhone + " ", FirstName: "Ruth", PartnershipNumber: "P-1", Method: "phone"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if ack.Identifier != testPhone || ack.Method != MethodPhone {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	sent := f.sender.last(t)
	if sent.code != "123456" || sent.channel != models.ChannelSMS || sent.purpose != services.PurposeSignup {
		t.Fatalf("unexpected dispatch: %+v", sent)
	}
	for _, p := range f.store.pending {
		if p.CodeHash == "123456" || p.CodeHash == "" {
			t.Fatal("code must be stored hashed")
		}
	}

	session, err := f.svc.VerifyCode(ctx, testPhone, "123456")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !session.Created || session.Tokens.AccessToken == "" || session.Tokens.RefreshToken == "" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if len(f.store.accounts) != 1 || len(f.store.pending) != 0 {
		t.Fatalf("accounts=%d pending=%d", len(f.store.accounts), len(f.store.pending))
	}
	account := session.Account
	if !account.PhoneVerified || account.EmailVerified || !account.IsActive || account.UserType != models.UserTypeMember {
		t.Fatalf("unexpected account flags: %+v", account)
	}
	if account.FirstName != "Ruth" || account.PartnershipNumber != "P-1" {
		t.Fatalf("pending fields not copied: %+v", account)
	}
}

func TestSignupTwiceReplacesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"}); err != nil {
			t.Fatalf("signup %d: %v", i, err)
		}
	}
	if len(f.store.pending) != 1 {
		t.Fatalf("expected one pending registration, got %d", len(f.store.pending))
	}

	_, err := f.svc.VerifyCode(ctx, testPhone, "123456")
	requireCode(t, err, apperr.CodeInvalidCode)

	if _, err := f.svc.VerifyCode(ctx, testPhone, "123457"); err != nil {
		t.Fatalf("latest code should verify: %v", err)
	}
}

func TestVerifyRejectsWrongCodeAndKeepsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, err := f.svc.VerifyCode(ctx, testPhone, "000000")
	requireCode(t, err, apperr.CodeInvalidCode)
	if len(f.store.pending) != 1 || len(f.store.accounts) != 0 {
		t.Fatal("pending registration should survive a wrong code")
	}

	_, err = f.svc.VerifyCode(ctx, "+254799999999", "123456")
	requireCode(t, err, apperr.CodeInvalidCode)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []SignupRequest{
		{Email: "a@example.com", Method: "phone"},
		{Phone: testPhone, Method: "email"},
		{Phone: testPhone, Method: "pigeon"},
		{Phone: testPhone, Email: "not-an-email", Method: "phone"},
	}
	for _, req := range cases {
		_, err := f.svc.RequestSignup(ctx, req)
		requireCode(t, err, apperr.CodeValidationFailed)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("invalid signups must not send codes")
	}
}

func TestSignupDuplicateIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := &models.Account{Phone: models.StringPtr(testPhone), Email: models.StringPtr("ruth@example.com")}
	existing.ID = uuid.New()
	f.store.accounts[existing.ID] = existing

	_, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"})
	requireCode(t, err, apperr.CodeDuplicateIdentifier)

	// An email supplied alongside a fresh phone still collides.
	_, err = f.svc.RequestSignup(ctx, SignupRequest{Phone: "+254700000002", Email: "RUTH@example.com", Method: "phone"})
	requireCode(t, err, apperr.CodeDuplicateIdentifier)

	if len(f.store.pending) != 0 {
		t.Fatal("duplicates must not create pending registrations")
	}
}

func TestSignupDeliveryFailureKeepsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sender.fail = true

	ack, err := f.svc.RequestSignup(ctx, SignupRequest{Email: "ruth@example.com", Method: "email"})
	requireCode(t, err, apperr.CodeDeliveryFailed)
	if ack.Identifier != "ruth@example.com" || ack.Method != MethodEmail {
		t.Fatalf("acknowledgement should still be returned: %+v", ack)
	}
	if len(f.store.pending) != 1 {
		t.Fatal("pending registration should survive a delivery failure")
	}

	f.sender.fail = false
	ack, err = f.svc.ResendCode(ctx, "ruth@example.com", "")
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	sent := f.sender.last(t)
	if sent.channel != models.ChannelEmail || sent.purpose != services.PurposeResend || ack.Method != MethodEmail {
		t.Fatalf("unexpected resend: %+v %+v", sent, ack)
	}

	session, err := f.svc.VerifyCode(ctx, "ruth@example.com", sent.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !session.Account.EmailVerified || session.Account.PhoneVerified {
		t.Fatalf("email signup should verify the email only: %+v", session.Account)
	}
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestLogin(ctx, testPhone, "phone")
	requireCode(t, err, apperr.CodeNotFound)

	account := &models.Account{Phone: models.StringPtr(testPhone), Email: models.StringPtr("ruth@example.com"), IsActive: true}
	account.ID = uuid.New()
	f.store.accounts[account.ID] = account

	ack, err := f.svc.RequestLogin(ctx, "Ruth@Example.com", "email")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	sent := f.sender.last(t)
	if sent.destination != "ruth@example.com" || sent.channel != models.ChannelEmail || ack.Method != MethodEmail {
		t.Fatalf("unexpected dispatch: %+v", sent)
	}

	session, err := f.svc.VerifyCode(ctx, "ruth@example.com", sent.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.Created || session.Account.ID != account.ID {
		t.Fatalf("login should not create an account: %+v", session)
	}
	stored := f.store.accounts[account.ID]
	if stored.HasCode() || !stored.EmailVerified || stored.PhoneVerified {
		t.Fatalf("unexpected stored account: %+v", stored)
	}

	// The code is single use.
	_, err = f.svc.VerifyCode(ctx, "ruth@example.com", sent.code)
	requireCode(t, err, apperr.CodeInvalidCode)
}

func TestVerifiedFlagFollowsDeliveryChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Email: "ruth@example.com", Method: "email"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	sent := f.sender.last(t)
	if sent.channel != models.ChannelEmail {
		t.Fatalf("expected email delivery, got %+v", sent)
	}

	// The phone was never sent anything, so entering it must not verify it.
	session, err := f.svc.VerifyCode(ctx, testPhone, sent.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !session.Account.EmailVerified || session.Account.PhoneVerified {
		t.Fatalf("signup flags = phone:%v email:%v, want email only", session.Account.PhoneVerified, session.Account.EmailVerified)
	}

	account := f.store.accounts[session.Account.ID]
	account.EmailVerified = false
	if _, err := f.svc.RequestLogin(ctx, testPhone, "email"); err != nil {
		t.Fatalf("login: %v", err)
	}
	sent = f.sender.last(t)
	session, err = f.svc.VerifyCode(ctx, testPhone, sent.code)
	if err != nil {
		t.Fatalf("verify login: %v", err)
	}
	if !session.Account.EmailVerified || session.Account.PhoneVerified {
		t.Fatalf("login flags = phone:%v email:%v, want email only", session.Account.PhoneVerified, session.Account.EmailVerified)
	}
}

func TestLoginEmailMethodFallsBackToPhone(t *testing.T) {
	f := newFixture(t)
	account := &models.Account{Phone: models.StringPtr(testPhone)}
	account.ID = uuid.New()
	f.store.accounts[account.ID] = account

	ack, err := f.svc.RequestLogin(context.Background(), testPhone, "email")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sent := f.sender.last(t); sent.channel != models.ChannelSMS || ack.Method != MethodPhone {
		t.Fatalf("expected SMS fallback, got %+v", sent)
	}
}

func TestCodeExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	f.now = f.now.Add(11 * time.Minute)
	_, err := f.svc.VerifyCode(ctx, testPhone, "123456")
	requireCode(t, err, apperr.CodeInvalidCode)

	for _, p := range f.store.pending {
		if p.HasCode() {
			t.Fatal("expired code should be cleared")
		}
	}
}

func TestAttemptsAreLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	for i := 0; i < 5; i++ {
		_, err := f.svc.VerifyCode(ctx, testPhone, "999999")
		requireCode(t, err, apperr.CodeInvalidCode)
	}
	_, err := f.svc.VerifyCode(ctx, testPhone, "123456")
	requireCode(t, err, apperr.CodeInvalidCode)
}

func TestPromotionConflict(t *testing.T) {
	for _, storeErr := range []error{repository.ErrDuplicate, repository.ErrConflict} {
		f := newFixture(t)
		ctx := context.Background()
		if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"}); err != nil {
			t.Fatalf("signup: %v", err)
		}
		f.store.promoteErr = storeErr

		_, err := f.svc.VerifyCode(ctx, testPhone, "123456")
		requireCode(t, err, apperr.CodeAccountConflict)
		if !errors.Is(err, storeErr) {
			t.Fatalf("expected cause %v, got %v", storeErr, err)
		}
		if len(f.store.pending) != 1 {
			t.Fatal("pending registration must survive a conflict")
		}
	}
}

func TestResendUnknownIdentifier(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResendCode(context.Background(), testPhone, "")
	requireCode(t, err, apperr.CodeNotFound)

	_, err = f.svc.ResendCode(context.Background(), "", "")
	requireCode(t, err, apperr.CodeValidationFailed)
}

func TestRequestsAreRateLimited(t *testing.T) {
	f := newFixture(t)
	f.svc.limiter = utils.NewKeyedLimiter(1, 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"}); err != nil {
			t.Fatalf("signup %d: %v", i, err)
		}
	}
	_, err := f.svc.ResendCode(ctx, testPhone, "phone")
	requireCode(t, err, apperr.CodeRateLimited)

	// Other identifiers are unaffected.
	if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: "+254700000002", Method: "phone"}); err != nil {
		t.Fatalf("other identifier: %v", err)
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.RequestSignup(ctx, SignupRequest{Phone: testPhone, Method: "phone"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	session, err := f.svc.VerifyCode(ctx, testPhone, "123456")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	pair, err := f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	if err != nil || pair.AccessToken == "" {
		t.Fatalf("refresh: %v", err)
	}

	_, err = f.svc.Refresh(ctx, session.Tokens.AccessToken)
	requireCode(t, err, apperr.CodeUnauthorized)

	f.store.accounts[session.Account.ID].IsActive = false
	_, err = f.svc.Refresh(ctx, session.Tokens.RefreshToken)
	requireCode(t, err, apperr.CodeUnauthorized)
}
