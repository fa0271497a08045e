package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"borrowbuddy/models"
)

type fakeStore struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by username
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*models.User{}}
}

func (s *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return ErrUsernameTaken
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	cp := *u
	s.users[u.Username] = &cp
	return nil
}

func (s *fakeStore) UserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) ConsumeVerificationToken(_ context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.IsActive = true
			u.IsVerified = true
			u.VerificationToken = nil
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []struct{ to, subject, body string }
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, struct{ to, subject, body string }{to, subject, body})
	return nil
}

func newService() (*Service, *fakeStore, *fakeMailer) {
	store := newFakeStore()
	mail := &fakeMailer{}
	return New(store, mail, "https://borrowbuddy.app/"), store, mail
}

func TestRegisterCreatesInactiveUserAndMailsToken(t *testing.T) {
	t.Parallel()
	svc, store, mail := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.COM",
		Password: "hunter2hunter2",
		Location: "  Pune  ",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.IsActive || u.IsVerified {
		t.Fatalf("new accounts must start inactive and unverified")
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email = %s, want lowercased", u.Email)
	}
	if u.Location == nil || *u.Location != "Pune" {
		t.Fatalf("location = %v, want trimmed %q", u.Location, "Pune")
	}
	if u.VerificationToken == nil || *u.VerificationToken == "" {
		t.Fatalf("verification token not set")
	}
	if u.PasswordHash == "hunter2hunter2" {
		t.Fatalf("password stored in the clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter2hunter2")); err != nil {
		t.Fatalf("stored hash does not match the password: %v", err)
	}

	if len(mail.sent) != 1 {
		t.Fatalf("mails sent = %d, want 1", len(mail.sent))
	}
	msg := mail.sent[0]
	if msg.to != "alice@example.com" {
		t.Fatalf("mail to = %s, want the registered address", msg.to)
	}
	wantLink := "https://borrowbuddy.app/verify/" + *u.VerificationToken
	if !strings.Contains(msg.body, wantLink) {
		t.Fatalf("mail body %q missing link %q", msg.body, wantLink)
	}

	if _, ok := store.users["alice"]; !ok {
		t.Fatalf("user not persisted")
	}
}

func TestVerifyIsSingleUse(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := *u.VerificationToken

	verified, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.IsActive || !verified.IsVerified {
		t.Fatalf("verify should activate the account")
	}
	if verified.VerificationToken != nil {
		t.Fatalf("token should be cleared on use")
	}

	if _, err := svc.Verify(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second verify: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Verify(ctx, "bogus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token: err = %v, want ErrNotFound", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "s3cret-s3cret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Correct password but unverified.
	if _, err := svc.Authenticate(ctx, "carol", "s3cret-s3cret"); !errors.Is(err, ErrNotActivated) {
		t.Fatalf("unverified login: err = %v, want ErrNotActivated", err)
	}

	if _, err := svc.Verify(ctx, *u.VerificationToken); err != nil {
		t.Fatalf("verify: %v", err)
	}
	got, err := svc.Authenticate(ctx, "carol", "s3cret-s3cret")
	if err != nil {
		t.Fatalf("login after verify: %v", err)
	}
	if got.Username != "carol" {
		t.Fatalf("username = %s, want carol", got.Username)
	}

	if _, err := svc.Authenticate(ctx, "carol", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "s3cret-s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterDuplicateUsernameAndEmail(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "dave", Email: "dave@example.com", Password: "pw-pw-pw-pw"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "dave", Email: "other@example.com", Password: "pw-pw-pw-pw"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: err = %v, want ErrUsernameTaken", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "dave2", Email: "DAVE@example.com", Password: "pw-pw-pw-pw"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: err = %v, want ErrEmailTaken", err)
	}
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	t.Parallel()
	svc, store, mail := newService()
	ctx := context.Background()
	mail.fail = true

	u, err := svc.Register(ctx, RegisterInput{Username: "frank", Email: "frank@example.com", Password: "pw-pw-pw-pw"})
	if err != nil {
		t.Fatalf("register with failing mailer: %v", err)
	}
	if _, ok := store.users["frank"]; !ok {
		t.Fatalf("user should be persisted even when the mail bounces")
	}

	// Recovery path: once mail is back up, resend delivers the same token.
	mail.fail = false
	if err := svc.ResendVerification(ctx, "Frank@Example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("mails sent = %d, want 1", len(mail.sent))
	}
	wantLink := "https://borrowbuddy.app/verify/" + *u.VerificationToken
	if !strings.Contains(mail.sent[0].body, wantLink) {
		t.Fatalf("resent body %q missing link %q", mail.sent[0].body, wantLink)
	}
}

func TestResendVerificationGuards(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "grace", Email: "grace@example.com", Password: "pw-pw-pw-pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Verify(ctx, *u.VerificationToken); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := svc.ResendVerification(ctx, "grace@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("verified account: err = %v, want ErrAlreadyVerified", err)
	}
	if err := svc.ResendVerification(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown email: err = %v, want ErrNotFound", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.DefaultCost)
	u := &models.User{Username: "erin", PasswordHash: string(hash)}

	if _, err := svc.ChangePassword(ctx, u, "not-the-password", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current: err = %v, want ErrInvalidCredentials", err)
	}

	newHash, err := svc.ChangePassword(ctx, u, "old-password", "new-password")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(newHash), []byte("new-password")); err != nil {
		t.Fatalf("new hash does not match the new password: %v", err)
	}
}
