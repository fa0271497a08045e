// Package account is the access gate: registration with an emailed
// verification token, single-use verification, and password login for
// activated accounts.
package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"borrowbuddy/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotActivated       = errors.New("account is not active, verify your email first")
	ErrAlreadyVerified    = errors.New("account is already verified")
)

// Store is the user-persistence slice the gate needs.
// ConsumeVerificationToken must activate the user and clear the token in
// one guarded update: a second call with the same token is ErrNotFound.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	ConsumeVerificationToken(ctx context.Context, token string) (*models.User, error)
}

type Mailer interface {
	Send(to, subject, body string) error
}

type Service struct {
	store  Store
	mailer Mailer

	// Base URL embedded in verification links, e.g. https://borrowbuddy.app
	webOrigin string
}

func New(store Store, mailer Mailer, webOrigin string) *Service {
	return &Service{store: store, mailer: mailer, webOrigin: strings.TrimRight(webOrigin, "/")}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Location string
}

// Register creates an inactive user with a fresh verification token and
// mails the verification link. The account cannot log in until verified.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()
	u := &models.User{
		ID:                uuid.NewString(),
		Username:          in.Username,
		Email:             strings.ToLower(in.Email),
		PasswordHash:      string(hash),
		VerificationToken: &token,
	}
	if loc := strings.TrimSpace(in.Location); loc != "" {
		u.Location = &loc
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	// The account stands even when the mail bounces; ResendVerification
	// covers recovery, so the username is not burned by a flaky SMTP hop.
	if err := s.sendVerification(u); err != nil {
		log.Printf("verification mail to %s: %v", u.Email, err)
	}
	return u, nil
}

// ResendVerification mails a fresh copy of the pending verification link.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.store.UserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return err
	}
	if u.IsVerified || u.VerificationToken == nil {
		return ErrAlreadyVerified
	}
	if err := s.sendVerification(u); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

func (s *Service) sendVerification(u *models.User) error {
	link := fmt.Sprintf("%s/verify/%s", s.webOrigin, *u.VerificationToken)
	body := fmt.Sprintf("Please click the following link to verify your account: %s", link)
	return s.mailer.Send(u.Email, "Verify your BorrowBuddy account", body)
}

// Verify redeems a verification token. Tokens are single use: the user is
// activated and the token cleared atomically, so revisiting a stale link
// is a not-found, never a silent re-login.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	return s.store.ConsumeVerificationToken(ctx, token)
}

// Authenticate checks credentials for login. Unverified accounts are
// reported distinctly so the client can prompt for the email step.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrNotActivated
	}
	return u, nil
}

// ChangePassword swaps the hash after checking the current password.
func (s *Service) ChangePassword(ctx context.Context, u *models.User, current, next string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return "", ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
