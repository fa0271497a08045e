// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"borrowbuddy/account"
	"borrowbuddy/app"
	"borrowbuddy/config"
	"borrowbuddy/db"
	"borrowbuddy/lifecycle"
	"borrowbuddy/mailer"
	"borrowbuddy/payment"
	"borrowbuddy/rating"
	"borrowbuddy/session"
)

type Srv struct {
	Repo     *db.Repo
	Sessions *session.Store
	Engine   *lifecycle.Engine
	Ratings  *rating.Aggregator
	Accounts *account.Service
	Mail     account.Mailer
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	gateway := payment.NewRazorpay(a.Config.RazorpayKeyID, a.Config.RazorpaySecret)
	from := a.Config.SMTPUser
	if from == "" {
		from = "no-reply@borrowbuddy.local"
	}
	mail := mailer.NewSMTP(a.Config.SMTPHost, a.Config.SMTPPort, a.Config.SMTPUser, a.Config.SMTPPass, from)
	return &Srv{
		Repo:     repo,
		Sessions: a.Sessions(),
		Engine:   lifecycle.New(repo, repo, gateway),
		Ratings:  rating.New(repo),
		Accounts: account.New(repo, mail, a.Config.WebOrigin),
		Mail:     mail,
		Cfg:      a.Config,
	}
}

// --- helpers ---

func (s *Srv) setSessionCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.Cfg.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string) error {
	_ = s.Repo.TouchUserLogin(ctx, userID) // best effort
	id := uuid.NewString()
	if err := s.Sessions.Create(ctx, id, userID); err != nil {
		return err
	}
	s.setSessionCookie(w, id, s.Cfg.SessionTTL)
	return nil
}

func (s *Srv) clearSessionCookie(w http.ResponseWriter) {
	secure := strings.HasPrefix(s.Cfg.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// fail maps domain errors to HTTP statuses; anything unexpected becomes a
// generic 500 without leaking internals.
func fail(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "something went wrong, please try again later"
	}
	c.JSON(code, app.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound),
		errors.Is(err, rating.ErrNotFound),
		errors.Is(err, account.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrNotOwner),
		errors.Is(err, lifecycle.ErrNotBorrower),
		errors.Is(err, rating.ErrNotParty):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrBadStatus),
		errors.Is(err, lifecycle.ErrItemUnavailable),
		errors.Is(err, lifecycle.ErrDuplicateRequest),
		errors.Is(err, rating.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrOwnItem),
		errors.Is(err, lifecycle.ErrNoDeposit),
		errors.Is(err, lifecycle.ErrBadSignature),
		errors.Is(err, rating.ErrRatingRange),
		errors.Is(err, account.ErrUsernameTaken),
		errors.Is(err, account.ErrEmailTaken),
		errors.Is(err, account.ErrAlreadyVerified):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, account.ErrNotActivated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
