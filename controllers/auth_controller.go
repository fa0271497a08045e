package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"borrowbuddy/account"
	"borrowbuddy/app"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /auth/signup
func (ac *AuthController) Signup(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required,min=3,max=150"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u, err := ac.Accounts.Register(c.Request.Context(), account.RegisterInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		Location: in.Location,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{
		"user":    u,
		"message": "Please check your email to verify your account.",
	})
}

// GET /auth/verify/:token — redeems the emailed token and starts a
// session. Tokens are single use; a second visit is a 404.
func (ac *AuthController) VerifyEmail(c *gin.Context) {
	token := c.Param("token")
	u, err := ac.Accounts.Verify(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}
	if err := ac.issueSession(c.Request.Context(), c.Writer, u.ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"user":    u,
		"message": "Your account has been successfully verified.",
	})
}

// POST /auth/resend-verification — re-mails the pending verification
// link, for accounts whose first mail never arrived.
func (ac *AuthController) ResendVerification(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := ac.Accounts.ResendVerification(c.Request.Context(), in.Email); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "Verification email sent."})
}

// POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u, err := ac.Accounts.Authenticate(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if err := ac.issueSession(c.Request.Context(), c.Writer, u.ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// POST /auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.SessionCookie); err == nil && ck.Value != "" {
		_ = ac.Sessions.Delete(c.Request.Context(), ck.Value)
	}
	ac.clearSessionCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /auth/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	uid, ok := app.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	u, err := ac.Repo.UserByID(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}
