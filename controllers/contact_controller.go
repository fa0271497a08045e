package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"borrowbuddy/app"
)

type ContactController struct{ *Srv }

func NewContactController(s *Srv) *ContactController { return &ContactController{Srv: s} }

// POST /contact — relays the site contact form to the support inbox.
func (cc *ContactController) Submit(c *gin.Context) {
	var in struct {
		FullName string `json:"fullName" binding:"required,max=100"`
		Email    string `json:"email" binding:"required,email"`
		Subject  string `json:"subject" binding:"required,max=200"`
		Message  string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	subject := fmt.Sprintf("New Contact Form Message: %s", in.Subject)
	body := fmt.Sprintf("You have a new message from:\n\nName: %s\nEmail: %s\n\nMessage:\n%s",
		in.FullName, in.Email, in.Message)
	if err := cc.Mail.Send(cc.Cfg.ContactInbox, subject, body); err != nil {
		fail(c, fmt.Errorf("send contact mail: %w", err))
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "Your message has been sent successfully!"})
}
