package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"borrowbuddy/app"
)

type NotificationController struct{ *Srv }

func NewNotificationController(s *Srv) *NotificationController {
	return &NotificationController{Srv: s}
}

// GET /api/notifications — listing marks everything unread as read, the
// way opening the page does.
func (nc *NotificationController) List(c *gin.Context) {
	uid, _ := app.UserID(c)
	ns, err := nc.Repo.NotificationsFor(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	if err := nc.Repo.MarkNotificationsRead(c.Request.Context(), uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"notifications": ns})
}
