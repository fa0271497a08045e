package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"borrowbuddy/app"
)

type ProfileController struct{ *Srv }

func NewProfileController(s *Srv) *ProfileController { return &ProfileController{Srv: s} }

// PUT /api/profile
func (pc *ProfileController) Update(c *gin.Context) {
	uid, _ := app.UserID(c)
	var in struct {
		Location *string `json:"location"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		if loc == "" {
			in.Location = nil
		} else {
			in.Location = &loc
		}
	}
	if err := pc.Repo.UpdateLocation(c.Request.Context(), uid, in.Location); err != nil {
		fail(c, err)
		return
	}
	u, err := pc.Repo.UserByID(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// PUT /api/profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	uid, _ := app.UserID(c)
	var in struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u, err := pc.Repo.UserByID(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	hash, err := pc.Accounts.ChangePassword(c.Request.Context(), u, in.CurrentPassword, in.NewPassword)
	if err != nil {
		fail(c, err)
		return
	}
	if err := pc.Repo.UpdatePasswordHash(c.Request.Context(), uid, hash); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /users/:username — public profile: the user, their available
// listings and the reviews they have received.
func (pc *ProfileController) PublicProfile(c *gin.Context) {
	u, err := pc.Repo.UserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	items, err := pc.Repo.AvailableItemsByOwner(c.Request.Context(), u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	reviews, err := pc.Repo.FeedbackForReviewee(c.Request.Context(), u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"user": app.H{
			"id":            u.ID,
			"username":      u.Username,
			"location":      u.Location,
			"averageRating": u.AverageRating,
			"memberSince":   u.CreatedAt,
		},
		"items":   items,
		"reviews": reviews,
	})
}
