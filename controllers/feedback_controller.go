package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"borrowbuddy/app"
)

type FeedbackController struct{ *Srv }

func NewFeedbackController(s *Srv) *FeedbackController { return &FeedbackController{Srv: s} }

// POST /api/records/:id/feedback
func (fc *FeedbackController) Submit(c *gin.Context) {
	uid, _ := app.UserID(c)
	var in struct {
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	fb, avg, err := fc.Ratings.Submit(c.Request.Context(), uid, c.Param("id"), in.Rating, in.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{
		"feedback":      fb,
		"averageRating": avg,
	})
}
