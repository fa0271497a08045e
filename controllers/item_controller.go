package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"borrowbuddy/app"
	"borrowbuddy/db"
	"borrowbuddy/models"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

type createItemInput struct {
	Name                string  `json:"name" binding:"required,max=200"`
	Category            string  `json:"category" binding:"required"`
	Description         string  `json:"description"`
	RentalFee           *string `json:"rentalFee"`
	DepositAmount       *string `json:"depositAmount"`
	BorrowingPeriodDays int     `json:"borrowingPeriodDays"`
}

func parseAmount(s *string) (*decimal.Decimal, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(*s)
	if err != nil || d.IsNegative() {
		return nil, false
	}
	return &d, true
}

// POST /api/items
func (ic *ItemController) CreateItem(c *gin.Context) {
	uid, _ := app.UserID(c)
	var in createItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	valid := false
	for _, cat := range models.Categories() {
		if in.Category == cat {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, app.H{"error": "unknown category"})
		return
	}
	fee, ok := parseAmount(in.RentalFee)
	if !ok {
		c.JSON(http.StatusBadRequest, app.H{"error": "rental fee must be a non-negative amount"})
		return
	}
	deposit, ok := parseAmount(in.DepositAmount)
	if !ok {
		c.JSON(http.StatusBadRequest, app.H{"error": "deposit must be a non-negative amount"})
		return
	}
	period := in.BorrowingPeriodDays
	if period == 0 {
		period = 7
	}
	if period < 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "borrowing period must be positive"})
		return
	}

	it := &models.Item{
		ID:                  uuid.NewString(),
		OwnerID:             uid,
		Name:                in.Name,
		Category:            in.Category,
		Description:         in.Description,
		RentalFee:           fee,
		DepositAmount:       deposit,
		BorrowingPeriodDays: period,
		IsAvailable:         true,
	}
	if err := ic.Repo.CreateItem(c.Request.Context(), it); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// GET /api/items?q=&category=&location=&page=&size=
func (ic *ItemController) BrowseItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "8"))
	res, err := ic.Repo.BrowseItems(c.Request.Context(), db.BrowseQuery{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Location: c.Query("location"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"items":      res.Items,
		"total":      res.Total,
		"categories": models.Categories(),
	})
}

// GET /api/items/featured
func (ic *ItemController) FeaturedItems(c *gin.Context) {
	items, err := ic.Repo.FeaturedItems(c.Request.Context(), 4)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// GET /api/items/:id
func (ic *ItemController) GetItem(c *gin.Context) {
	it, err := ic.Repo.ItemByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// DELETE /api/items/:id — cascades to borrow records and feedback.
func (ic *ItemController) DeleteItem(c *gin.Context) {
	uid, _ := app.UserID(c)
	if err := ic.Repo.DeleteItem(c.Request.Context(), uid, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
