package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"borrowbuddy/app"
	"borrowbuddy/lifecycle"
)

type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

// POST /api/items/:id/borrow — free items get a PENDING record, priced
// items get a gateway order to pay first.
func (bc *BorrowController) RequestBorrow(c *gin.Context) {
	uid, _ := app.UserID(c)
	out, err := bc.Engine.RequestBorrow(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if out.Payment != nil {
		c.JSON(http.StatusOK, app.H{
			"payment": out.Payment,
			"key":     bc.Cfg.RazorpayKeyID,
		})
		return
	}
	c.JSON(http.StatusCreated, out.Record)
}

// POST /api/records/:id/approve
func (bc *BorrowController) Approve(c *gin.Context) {
	uid, _ := app.UserID(c)
	rec, err := bc.Engine.Approve(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /api/records/:id/reject
func (bc *BorrowController) Reject(c *gin.Context) {
	uid, _ := app.UserID(c)
	rec, err := bc.Engine.Reject(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /api/records/:id/request-deposit
func (bc *BorrowController) RequestDeposit(c *gin.Context) {
	uid, _ := app.UserID(c)
	rec, err := bc.Engine.RequestDeposit(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /api/records/:id/pay-deposit — opens the deposit order.
func (bc *BorrowController) PayDeposit(c *gin.Context) {
	uid, _ := app.UserID(c)
	order, err := bc.Engine.PayDeposit(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"payment": order,
		"key":     bc.Cfg.RazorpayKeyID,
	})
}

// POST /api/records/:id/return
func (bc *BorrowController) MarkReturned(c *gin.Context) {
	uid, _ := app.UserID(c)
	rec, err := bc.Engine.MarkReturned(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /api/records/:id/confirm-return
func (bc *BorrowController) ConfirmReturn(c *gin.Context) {
	uid, _ := app.UserID(c)
	rec, err := bc.Engine.ConfirmReturn(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GET /api/records/:id/qr — PNG of the return link. Only the owner can
// mint it; the printed code then authorizes the return on its own.
func (bc *BorrowController) ReturnQR(c *gin.Context) {
	uid, _ := app.UserID(c)
	rec, err := bc.Repo.RecordByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	item, err := bc.Repo.ItemByID(c.Request.Context(), rec.ItemID)
	if err != nil {
		fail(c, err)
		return
	}
	if item.OwnerID != uid {
		fail(c, lifecycle.ErrNotOwner)
		return
	}
	url := fmt.Sprintf("%s/return/%s", bc.Cfg.WebOrigin, rec.ReturnToken)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// POST /return/:token — the QR path. Unauthenticated: possession of the
// token is the authorization.
func (bc *BorrowController) ReturnByToken(c *gin.Context) {
	rec, err := bc.Engine.MarkReturnedByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GET /api/records/borrowed — records where I am the borrower.
func (bc *BorrowController) BorrowedItems(c *gin.Context) {
	uid, _ := app.UserID(c)
	recs, err := bc.Repo.RecordsByBorrower(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"records": recs})
}

// GET /api/records/lended — records against items I own.
func (bc *BorrowController) LendedItems(c *gin.Context) {
	uid, _ := app.UserID(c)
	recs, err := bc.Repo.RecordsByItemOwner(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"records": recs})
}

// GET /api/records/transactions — my deposit-settled records.
func (bc *BorrowController) Transactions(c *gin.Context) {
	uid, _ := app.UserID(c)
	recs, err := bc.Repo.DepositTransactions(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"records": recs})
}
