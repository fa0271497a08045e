package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"borrowbuddy/app"
)

type PaymentController struct{ *Srv }

func NewPaymentController(s *Srv) *PaymentController { return &PaymentController{Srv: s} }

// Callback payload the gateway checkout posts back to us. Trust comes
// from the signature, not from a session.
type callbackInput struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// POST /payments/rental/callback — creates the borrow record once the
// rental fee is confirmed. Replays with the same order id return the
// already-created record.
func (pc *PaymentController) RentalCallback(c *gin.Context) {
	var in callbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rec, err := pc.Engine.ConfirmRentalPayment(c.Request.Context(), in.OrderID, in.PaymentID, in.Signature)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"status":  "success",
		"message": "Payment successful and request sent!",
		"record":  rec,
	})
}

// POST /payments/deposit/callback — settles a deposit order and starts
// the loan.
func (pc *PaymentController) DepositCallback(c *gin.Context) {
	var in callbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rec, err := pc.Engine.ConfirmDepositPayment(c.Request.Context(), in.OrderID, in.PaymentID, in.Signature)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"status": "success", "record": rec})
}
