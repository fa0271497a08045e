// Package payment implements the lifecycle gateway contract on top of
// Razorpay. Amounts cross the wire in minor units (paise) and every
// callback signature is checked before anything is trusted.
package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type Razorpay struct {
	client *razorpay.Client
	secret string
}

func NewRazorpay(keyID, secret string) *Razorpay {
	return &Razorpay{client: razorpay.NewClient(keyID, secret), secret: secret}
}

// CreateOrder opens a payment order carrying notes as opaque metadata the
// callback can read back via OrderNotes.
func (g *Razorpay) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error) {
	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}
	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}
	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order create: response has no id")
	}
	return id, nil
}

// VerifySignature checks the HMAC the gateway attached to a payment
// callback against our key secret.
func (g *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, signature, g.secret)
}

// OrderNotes fetches an order and returns its notes metadata.
func (g *Razorpay) OrderNotes(_ context.Context, orderID string) (map[string]string, error) {
	order, err := g.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order fetch: %w", err)
	}
	notes := map[string]string{}
	raw, _ := order["notes"].(map[string]interface{})
	for k, v := range raw {
		if s, ok := v.(string); ok {
			notes[k] = s
		}
	}
	return notes, nil
}
