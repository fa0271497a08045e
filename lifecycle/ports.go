package lifecycle

import (
	"context"

	"borrowbuddy/models"
)

// MutateFunc runs inside the store's transaction with the record and its
// item locked. Returning an error aborts without writing anything.
type MutateFunc func(rec *models.BorrowRecord, item *models.Item) error

// Store is the slice of the ledger the engine needs. Implementations must
// make each MutateRecord* call a single atomic read-modify-write per
// record (row lock or equivalent), and CreateRequest must check the
// availability and duplicate-request guards under the same lock that
// inserts the row.
type Store interface {
	ItemByID(ctx context.Context, id string) (*models.Item, error)
	UserByID(ctx context.Context, id string) (*models.User, error)

	CreateRequest(ctx context.Context, rec *models.BorrowRecord) error
	RecordByID(ctx context.Context, id string) (*models.BorrowRecord, error)
	RecordByGatewayOrder(ctx context.Context, orderID string) (*models.BorrowRecord, error)
	RecordByDepositOrder(ctx context.Context, orderID string) (*models.BorrowRecord, error)

	MutateRecord(ctx context.Context, id string, fn MutateFunc) (*models.BorrowRecord, error)
	MutateRecordByToken(ctx context.Context, token string, fn MutateFunc) (*models.BorrowRecord, error)
}

// Notifier records an in-app message for a user. Called after the state
// write; failures are logged, never rolled back into the transition.
type Notifier interface {
	Notify(ctx context.Context, recipientID, message, link string) error
}

// Gateway is the payment provider contract: open an order carrying opaque
// notes, verify a callback signature, read the notes back.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error)
	VerifySignature(orderID, paymentID, signature string) bool
	OrderNotes(ctx context.Context, orderID string) (map[string]string, error)
}

// PaymentOrder is handed to the client so it can drive the gateway
// checkout for the amount due.
type PaymentOrder struct {
	OrderID     string `json:"orderId"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}
