// Package lifecycle owns the borrow-record state machine: every legal
// transition, its authorization predicate, and the payment flows that
// gate or accompany it. Each mutating operation runs its guards and its
// write atomically through the Store and emits exactly one notification
// to the counterparty afterwards.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"borrowbuddy/models"
)

// Currency is fixed for this deployment; the gateway takes minor units.
const Currency = "INR"

const (
	lendedLink   = "/lended"
	borrowedLink = "/borrowed"
)

type Engine struct {
	store    Store
	notifier Notifier
	gateway  Gateway

	now func() time.Time // swapped in tests
}

func New(store Store, notifier Notifier, gateway Gateway) *Engine {
	return &Engine{store: store, notifier: notifier, gateway: gateway, now: time.Now}
}

// RequestOutcome is what a borrow attempt produced: a PENDING record on
// the free path, or a gateway order the borrower must pay first.
type RequestOutcome struct {
	Record  *models.BorrowRecord `json:"record,omitempty"`
	Payment *PaymentOrder        `json:"payment,omitempty"`
}

func hasAmount(d *decimal.Decimal) bool { return d != nil && d.IsPositive() }

func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).IntPart()
}

// RequestBorrow starts a borrow attempt. Free items get a PENDING record
// immediately; items with a rental fee get a gateway order instead, and
// the record is only created once ConfirmRentalPayment sees the money.
func (e *Engine) RequestBorrow(ctx context.Context, borrowerID, itemID string) (*RequestOutcome, error) {
	item, err := e.store.ItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == borrowerID {
		return nil, ErrOwnItem
	}
	if !item.IsAvailable {
		return nil, ErrItemUnavailable
	}

	if hasAmount(item.RentalFee) {
		receipt := fmt.Sprintf("rental_%s_%s", item.ID, borrowerID)
		notes := map[string]string{"item_id": item.ID, "user_id": borrowerID}
		amount := minorUnits(*item.RentalFee)
		orderID, err := e.gateway.CreateOrder(ctx, amount, Currency, receipt, notes)
		if err != nil {
			return nil, fmt.Errorf("create rental order: %w", err)
		}
		return &RequestOutcome{Payment: &PaymentOrder{OrderID: orderID, AmountMinor: amount, Currency: Currency}}, nil
	}

	rec := &models.BorrowRecord{
		ID:          uuid.NewString(),
		ItemID:      item.ID,
		BorrowerID:  borrowerID,
		Status:      models.StatusPending,
		BorrowedAt:  e.now(),
		ReturnToken: uuid.NewString(),
	}
	if err := e.store.CreateRequest(ctx, rec); err != nil {
		return nil, err
	}

	borrower, err := e.store.UserByID(ctx, borrowerID)
	name := "Someone"
	if err == nil {
		name = borrower.Username
	}
	e.notify(ctx, item.OwnerID,
		fmt.Sprintf("%s has requested to borrow your item: %s", name, item.Name), lendedLink)
	return &RequestOutcome{Record: rec}, nil
}

// Approve moves PENDING to ON_LOAN: the item goes off the shelf and the
// scheduled return date is stamped from the item's borrowing period.
func (e *Engine) Approve(ctx context.Context, ownerID, recordID string) (*models.BorrowRecord, error) {
	var itemName string
	rec, err := e.store.MutateRecord(ctx, recordID, func(rec *models.BorrowRecord, item *models.Item) error {
		if item.OwnerID != ownerID {
			return ErrNotOwner
		}
		if rec.Status != models.StatusPending {
			return ErrBadStatus
		}
		if !item.IsAvailable {
			return ErrItemUnavailable
		}
		rec.Status = models.StatusOnLoan
		due := e.now().Add(time.Duration(item.BorrowingPeriodDays) * 24 * time.Hour)
		rec.ReturnDate = &due
		item.IsAvailable = false
		itemName = item.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, rec.BorrowerID,
		fmt.Sprintf("Your request for '%s' has been approved.", itemName), borrowedLink)
	return rec, nil
}

// Reject cancels a PENDING request. The item was never occupied, so its
// availability is untouched.
func (e *Engine) Reject(ctx context.Context, ownerID, recordID string) (*models.BorrowRecord, error) {
	var itemName string
	rec, err := e.store.MutateRecord(ctx, recordID, func(rec *models.BorrowRecord, item *models.Item) error {
		if item.OwnerID != ownerID {
			return ErrNotOwner
		}
		if rec.Status != models.StatusPending {
			return ErrBadStatus
		}
		rec.Status = models.StatusCancelled
		itemName = item.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, rec.BorrowerID,
		fmt.Sprintf("Your request for '%s' has been rejected.", itemName), borrowedLink)
	return rec, nil
}

// RequestDeposit parks a PENDING request in AWAITING_DEPOSIT until the
// borrower pays the item's security deposit.
func (e *Engine) RequestDeposit(ctx context.Context, ownerID, recordID string) (*models.BorrowRecord, error) {
	var itemName, amount string
	rec, err := e.store.MutateRecord(ctx, recordID, func(rec *models.BorrowRecord, item *models.Item) error {
		if item.OwnerID != ownerID {
			return ErrNotOwner
		}
		if !hasAmount(item.DepositAmount) {
			return ErrNoDeposit
		}
		if rec.Status != models.StatusPending {
			return ErrBadStatus
		}
		rec.Status = models.StatusAwaitingDeposit
		itemName = item.Name
		amount = item.DepositAmount.StringFixed(2)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, rec.BorrowerID,
		fmt.Sprintf("The owner of '%s' has requested a security deposit of ₹%s.", itemName, amount), borrowedLink)
	return rec, nil
}

// PayDeposit opens a gateway order for the deposit due on a record in
// AWAITING_DEPOSIT and books the order id on the record for the callback.
func (e *Engine) PayDeposit(ctx context.Context, borrowerID, recordID string) (*PaymentOrder, error) {
	rec, err := e.store.RecordByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.BorrowerID != borrowerID {
		return nil, ErrNotBorrower
	}
	if rec.Status != models.StatusAwaitingDeposit {
		return nil, ErrBadStatus
	}
	item, err := e.store.ItemByID(ctx, rec.ItemID)
	if err != nil {
		return nil, err
	}
	if !hasAmount(item.DepositAmount) {
		return nil, ErrNoDeposit
	}

	amount := minorUnits(*item.DepositAmount)
	orderID, err := e.gateway.CreateOrder(ctx, amount, Currency,
		fmt.Sprintf("deposit_%s", rec.ID), map[string]string{"record_id": rec.ID})
	if err != nil {
		return nil, fmt.Errorf("create deposit order: %w", err)
	}

	deposit := *item.DepositAmount
	if _, err := e.store.MutateRecord(ctx, recordID, func(rec *models.BorrowRecord, _ *models.Item) error {
		if rec.BorrowerID != borrowerID {
			return ErrNotBorrower
		}
		if rec.Status != models.StatusAwaitingDeposit {
			return ErrBadStatus
		}
		rec.DepositOrderID = &orderID
		rec.DepositAmount = &deposit
		return nil
	}); err != nil {
		return nil, err
	}
	return &PaymentOrder{OrderID: orderID, AmountMinor: amount, Currency: Currency}, nil
}

// ConfirmDepositPayment is the gateway callback for a deposit order. A
// verified payment completes the approval: AWAITING_DEPOSIT moves to
// ON_LOAN with the same effects as a direct approve. Replays of an
// already-settled order are no-ops.
func (e *Engine) ConfirmDepositPayment(ctx context.Context, orderID, paymentID, signature string) (*models.BorrowRecord, error) {
	if !e.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, ErrBadSignature
	}
	existing, err := e.store.RecordByDepositOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.DepositPaid {
		return existing, nil
	}

	var itemName, ownerID, borrowerName string
	rec, err := e.store.MutateRecord(ctx, existing.ID, func(rec *models.BorrowRecord, item *models.Item) error {
		if rec.DepositPaid {
			return nil
		}
		if rec.Status != models.StatusAwaitingDeposit {
			return ErrBadStatus
		}
		if !item.IsAvailable {
			return ErrItemUnavailable
		}
		rec.DepositPaid = true
		rec.GatewayPaymentID = &paymentID
		rec.GatewaySignature = &signature
		rec.Status = models.StatusOnLoan
		due := e.now().Add(time.Duration(item.BorrowingPeriodDays) * 24 * time.Hour)
		rec.ReturnDate = &due
		item.IsAvailable = false
		itemName = item.Name
		ownerID = item.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if borrower, err := e.store.UserByID(ctx, rec.BorrowerID); err == nil {
		borrowerName = borrower.Username
	} else {
		borrowerName = "The borrower"
	}
	e.notify(ctx, ownerID,
		fmt.Sprintf("%s has paid the security deposit for '%s'. The loan is now active.", borrowerName, itemName), lendedLink)
	return rec, nil
}

// ConfirmRentalPayment is the gateway callback for a rental-fee order.
// The borrow record only comes into existence here, in PENDING, carrying
// the gateway audit fields. The same guards as the free path apply, plus
// idempotency on the order id.
func (e *Engine) ConfirmRentalPayment(ctx context.Context, orderID, paymentID, signature string) (*models.BorrowRecord, error) {
	if !e.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, ErrBadSignature
	}
	if existing, err := e.store.RecordByGatewayOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	notes, err := e.gateway.OrderNotes(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	itemID, userID := notes["item_id"], notes["user_id"]
	if itemID == "" || userID == "" {
		return nil, fmt.Errorf("order %s is missing item/user notes", orderID)
	}

	item, err := e.store.ItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	borrower, err := e.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == borrower.ID {
		return nil, ErrOwnItem
	}

	rec := &models.BorrowRecord{
		ID:               uuid.NewString(),
		ItemID:           item.ID,
		BorrowerID:       borrower.ID,
		Status:           models.StatusPending,
		BorrowedAt:       e.now(),
		ReturnToken:      uuid.NewString(),
		GatewayOrderID:   &orderID,
		GatewayPaymentID: &paymentID,
		GatewaySignature: &signature,
	}
	if err := e.store.CreateRequest(ctx, rec); err != nil {
		return nil, err
	}
	e.notify(ctx, item.OwnerID,
		fmt.Sprintf("%s has paid the rental fee and requested to borrow your item: %s", borrower.Username, item.Name), lendedLink)
	return rec, nil
}

// MarkReturned lets the borrower hand the item back: ON_LOAN moves to
// RETURN_PENDING until the owner confirms.
func (e *Engine) MarkReturned(ctx context.Context, borrowerID, recordID string) (*models.BorrowRecord, error) {
	var itemName, ownerID string
	rec, err := e.store.MutateRecord(ctx, recordID, func(rec *models.BorrowRecord, item *models.Item) error {
		if rec.BorrowerID != borrowerID {
			return ErrNotBorrower
		}
		if rec.Status != models.StatusOnLoan {
			return ErrBadStatus
		}
		rec.Status = models.StatusReturnPending
		itemName = item.Name
		ownerID = item.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}
	name := "The borrower"
	if borrower, err := e.store.UserByID(ctx, borrowerID); err == nil {
		name = borrower.Username
	}
	e.notify(ctx, ownerID,
		fmt.Sprintf("%s has marked '%s' as returned. Please confirm.", name, itemName), lendedLink)
	return rec, nil
}

// MarkReturnedByToken is the QR path: possession of the return token
// stands in for the borrower's identity. Same transition and guard as
// MarkReturned, looked up by token.
func (e *Engine) MarkReturnedByToken(ctx context.Context, token string) (*models.BorrowRecord, error) {
	var itemName, ownerID string
	rec, err := e.store.MutateRecordByToken(ctx, token, func(rec *models.BorrowRecord, item *models.Item) error {
		if rec.Status != models.StatusOnLoan {
			return ErrBadStatus
		}
		rec.Status = models.StatusReturnPending
		itemName = item.Name
		ownerID = item.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, ownerID,
		fmt.Sprintf("The borrower has marked '%s' as returned via QR code. Please confirm.", itemName), lendedLink)
	return rec, nil
}

// ConfirmReturn closes the loop: RETURN_PENDING moves to RETURNED, the
// actual return time is stamped and the item goes back on the shelf.
func (e *Engine) ConfirmReturn(ctx context.Context, ownerID, recordID string) (*models.BorrowRecord, error) {
	var itemName string
	rec, err := e.store.MutateRecord(ctx, recordID, func(rec *models.BorrowRecord, item *models.Item) error {
		if item.OwnerID != ownerID {
			return ErrNotOwner
		}
		if rec.Status != models.StatusReturnPending {
			return ErrBadStatus
		}
		rec.Status = models.StatusReturned
		now := e.now()
		rec.ActualReturnDate = &now
		item.IsAvailable = true
		itemName = item.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, rec.BorrowerID,
		fmt.Sprintf("The return of '%s' has been confirmed.", itemName), borrowedLink)
	return rec, nil
}

func (e *Engine) notify(ctx context.Context, recipientID, message, link string) {
	if err := e.notifier.Notify(ctx, recipientID, message, link); err != nil {
		log.Printf("notify %s: %v", recipientID, err)
	}
}
