// models/item_borrow.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ItemTable         = "bb_items"
	BorrowRecordTable = "bb_borrow_records"
)

// Item categories, mirrored by the create-item validation.
const (
	CategoryBooks       = "Books"
	CategoryNotes       = "Notes"
	CategoryElectronics = "Electronics"
	CategorySports      = "Sports Equipment"
	CategoryTools       = "Tools"
	CategoryApparel     = "Apparel"
	CategoryOther       = "Other"
)

func Categories() []string {
	return []string{
		CategoryBooks, CategoryNotes, CategoryElectronics,
		CategorySports, CategoryTools, CategoryApparel, CategoryOther,
	}
}

// Item is a single lendable thing. IsAvailable is a redundant column kept in
// lockstep with the open borrow record: false exactly while one record for
// the item sits in ON_LOAN or RETURN_PENDING.
type Item struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     string `gorm:"type:uuid;index;not null" json:"ownerId"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Category    string `gorm:"size:50;not null" json:"category"`
	Description string `gorm:"type:text" json:"description"`

	// Both optional: nil (or zero) rental fee means a free borrow, nil
	// deposit means the owner never asks for one.
	RentalFee     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"rentalFee,omitempty"`
	DepositAmount *decimal.Decimal `gorm:"type:decimal(10,2)" json:"depositAmount,omitempty"`

	BorrowingPeriodDays int  `gorm:"not null;default:7" json:"borrowingPeriodDays"`
	IsAvailable         bool `gorm:"not null;default:true" json:"isAvailable"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Borrow record statuses. Transitions only ever move forward:
// PENDING -> ON_LOAN | AWAITING_DEPOSIT | CANCELLED,
// AWAITING_DEPOSIT -> ON_LOAN, ON_LOAN -> RETURN_PENDING,
// RETURN_PENDING -> RETURNED.
const (
	StatusPending         = "PENDING"
	StatusAwaitingDeposit = "AWAITING_DEPOSIT"
	StatusOnLoan          = "ON_LOAN"
	StatusReturnPending   = "RETURN_PENDING"
	StatusReturned        = "RETURNED"
	StatusCancelled       = "CANCELLED"
)

// BorrowRecord is the transaction log for one borrow attempt. It outlives
// the loan itself so history survives the item becoming available again.
type BorrowRecord struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID     string `gorm:"type:uuid;index;not null" json:"itemId"`
	BorrowerID string `gorm:"type:uuid;index;not null" json:"borrowerId"`
	Status     string `gorm:"size:20;not null;default:'PENDING'" json:"status"`

	BorrowedAt       time.Time  `gorm:"index;not null" json:"borrowedAt"`
	ReturnDate       *time.Time `json:"returnDate,omitempty"`
	ActualReturnDate *time.Time `gorm:"index" json:"actualReturnDate,omitempty"`

	// Opaque token behind the QR return link; possession authorizes the
	// mark-returned transition.
	ReturnToken string `gorm:"type:uuid;uniqueIndex;not null" json:"-"`

	// Gateway bookkeeping. GatewayOrderID is the rental-fee order,
	// immutable once set; DepositOrderID is the deposit order. Each is the
	// idempotency key for its own callback.
	DepositAmount    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"depositAmount,omitempty"`
	GatewayOrderID   *string          `gorm:"size:100;uniqueIndex" json:"gatewayOrderId,omitempty"`
	DepositOrderID   *string          `gorm:"size:100;uniqueIndex" json:"depositOrderId,omitempty"`
	GatewayPaymentID *string          `gorm:"size:100" json:"gatewayPaymentId,omitempty"`
	GatewaySignature *string          `gorm:"size:255" json:"-"`
	DepositPaid      bool             `gorm:"not null;default:false" json:"depositPaid"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Item) TableName() string         { return ItemTable }
func (BorrowRecord) TableName() string { return BorrowRecordTable }

// Terminal reports whether no further transition can leave the status.
func Terminal(status string) bool {
	return status == StatusReturned || status == StatusCancelled
}

// Occupying reports whether a record in this status keeps its item
// unavailable.
func Occupying(status string) bool {
	return status == StatusOnLoan || status == StatusReturnPending
}

// ActiveStatuses are the statuses that block a second request for the same
// (item, borrower) pair.
func ActiveStatuses() []string {
	return []string{StatusPending, StatusAwaitingDeposit, StatusOnLoan, StatusReturnPending}
}
