package lifecycle

import "errors"

// Guard failures never mutate anything; controllers map them onto HTTP
// statuses with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrOwnItem          = errors.New("cannot borrow your own item")
	ErrItemUnavailable  = errors.New("item is not available")
	ErrDuplicateRequest = errors.New("active borrow request already exists for this item")
	ErrNotOwner         = errors.New("only the item owner may perform this action")
	ErrNotBorrower      = errors.New("only the borrower may perform this action")
	ErrBadStatus        = errors.New("operation not valid for the current status")
	ErrNoDeposit        = errors.New("no deposit amount is set for this item")
	ErrBadSignature     = errors.New("payment signature verification failed")
)
