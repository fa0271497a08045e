// Package rating records post-transaction feedback and keeps each user's
// running average in sync by recomputing it from every feedback row they
// have received, never by incremental averaging.
package rating

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"borrowbuddy/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNotParty    = errors.New("only a party to the transaction may leave feedback")
	ErrDuplicate   = errors.New("feedback has already been submitted for this transaction")
	ErrRatingRange = errors.New("rating must be between 1 and 5")
)

// Store is the persistence slice the aggregator needs. SaveFeedback must
// insert the row, recompute the reviewee's average over all their feedback
// rounded to 2 decimal places, and persist both in one transaction; it
// returns the new average.
type Store interface {
	RecordWithItem(ctx context.Context, recordID string) (*models.BorrowRecord, *models.Item, error)
	HasFeedback(ctx context.Context, recordID string) (bool, error)
	SaveFeedback(ctx context.Context, fb *models.Feedback) (float64, error)
}

type Aggregator struct {
	store Store
}

func New(store Store) *Aggregator { return &Aggregator{store: store} }

// Submit persists one feedback for a borrow record. The reviewee is
// inferred as the other party: the owner when the borrower reviews, the
// borrower when the owner reviews.
func (a *Aggregator) Submit(ctx context.Context, reviewerID, recordID string, ratingValue int, comment string) (*models.Feedback, float64, error) {
	if ratingValue < 1 || ratingValue > 5 {
		return nil, 0, ErrRatingRange
	}
	rec, item, err := a.store.RecordWithItem(ctx, recordID)
	if err != nil {
		return nil, 0, err
	}

	var revieweeID string
	switch reviewerID {
	case rec.BorrowerID:
		revieweeID = item.OwnerID
	case item.OwnerID:
		revieweeID = rec.BorrowerID
	default:
		return nil, 0, ErrNotParty
	}

	exists, err := a.store.HasFeedback(ctx, recordID)
	if err != nil {
		return nil, 0, err
	}
	if exists {
		return nil, 0, ErrDuplicate
	}

	fb := &models.Feedback{
		ID:             uuid.NewString(),
		BorrowRecordID: rec.ID,
		ReviewerID:     reviewerID,
		RevieweeID:     revieweeID,
		Rating:         ratingValue,
		Comment:        comment,
	}
	avg, err := a.store.SaveFeedback(ctx, fb)
	if err != nil {
		return nil, 0, err
	}
	return fb, avg, nil
}
