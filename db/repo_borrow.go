package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"borrowbuddy/lifecycle"
	"borrowbuddy/models"
)

// Borrow records. These methods implement lifecycle.Store: every
// transition runs guard and write inside one transaction with the record
// row (and its item row) locked.

// CreateRequest inserts a new PENDING record. The item row is locked
// first so the availability check, the duplicate-pair check and the
// insert are one atomic unit; the partial unique indexes from Migrate
// back this up against races.
func (r *Repo) CreateRequest(ctx context.Context, rec *models.BorrowRecord) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", rec.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lifecycle.ErrNotFound
			}
			return err
		}
		if !it.IsAvailable {
			return lifecycle.ErrItemUnavailable
		}
		var n int64
		if err := tx.Model(&models.BorrowRecord{}).
			Where("item_id = ? AND borrower_id = ? AND status IN ?",
				rec.ItemID, rec.BorrowerID, models.ActiveStatuses()).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return lifecycle.ErrDuplicateRequest
		}
		if rec.BorrowedAt.IsZero() {
			rec.BorrowedAt = time.Now().UTC()
		}
		return tx.Create(rec).Error
	})
}

func (r *Repo) RecordByID(ctx context.Context, id string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) RecordByGatewayOrder(ctx context.Context, orderID string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).
		Where("gateway_order_id = ?", orderID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) RecordByDepositOrder(ctx context.Context, orderID string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).
		Where("deposit_order_id = ?", orderID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) MutateRecord(ctx context.Context, id string, fn lifecycle.MutateFunc) (*models.BorrowRecord, error) {
	return r.mutateRecord(ctx, "id = ?", id, fn)
}

func (r *Repo) MutateRecordByToken(ctx context.Context, token string, fn lifecycle.MutateFunc) (*models.BorrowRecord, error) {
	return r.mutateRecord(ctx, "return_token = ?", token, fn)
}

func (r *Repo) mutateRecord(ctx context.Context, cond string, arg interface{}, fn lifecycle.MutateFunc) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, cond, arg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lifecycle.ErrNotFound
			}
			return err
		}
		var it models.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", rec.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lifecycle.ErrNotFound
			}
			return err
		}
		if err := fn(&rec, &it); err != nil {
			return err
		}
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		return tx.Save(&it).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Dashboard listings.

func (r *Repo) RecordsByBorrower(ctx context.Context, borrowerID string) ([]models.BorrowRecord, error) {
	var recs []models.BorrowRecord
	err := r.DB.WithContext(ctx).
		Where("borrower_id = ?", borrowerID).
		Order("borrowed_at DESC").
		Find(&recs).Error
	return recs, err
}

func (r *Repo) RecordsByItemOwner(ctx context.Context, ownerID string) ([]models.BorrowRecord, error) {
	var recs []models.BorrowRecord
	err := r.DB.WithContext(ctx).
		Where("item_id IN (SELECT id FROM "+models.ItemTable+" WHERE owner_id = ?)", ownerID).
		Order("borrowed_at DESC").
		Find(&recs).Error
	return recs, err
}

// DepositTransactions are the borrower's records with a settled deposit,
// the transaction-history view.
func (r *Repo) DepositTransactions(ctx context.Context, borrowerID string) ([]models.BorrowRecord, error) {
	var recs []models.BorrowRecord
	err := r.DB.WithContext(ctx).
		Where("borrower_id = ? AND deposit_paid = TRUE", borrowerID).
		Order("borrowed_at DESC").
		Find(&recs).Error
	return recs, err
}
