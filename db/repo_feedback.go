package db

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"borrowbuddy/models"
	"borrowbuddy/rating"
)

// Feedback. These methods implement rating.Store.

func (r *Repo) RecordWithItem(ctx context.Context, recordID string) (*models.BorrowRecord, *models.Item, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).First(&rec, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, rating.ErrNotFound
		}
		return nil, nil, err
	}
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", rec.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, rating.ErrNotFound
		}
		return nil, nil, err
	}
	return &rec, &it, nil
}

func (r *Repo) HasFeedback(ctx context.Context, recordID string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Feedback{}).
		Where("borrow_record_id = ?", recordID).
		Count(&n).Error
	return n > 0, err
}

// SaveFeedback inserts the row and recomputes the reviewee's average from
// all their feedback in the same transaction, with the user row locked so
// concurrent submissions serialize. The unique index on borrow_record_id
// is the backstop against duplicate feedback races.
func (r *Repo) SaveFeedback(ctx context.Context, fb *models.Feedback) (float64, error) {
	var avg float64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reviewee models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&reviewee, "id = ?", fb.RevieweeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rating.ErrNotFound
			}
			return err
		}
		if err := tx.Create(fb).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Feedback{}).
			Select("COALESCE(AVG(rating), 0)").
			Where("reviewee_id = ?", fb.RevieweeID).
			Scan(&avg).Error; err != nil {
			return err
		}
		avg = math.Round(avg*100) / 100
		return tx.Model(&models.User{}).
			Where("id = ?", fb.RevieweeID).
			Update("average_rating", avg).Error
	})
	if err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *Repo) FeedbackForReviewee(ctx context.Context, revieweeID string) ([]models.Feedback, error) {
	var fbs []models.Feedback
	err := r.DB.WithContext(ctx).
		Where("reviewee_id = ?", revieweeID).
		Order("created_at DESC").
		Find(&fbs).Error
	return fbs, err
}

// DeleteRecord removes a borrow record and its feedback together.
func (r *Repo) DeleteRecord(ctx context.Context, recordID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("borrow_record_id = ?", recordID).
			Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.BorrowRecord{ID: recordID}).Error
	})
}
