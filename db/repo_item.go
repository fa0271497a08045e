package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"borrowbuddy/lifecycle"
	"borrowbuddy/models"
)

// Items

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	return r.DB.WithContext(ctx).Create(it).Error
}

func (r *Repo) ItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

type BrowseQuery struct {
	Q        string // substring match on name
	Category string
	Location string // substring match on the owner's location
	Page     int
	Size     int
}

type BrowseResult struct {
	Items []models.Item `json:"items"`
	Total int64         `json:"total"`
}

// BrowseItems lists available items with search, category and
// owner-location filters, newest first.
func (r *Repo) BrowseItems(ctx context.Context, q BrowseQuery) (BrowseResult, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 8
	}

	tx := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("is_available = TRUE")
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if s := strings.TrimSpace(q.Location); s != "" {
		tx = tx.Where(
			"owner_id IN (SELECT id FROM bb_users WHERE LOWER(COALESCE(location, '')) LIKE ?)",
			"%"+strings.ToLower(s)+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return BrowseResult{}, err
	}

	var items []models.Item
	if err := tx.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return BrowseResult{}, err
	}
	return BrowseResult{Items: items, Total: total}, nil
}

// FeaturedItems are the newest available listings for the landing page.
func (r *Repo) FeaturedItems(ctx context.Context, limit int) ([]models.Item, error) {
	if limit <= 0 {
		limit = 4
	}
	var items []models.Item
	err := r.DB.WithContext(ctx).
		Where("is_available = TRUE").
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *Repo) AvailableItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	var items []models.Item
	err := r.DB.WithContext(ctx).
		Where("owner_id = ? AND is_available = TRUE", ownerID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// DeleteItem removes an item with its borrow records and their feedback.
// The cascade is explicit rather than left to referential actions.
func (r *Repo) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.First(&it, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lifecycle.ErrNotFound
			}
			return err
		}
		if it.OwnerID != ownerID {
			return lifecycle.ErrNotOwner
		}
		if err := tx.Where(
			"borrow_record_id IN (SELECT id FROM "+models.BorrowRecordTable+" WHERE item_id = ?)",
			itemID).Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&models.BorrowRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Item{ID: itemID}).Error
	})
}
