package db

import (
	"context"

	"github.com/google/uuid"

	"borrowbuddy/models"
)

// Notifications. Notify implements lifecycle.Notifier.

func (r *Repo) Notify(ctx context.Context, recipientID, message, link string) error {
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Message:     message,
	}
	if link != "" {
		n.Link = &link
	}
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *Repo) NotificationsFor(ctx context.Context, recipientID string) ([]models.Notification, error) {
	var ns []models.Notification
	err := r.DB.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&ns).Error
	return ns, err
}

// MarkNotificationsRead flips everything unread for the recipient, the
// way opening the notifications page does.
func (r *Repo) MarkNotificationsRead(ctx context.Context, recipientID string) error {
	return r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = FALSE", recipientID).
		Update("is_read", true).Error
}
