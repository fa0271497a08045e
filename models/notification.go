package models

import "time"

const NotificationTable = "bb_notifications"

// Notification is an in-app message for one user, written best-effort
// after every lifecycle transition.
type Notification struct {
	ID          string  `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID string  `gorm:"type:uuid;index;not null" json:"recipientId"`
	Message     string  `gorm:"type:text;not null" json:"message"`
	Link        *string `gorm:"size:255" json:"link,omitempty"`
	IsRead      bool    `gorm:"not null;default:false" json:"isRead"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Notification) TableName() string { return NotificationTable }
