package models

import "time"

// User holds credentials plus the running average rating recomputed by the
// feedback aggregator. VerificationToken is cleared on first successful
// verification, so a nil token means the account already went through the
// gate (or was created before one was issued).
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	Location      *string `gorm:"size:100" json:"location,omitempty"`
	AverageRating float64 `gorm:"not null;default:0" json:"averageRating"`

	IsActive          bool    `gorm:"not null;default:false" json:"isActive"`
	IsVerified        bool    `gorm:"not null;default:false" json:"isVerified"`
	VerificationToken *string `gorm:"uniqueIndex;type:uuid" json:"-"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "bb_users" }
