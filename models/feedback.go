package models

import "time"

const FeedbackTable = "bb_feedback"

// Feedback is one counterparty rating the other for a finished borrow.
// At most one row per borrow record; the reviewee is always the other
// party, never the reviewer.
type Feedback struct {
	ID             string `gorm:"type:uuid;primaryKey" json:"id"`
	BorrowRecordID string `gorm:"type:uuid;uniqueIndex;not null" json:"borrowRecordId"`
	ReviewerID     string `gorm:"type:uuid;index;not null" json:"reviewerId"`
	RevieweeID     string `gorm:"type:uuid;index;not null" json:"revieweeId"`

	Rating  int    `gorm:"not null" json:"rating"` // 1..5
	Comment string `gorm:"type:text" json:"comment,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Feedback) TableName() string { return FeedbackTable }
