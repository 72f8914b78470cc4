package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification represents an alert targeted to a specific user, such as a
// plagiarism flag for a teacher or a review outcome for a student.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Title     string            `gorm:"size:255" json:"title"`
	Type      string            `gorm:"size:64" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	Data      datatypes.JSONMap `gorm:"type:json" json:"data"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Notification type tags used by the plagiarism workflow.
const (
	NotificationTypePlagiarismAlert  = "plagiarism_alert"
	NotificationTypePlagiarismReview = "plagiarism_review"
)
