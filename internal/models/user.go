package models

import "time"

// User represents anyone who can log in: students submitting work and
// teachers reviewing it.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	// RoleStudent identifies learners that submit assignments.
	RoleStudent = "student"
	// RoleTeacher identifies course owners that review flagged work.
	RoleTeacher = "teacher"
)
