package models

import (
	"time"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"` // Hash
	Bio      string `gorm:"size:200" json:"bio"`
	// Rating is the sum of vote deltas received across everything this user
	// authored. Derived from the rate ledger, maintained with atomic
	// relative adjustments.
	Rating    float64   `gorm:"default:0" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
