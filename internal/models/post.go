package models

import (
	"time"
)

type Post struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Slug   string `gorm:"uniqueIndex;size:12;not null" json:"slug"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title  string `gorm:"not null" json:"title"`
	Body   string `gorm:"type:text" json:"body"` // sanitized HTML
	// Rating mirrors the sum of ±magnitude over live rate records targeting
	// this post. CommentCount mirrors the number of live comments.
	Rating       float64   `gorm:"default:0;index" json:"rating"`
	CommentCount int       `gorm:"default:0" json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
