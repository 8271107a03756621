package models

import (
	"time"
)

type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// RateRecord is one live vote by one user on one target. The composite
// unique index is the storage-level guard behind the at-most-one-vote
// invariant; the procedural check in the aggregator runs first and the
// index resolves check-then-act races between concurrent requests.
type RateRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index;uniqueIndex:idx_voter_target" json:"user_id"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_voter_target" json:"target_id"`
	TargetKind TargetKind `gorm:"size:10;not null;uniqueIndex:idx_voter_target" json:"target_kind"`
	Negative   bool       `gorm:"not null" json:"negative"`
	CreatedAt  time.Time  `json:"created_at"`
}
