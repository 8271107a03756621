// Package store holds the data access layer: one interface per entity
// store plus the rate ledger, with a GORM/Postgres implementation for the
// server and an in-memory arena used by tests.
package store

import (
	"context"
	"errors"

	"github.com/Darkzarich/Smiler-sub000/internal/models"
)

var (
	// ErrNotFound is returned by Get/Remove style operations when the row
	// does not exist. Services translate it into the taxonomy.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned by RateLedger.Record when a live record for
	// the (voter, target, kind) triple already exists.
	ErrDuplicate = errors.New("store: duplicate")
)

// RateLedger is the durable record of who voted for what. Record, Remove
// and Find are the only legal ledger mutations/reads; all higher-level vote
// logic composes them with counter updates.
type RateLedger interface {
	// Record inserts a live vote. The insert attempt itself is the
	// race-resolution point: a concurrent duplicate fails with ErrDuplicate.
	Record(ctx context.Context, voterID, targetID uint, kind models.TargetKind, negative bool) (*models.RateRecord, error)
	// Remove deletes the voter's live vote on the target and returns the
	// removed record so its sign can inform the reversing delta.
	Remove(ctx context.Context, voterID, targetID uint, kind models.TargetKind) (*models.RateRecord, error)
	// Find returns the live record, or (nil, nil) when the voter has none.
	Find(ctx context.Context, voterID, targetID uint, kind models.TargetKind) (*models.RateRecord, error)
	// FindAllFor returns the voter's live records for a batch of targets,
	// keyed by target id. Used by listing paths to annotate vote state
	// without one ledger query per node.
	FindAllFor(ctx context.Context, voterID uint, kind models.TargetKind, targetIDs []uint) (map[uint]*models.RateRecord, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// AddRating applies a relative adjustment to the reputation counter.
	AddRating(ctx context.Context, id uint, delta float64) error
}

type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	// ListByRating returns posts sorted by rating descending plus the total
	// post count.
	ListByRating(ctx context.Context, limit, offset int) ([]models.Post, int, error)
	Delete(ctx context.Context, id uint) error
	AddRating(ctx context.Context, id uint, delta float64) error
	AddCommentCount(ctx context.Context, id uint, delta int) error
}

type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	Get(ctx context.Context, id uint) (*models.Comment, error)
	UpdateBody(ctx context.Context, id uint, body string) error
	// Tombstone marks the comment deleted and strips body and rating while
	// keeping the row so child replies stay addressable.
	Tombstone(ctx context.Context, id uint) error
	// Delete physically removes the comment. Only legal for comments with
	// zero children.
	Delete(ctx context.Context, id uint) error
	AddRating(ctx context.Context, id uint, delta float64) error
	CountChildren(ctx context.Context, id uint) (int, error)
	// ListTopLevel returns top-level comments of a post sorted by rating
	// descending plus the total top-level count. authorID of zero means no
	// author filter.
	ListTopLevel(ctx context.Context, postID, authorID uint, limit, offset int) ([]models.Comment, int, error)
	// ListChildren returns the direct children of each parent, grouped by
	// parent id, in insertion order. One call per tree depth level keeps
	// the fan-out bounded.
	ListChildren(ctx context.Context, parentIDs []uint) (map[uint][]models.Comment, error)
}

// Stores bundles the four stores behind one wiring point.
type Stores struct {
	Users    UserStore
	Posts    PostStore
	Comments CommentStore
	Ledger   RateLedger
}
