package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
	"github.com/Darkzarich/Smiler-sub000/internal/store"
)

// Fixed per-vote rating contribution. Not configurable.
const (
	PostVoteMagnitude    = 1.0
	CommentVoteMagnitude = 0.5
)

// RatedState is the viewer's vote on a target, as shown in projections.
type RatedState struct {
	IsRated  bool `json:"isRated"`
	Negative bool `json:"negative"`
}

// TargetProjection is the updated target returned from vote/unvote.
type TargetProjection struct {
	ID     uint              `json:"id"`
	Kind   models.TargetKind `json:"kind"`
	Rating float64           `json:"rating"`
	Rated  RatedState        `json:"rated"`
}

// RatingService applies vote and unvote intents across the rate ledger and
// the denormalized rating counters. The ledger write is authoritative: it
// runs after all precondition checks and before any counter update, so a
// crash can leave a counter behind the ledger but never ahead of it.
type RatingService struct {
	stores *store.Stores
}

func NewRatingService(stores *store.Stores) *RatingService {
	return &RatingService{stores: stores}
}

// Vote records a new vote by voterID on the target and applies ±magnitude
// to the target's rating and its author's reputation.
func (r *RatingService) Vote(ctx context.Context, voterID, targetID uint, kind models.TargetKind, negative bool) (*TargetProjection, error) {
	authorID, magnitude, err := r.loadTarget(ctx, targetID, kind)
	if err != nil {
		return nil, err
	}
	if authorID == voterID {
		return nil, apperr.Forbidden("SELF_VOTE", "can not rate your own content")
	}

	existing, err := r.stores.Ledger.Find(ctx, voterID, targetID, kind)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Forbidden("ALREADY_RATED", "already rated")
	}

	record, err := r.stores.Ledger.Record(ctx, voterID, targetID, kind, negative)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// The unique index caught a concurrent duplicate that slipped
			// past the procedural check.
			return nil, apperr.Forbidden("ALREADY_RATED", "already rated")
		}
		return nil, apperr.Internal(err)
	}

	delta := magnitude
	if negative {
		delta = -magnitude
	}
	r.applyDelta(ctx, targetID, kind, authorID, delta)

	return r.projection(ctx, targetID, kind, record)
}

// Unvote removes the voter's live vote and applies the reversing delta.
func (r *RatingService) Unvote(ctx context.Context, voterID, targetID uint, kind models.TargetKind) (*TargetProjection, error) {
	authorID, magnitude, err := r.loadTarget(ctx, targetID, kind)
	if err != nil {
		return nil, err
	}

	record, err := r.stores.Ledger.Remove(ctx, voterID, targetID, kind)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Forbidden("NOT_RATED", "not rated")
		}
		return nil, apperr.Internal(err)
	}

	// Removing a downvote raises the rating; removing an upvote lowers it.
	delta := -magnitude
	if record.Negative {
		delta = magnitude
	}
	r.applyDelta(ctx, targetID, kind, authorID, delta)

	return r.projection(ctx, targetID, kind, nil)
}

// loadTarget resolves the votable entity. Tombstoned comments have their
// rating stripped and are not votable, same as missing rows.
func (r *RatingService) loadTarget(ctx context.Context, targetID uint, kind models.TargetKind) (authorID uint, magnitude float64, err error) {
	switch kind {
	case models.TargetPost:
		post, err := r.stores.Posts.Get(ctx, targetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, 0, apperr.NotFound("TARGET_NOT_FOUND", "post not found")
			}
			return 0, 0, apperr.Internal(err)
		}
		return post.UserID, PostVoteMagnitude, nil
	case models.TargetComment:
		comment, err := r.stores.Comments.Get(ctx, targetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, 0, apperr.NotFound("TARGET_NOT_FOUND", "comment not found")
			}
			return 0, 0, apperr.Internal(err)
		}
		if comment.Deleted {
			return 0, 0, apperr.NotFound("TARGET_NOT_FOUND", "comment not found")
		}
		return comment.UserID, CommentVoteMagnitude, nil
	default:
		return 0, 0, apperr.Validation("BAD_TARGET_KIND", fmt.Sprintf("unknown target kind %q", kind))
	}
}

// applyDelta lands the counter updates after the ledger write has
// committed. The adjustments are relative and order-independent. Failures
// are logged, never surfaced: once the ledger write is in, the vote has
// happened and counter drift is a reconciliation concern. A canceled
// request context must not abandon the counters mid-flight, hence the
// detached context.
func (r *RatingService) applyDelta(ctx context.Context, targetID uint, kind models.TargetKind, authorID uint, delta float64) {
	dctx := context.WithoutCancel(ctx)

	var err error
	if kind == models.TargetPost {
		err = r.stores.Posts.AddRating(dctx, targetID, delta)
	} else {
		err = r.stores.Comments.AddRating(dctx, targetID, delta)
	}
	if err != nil {
		log.Printf("rating: target counter update failed (%s %d, delta %+.1f): %v", kind, targetID, delta, err)
	}

	if err := r.stores.Users.AddRating(dctx, authorID, delta); err != nil {
		log.Printf("rating: author counter update failed (user %d, delta %+.1f): %v", authorID, delta, err)
	}
}

func (r *RatingService) projection(ctx context.Context, targetID uint, kind models.TargetKind, record *models.RateRecord) (*TargetProjection, error) {
	p := &TargetProjection{ID: targetID, Kind: kind}
	if record != nil {
		p.Rated = RatedState{IsRated: true, Negative: record.Negative}
	}

	switch kind {
	case models.TargetPost:
		post, err := r.stores.Posts.Get(ctx, targetID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		p.Rating = post.Rating
	case models.TargetComment:
		comment, err := r.stores.Comments.Get(ctx, targetID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		p.Rating = comment.Rating
	}
	return p, nil
}

// RatedStateFor annotates an arbitrary target with the viewer's vote.
// viewerID of zero means unauthenticated and always reads as unrated.
func (r *RatingService) RatedStateFor(ctx context.Context, viewerID, targetID uint, kind models.TargetKind) RatedState {
	if viewerID == 0 {
		return RatedState{}
	}
	record, err := r.stores.Ledger.Find(ctx, viewerID, targetID, kind)
	if err != nil || record == nil {
		return RatedState{}
	}
	return RatedState{IsRated: true, Negative: record.Negative}
}
