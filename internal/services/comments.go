package services

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
	"github.com/Darkzarich/Smiler-sub000/internal/store"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

const (
	// MaxCommentPageSize is the hard limit on the top-level page size;
	// exceeding it is a validation error, not a silent clamp.
	MaxCommentPageSize     = 30
	DefaultCommentPageSize = 10
	// CommentEditWindow bounds author edits and deletes after creation.
	CommentEditWindow = 10 * time.Minute
	// MaxTreeDepth bounds eager reply population. Deeper replies stay in
	// storage but are left unexpanded, keeping query fan-out finite.
	MaxTreeDepth = 20
)

type AuthorView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// CommentView is one node of the response tree. A tombstoned node keeps
// only its id, parent linkage, children and creation time; body, author,
// rating and vote state are never populated for it.
type CommentView struct {
	ID        uint           `json:"id"`
	Parent    *uint          `json:"parent,omitempty"`
	Deleted   bool           `json:"deleted"`
	CreatedAt time.Time      `json:"created_at"`
	Children  []*CommentView `json:"children"`

	Body   string      `json:"body,omitempty"`
	Author *AuthorView `json:"author,omitempty"`
	Rating *float64    `json:"rating,omitempty"`
	Rated  *RatedState `json:"rated,omitempty"`
}

type CommentPage struct {
	Comments    []*CommentView `json:"comments"`
	Total       int            `json:"total"`
	Pages       int            `json:"pages"`
	HasNextPage bool           `json:"hasNextPage"`
}

// CommentService owns the comment lifecycle and the nested tree builder.
type CommentService struct {
	stores *store.Stores
}

func NewCommentService(stores *store.Stores) *CommentService {
	return &CommentService{stores: stores}
}

// Create inserts a comment under a post, optionally as a reply. The body is
// sanitized before insert; the post's denormalized comment count is bumped
// afterwards.
func (s *CommentService) Create(ctx context.Context, authorID, postID uint, parentID *uint, body string) (*CommentView, error) {
	if postID == 0 {
		return nil, apperr.Validation("MISSING_POST_ID", "post id is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Validation("EMPTY_BODY", "comment body can not be empty")
	}

	if _, err := s.stores.Posts.Get(ctx, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("POST_NOT_FOUND", "post not found")
		}
		return nil, apperr.Internal(err)
	}

	if parentID != nil {
		parent, err := s.stores.Comments.Get(ctx, *parentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("PARENT_NOT_FOUND", "parent comment not found")
			}
			return nil, apperr.Internal(err)
		}
		if parent.PostID != postID || parent.Deleted {
			return nil, apperr.NotFound("PARENT_NOT_FOUND", "parent comment not found")
		}
	}

	comment := models.Comment{
		PostID:   postID,
		UserID:   authorID,
		ParentID: parentID,
		Body:     utils.RenderMarkdown(body),
	}
	if err := s.stores.Comments.Create(ctx, &comment); err != nil {
		return nil, apperr.Internal(err)
	}

	// Independent write; the comment is in regardless.
	if err := s.stores.Posts.AddCommentCount(context.WithoutCancel(ctx), postID, 1); err != nil {
		log.Printf("comments: comment count bump failed (post %d): %v", postID, err)
	}

	created, err := s.stores.Comments.Get(ctx, comment.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	view := s.viewOf(*created, true)
	return view, nil
}

// Edit replaces the body of the actor's own comment. A comment that has
// replies can not be edited: the replies answered the original text.
func (s *CommentService) Edit(ctx context.Context, actorID, commentID uint, body string) (*CommentView, error) {
	comment, err := s.getLive(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actorID {
		return nil, apperr.Forbidden("NOT_OWNER", "can only edit your own comments")
	}
	children, err := s.stores.Comments.CountChildren(ctx, commentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if children > 0 {
		return nil, apperr.BadRequest("HAS_REPLIES", "comment with replies can not be edited")
	}
	if time.Since(comment.CreatedAt) > CommentEditWindow {
		return nil, apperr.Forbidden("EDIT_WINDOW_EXPIRED", "comment can no longer be edited")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Validation("EMPTY_BODY", "comment body can not be empty")
	}

	if err := s.stores.Comments.UpdateBody(ctx, commentID, utils.RenderMarkdown(body)); err != nil {
		return nil, apperr.Internal(err)
	}

	updated, err := s.stores.Comments.Get(ctx, commentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.viewOf(*updated, true), nil
}

// Delete tombstones a comment that has replies, keeping its children
// addressable, and physically removes one that has none.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID uint) error {
	comment, err := s.getLive(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		return apperr.Forbidden("NOT_OWNER", "can only delete your own comments")
	}
	if time.Since(comment.CreatedAt) > CommentEditWindow {
		return apperr.Forbidden("EDIT_WINDOW_EXPIRED", "comment can no longer be deleted")
	}

	children, err := s.stores.Comments.CountChildren(ctx, commentID)
	if err != nil {
		return apperr.Internal(err)
	}

	if children > 0 {
		if err := s.stores.Comments.Tombstone(ctx, commentID); err != nil {
			return apperr.Internal(err)
		}
		return nil
	}

	if err := s.stores.Comments.Delete(ctx, commentID); err != nil {
		return apperr.Internal(err)
	}
	if err := s.stores.Posts.AddCommentCount(context.WithoutCancel(ctx), comment.PostID, -1); err != nil {
		log.Printf("comments: comment count decrement failed (post %d): %v", comment.PostID, err)
	}
	return nil
}

// ListTopLevel builds the nested, rated comment tree for one post page.
// Top-level comments are rating-sorted; replies keep insertion order.
// viewerID of zero means unauthenticated, authorUsername filters top-level
// comments by author.
func (s *CommentService) ListTopLevel(ctx context.Context, postID uint, authorUsername string, limit, offset int, viewerID uint) (*CommentPage, error) {
	if postID == 0 {
		return nil, apperr.Validation("MISSING_POST_ID", "post id is required")
	}
	if limit > MaxCommentPageSize {
		return nil, apperr.Validation("LIMIT_EXCEEDED", "limit can not exceed 30")
	}
	if limit <= 0 {
		limit = DefaultCommentPageSize
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.stores.Posts.Get(ctx, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("POST_NOT_FOUND", "post not found")
		}
		return nil, apperr.Internal(err)
	}

	var authorID uint
	if authorUsername != "" {
		author, err := s.stores.Users.GetByUsername(ctx, authorUsername)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("AUTHOR_NOT_FOUND", "author not found")
			}
			return nil, apperr.Internal(err)
		}
		authorID = author.ID
	}

	top, total, err := s.stores.Comments.ListTopLevel(ctx, postID, authorID, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	views := make(map[uint]*CommentView)
	var liveIDs []uint

	authenticated := viewerID != 0
	ordered := make([]*CommentView, 0, len(top))
	level := make([]uint, 0, len(top))
	for _, comment := range top {
		view := s.viewOf(comment, authenticated)
		views[comment.ID] = view
		ordered = append(ordered, view)
		level = append(level, comment.ID)
		if !comment.Deleted {
			liveIDs = append(liveIDs, comment.ID)
		}
	}

	// Breadth-first population: one batch query per depth level.
	for depth := 0; depth < MaxTreeDepth && len(level) > 0; depth++ {
		grouped, err := s.stores.Comments.ListChildren(ctx, level)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		var next []uint
		for _, parentID := range level {
			for _, child := range grouped[parentID] {
				view := s.viewOf(child, authenticated)
				views[child.ID] = view
				views[parentID].Children = append(views[parentID].Children, view)
				next = append(next, child.ID)
				if !child.Deleted {
					liveIDs = append(liveIDs, child.ID)
				}
			}
		}
		level = next
	}

	if authenticated && len(liveIDs) > 0 {
		rated, err := s.stores.Ledger.FindAllFor(ctx, viewerID, models.TargetComment, liveIDs)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for id, record := range rated {
			if view := views[id]; view != nil {
				view.Rated = &RatedState{IsRated: true, Negative: record.Negative}
			}
		}
	}

	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &CommentPage{
		Comments:    ordered,
		Total:       total,
		Pages:       pages,
		HasNextPage: offset+limit < total,
	}, nil
}

func (s *CommentService) getLive(ctx context.Context, commentID uint) (*models.Comment, error) {
	comment, err := s.stores.Comments.Get(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("COMMENT_NOT_FOUND", "comment not found")
		}
		return nil, apperr.Internal(err)
	}
	if comment.Deleted {
		return nil, apperr.NotFound("COMMENT_NOT_FOUND", "comment not found")
	}
	return comment, nil
}

// viewOf projects one comment. Tombstones keep tree linkage only; live
// nodes carry body, author, rating and, for authenticated viewers, a vote
// state that defaults to unrated until the ledger batch fills it in.
func (s *CommentService) viewOf(comment models.Comment, authenticated bool) *CommentView {
	view := &CommentView{
		ID:        comment.ID,
		Parent:    comment.ParentID,
		Deleted:   comment.Deleted,
		CreatedAt: comment.CreatedAt,
		Children:  []*CommentView{},
	}
	if comment.Deleted {
		return view
	}

	rating := comment.Rating
	view.Body = comment.Body
	view.Rating = &rating
	view.Author = &AuthorView{ID: comment.UserID, Username: comment.User.Username}
	if authenticated {
		view.Rated = &RatedState{}
	}
	return view
}
