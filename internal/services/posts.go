package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
	"github.com/Darkzarich/Smiler-sub000/internal/store"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

const (
	MaxPostPageSize     = 30
	DefaultPostPageSize = 20

	postListCacheTTL = time.Minute
)

type PostView struct {
	ID           uint        `json:"id"`
	Slug         string      `json:"slug"`
	Title        string      `json:"title"`
	Body         string      `json:"body"`
	Author       AuthorView  `json:"author"`
	Rating       float64     `json:"rating"`
	CommentCount int         `json:"comment_count"`
	CreatedAt    time.Time   `json:"created_at"`
	Rated        *RatedState `json:"rated,omitempty"`
}

type PostPage struct {
	Posts       []*PostView `json:"posts"`
	Total       int         `json:"total"`
	Pages       int         `json:"pages"`
	HasNextPage bool        `json:"hasNextPage"`
}

// PostService owns the post lifecycle and the rating-sorted listing. List
// pages are cached for a minute; create/delete bump the key generation so
// every cached page goes stale at once. Votes only move the rating, so
// short staleness there is acceptable.
type PostService struct {
	stores *store.Stores
	cache  *utils.Cache

	listGen atomic.Uint64
}

func NewPostService(stores *store.Stores, cache *utils.Cache) *PostService {
	return &PostService{stores: stores, cache: cache}
}

func (s *PostService) Create(ctx context.Context, authorID uint, title, body string) (*PostView, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperr.Validation("EMPTY_TITLE", "post title can not be empty")
	}

	post := models.Post{
		Slug:   utils.RandString(8),
		UserID: authorID,
		Title:  strings.TrimSpace(title),
		Body:   utils.RenderMarkdown(body),
	}
	if err := s.stores.Posts.Create(ctx, &post); err != nil {
		return nil, apperr.Internal(err)
	}

	s.listGen.Add(1)

	created, err := s.stores.Posts.Get(ctx, post.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.viewOf(created, nil), nil
}

func (s *PostService) GetBySlug(ctx context.Context, slug string, viewerID uint) (*PostView, error) {
	post, err := s.stores.Posts.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("POST_NOT_FOUND", "post not found")
		}
		return nil, apperr.Internal(err)
	}

	var rated *RatedState
	if viewerID != 0 {
		rated = &RatedState{}
		if record, err := s.stores.Ledger.Find(ctx, viewerID, post.ID, models.TargetPost); err == nil && record != nil {
			rated = &RatedState{IsRated: true, Negative: record.Negative}
		}
	}
	return s.viewOf(post, rated), nil
}

// List returns the rating-sorted post page. Pages are keyed by page number
// in the LRU; only whole pages of the shared (viewer-independent)
// projection are cached.
func (s *PostService) List(ctx context.Context, limit, offset int) (*PostPage, error) {
	if limit > MaxPostPageSize {
		return nil, apperr.Validation("LIMIT_EXCEEDED", "limit can not exceed 30")
	}
	if limit <= 0 {
		limit = DefaultPostPageSize
	}
	if offset < 0 {
		offset = 0
	}

	pageNum := offset/limit + 1
	cacheKey := s.listCacheKey(pageNum)
	if offset%limit == 0 {
		if cached, ok := s.cache.Get(cacheKey).(*PostPage); ok {
			return cached, nil
		}
	}

	posts, total, err := s.stores.Posts.ListByRating(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	views := make([]*PostView, 0, len(posts))
	for i := range posts {
		views = append(views, s.viewOf(&posts[i], nil))
	}

	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	page := &PostPage{
		Posts:       views,
		Total:       total,
		Pages:       pages,
		HasNextPage: offset+limit < total,
	}
	if offset%limit == 0 {
		s.cache.Set(cacheKey, page, postListCacheTTL)
	}
	return page, nil
}

func (s *PostService) Delete(ctx context.Context, actorID uint, postID uint) error {
	post, err := s.stores.Posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("POST_NOT_FOUND", "post not found")
		}
		return apperr.Internal(err)
	}
	if post.UserID != actorID {
		return apperr.Forbidden("NOT_OWNER", "can only delete your own posts")
	}
	if err := s.stores.Posts.Delete(ctx, postID); err != nil {
		return apperr.Internal(err)
	}
	s.listGen.Add(1)
	return nil
}

func (s *PostService) viewOf(post *models.Post, rated *RatedState) *PostView {
	return &PostView{
		ID:           post.ID,
		Slug:         post.Slug,
		Title:        post.Title,
		Body:         post.Body,
		Author:       AuthorView{ID: post.UserID, Username: post.User.Username},
		Rating:       post.Rating,
		CommentCount: post.CommentCount,
		CreatedAt:    post.CreatedAt,
		Rated:        rated,
	}
}

// listCacheKey scopes cache entries to the current write generation.
// Entries from older generations are never read again and fall out of the
// LRU on their own.
func (s *PostService) listCacheKey(page int) string {
	return fmt.Sprintf("posts:hot:%d:page:%d", s.listGen.Load(), page)
}
