package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Darkzarich/Smiler-sub000/internal/models"
)

// Memory is an arena-backed implementation of all four stores, guarded by a
// single mutex. Comments are kept as records keyed by id with parent ids and
// per-parent child-id lists, so tree traversal is index lookups rather than
// pointer chasing. Used by tests and local experiments.
type Memory struct {
	mu sync.Mutex

	users    map[uint]*models.User
	posts    map[uint]*models.Post
	comments map[uint]*models.Comment
	// children holds each comment's direct child ids in insertion order,
	// which is the authoritative display order for replies.
	children map[uint][]uint

	rates map[rateKey]*models.RateRecord
	// ratesByVoter caches which ledger records belong to each voter, kept
	// in lockstep with the ledger itself.
	ratesByVoter map[uint]map[rateKey]struct{}

	nextUserID    uint
	nextPostID    uint
	nextCommentID uint
	nextRateID    uint
}

type rateKey struct {
	voterID  uint
	targetID uint
	kind     models.TargetKind
}

// NewMemory returns a Stores bundle backed by one shared arena.
func NewMemory() *Stores {
	m := &Memory{
		users:        make(map[uint]*models.User),
		posts:        make(map[uint]*models.Post),
		comments:     make(map[uint]*models.Comment),
		children:     make(map[uint][]uint),
		rates:        make(map[rateKey]*models.RateRecord),
		ratesByVoter: make(map[uint]map[rateKey]struct{}),
	}
	return &Stores{
		Users:    memoryUsers{m},
		Posts:    memoryPosts{m},
		Comments: memoryComments{m},
		Ledger:   memoryLedger{m},
	}
}

type memoryLedger struct{ m *Memory }

func (l memoryLedger) Record(ctx context.Context, voterID, targetID uint, kind models.TargetKind, negative bool) (*models.RateRecord, error) {
	m := l.m
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rateKey{voterID: voterID, targetID: targetID, kind: kind}
	if _, exists := m.rates[key]; exists {
		return nil, ErrDuplicate
	}

	m.nextRateID++
	record := &models.RateRecord{
		ID:         m.nextRateID,
		UserID:     voterID,
		TargetID:   targetID,
		TargetKind: kind,
		Negative:   negative,
		CreatedAt:  time.Now(),
	}
	m.rates[key] = record
	if m.ratesByVoter[voterID] == nil {
		m.ratesByVoter[voterID] = make(map[rateKey]struct{})
	}
	m.ratesByVoter[voterID][key] = struct{}{}

	copied := *record
	return &copied, nil
}

func (l memoryLedger) Remove(ctx context.Context, voterID, targetID uint, kind models.TargetKind) (*models.RateRecord, error) {
	m := l.m
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rateKey{voterID: voterID, targetID: targetID, kind: kind}
	record, exists := m.rates[key]
	if !exists {
		return nil, ErrNotFound
	}
	delete(m.rates, key)
	delete(m.ratesByVoter[voterID], key)

	copied := *record
	return &copied, nil
}

func (l memoryLedger) Find(ctx context.Context, voterID, targetID uint, kind models.TargetKind) (*models.RateRecord, error) {
	m := l.m
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.rates[rateKey{voterID: voterID, targetID: targetID, kind: kind}]
	if !exists {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (l memoryLedger) FindAllFor(ctx context.Context, voterID uint, kind models.TargetKind, targetIDs []uint) (map[uint]*models.RateRecord, error) {
	m := l.m
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[uint]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		wanted[id] = struct{}{}
	}

	result := make(map[uint]*models.RateRecord)
	for key := range m.ratesByVoter[voterID] {
		if key.kind != kind {
			continue
		}
		if _, ok := wanted[key.targetID]; ok {
			copied := *m.rates[key]
			result[key.targetID] = &copied
		}
	}
	return result, nil
}

type memoryUsers struct{ m *Memory }

func (s memoryUsers) Create(ctx context.Context, user *models.User) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return ErrDuplicate
		}
	}
	m.nextUserID++
	user.ID = m.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (s memoryUsers) Get(ctx context.Context, id uint) (*models.User, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s memoryUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s memoryUsers) AddRating(ctx context.Context, id uint, delta float64) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[id]
	if !exists {
		return ErrNotFound
	}
	user.Rating += delta
	return nil
}

type memoryPosts struct{ m *Memory }

func (s memoryPosts) Create(ctx context.Context, post *models.Post) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextPostID++
	post.ID = m.nextPostID
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	copied := *post
	m.posts[post.ID] = &copied
	return nil
}

func (s memoryPosts) Get(ctx context.Context, id uint) (*models.Post, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.postLocked(id)
}

func (m *Memory) postLocked(id uint) (*models.Post, error) {
	post, exists := m.posts[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *post
	if author, ok := m.users[post.UserID]; ok {
		copied.User = *author
	}
	return &copied, nil
}

func (s memoryPosts) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, post := range m.posts {
		if post.Slug == slug {
			return m.postLocked(id)
		}
	}
	return nil, ErrNotFound
}

func (s memoryPosts) ListByRating(ctx context.Context, limit, offset int) ([]models.Post, int, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.Post, 0, len(m.posts))
	for id := range m.posts {
		post, _ := m.postLocked(id)
		all = append(all, *post)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].ID > all[j].ID
	})

	return paginate(all, limit, offset), len(all), nil
}

func (s memoryPosts) Delete(ctx context.Context, id uint) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.posts, id)
	return nil
}

func (s memoryPosts) AddRating(ctx context.Context, id uint, delta float64) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	post, exists := m.posts[id]
	if !exists {
		return ErrNotFound
	}
	post.Rating += delta
	return nil
}

func (s memoryPosts) AddCommentCount(ctx context.Context, id uint, delta int) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	post, exists := m.posts[id]
	if !exists {
		return ErrNotFound
	}
	post.CommentCount += delta
	return nil
}

type memoryComments struct{ m *Memory }

func (s memoryComments) Create(ctx context.Context, comment *models.Comment) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextCommentID++
	comment.ID = m.nextCommentID
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	copied := *comment
	m.comments[comment.ID] = &copied
	if comment.ParentID != nil {
		m.children[*comment.ParentID] = append(m.children[*comment.ParentID], comment.ID)
	}
	return nil
}

func (s memoryComments) Get(ctx context.Context, id uint) (*models.Comment, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commentLocked(id)
}

func (m *Memory) commentLocked(id uint) (*models.Comment, error) {
	comment, exists := m.comments[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *comment
	if author, ok := m.users[comment.UserID]; ok {
		copied.User = *author
	}
	return &copied, nil
}

func (s memoryComments) UpdateBody(ctx context.Context, id uint, body string) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	comment, exists := m.comments[id]
	if !exists {
		return ErrNotFound
	}
	comment.Body = body
	return nil
}

func (s memoryComments) Tombstone(ctx context.Context, id uint) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	comment, exists := m.comments[id]
	if !exists {
		return ErrNotFound
	}
	comment.Deleted = true
	comment.Body = ""
	comment.Rating = 0
	return nil
}

func (s memoryComments) Delete(ctx context.Context, id uint) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	comment, exists := m.comments[id]
	if !exists {
		return ErrNotFound
	}
	if comment.ParentID != nil {
		siblings := m.children[*comment.ParentID]
		for i, childID := range siblings {
			if childID == id {
				m.children[*comment.ParentID] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	delete(m.comments, id)
	delete(m.children, id)
	return nil
}

func (s memoryComments) AddRating(ctx context.Context, id uint, delta float64) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	comment, exists := m.comments[id]
	if !exists {
		return ErrNotFound
	}
	comment.Rating += delta
	return nil
}

func (s memoryComments) CountChildren(ctx context.Context, id uint) (int, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.children[id]), nil
}

func (s memoryComments) ListTopLevel(ctx context.Context, postID, authorID uint, limit, offset int) ([]models.Comment, int, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	var top []models.Comment
	for id, comment := range m.comments {
		if comment.PostID != postID || comment.ParentID != nil {
			continue
		}
		if authorID != 0 && comment.UserID != authorID {
			continue
		}
		copied, _ := m.commentLocked(id)
		top = append(top, *copied)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Rating != top[j].Rating {
			return top[i].Rating > top[j].Rating
		}
		return top[i].ID < top[j].ID
	})

	return paginate(top, limit, offset), len(top), nil
}

func (s memoryComments) ListChildren(ctx context.Context, parentIDs []uint) (map[uint][]models.Comment, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	grouped := make(map[uint][]models.Comment)
	for _, parentID := range parentIDs {
		for _, childID := range m.children[parentID] {
			child, err := m.commentLocked(childID)
			if err != nil {
				continue
			}
			grouped[parentID] = append(grouped[parentID], *child)
		}
	}
	return grouped, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
