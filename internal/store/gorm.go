package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Darkzarich/Smiler-sub000/internal/models"
)

// NewGorm wires the Postgres-backed stores. Requires a gorm.DB opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func NewGorm(db *gorm.DB) *Stores {
	return &Stores{
		Users:    &gormUsers{db: db},
		Posts:    &gormPosts{db: db},
		Comments: &gormComments{db: db},
		Ledger:   &gormLedger{db: db},
	}
}

type gormLedger struct {
	db *gorm.DB
}

func (l *gormLedger) Record(ctx context.Context, voterID, targetID uint, kind models.TargetKind, negative bool) (*models.RateRecord, error) {
	record := models.RateRecord{
		UserID:     voterID,
		TargetID:   targetID,
		TargetKind: kind,
		Negative:   negative,
	}
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &record, nil
}

func (l *gormLedger) Remove(ctx context.Context, voterID, targetID uint, kind models.TargetKind) (*models.RateRecord, error) {
	var record models.RateRecord
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND target_id = ? AND target_kind = ?", voterID, targetID, kind).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		// The delete is the race-resolution point, same as the unique
		// index on Record: a concurrent Remove may take the row between
		// the read and the delete, and only the caller whose delete
		// affects the row gets the record back.
		res := tx.Delete(&models.RateRecord{}, record.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (l *gormLedger) Find(ctx context.Context, voterID, targetID uint, kind models.TargetKind) (*models.RateRecord, error) {
	var record models.RateRecord
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_kind = ?", voterID, targetID, kind).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (l *gormLedger) FindAllFor(ctx context.Context, voterID uint, kind models.TargetKind, targetIDs []uint) (map[uint]*models.RateRecord, error) {
	result := make(map[uint]*models.RateRecord, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}
	var records []models.RateRecord
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id IN ?", voterID, kind, targetIDs).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	for i := range records {
		result[records[i].TargetID] = &records[i]
	}
	return result, nil
}

type gormUsers struct {
	db *gorm.DB
}

func (s *gormUsers) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *gormUsers) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *gormUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *gormUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *gormUsers) AddRating(ctx context.Context, id uint, delta float64) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("rating", gorm.Expr("rating + ?", delta)).Error
}

type gormPosts struct {
	db *gorm.DB
}

func (s *gormPosts) Create(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *gormPosts) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *gormPosts) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("User").Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *gormPosts) ListByRating(ctx context.Context, limit, offset int) ([]models.Post, int, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.Post
	err := s.db.WithContext(ctx).Preload("User").
		Order("rating DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, int(total), nil
}

func (s *gormPosts) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Post{}, id).Error
}

func (s *gormPosts) AddRating(ctx context.Context, id uint, delta float64) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("rating", gorm.Expr("rating + ?", delta)).Error
}

func (s *gormPosts) AddCommentCount(ctx context.Context, id uint, delta int) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta)).Error
}

type gormComments struct {
	db *gorm.DB
}

func (s *gormComments) Create(ctx context.Context, comment *models.Comment) error {
	return s.db.WithContext(ctx).Create(comment).Error
}

func (s *gormComments) Get(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

func (s *gormComments) UpdateBody(ctx context.Context, id uint, body string) error {
	return s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		UpdateColumn("body", body).Error
}

func (s *gormComments) Tombstone(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"deleted": true,
			"body":    "",
			"rating":  0,
		}).Error
}

func (s *gormComments) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Comment{}, id).Error
}

func (s *gormComments) AddRating(ctx context.Context, id uint, delta float64) error {
	return s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		UpdateColumn("rating", gorm.Expr("rating + ?", delta)).Error
}

func (s *gormComments) CountChildren(ctx context.Context, id uint) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ?", id).
		Count(&count).Error
	return int(count), err
}

func (s *gormComments) ListTopLevel(ctx context.Context, postID, authorID uint, limit, offset int) ([]models.Comment, int, error) {
	query := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND parent_id IS NULL", postID)
	if authorID != 0 {
		query = query.Where("user_id = ?", authorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	err := query.Preload("User").
		Order("rating DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, int(total), nil
}

func (s *gormComments) ListChildren(ctx context.Context, parentIDs []uint) (map[uint][]models.Comment, error) {
	grouped := make(map[uint][]models.Comment)
	if len(parentIDs) == 0 {
		return grouped, nil
	}
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("User").
		Where("parent_id IN ?", parentIDs).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	for _, comment := range comments {
		grouped[*comment.ParentID] = append(grouped[*comment.ParentID], comment)
	}
	return grouped, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
