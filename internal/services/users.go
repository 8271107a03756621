package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
	"github.com/Darkzarich/Smiler-sub000/internal/store"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

type ProfileView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

type UserService struct {
	stores *store.Stores
}

func NewUserService(stores *store.Stores) *UserService {
	return &UserService{stores: stores}
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("EMPTY_USERNAME", "username can not be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("BAD_EMAIL", "email is not valid")
	}
	if len(password) < 6 {
		return nil, apperr.Validation("WEAK_PASSWORD", "password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	if err := s.stores.Users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("USER_EXISTS", "username or email already registered")
		}
		return nil, apperr.Internal(err)
	}
	return &user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Forbidden("INVALID_CREDENTIALS", "wrong email or password")
		}
		return nil, apperr.Internal(err)
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, apperr.Forbidden("INVALID_CREDENTIALS", "wrong email or password")
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, id uint) (*ProfileView, error) {
	user, err := s.stores.Users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("USER_NOT_FOUND", "user not found")
		}
		return nil, apperr.Internal(err)
	}
	return &ProfileView{
		ID:        user.ID,
		Username:  user.Username,
		Bio:       user.Bio,
		Rating:    user.Rating,
		CreatedAt: user.CreatedAt,
	}, nil
}
