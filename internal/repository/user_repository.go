package repository

import (
	"context"
	"strconv"

	"recovery_hub/internal/models"
	"recovery_hub/internal/storage"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type userRepository struct {
	BaseRepository
	db *storage.DB
}

func NewUserRepository(db *storage.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository(db), db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.BaseRepository.Create(ctx, user)
}

// FindByID 以對外的字串 ID 查詢用戶，無法解析的 ID 視為不存在
func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil || parsed == 0 {
		return nil, ErrNotFound
	}

	var user models.User
	if err := r.BaseRepository.FindByID(ctx, uint(parsed), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
