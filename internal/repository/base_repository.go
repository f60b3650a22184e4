package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"recovery_hub/internal/storage"
)

type BaseRepository interface {
	Create(ctx context.Context, model interface{}) error
	FindByID(ctx context.Context, id uint, model interface{}) error
}

type baseRepository struct {
	db *storage.DB
}

func NewBaseRepository(db *storage.DB) BaseRepository {
	return &baseRepository{db: db}
}

func (r *baseRepository) Create(ctx context.Context, model interface{}) error {
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *baseRepository) FindByID(ctx context.Context, id uint, model interface{}) error {
	return translate(r.db.WithContext(ctx).First(model, id).Error)
}

// translate 將 gorm 的錯誤轉為 repository 層的錯誤
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
