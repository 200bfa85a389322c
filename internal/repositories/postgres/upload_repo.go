package postgres

import (
	"context"
	"errors"

	"github.com/theravid/theravid/internal/models"
	"github.com/theravid/theravid/internal/utils"
	"gorm.io/gorm"
)

type UploadRepository interface {
	Insert(ctx context.Context, u *models.Upload) error
	GetByID(ctx context.Context, id string) (*models.Upload, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Upload, error)
	ListRecent(ctx context.Context, limit int) ([]models.Upload, error)
}

type uploadRepo struct {
	db *gorm.DB
}

func NewUploadRepo(db *gorm.DB) UploadRepository {
	return &uploadRepo{db: db}
}

func (r *uploadRepo) Insert(ctx context.Context, u *models.Upload) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *uploadRepo) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	var row models.Upload
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *uploadRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Upload
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *uploadRepo) ListRecent(ctx context.Context, limit int) ([]models.Upload, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Upload
	err := r.db.WithContext(ctx).
		Order("upload_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
