package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpratt/folio-api/models"
)

var ErrPhotoNotFound = errors.New("photo not found")

// PhotoRepository is the metadata table behind the feed.
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	// List returns one page ordered by creation time descending, plus the
	// total row count.
	List(ctx context.Context, page, limit int) ([]models.Photo, int64, error)
	Delete(ctx context.Context, id string) error
}

// GormPhotoRepository implements PhotoRepository on a gorm handle.
type GormPhotoRepository struct {
	db *gorm.DB
}

func NewGormPhotoRepository(db *gorm.DB) *GormPhotoRepository {
	return &GormPhotoRepository{db: db}
}

func (r *GormPhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

func (r *GormPhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return &photo, nil
}

func (r *GormPhotoRepository) List(ctx context.Context, page, limit int) ([]models.Photo, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Photo{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count photos: %w", err)
	}

	var photos []models.Photo
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&photos).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list photos: %w", err)
	}
	return photos, total, nil
}

func (r *GormPhotoRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Photo{})
	if res.Error != nil {
		return fmt.Errorf("delete photo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPhotoNotFound
	}
	return nil
}
