package repo

import (
	"context"

	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *GormRepo) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var p models.Profile
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ListProfiles(ctx context.Context, offset, limit int) (int64, []models.Profile, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Profile{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Profile, 0, limit)
	if err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// UpdateProfile applies the non-empty columns of updates and returns the stored row.
func (r *GormRepo) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Profile, error) {
	var p models.Profile
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&p).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UsernameTaken ignores the profile identified by except, so a user keeping their own name is not a clash.
func (r *GormRepo) UsernameTaken(ctx context.Context, username string, except uuid.UUID) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.Profile{}).Where("username = ?", username)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
