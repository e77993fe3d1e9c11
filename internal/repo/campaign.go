package repo

import (
	"context"
	"strings"

	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatusCount struct {
	Status models.CampaignStatus
	N      int64
}

func preloadParticipations(db *gorm.DB) *gorm.DB {
	return db.Order("joined_at DESC")
}

func (r *GormRepo) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

// CreateCampaignWithPledge stores c and the creator's first pledge p together or not at all.
func (r *GormRepo) CreateCampaignWithPledge(ctx context.Context, c *models.Campaign, p *models.Participation) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		p.CampaignID = c.ID
		p.UserID = c.CreatedBy
		return tx.Omit(clause.Associations).Create(p).Error
	})
}

func (r *GormRepo) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) GetCampaignWithParticipations(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	if err := r.DB.WithContext(ctx).
		Preload("Participations", preloadParticipations).
		Preload("Participations.Profile").
		Where("id = ?", id).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCampaigns returns campaigns newest first with their participations. A nil status lists all.
func (r *GormRepo) ListCampaigns(ctx context.Context, status *models.CampaignStatus, offset, limit int) (int64, []models.Campaign, error) {
	q := r.DB.WithContext(ctx).Model(&models.Campaign{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Campaign, 0)
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Preload("Participations", preloadParticipations).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) ListCampaignsByCreator(ctx context.Context, userID uuid.UUID) ([]models.Campaign, error) {
	items := make([]models.Campaign, 0)
	if err := r.DB.WithContext(ctx).
		Preload("Participations", preloadParticipations).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) FindCampaignsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Campaign, error) {
	items := make([]models.Campaign, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.DB.WithContext(ctx).
		Preload("Participations", preloadParticipations).
		Where("id IN ?", ids).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SearchCampaigns matches open campaigns by product name or description, ignoring case.
func (r *GormRepo) SearchCampaigns(ctx context.Context, term string, offset, limit int) (int64, []models.Campaign, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	q := r.DB.WithContext(ctx).Model(&models.Campaign{}).
		Where("status = ?", models.CampaignStatusOpen).
		Where("(LOWER(product_name) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\\')", pattern, pattern).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Campaign, 0, limit)
	if err := q.Preload("Participations", preloadParticipations).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// MutateCampaign loads the campaign with its participations under a row lock, lets fn change it
// and saves the result. An error from fn aborts the transaction and is returned as is.
func (r *GormRepo) MutateCampaign(ctx context.Context, id uuid.UUID, fn func(c *models.Campaign) error) (*models.Campaign, error) {
	var c models.Campaign
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", id).Order("joined_at DESC").Find(&c.Participations).Error; err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCampaign removes the campaign and its participations once check accepts it.
func (r *GormRepo) DeleteCampaign(ctx context.Context, id uuid.UUID, check func(c *models.Campaign) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Campaign
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		if check != nil {
			if err := check(&c); err != nil {
				return err
			}
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&models.Participation{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Campaign{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) CountCampaignsByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := r.DB.WithContext(ctx).
		Model(&models.Campaign{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
