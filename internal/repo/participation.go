package repo

import (
	"context"

	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JoinCampaign adds p.Quantity to the caller's pledge, creating it on the first join.
// The (user_id, campaign_id) unique index keeps one row per pair; an insert that loses
// to a concurrent insert is retried once as an increment. A pledge that would grow past
// models.MaxPledgeQuantity is refused with ErrPledgeLimit.
func (r *GormRepo) JoinCampaign(ctx context.Context, p *models.Participation) error {
	err := r.joinOnce(ctx, p)
	if IsUniqueViolation(err) {
		p.ID = uuid.Nil
		err = r.joinOnce(ctx, p)
	}
	return err
}

func (r *GormRepo) joinOnce(ctx context.Context, p *models.Participation) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := openCampaign(tx, p.CampaignID); err != nil {
			return err
		}

		res := tx.Model(&models.Participation{}).
			Where("user_id = ? AND campaign_id = ? AND quantity <= ?", p.UserID, p.CampaignID, models.MaxPledgeQuantity-p.Quantity).
			Update("quantity", gorm.Expr("quantity + ?", p.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("user_id = ? AND campaign_id = ?", p.UserID, p.CampaignID).First(p).Error
		}

		var existing int64
		if err := tx.Model(&models.Participation{}).
			Where("user_id = ? AND campaign_id = ?", p.UserID, p.CampaignID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrPledgeLimit
		}

		return tx.Omit(clause.Associations).Create(p).Error
	})
}

// openCampaign takes a share lock on the campaign row so its status cannot change mid-write.
func openCampaign(tx *gorm.DB, campaignID uuid.UUID) error {
	var c models.Campaign
	if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id", "status").
		Where("id = ?", campaignID).
		First(&c).Error; err != nil {
		return err
	}
	if c.Status != models.CampaignStatusOpen {
		return ErrCampaignNotOpen
	}
	return nil
}

func (r *GormRepo) GetParticipation(ctx context.Context, userID, campaignID uuid.UUID) (*models.Participation, error) {
	var p models.Participation
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND campaign_id = ?", userID, campaignID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) SetParticipationQuantity(ctx context.Context, userID, campaignID uuid.UUID, quantity int) (*models.Participation, error) {
	var p models.Participation
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := openCampaign(tx, campaignID); err != nil {
			return err
		}
		res := tx.Model(&models.Participation{}).
			Where("user_id = ? AND campaign_id = ?", userID, campaignID).
			Update("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("user_id = ? AND campaign_id = ?", userID, campaignID).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) LeaveCampaign(ctx context.Context, userID, campaignID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := openCampaign(tx, campaignID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND campaign_id = ?", userID, campaignID).Delete(&models.Participation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) ListParticipationsByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Participation, error) {
	items := make([]models.Participation, 0)
	if err := r.DB.WithContext(ctx).
		Preload("Profile").
		Where("campaign_id = ?", campaignID).
		Order("joined_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListParticipationsByUser returns the user's pledges with each campaign and its participations.
func (r *GormRepo) ListParticipationsByUser(ctx context.Context, userID uuid.UUID) ([]models.Participation, error) {
	items := make([]models.Participation, 0)
	if err := r.DB.WithContext(ctx).
		Preload("Campaign").
		Preload("Campaign.Participations").
		Where("user_id = ?", userID).
		Order("joined_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
