package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/group_buy/internal/models"
	jwthelp "github.com/Skotchmaster/group_buy/pkg/jwt"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTokenExpiredOrRevoked = errors.New("token expired or revoked")

func (r *GormRepo) AddRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func refreshUsable(t *models.RefreshToken, now time.Time) bool {
	return !t.Revoked && t.ExpiresAt >= now.Unix()
}

// RotateRefreshToken revokes oldJTI and stores next in one transaction. The raw token must hash
// to the stored value so a replayed jti with a forged body is refused.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI, rawOld string, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.RefreshToken
		if err := tx.Where("jti = ?", oldJTI).First(&old).Error; err != nil {
			return err
		}
		if old.Token != jwthelp.Sha256Hex(rawOld) || !refreshUsable(&old, time.Now()) {
			return ErrTokenExpiredOrRevoked
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ?", oldJTI, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenExpiredOrRevoked
		}

		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, rawToken string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", jwthelp.Sha256Hex(rawToken)).
		Update("revoked", true).Error
}

func (r *GormRepo) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
