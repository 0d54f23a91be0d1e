package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type refreshTokenPostgreSQL struct {
	db *gorm.DB
}

func NewRefreshTokenPostgreSQL(db *gorm.DB) repositories.RefreshTokenRepository {
	return &refreshTokenPostgreSQL{db: db}
}

func (r *refreshTokenPostgreSQL) Create(ctx context.Context, tx *gorm.DB, token *models.RefreshToken) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Create(token).Error; err != nil {
		return handleDBError(err, "create refresh token")
	}
	return nil
}

func (r *refreshTokenPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, userID uint, hash string, now time.Time) (bool, error) {
	db := getDB(r.db, tx)
	var count int64

	if err := db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND token_hash = ? AND expires_at > ?", userID, hash, now).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check refresh token")
	}

	return count > 0, nil
}

func (r *refreshTokenPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, hash string) (bool, error) {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return false, handleDBError(result.Error, "delete refresh token")
	}
	return result.RowsAffected > 0, nil
}

func (r *refreshTokenPostgreSQL) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		return handleDBError(err, "revoke refresh tokens")
	}
	return nil
}

func (r *refreshTokenPostgreSQL) DeleteExpired(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "purge refresh tokens")
	}
	return result.RowsAffected, nil
}
