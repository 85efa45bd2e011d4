package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

// BadgeRepository handles badge-related database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Seed upserts the badge catalog by slug. Requirements and multipliers follow
// the embedded catalog file; earned user_badges rows are never touched.
func (r *BadgeRepository) Seed(badges []models.Badge) error {
	for i := range badges {
		badge := &badges[i]
		var existing models.Badge
		err := r.db.Where("slug = ?", badge.Slug).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := r.db.Create(badge).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		badge.ID = existing.ID
		if err := r.db.Model(&existing).Updates(map[string]interface{}{
			"name":        badge.Name,
			"description": badge.Description,
			"icon":        badge.Icon,
			"rarity":      badge.Rarity,
			"multiplier":  badge.Multiplier,
			"metric":      badge.Metric,
			"operator":    badge.Operator,
			"value":       badge.Value,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetAll retrieves all catalog badges.
func (r *BadgeRepository) GetAll() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("created_at ASC, id ASC").Find(&badges).Error
	return badges, err
}

// GetBySlug retrieves a badge by its slug.
func (r *BadgeRepository) GetBySlug(slug string) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.Where("slug = ?", slug).First(&badge).Error
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// AwardBadge awards a badge to a user. Awarding is idempotent: a badge
// already held is left untouched and reported as not newly awarded.
func (r *BadgeRepository) AwardBadge(userID, badgeID uint, earnedAt time.Time) (bool, error) {
	earned, err := r.HasUserEarnedBadge(userID, badgeID)
	if err != nil {
		return false, err
	}
	if earned {
		return false, nil
	}

	userBadge := &models.UserBadge{
		UserID:   userID,
		BadgeID:  badgeID,
		EarnedAt: earnedAt,
	}
	if err := r.db.Create(userBadge).Error; err != nil {
		return false, err
	}
	return true, nil
}

// HasUserEarnedBadge checks if a user has earned a specific badge.
func (r *BadgeRepository) HasUserEarnedBadge(userID, badgeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserBadges retrieves all badges earned by a user with badge details preloaded.
func (r *BadgeRepository) GetUserBadges(userID uint) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("earned_at DESC").
		Find(&userBadges).Error
	return userBadges, err
}

// GetUserBadgeCount returns the total number of badges a user has earned.
func (r *BadgeRepository) GetUserBadgeCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// SumBadgeMultipliers returns the additive multiplier bonus from every badge
// a user holds.
func (r *BadgeRepository) SumBadgeMultipliers(userID uint) (float64, error) {
	var sum float64
	err := r.db.Model(&models.UserBadge{}).
		Joins("JOIN badges ON badges.id = user_badges.badge_id").
		Where("user_badges.user_id = ?", userID).
		Select("COALESCE(SUM(badges.multiplier), 0)").
		Scan(&sum).Error
	return sum, err
}

// MarkNFTConverted records the one-time NFT conversion of an earned badge.
func (r *BadgeRepository) MarkNFTConverted(userID, badgeID uint, nftAddress string) error {
	res := r.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ? AND nft_converted = ?", userID, badgeID, false).
		Updates(map[string]interface{}{
			"nft_converted": true,
			"nft_address":   nftAddress,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}
