package repository

import (
	"time"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

// MilestoneRepository persists the set of streak milestones already awarded
// to each user.
type MilestoneRepository struct {
	db *DB
}

// NewMilestoneRepository creates a new milestone repository.
func NewMilestoneRepository(db *DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// AwardedSet returns the milestones already awarded to a user as a set.
func (r *MilestoneRepository) AwardedSet(userID uint) (map[uint]bool, error) {
	var rows []models.UserMilestone
	err := r.db.Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(rows))
	for _, row := range rows {
		set[row.Milestone] = true
	}
	return set, nil
}

// Award records a milestone as granted. Awarding is idempotent under the
// (user_id, milestone) unique constraint: a duplicate reports false with no
// error.
func (r *MilestoneRepository) Award(userID, milestone uint, awardedAt time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserMilestone{}).
		Where("user_id = ? AND milestone = ?", userID, milestone).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	row := &models.UserMilestone{
		UserID:    userID,
		Milestone: milestone,
		AwardedAt: awardedAt,
	}
	if err := r.db.Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}
