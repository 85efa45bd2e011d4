package repository

import (
	"errors"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

// ErrBoxConflict is returned when an open attempt lost the race: the box was
// already opened or swept as expired between read and update.
var ErrBoxConflict = errors.New("box state changed concurrently")

// BoxRepository handles mystery box database operations.
type BoxRepository struct {
	db *DB
}

// NewBoxRepository creates a new box repository.
func NewBoxRepository(db *DB) *BoxRepository {
	return &BoxRepository{db: db}
}

// CreateBatch inserts one day's generated boxes.
func (r *BoxRepository) CreateBatch(boxes []models.Box) error {
	if len(boxes) == 0 {
		return nil
	}
	return r.db.Create(&boxes).Error
}

// GetByID retrieves a box by its ID.
func (r *BoxRepository) GetByID(id string) (*models.Box, error) {
	var box models.Box
	err := r.db.First(&box, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &box, nil
}

// ListForUser retrieves a user's boxes generated since the given time,
// newest batch first.
func (r *BoxRepository) ListForUser(userID uint, since time.Time) ([]models.Box, error) {
	var boxes []models.Box
	err := r.db.
		Where("user_id = ? AND generated_at >= ?", userID, since).
		Order("generated_at DESC, id ASC").
		Find(&boxes).Error
	return boxes, err
}

// CountGeneratedSince counts boxes generated for a user since the given time.
// The daily generation step uses this to stay idempotent.
func (r *BoxRepository) CountGeneratedSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Box{}).
		Where("user_id = ? AND generated_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// MarkOpened finalizes an open, conditioned on the box still being unopened
// and unswept. The open is applied at most once; a lost race returns
// ErrBoxConflict.
func (r *BoxRepository) MarkOpened(boxID string, openedAt time.Time, multiplier float64, finalPoints uint) error {
	res := r.db.Model(&models.Box{}).
		Where("id = ? AND opened_at IS NULL AND expired = ?", boxID, false).
		Updates(map[string]interface{}{
			"opened_at":          openedAt,
			"multiplier_applied": multiplier,
			"final_points":       finalPoints,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBoxConflict
	}
	return nil
}

// ExpireDue marks every unopened box past its expiry as expired. Returns the
// number of boxes swept.
func (r *BoxRepository) ExpireDue(now time.Time) (int64, error) {
	res := r.db.Model(&models.Box{}).
		Where("opened_at IS NULL AND expired = ? AND expires_at < ?", false, now).
		Update("expired", true)
	return res.RowsAffected, res.Error
}

// CountOpened counts boxes a user has opened. Feeds the boxes_opened badge
// metric.
func (r *BoxRepository) CountOpened(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Box{}).
		Where("user_id = ? AND opened_at IS NOT NULL", userID).
		Count(&count).Error
	return count, err
}
