package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

// ErrStaleState is returned when a conditional update matched no rows because
// another request already advanced the user's state.
var ErrStaleState = errors.New("user state changed concurrently")

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by primary key.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByTelegramID retrieves a user by Telegram ID.
func (r *UserRepository) GetByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	err := r.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByReferralCode retrieves a user by referral code.
func (r *UserRepository) GetByReferralCode(code string) (*models.User, error) {
	var user models.User
	err := r.db.Where("referral_code = ?", code).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Upsert finds a user by Telegram ID or creates one, refreshing the profile
// fields Telegram sends with each authenticated request.
func (r *UserRepository) Upsert(user *models.User) error {
	var existing models.User
	err := r.db.Where("telegram_id = ?", user.TelegramID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(user).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}
	if err := r.db.Model(&existing).Updates(updates).Error; err != nil {
		return err
	}
	*user = existing
	return nil
}

// UpdateStreakState writes an engine-computed streak snapshot, conditioned on
// last_checkin being unchanged since the snapshot was read. Two concurrent
// check-ins cannot both succeed: the loser sees ErrStaleState.
func (r *UserRepository) UpdateStreakState(userID uint, expectedLast *time.Time, state models.StreakState) error {
	tx := r.db.Model(&models.User{}).Where("id = ?", userID)
	if expectedLast == nil {
		tx = tx.Where("last_checkin IS NULL")
	} else {
		tx = tx.Where("last_checkin = ?", *expectedLast)
	}

	res := tx.Updates(map[string]interface{}{
		"current_streak": state.CurrentStreak,
		"longest_streak": state.LongestStreak,
		"last_checkin":   state.LastCheckin,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// MarkWalletConnected flips the wallet flag at most once. Returns
// ErrStaleState when the wallet was already connected.
func (r *UserRepository) MarkWalletConnected(userID uint, address string, now time.Time) error {
	res := r.db.Model(&models.User{}).
		Where("id = ? AND wallet_connected = ?", userID, false).
		Updates(map[string]interface{}{
			"wallet_connected": true,
			"wallet_address":   address,
			"wallet_linked_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// BindReferrer records who referred the user, at most once. Returns
// ErrStaleState when a referrer is already bound.
func (r *UserRepository) BindReferrer(userID, referrerID uint) error {
	res := r.db.Model(&models.User{}).
		Where("id = ? AND referred_by IS NULL", userID).
		Update("referred_by", referrerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// CountReferrals returns how many users were referred by the given user.
func (r *UserRepository) CountReferrals(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("referred_by = ?", userID).
		Count(&count).Error
	return count, err
}

// ListIDs returns all user IDs. Used by the daily box generation sweep.
func (r *UserRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// ResetLapsedStreaks zeroes current_streak for users whose last check-in fell
// out of the allowed window. Returns the number of streaks reset.
func (r *UserRepository) ResetLapsedStreaks(cutoff time.Time) (int64, error) {
	res := r.db.Model(&models.User{}).
		Where("current_streak > 0 AND last_checkin < ?", cutoff).
		Update("current_streak", 0)
	return res.RowsAffected, res.Error
}

// CountActiveStreaks returns the number of users with a live streak.
func (r *UserRepository) CountActiveStreaks() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("current_streak > 0").
		Count(&count).Error
	return count, err
}
