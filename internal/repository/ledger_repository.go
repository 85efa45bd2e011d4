package repository

import (
	"gorm.io/gorm"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

// LedgerRepository handles the append-only points ledger. The ledger is the
// single source of truth for totals; users.total_points is a projection kept
// in step inside the same transaction.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts a ledger entry and advances the cached user total in one
// transaction. Entries are never updated or deleted.
func (r *LedgerRepository) Append(entry *models.PointsLedgerEntry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", entry.UserID).
			Update("total_points", gorm.Expr("total_points + ?", entry.Points)).
			Error
	})
}

// TotalFor recomputes a user's total directly from the ledger.
func (r *LedgerRepository) TotalFor(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.PointsLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

// RecentFor returns a user's most recent ledger entries.
func (r *LedgerRepository) RecentFor(userID uint, limit int) ([]models.PointsLedgerEntry, error) {
	var entries []models.PointsLedgerEntry
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// TopTotals returns the highest cached totals with their users, for the
// leaderboard.
func (r *LedgerRepository) TopTotals(limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Model(&models.User{}).
		Order("total_points DESC, id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
