// Package models defines domain models for the StreakFarm backend.
package models

import (
	"time"
)

// User represents a Telegram Mini-App user in the system.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TelegramID int64     `gorm:"column:telegram_id;uniqueIndex;not null" json:"telegram_id"`
	Username   string    `gorm:"size:255;index" json:"username"`
	FirstName  string    `gorm:"size:255" json:"first_name"`
	LastName   string    `gorm:"size:255" json:"last_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Streak state. Mutated only through the check-in flow; current_streak
	// never decreases except on reset.
	CurrentStreak uint       `gorm:"default:0" json:"current_streak"`
	LongestStreak uint       `gorm:"default:0" json:"longest_streak"`
	LastCheckin   *time.Time `json:"last_checkin"`

	// TotalPoints is a cached projection of the points ledger. It must always
	// equal SUM(points_ledger.points) for this user.
	TotalPoints int64 `gorm:"default:0" json:"total_points"`

	// TON wallet connection. The connection bonus is granted at most once,
	// guarded by WalletConnected.
	WalletConnected bool       `gorm:"default:false" json:"wallet_connected"`
	WalletAddress   string     `gorm:"size:128" json:"wallet_address,omitempty"`
	WalletLinkedAt  *time.Time `json:"wallet_linked_at,omitempty"`

	// Referral tracking.
	ReferralCode string `gorm:"size:16;uniqueIndex" json:"referral_code"`
	ReferredBy   *uint  `gorm:"index" json:"referred_by,omitempty"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// StreakState is the snapshot of a user's streak that the check-in engine
// operates on, kept free of persistence concerns.
type StreakState struct {
	CurrentStreak uint
	LongestStreak uint
	LastCheckin   *time.Time
}

// StreakState returns the user's current streak snapshot.
func (u *User) StreakState() StreakState {
	return StreakState{
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
		LastCheckin:   u.LastCheckin,
	}
}

// ApplyStreakState writes an engine-computed snapshot back onto the user.
func (u *User) ApplyStreakState(s StreakState) {
	u.CurrentStreak = s.CurrentStreak
	u.LongestStreak = s.LongestStreak
	u.LastCheckin = s.LastCheckin
}
