package models

import (
	"time"
)

// Badge represents a catalog badge that users can earn. The catalog is seeded
// from an embedded YAML file at startup and is immutable at runtime.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null;size:64" json:"slug"`
	Name        string    `gorm:"not null;size:100" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	Rarity      string    `gorm:"size:20" json:"rarity"`
	// Multiplier is the additive bonus this badge contributes to the user's
	// total multiplier.
	Multiplier float64 `gorm:"type:decimal(6,2);default:0" json:"multiplier"`
	// Requirement predicate: Metric compared against Value with Operator.
	Metric    string    `gorm:"size:50" json:"metric"`
	Operator  string    `gorm:"size:4" json:"operator"` // "<", ">", ">=", "<=", "=="
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// UserBadge represents a badge earned by a user. Created once per
// (user, badge) pair and immutable afterwards except for the NFT flags.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;index:idx_user_badge,unique" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BadgeID  uint      `gorm:"not null;index:idx_user_badge,unique" json:"badge_id"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`

	// Optional NFT conversion on TON.
	NFTConverted bool   `gorm:"default:false" json:"nft_converted"`
	NFTAddress   string `gorm:"size:128" json:"nft_address,omitempty"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}

// Badge metric names usable in requirement predicates.
const (
	BadgeMetricCurrentStreak = "current_streak"
	BadgeMetricLongestStreak = "longest_streak"
	BadgeMetricTotalPoints   = "total_points"
	BadgeMetricBoxesOpened   = "boxes_opened"
	BadgeMetricReferrals     = "referrals"
)
