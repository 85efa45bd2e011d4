package models

import (
	"time"
)

// Ledger entry sources.
const (
	LedgerSourceCheckin    = "checkin"
	LedgerSourceBox        = "box"
	LedgerSourceMilestone  = "milestone"
	LedgerSourceBadge      = "badge"
	LedgerSourceReferral   = "referral"
	LedgerSourceWallet     = "wallet"
	LedgerSourceCorrection = "correction"
)

// PointsLedgerEntry is an append-only record of a point-affecting event.
// The ledger is the single source of truth for totals; users.total_points is
// only a cached projection of it.
type PointsLedgerEntry struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	// Points is signed; corrections may be negative.
	Points    int32     `gorm:"not null" json:"points"`
	Source    string    `gorm:"size:20;not null;index" json:"source"`
	Reference string    `gorm:"size:64" json:"reference"` // box ID, milestone day, badge slug
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for PointsLedgerEntry model.
func (PointsLedgerEntry) TableName() string {
	return "points_ledger"
}

// UserMilestone records a streak milestone already awarded to a user.
// One row per (user, milestone); a milestone fires at most once.
type UserMilestone struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_user_milestone,unique" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Milestone uint      `gorm:"not null;index:idx_user_milestone,unique" json:"milestone"`
	AwardedAt time.Time `gorm:"not null" json:"awarded_at"`
}

// TableName specifies the table name for UserMilestone model.
func (UserMilestone) TableName() string {
	return "user_milestones"
}
