package models

import (
	"time"
)

// BoxRarity constants.
const (
	BoxRarityCommon    = "common"
	BoxRarityRare      = "rare"
	BoxRarityLegendary = "legendary"
)

// Box represents a timed, single-use mystery box. Rarity and base points are
// fixed at generation time; opening only validates the state transition and
// applies the user's multiplier.
type Box struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	User              User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Rarity            string     `gorm:"size:20;not null" json:"rarity"`
	BasePoints        uint       `gorm:"not null" json:"base_points"`
	GeneratedAt       time.Time  `gorm:"not null;index" json:"generated_at"`
	ExpiresAt         time.Time  `gorm:"not null;index" json:"expires_at"`
	OpenedAt          *time.Time `json:"opened_at"`
	MultiplierApplied float64    `gorm:"type:decimal(6,2);default:0" json:"multiplier_applied"`
	FinalPoints       uint       `gorm:"default:0" json:"final_points"`
	Expired           bool       `gorm:"default:false;index" json:"expired"`
}

// TableName specifies the table name for Box model.
func (Box) TableName() string {
	return "boxes"
}

// IsOpened reports whether the box has reached its opened terminal state.
func (b *Box) IsOpened() bool {
	return b.OpenedAt != nil
}

// IsExpired reports whether the box is past its expiry at the given time and
// was never opened. Expiry takes precedence over opening.
func (b *Box) IsExpired(now time.Time) bool {
	return !b.IsOpened() && now.After(b.ExpiresAt)
}
