// Package boxes implements mystery box generation, opening, and expiry.
package boxes

import (
	"errors"
	"math"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

// Box state violations. Both are terminal: the caller must not retry.
var (
	ErrAlreadyOpened = errors.New("box already opened")
	ErrExpired       = errors.New("box expired")
)

// OpenResult is the pure outcome of opening a box.
type OpenResult struct {
	Rarity            string
	BasePoints        uint
	MultiplierApplied float64
	FinalPoints       uint
	OpenedAt          time.Time
}

// Open validates the open transition and applies the user's multiplier.
// Rarity and base points were fixed at generation time; this only computes
// final_points = round(base_points * multiplier).
//
// Expiry takes precedence: a box past expires_at forfeits its points even if
// the open request races the sweep. An opened box can never be opened again.
func Open(box *models.Box, now time.Time, userMultiplier float64) (OpenResult, error) {
	if box.IsOpened() {
		return OpenResult{}, ErrAlreadyOpened
	}
	if box.Expired || now.After(box.ExpiresAt) {
		return OpenResult{}, ErrExpired
	}

	final := uint(math.Round(float64(box.BasePoints) * userMultiplier))

	return OpenResult{
		Rarity:            box.Rarity,
		BasePoints:        box.BasePoints,
		MultiplierApplied: userMultiplier,
		FinalPoints:       final,
		OpenedAt:          now,
	}, nil
}
