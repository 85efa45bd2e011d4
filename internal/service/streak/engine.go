// Package streak implements daily check-in streak computation and the
// service that persists its results.
package streak

import (
	"errors"
	"math"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/internal/models"
)

// ErrTooSoon is returned when a check-in is attempted before the cooldown has
// elapsed. The state is left untouched; the user can retry later.
var ErrTooSoon = errors.New("check-in attempted before cooldown elapsed")

// EngineConfig holds the tunables of the check-in computation.
type EngineConfig struct {
	// DailyPoints is the base point award per check-in, before multipliers.
	DailyPoints uint
	// Cooldown is the minimum gap between two successful check-ins.
	Cooldown time.Duration
	// Grace extends the nominal 24h cadence: the streak survives as long as
	// the gap stays within 24h + Grace.
	Grace time.Duration
	// Tiers is the streak multiplier step table, ascending by Days.
	Tiers []config.MultiplierTier
}

// EngineConfigFrom builds an EngineConfig from the application rewards config.
func EngineConfigFrom(rc *config.RewardsConfig) EngineConfig {
	return EngineConfig{
		DailyPoints: rc.DailyCheckinPoints,
		Cooldown:    rc.CheckinCooldown,
		Grace:       rc.StreakGrace,
		Tiers:       rc.MultiplierTiersOrDefault(),
	}
}

// CheckInResult is the pure outcome of a check-in. The caller persists
// NewState and appends a ledger entry for PointsAwarded.
type CheckInResult struct {
	NewState        models.StreakState
	PointsAwarded   uint
	Multiplier      float64
	StreakContinued bool
}

// CheckIn computes the next streak state for a check-in at the given time.
// It performs no I/O and never mutates its input.
//
// Window semantics, measured from the last check-in: a gap below Cooldown is
// rejected with ErrTooSoon; a gap within [Cooldown, 24h+Grace] continues the
// streak; anything longer resets it to 1 (the check-in itself counts as
// day 1). A user with no prior check-in starts at day 1.
func CheckIn(state models.StreakState, now time.Time, cfg EngineConfig) (CheckInResult, error) {
	window := 24*time.Hour + cfg.Grace

	continued := false
	newStreak := uint(1)
	if state.LastCheckin != nil {
		elapsed := now.Sub(*state.LastCheckin)
		if elapsed < cfg.Cooldown {
			return CheckInResult{}, ErrTooSoon
		}
		if elapsed <= window {
			newStreak = state.CurrentStreak + 1
			continued = true
		}
	}

	longest := state.LongestStreak
	if newStreak > longest {
		longest = newStreak
	}

	checkin := now
	mult := MultiplierForStreak(newStreak, cfg.Tiers)
	points := uint(math.Round(float64(cfg.DailyPoints) * mult))

	return CheckInResult{
		NewState: models.StreakState{
			CurrentStreak: newStreak,
			LongestStreak: longest,
			LastCheckin:   &checkin,
		},
		PointsAwarded:   points,
		Multiplier:      mult,
		StreakContinued: continued,
	}, nil
}

// MultiplierForStreak looks up the streak multiplier as a monotonic step
// function: the highest tier with Days <= streak wins; boundary days select
// the new tier. A streak below the first tier yields 1.0.
func MultiplierForStreak(streak uint, tiers []config.MultiplierTier) float64 {
	mult := 1.0
	for _, tier := range tiers {
		if streak >= tier.Days {
			mult = tier.Multiplier
		} else {
			break
		}
	}
	return mult
}

// NextCheckinAt reports when the user may check in again, given the last
// check-in. Used by the API to drive the client countdown.
func NextCheckinAt(last *time.Time, cfg EngineConfig) *time.Time {
	if last == nil {
		return nil
	}
	next := last.Add(cfg.Cooldown)
	return &next
}
