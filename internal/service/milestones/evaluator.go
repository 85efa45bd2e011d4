// Package milestones evaluates one-time streak milestone rewards.
package milestones

// Milestone thresholds, ascending. Each fires at most once per user.
var thresholds = []uint{7, 14, 30, 50, 100, 200, 365}

// bonusPoints maps each milestone to its one-time point bonus.
var bonusPoints = map[uint]uint{
	7:   1000,
	14:  2500,
	30:  5000,
	50:  10000,
	100: 25000,
	200: 50000,
	365: 100000,
}

// boxMilestones is the subset of milestones that also grant a bonus box.
var boxMilestones = map[uint]bool{
	7:   true,
	30:  true,
	100: true,
	365: true,
}

// Unlock describes a single newly unlocked milestone.
type Unlock struct {
	Milestone   uint `json:"milestone"`
	BonusPoints uint `json:"bonus_points"`
	BoxGranted  bool `json:"box_granted"`
}

// Evaluate returns every milestone <= streak that is not already awarded, in
// ascending order. Evaluating all thresholds below the streak (not just the
// exact day) keeps replays and skipped evaluations consistent: a streak that
// jumped past a milestone still collects it exactly once.
func Evaluate(streak uint, alreadyAwarded map[uint]bool) []Unlock {
	var unlocks []Unlock
	for _, m := range thresholds {
		if m > streak {
			break
		}
		if alreadyAwarded[m] {
			continue
		}
		unlocks = append(unlocks, Unlock{
			Milestone:   m,
			BonusPoints: bonusPoints[m],
			BoxGranted:  boxMilestones[m],
		})
	}
	return unlocks
}

// Thresholds returns the fixed milestone set, ascending.
func Thresholds() []uint {
	out := make([]uint, len(thresholds))
	copy(out, thresholds)
	return out
}

// Next returns the first milestone strictly greater than the streak, or 0
// when the streak is past the last one.
func Next(streak uint) uint {
	for _, m := range thresholds {
		if m > streak {
			return m
		}
	}
	return 0
}
