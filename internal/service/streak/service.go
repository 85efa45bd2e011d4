package streak

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/config"
	prommetrics "github.com/streakfarm/streakfarm-api/internal/metrics"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/internal/service/milestones"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// ErrConflict is returned when a concurrent check-in won the race for the
// same window. At most one check-in per window succeeds.
var ErrConflict = errors.New("concurrent check-in already applied")

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	UpdateStreakState(userID uint, expectedLast *time.Time, state models.StreakState) error
	ResetLapsedStreaks(cutoff time.Time) (int64, error)
	CountActiveStreaks() (int64, error)
}

// MilestoneRepository interface for milestone set operations.
type MilestoneRepository interface {
	AwardedSet(userID uint) (map[uint]bool, error)
	Award(userID, milestone uint, awardedAt time.Time) (bool, error)
}

// Ledger interface for appending reward entries.
type Ledger interface {
	Append(ctx context.Context, userID uint, points int32, source, reference string) error
}

// BadgeEvaluator re-checks badge predicates after streak changes.
type BadgeEvaluator interface {
	EvaluateUserBadges(ctx context.Context, userID uint) ([]models.Badge, error)
}

// BoxGranter grants milestone bonus boxes.
type BoxGranter interface {
	GrantBonusBox(ctx context.Context, userID uint, now time.Time) (*models.Box, error)
}

// Notifier pushes reward announcements to the user.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

// Service orchestrates check-ins: engine computation, optimistic persistence,
// ledger entries, milestone and badge side effects.
type Service struct {
	userRepo      UserRepository
	milestoneRepo MilestoneRepository
	ledger        Ledger
	badges        BadgeEvaluator
	boxes         BoxGranter
	notifier      Notifier
	cfg           EngineConfig
	log           *logger.Logger
}

// NewService creates a new streak service.
func NewService(
	userRepo *repository.UserRepository,
	milestoneRepo *repository.MilestoneRepository,
	ledger Ledger,
	badges BadgeEvaluator,
	boxes BoxGranter,
	notifier Notifier,
	rewards *config.RewardsConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo:      userRepo,
		milestoneRepo: milestoneRepo,
		ledger:        ledger,
		badges:        badges,
		boxes:         boxes,
		notifier:      notifier,
		cfg:           EngineConfigFrom(rewards),
		log:           log,
	}
}

// NewServiceWithInterfaces creates a new streak service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	milestoneRepo MilestoneRepository,
	ledger Ledger,
	badges BadgeEvaluator,
	boxes BoxGranter,
	notifier Notifier,
	cfg EngineConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo:      userRepo,
		milestoneRepo: milestoneRepo,
		ledger:        ledger,
		badges:        badges,
		boxes:         boxes,
		notifier:      notifier,
		cfg:           cfg,
		log:           log,
	}
}

// Outcome is the user-facing result of a successful check-in.
type Outcome struct {
	CurrentStreak   uint                `json:"current_streak"`
	LongestStreak   uint                `json:"longest_streak"`
	PointsAwarded   uint                `json:"points_awarded"`
	Multiplier      float64             `json:"multiplier"`
	StreakContinued bool                `json:"streak_continued"`
	Milestones      []milestones.Unlock `json:"milestones,omitempty"`
	BadgesEarned    []models.Badge      `json:"badges_earned,omitempty"`
	NextCheckinAt   *time.Time          `json:"next_checkin_at,omitempty"`
	NextMilestone   uint                `json:"next_milestone,omitempty"`
}

// CheckIn applies a daily check-in for the user at the given time.
//
// The streak snapshot is read once, the engine computes the new state, and
// the write is conditioned on last_checkin being unchanged. ErrTooSoon and
// ErrConflict leave no trace in the ledger.
func (s *Service) CheckIn(ctx context.Context, userID uint, now time.Time) (*Outcome, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		prommetrics.RecordCheckin("error")
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	snapshot := user.StreakState()
	result, err := CheckIn(snapshot, now, s.cfg)
	if err != nil {
		if errors.Is(err, ErrTooSoon) {
			prommetrics.RecordCheckin("too_soon")
		}
		return nil, err
	}

	if err := s.userRepo.UpdateStreakState(userID, snapshot.LastCheckin, result.NewState); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			prommetrics.RecordCheckin("conflict")
			return nil, ErrConflict
		}
		prommetrics.RecordCheckin("error")
		return nil, fmt.Errorf("failed to persist streak state: %w", err)
	}

	day := strconv.FormatUint(uint64(result.NewState.CurrentStreak), 10)
	if err := s.ledger.Append(ctx, userID, int32(result.PointsAwarded), models.LedgerSourceCheckin, "day-"+day); err != nil {
		// The streak state is already committed; the points entry must not be
		// silently lost.
		return nil, err
	}

	if result.StreakContinued {
		prommetrics.RecordCheckin("continued")
	} else {
		prommetrics.RecordCheckin("reset")
	}

	outcome := &Outcome{
		CurrentStreak:   result.NewState.CurrentStreak,
		LongestStreak:   result.NewState.LongestStreak,
		PointsAwarded:   result.PointsAwarded,
		Multiplier:      result.Multiplier,
		StreakContinued: result.StreakContinued,
		NextCheckinAt:   NextCheckinAt(result.NewState.LastCheckin, s.cfg),
		NextMilestone:   milestones.Next(result.NewState.CurrentStreak),
	}

	outcome.Milestones = s.awardMilestones(ctx, user, result.NewState.CurrentStreak, now)

	if s.badges != nil {
		earned, err := s.badges.EvaluateUserBadges(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Uint("user_id", userID).Msg("Badge evaluation failed after check-in")
		} else {
			outcome.BadgesEarned = earned
		}
	}

	s.log.Info().
		Uint("user_id", userID).
		Uint("streak", outcome.CurrentStreak).
		Uint("points", outcome.PointsAwarded).
		Bool("continued", outcome.StreakContinued).
		Int("milestones", len(outcome.Milestones)).
		Msg("Check-in applied")

	return outcome, nil
}

// awardMilestones fires every newly crossed milestone exactly once. Failures
// on individual milestones are logged and skipped; the check-in itself is
// already committed.
func (s *Service) awardMilestones(ctx context.Context, user *models.User, streak uint, now time.Time) []milestones.Unlock {
	awarded, err := s.milestoneRepo.AwardedSet(user.ID)
	if err != nil {
		s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to load awarded milestones")
		return nil
	}

	unlocks := milestones.Evaluate(streak, awarded)
	granted := make([]milestones.Unlock, 0, len(unlocks))
	for _, unlock := range unlocks {
		fresh, err := s.milestoneRepo.Award(user.ID, unlock.Milestone, now)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", user.ID).
				Uint("milestone", unlock.Milestone).
				Msg("Failed to record milestone")
			continue
		}
		if !fresh {
			// Another request already granted it; skip silently.
			continue
		}

		ref := "milestone-" + strconv.FormatUint(uint64(unlock.Milestone), 10)
		if err := s.ledger.Append(ctx, user.ID, int32(unlock.BonusPoints), models.LedgerSourceMilestone, ref); err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", user.ID).
				Uint("milestone", unlock.Milestone).
				Msg("Failed to append milestone bonus")
			continue
		}

		if unlock.BoxGranted && s.boxes != nil {
			if _, err := s.boxes.GrantBonusBox(ctx, user.ID, now); err != nil {
				s.log.Error().
					Err(err).
					Uint("user_id", user.ID).
					Uint("milestone", unlock.Milestone).
					Msg("Failed to grant milestone box")
			}
		}

		prommetrics.RecordMilestoneAwarded(strconv.FormatUint(uint64(unlock.Milestone), 10))
		granted = append(granted, unlock)

		if s.notifier != nil {
			text := fmt.Sprintf("🔥 %d-day streak! You earned %d bonus points.", unlock.Milestone, unlock.BonusPoints)
			if err := s.notifier.Notify(ctx, user.TelegramID, text); err != nil {
				s.log.Warn().Err(err).Int64("telegram_id", user.TelegramID).Msg("Milestone notification failed")
			}
		}
	}
	return granted
}

// ProcessResets zeroes streaks whose window lapsed without a check-in. Part
// of the daily pipeline; safe to rerun.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) ProcessResets(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-(24*time.Hour + s.cfg.Grace))
	reset, err := s.userRepo.ResetLapsedStreaks(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reset lapsed streaks: %w", err)
	}

	if active, err := s.userRepo.CountActiveStreaks(); err == nil {
		prommetrics.ActiveStreaks.Set(float64(active))
	}

	s.log.Info().Int64("reset", reset).Msg("Lapsed streaks processed")
	return reset, nil
}

// Config exposes the engine configuration (for handlers that report cooldown
// windows to the client).
func (s *Service) Config() EngineConfig {
	return s.cfg
}
