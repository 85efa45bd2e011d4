// Package badges provides badge evaluation, awarding, and the additive
// multiplier model built on top of earned badges.
package badges

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/streakfarm/streakfarm-api/internal/metrics"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	Seed(badges []models.Badge) error
	GetAll() ([]models.Badge, error)
	GetBySlug(slug string) (*models.Badge, error)
	AwardBadge(userID, badgeID uint, earnedAt time.Time) (bool, error)
	HasUserEarnedBadge(userID, badgeID uint) (bool, error)
	GetUserBadges(userID uint) ([]models.UserBadge, error)
	GetUserBadgeCount(userID uint) (int64, error)
	SumBadgeMultipliers(userID uint) (float64, error)
	MarkNFTConverted(userID, badgeID uint, nftAddress string) error
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	CountReferrals(userID uint) (int64, error)
}

// BoxRepository interface for box operations.
type BoxRepository interface {
	CountOpened(userID uint) (int64, error)
}

// Service handles badge evaluation and awarding.
type Service struct {
	badgeRepo BadgeRepository
	userRepo  UserRepository
	boxRepo   BoxRepository
	log       *logger.Logger
}

// NewService creates a new badge service.
func NewService(
	badgeRepo *repository.BadgeRepository,
	userRepo *repository.UserRepository,
	boxRepo *repository.BoxRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo: badgeRepo,
		userRepo:  userRepo,
		boxRepo:   boxRepo,
		log:       log,
	}
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	userRepo UserRepository,
	boxRepo BoxRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo: badgeRepo,
		userRepo:  userRepo,
		boxRepo:   boxRepo,
		log:       log,
	}
}

// SeedCatalog loads the embedded catalog into the badges table.
func (s *Service) SeedCatalog() error {
	catalog, err := LoadCatalog()
	if err != nil {
		return err
	}
	if err := s.badgeRepo.Seed(catalog); err != nil {
		return fmt.Errorf("failed to seed badge catalog: %w", err)
	}
	s.log.Info().Int("badges", len(catalog)).Msg("Badge catalog seeded")
	return nil
}

// EvaluateUserBadges evaluates all badges for a user and returns newly earned
// ones. Already-held badges are skipped silently; awarding twice is
// impossible.
func (s *Service) EvaluateUserBadges(ctx context.Context, userID uint) ([]models.Badge, error) {
	badges, err := s.badgeRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}

	metrics, err := s.collectUserMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	var newlyEarned []models.Badge
	for _, badge := range badges {
		earned, err := s.badgeRepo.HasUserEarnedBadge(userID, badge.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Uint("badge_id", badge.ID).
				Msg("Failed to check if user has badge")
			continue
		}
		if earned {
			continue
		}

		qualifies, err := evaluateCriteria(&badge, metrics)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("badge", badge.Slug).
				Msg("Failed to evaluate badge")
			continue
		}
		if !qualifies {
			continue
		}

		awarded, err := s.badgeRepo.AwardBadge(userID, badge.ID, time.Now().UTC())
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("badge", badge.Slug).
				Msg("Failed to award badge")
			continue
		}
		if !awarded {
			continue
		}

		prommetrics.RecordBadgeAwarded(badge.Slug)
		newlyEarned = append(newlyEarned, badge)

		s.log.Info().
			Uint("user_id", userID).
			Str("badge", badge.Slug).
			Msg("Badge awarded")
	}

	return newlyEarned, nil
}

// collectUserMetrics gathers the metric values badge predicates compare against.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) collectUserMetrics(ctx context.Context, userID uint) (map[string]float64, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	boxesOpened, err := s.boxRepo.CountOpened(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count opened boxes: %w", err)
	}

	referrals, err := s.userRepo.CountReferrals(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	return map[string]float64{
		models.BadgeMetricCurrentStreak: float64(user.CurrentStreak),
		models.BadgeMetricLongestStreak: float64(user.LongestStreak),
		models.BadgeMetricTotalPoints:   float64(user.TotalPoints),
		models.BadgeMetricBoxesOpened:   float64(boxesOpened),
		models.BadgeMetricReferrals:     float64(referrals),
	}, nil
}

// evaluateCriteria compares a badge requirement predicate against collected
// metrics.
func evaluateCriteria(badge *models.Badge, metrics map[string]float64) (bool, error) {
	value, exists := metrics[badge.Metric]
	if !exists {
		return false, fmt.Errorf("unknown badge metric: %s", badge.Metric)
	}

	switch badge.Operator {
	case "<":
		return value < badge.Value, nil
	case "<=":
		return value <= badge.Value, nil
	case ">":
		return value > badge.Value, nil
	case ">=":
		return value >= badge.Value, nil
	case "==":
		return value == badge.Value, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", badge.Operator)
	}
}

// MultiplierFor returns the user's additive badge bonus. The caller adds it
// to the streak multiplier: total = streak + badge bonus.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) MultiplierFor(ctx context.Context, userID uint) (float64, error) {
	return s.badgeRepo.SumBadgeMultipliers(userID)
}

// GetUserBadges retrieves all badges earned by a user.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(userID)
}

// GetBadgeCatalog retrieves all available badges.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetBadgeCatalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll()
}

// ConvertToNFT records the one-time NFT conversion of an earned badge.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) ConvertToNFT(ctx context.Context, userID uint, slug, nftAddress string) error {
	badge, err := s.badgeRepo.GetBySlug(slug)
	if err != nil {
		return fmt.Errorf("failed to get badge: %w", err)
	}
	return s.badgeRepo.MarkNFTConverted(userID, badge.ID, nftAddress)
}
