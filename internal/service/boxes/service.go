package boxes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/streakfarm/streakfarm-api/internal/config"
	prommetrics "github.com/streakfarm/streakfarm-api/internal/metrics"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/internal/service/streak"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// ErrNotFound is returned when a box does not exist or belongs to another user.
var ErrNotFound = errors.New("box not found")

// BoxRepository interface for box persistence.
type BoxRepository interface {
	CreateBatch(boxes []models.Box) error
	GetByID(id string) (*models.Box, error)
	ListForUser(userID uint, since time.Time) ([]models.Box, error)
	CountGeneratedSince(userID uint, since time.Time) (int64, error)
	MarkOpened(boxID string, openedAt time.Time, multiplier float64, finalPoints uint) error
	ExpireDue(now time.Time) (int64, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	ListIDs() ([]uint, error)
}

// MultiplierSource supplies the additive badge bonus for a user.
type MultiplierSource interface {
	MultiplierFor(ctx context.Context, userID uint) (float64, error)
}

// Ledger interface for appending box payouts.
type Ledger interface {
	Append(ctx context.Context, userID uint, points int32, source, reference string) error
}

// Service orchestrates box generation, opening, and expiry.
type Service struct {
	boxRepo   BoxRepository
	userRepo  UserRepository
	badges    MultiplierSource
	ledger    Ledger
	generator *Generator
	perDay    int
	ttl       time.Duration
	tiers     []config.MultiplierTier
	log       *logger.Logger
}

// NewService creates a new box service.
func NewService(
	boxRepo *repository.BoxRepository,
	userRepo *repository.UserRepository,
	badges MultiplierSource,
	ledger Ledger,
	generator *Generator,
	cfg *config.Config,
	log *logger.Logger,
) *Service {
	return &Service{
		boxRepo:   boxRepo,
		userRepo:  userRepo,
		badges:    badges,
		ledger:    ledger,
		generator: generator,
		perDay:    cfg.Boxes.PerDay,
		ttl:       cfg.Boxes.TTL,
		tiers:     cfg.Rewards.MultiplierTiersOrDefault(),
		log:       log,
	}
}

// NewServiceWithInterfaces creates a new box service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	boxRepo BoxRepository,
	userRepo UserRepository,
	badges MultiplierSource,
	ledger Ledger,
	generator *Generator,
	perDay int,
	ttl time.Duration,
	tiers []config.MultiplierTier,
	log *logger.Logger,
) *Service {
	return &Service{
		boxRepo:   boxRepo,
		userRepo:  userRepo,
		badges:    badges,
		ledger:    ledger,
		generator: generator,
		perDay:    perDay,
		ttl:       ttl,
		tiers:     tiers,
		log:       log,
	}
}

// Open opens a box for the user and pays out its points.
//
// The multiplier model is additive: streak tier multiplier plus the sum of
// badge bonuses. The state transition is guarded twice, by the pure engine
// against the loaded snapshot and by the conditional update, so an open is
// applied at most once even under concurrent requests.
func (s *Service) Open(ctx context.Context, userID uint, boxID string, now time.Time) (*models.Box, error) {
	box, err := s.boxRepo.GetByID(boxID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load box: %w", err)
	}
	if box.UserID != userID {
		return nil, ErrNotFound
	}

	multiplier, err := s.userMultiplier(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := Open(box, now, multiplier)
	if err != nil {
		return nil, err
	}

	if err := s.boxRepo.MarkOpened(box.ID, result.OpenedAt, result.MultiplierApplied, result.FinalPoints); err != nil {
		if errors.Is(err, repository.ErrBoxConflict) {
			// Lost the race: the box was opened or swept in between. Reload to
			// report the accurate terminal state.
			if fresh, loadErr := s.boxRepo.GetByID(box.ID); loadErr == nil && fresh.IsOpened() {
				return nil, ErrAlreadyOpened
			}
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("failed to mark box opened: %w", err)
	}

	if err := s.ledger.Append(ctx, userID, int32(result.FinalPoints), models.LedgerSourceBox, box.ID); err != nil {
		return nil, err
	}

	prommetrics.RecordBoxOpened(result.Rarity, result.FinalPoints)

	box.OpenedAt = &result.OpenedAt
	box.MultiplierApplied = result.MultiplierApplied
	box.FinalPoints = result.FinalPoints

	s.log.Info().
		Uint("user_id", userID).
		Str("box_id", box.ID).
		Str("rarity", box.Rarity).
		Uint("final_points", box.FinalPoints).
		Float64("multiplier", box.MultiplierApplied).
		Msg("Box opened")

	return box, nil
}

// userMultiplier computes streak tier multiplier + badge bonus.
func (s *Service) userMultiplier(ctx context.Context, userID uint) (float64, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load user: %w", err)
	}

	mult := streak.MultiplierForStreak(user.CurrentStreak, s.tiers)

	if s.badges != nil {
		bonus, err := s.badges.MultiplierFor(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to load badge multiplier: %w", err)
		}
		mult += bonus
	}

	return mult, nil
}

// ListCurrent returns the user's boxes from the last generation window,
// including opened and expired ones so the client can render their state.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) ListCurrent(ctx context.Context, userID uint, now time.Time) ([]models.Box, error) {
	since := now.Add(-24 * time.Hour)
	return s.boxRepo.ListForUser(userID, since)
}

// GenerateDaily produces today's batch for every user that does not have one
// yet. Duplicate pipeline runs are harmless: users with boxes generated since
// the day start are skipped.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GenerateDaily(ctx context.Context, now time.Time) (int, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	userIDs, err := s.userRepo.ListIDs()
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	generated := 0
	for _, userID := range userIDs {
		count, err := s.boxRepo.CountGeneratedSince(userID, dayStart)
		if err != nil {
			return generated, fmt.Errorf("failed to count boxes for user %d: %w", userID, err)
		}
		if count > 0 {
			continue
		}

		batch := s.generator.Generate(userID, s.perDay, now, s.ttl)
		if err := s.boxRepo.CreateBatch(batch); err != nil {
			return generated, fmt.Errorf("failed to create boxes for user %d: %w", userID, err)
		}
		for _, box := range batch {
			prommetrics.RecordBoxGenerated(box.Rarity)
		}
		generated += len(batch)
	}

	s.log.Info().
		Int("users", len(userIDs)).
		Int("boxes", generated).
		Msg("Daily box generation complete")

	return generated, nil
}

// GrantBonusBox generates a single extra box outside the daily cap, used for
// milestone rewards.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GrantBonusBox(ctx context.Context, userID uint, now time.Time) (*models.Box, error) {
	batch := s.generator.Generate(userID, 1, now, s.ttl)
	if err := s.boxRepo.CreateBatch(batch); err != nil {
		return nil, fmt.Errorf("failed to create bonus box: %w", err)
	}
	prommetrics.RecordBoxGenerated(batch[0].Rarity)
	return &batch[0], nil
}

// ExpireDue sweeps unopened boxes past expiry. Part of the daily pipeline;
// safe to rerun.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	expired, err := s.boxRepo.ExpireDue(now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire boxes: %w", err)
	}
	if expired > 0 {
		prommetrics.RecordBoxesExpired(int(expired))
	}
	s.log.Info().Int64("expired", expired).Msg("Box expiry sweep complete")
	return expired, nil
}
