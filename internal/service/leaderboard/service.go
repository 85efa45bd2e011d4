// Package leaderboard provides point-total rankings over the reward ledger.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/cache"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// snapshotTTL bounds staleness of cached leaderboard pages.
const snapshotTTL = 60 * time.Second

// LedgerRepository interface for ranked total queries.
type LedgerRepository interface {
	TopTotals(limit int) ([]models.User, error)
}

// BadgeRepository interface for badge counts.
type BadgeRepository interface {
	GetUserBadgeCount(userID uint) (int64, error)
}

// Entry represents a single entry in the leaderboard.
type Entry struct {
	Rank          int    `json:"rank"`
	UserID        uint   `json:"user_id"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	TotalPoints   int64  `json:"total_points"`
	CurrentStreak uint   `json:"current_streak"`
	BadgeCount    int    `json:"badge_count"`
}

// Service builds and caches leaderboard snapshots.
type Service struct {
	ledgerRepo LedgerRepository
	badgeRepo  BadgeRepository
	cache      cache.Cache
	log        *logger.Logger
}

// NewService creates a new leaderboard service.
func NewService(
	ledgerRepo *repository.LedgerRepository,
	badgeRepo *repository.BadgeRepository,
	c cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		badgeRepo:  badgeRepo,
		cache:      c,
		log:        log,
	}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	ledgerRepo LedgerRepository,
	badgeRepo BadgeRepository,
	c cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		badgeRepo:  badgeRepo,
		cache:      c,
		log:        log,
	}
}

// Top returns the highest point totals, ranked. Snapshots are cached briefly
// since the mini-app polls this endpoint aggressively.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	key := cache.LeaderboardKey("global", limit)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var entries []Entry
		if jsonErr := json.Unmarshal([]byte(cached), &entries); jsonErr == nil {
			return entries, nil
		}
	}

	users, err := s.ledgerRepo.TopTotals(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top totals: %w", err)
	}

	entries := make([]Entry, 0, len(users))
	for i, user := range users {
		badgeCount, err := s.badgeRepo.GetUserBadgeCount(user.ID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to get badge count")
			badgeCount = 0
		}

		entries = append(entries, Entry{
			Rank:          i + 1,
			UserID:        user.ID,
			Username:      user.Username,
			FirstName:     user.FirstName,
			TotalPoints:   user.TotalPoints,
			CurrentStreak: user.CurrentStreak,
			BadgeCount:    int(badgeCount),
		})
	}

	if raw, err := json.Marshal(entries); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), snapshotTTL); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache leaderboard snapshot")
		}
	}

	return entries, nil
}
