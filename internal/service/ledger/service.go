// Package ledger implements the append-only reward ledger service. Every
// point-affecting event flows through Append; totals are derived views.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/cache"
	prommetrics "github.com/streakfarm/streakfarm-api/internal/metrics"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// totalTTL bounds staleness of the cached totals between appends.
const totalTTL = 5 * time.Minute

// Repository interface for ledger persistence.
type Repository interface {
	Append(entry *models.PointsLedgerEntry) error
	TotalFor(userID uint) (int64, error)
	RecentFor(userID uint, limit int) ([]models.PointsLedgerEntry, error)
}

// Service appends ledger entries and serves totals through the cache.
type Service struct {
	repo  Repository
	cache cache.Cache
	log   *logger.Logger
}

// NewService creates a new ledger service.
func NewService(repo *repository.LedgerRepository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

// NewServiceWithInterfaces creates a new ledger service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(repo Repository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

// Append records a point-affecting event. The cached total for the user is
// invalidated so the next read recomputes from the ledger.
func (s *Service) Append(ctx context.Context, userID uint, points int32, source, reference string) error {
	entry := &models.PointsLedgerEntry{
		UserID:    userID,
		Points:    points,
		Source:    source,
		Reference: reference,
	}
	if err := s.repo.Append(entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := s.cache.Del(ctx, cache.TotalPointsKey(userID)); err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to invalidate cached total")
	}

	prommetrics.RecordPointsAwarded(source, int64(points))

	s.log.Debug().
		Uint("user_id", userID).
		Int32("points", points).
		Str("source", source).
		Str("reference", reference).
		Msg("Ledger entry appended")

	return nil
}

// TotalFor returns a user's point total, served from cache when fresh and
// recomputed from the ledger otherwise.
func (s *Service) TotalFor(ctx context.Context, userID uint) (int64, error) {
	key := cache.TotalPointsKey(userID)

	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		if total, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return total, nil
		}
	}

	total, err := s.repo.TotalFor(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute ledger total: %w", err)
	}

	if err := s.cache.Set(ctx, key, strconv.FormatInt(total, 10), totalTTL); err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to cache total")
	}

	return total, nil
}

// Recent returns a user's most recent ledger entries.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Recent(ctx context.Context, userID uint, limit int) ([]models.PointsLedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.RecentFor(userID, limit)
}
