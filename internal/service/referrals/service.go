// Package referrals implements referral codes and their one-time bonuses.
package referrals

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// Referral failures.
var (
	ErrSelfReferral    = errors.New("cannot refer yourself")
	ErrAlreadyReferred = errors.New("user already has a referrer")
	ErrUnknownCode     = errors.New("unknown referral code")
)

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByReferralCode(code string) (*models.User, error)
	CountReferrals(userID uint) (int64, error)
}

// Binder persists the referral relation exactly once.
type Binder interface {
	BindReferrer(userID, referrerID uint) error
}

// Ledger interface for appending referral bonuses.
type Ledger interface {
	Append(ctx context.Context, userID uint, points int32, source, reference string) error
}

// Service binds referrals and pays both sides their one-time bonus.
type Service struct {
	userRepo      UserRepository
	binder        Binder
	ledger        Ledger
	referrerBonus uint
	refereeBonus  uint
	log           *logger.Logger
}

// NewService creates a new referral service.
func NewService(userRepo *repository.UserRepository, binder Binder, ledger Ledger, rewards *config.RewardsConfig, log *logger.Logger) *Service {
	return &Service{
		userRepo:      userRepo,
		binder:        binder,
		ledger:        ledger,
		referrerBonus: rewards.ReferrerBonus,
		refereeBonus:  rewards.RefereeBonus,
		log:           log,
	}
}

// NewServiceWithInterfaces creates a new referral service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, binder Binder, ledger Ledger, referrerBonus, refereeBonus uint, log *logger.Logger) *Service {
	return &Service{
		userRepo:      userRepo,
		binder:        binder,
		ledger:        ledger,
		referrerBonus: referrerBonus,
		refereeBonus:  refereeBonus,
		log:           log,
	}
}

// Apply binds the referral code to the user and pays both bonuses. A user
// can be referred at most once; self-referrals are rejected.
func (s *Service) Apply(ctx context.Context, userID uint, code string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.ReferredBy != nil {
		return ErrAlreadyReferred
	}

	referrer, err := s.userRepo.GetByReferralCode(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownCode
		}
		return fmt.Errorf("failed to look up referral code: %w", err)
	}
	if referrer.ID == userID {
		return ErrSelfReferral
	}

	if err := s.binder.BindReferrer(userID, referrer.ID); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return ErrAlreadyReferred
		}
		return fmt.Errorf("failed to bind referrer: %w", err)
	}

	ref := "user-" + strconv.FormatUint(uint64(userID), 10)
	if err := s.ledger.Append(ctx, referrer.ID, int32(s.referrerBonus), models.LedgerSourceReferral, ref); err != nil {
		return err
	}
	backRef := "referrer-" + strconv.FormatUint(uint64(referrer.ID), 10)
	if err := s.ledger.Append(ctx, userID, int32(s.refereeBonus), models.LedgerSourceReferral, backRef); err != nil {
		return err
	}

	s.log.Info().
		Uint("user_id", userID).
		Uint("referrer_id", referrer.ID).
		Msg("Referral applied")

	return nil
}

// Stats reports a user's referral code and how many friends used it.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Stats(ctx context.Context, userID uint) (code string, count int64, err error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", 0, fmt.Errorf("failed to load user: %w", err)
	}
	count, err = s.userRepo.CountReferrals(userID)
	if err != nil {
		return "", 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return user.ReferralCode, count, nil
}

// NewCode generates a short random referral code.
func NewCode() string {
	var raw [5]byte
	_, _ = rand.Read(raw[:])
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
}
