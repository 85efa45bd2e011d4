// Package users resolves authenticated Telegram identities to user records.
package users

import (
	"context"
	"fmt"

	"github.com/streakfarm/streakfarm-api/internal/auth"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/internal/service/referrals"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Upsert(user *models.User) error
}

// ReferralApplier binds a referral code carried in the Mini-App start param.
type ReferralApplier interface {
	Apply(ctx context.Context, userID uint, code string) error
}

// Service upserts users from verified initData payloads.
type Service struct {
	userRepo  UserRepository
	referrals ReferralApplier
	log       *logger.Logger
}

// NewService creates a new user service.
func NewService(userRepo *repository.UserRepository, referralApplier ReferralApplier, log *logger.Logger) *Service {
	return &Service{
		userRepo:  userRepo,
		referrals: referralApplier,
		log:       log,
	}
}

// NewServiceWithInterfaces creates a new user service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, referralApplier ReferralApplier, log *logger.Logger) *Service {
	return &Service{
		userRepo:  userRepo,
		referrals: referralApplier,
		log:       log,
	}
}

// Resolve finds or creates the user for a verified initData payload,
// refreshing the Telegram profile fields on every request. New users get a
// referral code; a start_param carrying a referral code is applied once.
func (s *Service) Resolve(ctx context.Context, data *auth.InitData) (*models.User, error) {
	user := &models.User{
		TelegramID:   data.User.ID,
		Username:     data.User.Username,
		FirstName:    data.User.FirstName,
		LastName:     data.User.LastName,
		ReferralCode: referrals.NewCode(),
	}

	if err := s.userRepo.Upsert(user); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if data.StartParam != "" && user.ReferredBy == nil && s.referrals != nil {
		if err := s.referrals.Apply(ctx, user.ID, data.StartParam); err != nil {
			// Bad or repeated codes are expected here; the session itself is fine.
			s.log.Debug().
				Err(err).
				Uint("user_id", user.ID).
				Msg("Start param referral not applied")
		}
	}

	return user, nil
}

// Get loads a user by primary key.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Get(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}
