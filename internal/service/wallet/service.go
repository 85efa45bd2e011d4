// Package wallet handles TON wallet connection and its one-time bonus.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/repository"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// Wallet connection failures.
var (
	ErrAlreadyConnected = errors.New("wallet already connected")
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidProof     = errors.New("invalid ownership proof")
)

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	MarkWalletConnected(userID uint, address string, now time.Time) error
}

// Ledger interface for appending the connection bonus.
type Ledger interface {
	Append(ctx context.Context, userID uint, points int32, source, reference string) error
}

// Service connects wallets and grants the one-time connection bonus.
type Service struct {
	userRepo UserRepository
	ledger   Ledger
	bonus    uint
	log      *logger.Logger
}

// NewService creates a new wallet service.
func NewService(userRepo *repository.UserRepository, ledger Ledger, rewards *config.RewardsConfig, log *logger.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		ledger:   ledger,
		bonus:    rewards.WalletConnectionBonus,
		log:      log,
	}
}

// NewServiceWithInterfaces creates a new wallet service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, ledger Ledger, bonus uint, log *logger.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		ledger:   ledger,
		bonus:    bonus,
		log:      log,
	}
}

// Connect records a wallet address after proof validation and grants the
// connection bonus at most once. A second connect attempt returns
// ErrAlreadyConnected and appends nothing.
func (s *Service) Connect(ctx context.Context, userID uint, address, proof string, now time.Time) (uint, error) {
	if err := validateAddress(address); err != nil {
		return 0, err
	}
	if strings.TrimSpace(proof) == "" {
		return 0, ErrInvalidProof
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load user: %w", err)
	}
	if user.WalletConnected {
		return 0, ErrAlreadyConnected
	}

	// The flag flip is conditional on wallet_connected = false, so the bonus
	// cannot be granted twice even under concurrent connect requests.
	if err := s.userRepo.MarkWalletConnected(userID, address, now); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return 0, ErrAlreadyConnected
		}
		return 0, fmt.Errorf("failed to mark wallet connected: %w", err)
	}

	if err := s.ledger.Append(ctx, userID, int32(s.bonus), models.LedgerSourceWallet, address); err != nil {
		return 0, err
	}

	s.log.Info().
		Uint("user_id", userID).
		Str("address", address).
		Uint("bonus", s.bonus).
		Msg("Wallet connected")

	return s.bonus, nil
}

// validateAddress checks the TON address shape: 48-character base64url
// user-friendly form or a raw "workchain:hex" form.
func validateAddress(address string) error {
	address = strings.TrimSpace(address)
	if len(address) == 48 {
		return nil
	}
	if parts := strings.SplitN(address, ":", 2); len(parts) == 2 && len(parts[1]) == 64 {
		return nil
	}
	return ErrInvalidAddress
}
