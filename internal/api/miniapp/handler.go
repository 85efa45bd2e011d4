// Package miniapp provides the REST API handlers the Telegram Mini-App
// frontend calls: check-ins, mystery boxes, profile, badges, leaderboard,
// referrals, and wallet connection.
package miniapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streakfarm/streakfarm-api/internal/auth"
	"github.com/streakfarm/streakfarm-api/internal/models"
	"github.com/streakfarm/streakfarm-api/internal/service/badges"
	"github.com/streakfarm/streakfarm-api/internal/service/boxes"
	"github.com/streakfarm/streakfarm-api/internal/service/leaderboard"
	"github.com/streakfarm/streakfarm-api/internal/service/ledger"
	"github.com/streakfarm/streakfarm-api/internal/service/milestones"
	"github.com/streakfarm/streakfarm-api/internal/service/referrals"
	"github.com/streakfarm/streakfarm-api/internal/service/streak"
	"github.com/streakfarm/streakfarm-api/internal/service/users"
	"github.com/streakfarm/streakfarm-api/internal/service/wallet"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// UserService interface for identity resolution.
type UserService interface {
	Resolve(ctx context.Context, data *auth.InitData) (*models.User, error)
}

// StreakService interface for check-in operations.
type StreakService interface {
	CheckIn(ctx context.Context, userID uint, now time.Time) (*streak.Outcome, error)
	Config() streak.EngineConfig
}

// BoxService interface for mystery box operations.
type BoxService interface {
	ListCurrent(ctx context.Context, userID uint, now time.Time) ([]models.Box, error)
	Open(ctx context.Context, userID uint, boxID string, now time.Time) (*models.Box, error)
}

// BadgeService interface for badge operations.
type BadgeService interface {
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	GetBadgeCatalog(ctx context.Context) ([]models.Badge, error)
	ConvertToNFT(ctx context.Context, userID uint, slug, nftAddress string) error
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	Top(ctx context.Context, limit int) ([]leaderboard.Entry, error)
}

// LedgerService interface for point totals and history.
type LedgerService interface {
	TotalFor(ctx context.Context, userID uint) (int64, error)
	Recent(ctx context.Context, userID uint, limit int) ([]models.PointsLedgerEntry, error)
}

// WalletService interface for TON wallet connection.
type WalletService interface {
	Connect(ctx context.Context, userID uint, address, proof string, now time.Time) (uint, error)
}

// ReferralService interface for referral operations.
type ReferralService interface {
	Apply(ctx context.Context, userID uint, code string) error
	Stats(ctx context.Context, userID uint) (code string, count int64, err error)
}

// Handler handles Mini-App API requests.
type Handler struct {
	userService        UserService
	streakService      StreakService
	boxService         BoxService
	badgeService       BadgeService
	leaderboardService LeaderboardService
	ledgerService      LedgerService
	walletService      WalletService
	referralService    ReferralService
	log                *logger.Logger
}

// NewHandler creates a new Mini-App handler.
func NewHandler(
	userService *users.Service,
	streakService *streak.Service,
	boxService *boxes.Service,
	badgeService *badges.Service,
	leaderboardService *leaderboard.Service,
	ledgerService *ledger.Service,
	walletService *wallet.Service,
	referralService *referrals.Service,
	log *logger.Logger,
) *Handler {
	return &Handler{
		userService:        userService,
		streakService:      streakService,
		boxService:         boxService,
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		ledgerService:      ledgerService,
		walletService:      walletService,
		referralService:    referralService,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new Mini-App handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	userService UserService,
	streakService StreakService,
	boxService BoxService,
	badgeService BadgeService,
	leaderboardService LeaderboardService,
	ledgerService LedgerService,
	walletService WalletService,
	referralService ReferralService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		userService:        userService,
		streakService:      streakService,
		boxService:         boxService,
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		ledgerService:      ledgerService,
		walletService:      walletService,
		referralService:    referralService,
		log:                log,
	}
}

// CheckIn applies the daily check-in for the authenticated user.
// POST /api/v1/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	outcome, err := h.streakService.CheckIn(c.Request.Context(), user.ID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, streak.ErrTooSoon):
			h.errorResponse(c, http.StatusTooManyRequests, "Check-in window not open yet")
		case errors.Is(err, streak.ErrConflict):
			h.errorResponse(c, http.StatusConflict, "Check-in already applied")
		default:
			h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Check-in failed")
			h.errorResponse(c, http.StatusInternalServerError, "Check-in failed")
		}
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// ListBoxes returns the user's boxes from the current generation window.
// GET /api/v1/boxes.
func (h *Handler) ListBoxes(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	userBoxes, err := h.boxService.ListCurrent(c.Request.Context(), user.ID, now)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to list boxes")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve boxes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"boxes":        userBoxes,
		"generated_at": now,
	})
}

// OpenBox opens one of the user's boxes and pays out its points.
// POST /api/v1/boxes/:id/open.
func (h *Handler) OpenBox(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	boxID := c.Param("id")
	box, err := h.boxService.Open(c.Request.Context(), user.ID, boxID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, boxes.ErrNotFound):
			h.errorResponse(c, http.StatusNotFound, "Box not found")
		case errors.Is(err, boxes.ErrAlreadyOpened):
			h.errorResponse(c, http.StatusConflict, "Box already opened")
		case errors.Is(err, boxes.ErrExpired):
			h.errorResponse(c, http.StatusGone, "Box expired")
		default:
			h.log.Error().Err(err).Uint("user_id", user.ID).Str("box_id", boxID).Msg("Failed to open box")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to open box")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"box": box})
}

// GetProfile returns the user's streak state, totals, and reward outlook.
// GET /api/v1/profile.
func (h *Handler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	total, err := h.ledgerService.TotalFor(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to compute point total")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}

	cfg := h.streakService.Config()
	c.JSON(http.StatusOK, gin.H{
		"user":            user,
		"total_points":    total,
		"multiplier":      streak.MultiplierForStreak(user.CurrentStreak, cfg.Tiers),
		"next_checkin_at": streak.NextCheckinAt(user.LastCheckin, cfg),
		"next_milestone":  milestones.Next(user.CurrentStreak),
	})
}

// GetPointsHistory returns the user's most recent ledger entries.
// GET /api/v1/points/history?limit=20.
func (h *Handler) GetPointsHistory(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.errorResponse(c, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	entries, err := h.ledgerService.Recent(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to load points history")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve points history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// GetBadgeCatalog returns all available badges.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog, err := h.badgeService.GetBadgeCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
	})
}

// GetUserBadges returns badges earned by the authenticated user.
// GET /api/v1/badges/me.
func (h *Handler) GetUserBadges(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	userBadges, err := h.badgeService.GetUserBadges(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       userBadges,
		"total_badges": len(userBadges),
	})
}

// convertBadgeRequest is the NFT conversion request body.
type convertBadgeRequest struct {
	NFTAddress string `json:"nft_address" binding:"required"`
}

// ConvertBadge records the one-time NFT conversion of an earned badge.
// POST /api/v1/badges/:slug/convert.
func (h *Handler) ConvertBadge(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req convertBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "nft_address is required")
		return
	}

	slug := c.Param("slug")
	if err := h.badgeService.ConvertToNFT(c.Request.Context(), user.ID, slug, req.NFTAddress); err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Str("badge", slug).Msg("Failed to convert badge")
		h.errorResponse(c, http.StatusConflict, "Badge not convertible")
		return
	}

	c.JSON(http.StatusOK, gin.H{"badge": slug, "nft_address": req.NFTAddress})
}

// GetLeaderboard returns the global point leaderboard.
// GET /api/v1/leaderboard?limit=25.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 25
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.errorResponse(c, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	entries, err := h.leaderboardService.Top(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
	})
}

// applyReferralRequest is the referral application request body.
type applyReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyReferral binds a referral code to the authenticated user.
// POST /api/v1/referral.
func (h *Handler) ApplyReferral(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req applyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.referralService.Apply(c.Request.Context(), user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, referrals.ErrUnknownCode), errors.Is(err, referrals.ErrSelfReferral):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, referrals.ErrAlreadyReferred):
			h.errorResponse(c, http.StatusConflict, "Referral already applied")
		default:
			h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to apply referral")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to apply referral")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": true})
}

// GetReferralStats returns the user's referral code and referral count.
// GET /api/v1/referral.
func (h *Handler) GetReferralStats(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	code, count, err := h.referralService.Stats(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to load referral stats")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve referral stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":      code,
		"referrals": count,
	})
}

// connectWalletRequest is the wallet connection request body.
type connectWalletRequest struct {
	Address string `json:"address" binding:"required"`
	Proof   string `json:"proof" binding:"required"`
}

// ConnectWallet links a TON wallet and grants the one-time bonus.
// POST /api/v1/wallet/connect.
func (h *Handler) ConnectWallet(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req connectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "address and proof are required")
		return
	}

	bonus, err := h.walletService.Connect(c.Request.Context(), user.ID, req.Address, req.Proof, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAddress), errors.Is(err, wallet.ErrInvalidProof):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, wallet.ErrAlreadyConnected):
			h.errorResponse(c, http.StatusConflict, "Wallet already connected")
		default:
			h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to connect wallet")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to connect wallet")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":    true,
		"bonus_points": bonus,
	})
}

// currentUser resolves the authenticated initData payload into a user record.
// A false return means the response is already written.
func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	data, ok := auth.InitDataFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	user, err := h.userService.Resolve(c.Request.Context(), data)
	if err != nil {
		h.log.Error().Err(err).Int64("telegram_id", data.User.ID).Msg("Failed to resolve user")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to resolve user")
		return nil, false
	}
	return user, true
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
