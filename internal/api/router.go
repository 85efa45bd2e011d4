// Package api assembles the gin router for the StreakFarm backend.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streakfarm/streakfarm-api/internal/api/jobs"
	"github.com/streakfarm/streakfarm-api/internal/api/miniapp"
	"github.com/streakfarm/streakfarm-api/internal/auth"
	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// DBHealth checks database connectivity.
type DBHealth interface {
	Health() error
}

// CacheHealth checks cache connectivity.
type CacheHealth interface {
	Health(ctx context.Context) error
}

// NewRouter builds the HTTP router: health probe, authenticated Mini-App API
// under /api/v1, and the secret-guarded pipeline triggers under
// /internal/jobs.
func NewRouter(
	cfg *config.Config,
	verifier *auth.Verifier,
	miniappHandler *miniapp.Handler,
	jobsHandler *jobs.Handler,
	db DBHealth,
	cache CacheHealth,
	log *logger.Logger,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler(db, cache))

	v1 := router.Group("/api/v1")
	v1.Use(auth.Middleware(verifier, log))
	{
		v1.POST("/checkin", miniappHandler.CheckIn)

		v1.GET("/boxes", miniappHandler.ListBoxes)
		v1.POST("/boxes/:id/open", miniappHandler.OpenBox)

		v1.GET("/profile", miniappHandler.GetProfile)
		v1.GET("/points/history", miniappHandler.GetPointsHistory)

		v1.GET("/badges", miniappHandler.GetBadgeCatalog)
		v1.GET("/badges/me", miniappHandler.GetUserBadges)
		v1.POST("/badges/:slug/convert", miniappHandler.ConvertBadge)

		v1.GET("/leaderboard", miniappHandler.GetLeaderboard)

		v1.POST("/referral", miniappHandler.ApplyReferral)
		v1.GET("/referral", miniappHandler.GetReferralStats)

		v1.POST("/wallet/connect", miniappHandler.ConnectWallet)
	}

	internal := router.Group("/internal/jobs")
	internal.Use(jobs.SecretMiddleware(cfg.Server.JobsSecret))
	{
		internal.POST("/run", jobsHandler.RunPipeline)
		internal.POST("/generate-boxes", jobsHandler.GenerateBoxes)
		internal.POST("/process-resets", jobsHandler.ProcessResets)
		internal.POST("/expire-boxes", jobsHandler.ExpireBoxes)
	}

	return router
}

// healthHandler reports database and cache connectivity.
func healthHandler(db DBHealth, cache CacheHealth) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{}

		if err := db.Health(); err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := cache.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["cache"] = err.Error()
		} else {
			checks["cache"] = "ok"
		}

		c.JSON(status, gin.H{
			"status": http.StatusText(status),
			"checks": checks,
		})
	}
}
