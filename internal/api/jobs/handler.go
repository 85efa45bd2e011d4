// Package jobs exposes the daily pipeline steps as HTTP endpoints for an
// external cron trigger. Every endpoint is idempotent and returns non-2xx on
// failure so the trigger can abort the remaining steps.
package jobs

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// SecretHeader carries the shared secret that guards the jobs endpoints.
const SecretHeader = "X-Jobs-Secret"

// Pipeline runs the full daily pipeline in order.
type Pipeline interface {
	RunPipeline(ctx context.Context, now time.Time) error
}

// BoxSteps is the box-facing slice of the pipeline.
type BoxSteps interface {
	GenerateDaily(ctx context.Context, now time.Time) (int, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// StreakSteps is the streak-facing slice of the pipeline.
type StreakSteps interface {
	ProcessResets(ctx context.Context, now time.Time) (int64, error)
}

// Handler handles pipeline trigger requests.
type Handler struct {
	pipeline Pipeline
	boxes    BoxSteps
	streaks  StreakSteps
	log      *logger.Logger
}

// NewHandler creates a new jobs handler.
func NewHandler(pipeline Pipeline, boxes BoxSteps, streaks StreakSteps, log *logger.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		boxes:    boxes,
		streaks:  streaks,
		log:      log,
	}
}

// SecretMiddleware rejects requests without the shared jobs secret.
func SecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid jobs secret"})
			return
		}
		c.Next()
	}
}

// RunPipeline runs the full daily pipeline.
// POST /internal/jobs/run.
func (h *Handler) RunPipeline(c *gin.Context) {
	if err := h.pipeline.RunPipeline(c.Request.Context(), time.Now().UTC()); err != nil {
		h.log.Error().Err(err).Msg("Pipeline run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// GenerateBoxes runs the daily box generation step.
// POST /internal/jobs/generate-boxes.
func (h *Handler) GenerateBoxes(c *gin.Context) {
	generated, err := h.boxes.GenerateDaily(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Msg("Box generation step failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "boxes_generated": generated})
}

// ProcessResets runs the lapsed streak reset step.
// POST /internal/jobs/process-resets.
func (h *Handler) ProcessResets(c *gin.Context) {
	reset, err := h.streaks.ProcessResets(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Msg("Streak reset step failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "streaks_reset": reset})
}

// ExpireBoxes runs the box expiry sweep step.
// POST /internal/jobs/expire-boxes.
func (h *Handler) ExpireBoxes(c *gin.Context) {
	expired, err := h.boxes.ExpireDue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Msg("Box expiry step failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "boxes_expired": expired})
}
