package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// Context keys set by the middleware.
const (
	ContextKeyTelegramID = "telegram_id"
	ContextKeyInitData   = "init_data"
)

// InitDataHeader carries the raw initData string from the Mini-App frontend.
const InitDataHeader = "X-Telegram-Init-Data"

// Middleware returns a gin handler that verifies the initData header and
// stores the authenticated Telegram user ID in the request context.
func Middleware(v *Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing init data"})
			return
		}

		data, err := v.Verify(raw, time.Now())
		if err != nil {
			log.Warn().Err(err).Msg("initData verification failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
			return
		}

		c.Set(ContextKeyTelegramID, data.User.ID)
		c.Set(ContextKeyInitData, data)
		c.Next()
	}
}

// TelegramID extracts the authenticated Telegram user ID from the context.
func TelegramID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextKeyTelegramID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// InitDataFrom extracts the verified initData payload from the context.
func InitDataFrom(c *gin.Context) (*InitData, bool) {
	v, ok := c.Get(ContextKeyInitData)
	if !ok {
		return nil, false
	}
	data, ok := v.(*InitData)
	return data, ok
}
