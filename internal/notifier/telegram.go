// Package notifier provides a Telegram Bot API client for sending reward announcements.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

const apiBase = "https://api.telegram.org"

// TelegramNotifier sends bot messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	enabled  bool
	baseURL  string
	client   *http.Client
	log      *logger.Logger
}

// NewTelegramNotifier creates a new Telegram notifier.
func NewTelegramNotifier(cfg *config.TelegramConfig, log *logger.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		enabled:  cfg.Notifications,
		baseURL:  apiBase,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// sendMessagePayload mirrors the Bot API sendMessage request body.
type sendMessagePayload struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Notify sends a plain text message to the user's chat.
func (n *TelegramNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	if !n.enabled {
		n.log.Debug().Msg("Telegram notifications are disabled, skipping message")
		return nil
	}

	payload, err := json.Marshal(sendMessagePayload{
		ChatID: telegramID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	n.log.Debug().
		Int64("telegram_id", telegramID).
		Msg("Sent message to Telegram")

	return nil
}
