// Package telegram delivers fatigue alerts to a fleet operator's Telegram
// chat, with the annotated frame attached when one is available.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"drowsisense/internal/alert"
)

const defaultAPIBase = "https://api.telegram.org"

// Config holds Telegram bot configuration
type Config struct {
	BotToken        string
	ChatID          string
	Enabled         bool
	CooldownSeconds int
}

// ValidateConfig rejects an enabled bot with incomplete credentials
func ValidateConfig(config Config) error {
	if config.Enabled {
		if config.BotToken == "" {
			return fmt.Errorf("telegram bot token is required when enabled")
		}
		if config.ChatID == "" {
			return fmt.Errorf("telegram chat ID is required when enabled")
		}
	}
	if config.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown seconds cannot be negative")
	}
	return nil
}

// apiResponse represents the response envelope from the Telegram API
type apiResponse struct {
	OK          bool        `json:"ok"`
	Result      interface{} `json:"result,omitempty"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Bot sends fatigue alerts to a Telegram chat. It carries its own per-kind
// cooldown tracker, separate from the alert state machine's gate, so chat
// noise stays bounded even if the machine is configured aggressively.
type Bot struct {
	botToken   string
	chatID     string
	apiBase    string
	httpClient *http.Client

	mu              sync.Mutex
	enabled         bool
	cooldownTracker map[string]time.Time
	cooldownPeriod  time.Duration
}

// NewBot creates a Telegram bot instance
func NewBot(config Config) *Bot {
	cooldownPeriod := time.Duration(config.CooldownSeconds) * time.Second
	if cooldownPeriod == 0 {
		cooldownPeriod = 30 * time.Second
	}

	return &Bot{
		botToken:        config.BotToken,
		chatID:          config.ChatID,
		apiBase:         defaultAPIBase,
		enabled:         config.Enabled,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		cooldownTracker: make(map[string]time.Time),
		cooldownPeriod:  cooldownPeriod,
	}
}

// Enabled reports whether the bot is configured and switched on
func (b *Bot) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled && b.botToken != "" && b.chatID != ""
}

// SendFatigueAlert delivers one alert to the operator chat. When frame data is
// available the alert goes out as a photo with the message as its caption,
// otherwise as plain text. Alerts of the same kind inside the bot's cooldown
// window are dropped.
func (b *Bot) SendFatigueAlert(ctx context.Context, ev alert.Event, driverName string, frameData []byte) error {
	if !b.Enabled() {
		return fmt.Errorf("telegram bot is disabled")
	}

	if !b.checkCooldown(string(ev.Kind)) {
		return fmt.Errorf("telegram cooldown for %s not yet elapsed", ev.Kind)
	}

	zoneName, _ := ev.CreatedAt.Zone()
	timestamp := fmt.Sprintf("%s %s", ev.CreatedAt.Format("2 Jan 2006, 15:04:05"), zoneName)

	var severityEmoji string
	switch ev.Severity {
	case alert.SeverityHigh:
		severityEmoji = "🔴"
	case alert.SeverityMedium:
		severityEmoji = "🟡"
	default:
		severityEmoji = "⚪"
	}

	if driverName == "" {
		driverName = ev.DriverID
	}

	message := fmt.Sprintf(
		"🚨 <b>%s</b>\n\n"+
			"🚗 Driver: %s\n"+
			"%s Severity: %s\n"+
			"🕐 Time: %s",
		ev.Description,
		driverName,
		severityEmoji,
		ev.Severity,
		timestamp,
	)

	var err error
	if len(frameData) > 0 {
		err = b.sendPhoto(ctx, frameData, message)
	} else {
		err = b.sendMessage(ctx, message)
	}
	if err == nil {
		b.updateCooldown(string(ev.Kind))
	}
	return err
}

// SendTestMessage verifies the bot configuration end to end
func (b *Bot) SendTestMessage(ctx context.Context) error {
	if !b.Enabled() {
		return fmt.Errorf("telegram bot is disabled")
	}

	now := time.Now()
	zoneName, _ := now.Zone()
	message := fmt.Sprintf(
		"🤖 <b>DrowsiSense Test Message</b>\n\n"+
			"✅ Telegram bot is working correctly!\n"+
			"🕐 Test sent at: %s %s",
		now.Format("2 Jan 2006, 15:04:05"), zoneName,
	)

	return b.sendMessage(ctx, message)
}

// sendMessage sends an HTML text message
func (b *Bot) sendMessage(ctx context.Context, message string) error {
	payload := map[string]interface{}{
		"chat_id":    b.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", b.apiBase, b.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	return handleResponse(resp)
}

// sendPhoto sends a JPEG frame with caption using multipart form data
func (b *Bot) sendPhoto(ctx context.Context, photoData []byte, caption string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", b.chatID); err != nil {
		return fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("failed to write caption field: %w", err)
		}
		if err := writer.WriteField("parse_mode", "HTML"); err != nil {
			return fmt.Errorf("failed to write parse_mode field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("photo", "alert_frame.jpg")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(photoData); err != nil {
		return fmt.Errorf("failed to write photo data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", b.apiBase, b.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	defer resp.Body.Close()

	return handleResponse(resp)
}

// handleResponse processes the Telegram API response envelope
func handleResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !apiResp.OK {
		return fmt.Errorf("telegram API error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}

// checkCooldown reports whether the cooldown has elapsed for an alert kind
func (b *Bot) checkCooldown(kind string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	lastTime, exists := b.cooldownTracker[kind]
	if !exists {
		return true
	}
	return time.Since(lastTime) >= b.cooldownPeriod
}

// updateCooldown records the last delivery time for an alert kind
func (b *Bot) updateCooldown(kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cooldownTracker[kind] = time.Now()
}

// CleanupCooldownTracking removes stale cooldown entries
func (b *Bot) CleanupCooldownTracking() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for kind, lastTime := range b.cooldownTracker {
		if now.Sub(lastTime) > b.cooldownPeriod*2 {
			delete(b.cooldownTracker, kind)
			log.Printf("[Telegram] Dropped stale cooldown entry for %s", kind)
		}
	}
}
