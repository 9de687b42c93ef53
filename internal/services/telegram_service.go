package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"
)

// TelegramService sends admin alerts to a Telegram chat.
type TelegramService struct {
	apiBase     string
	botToken    string
	adminChatID string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		apiBase:     "https://api.telegram.org",
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// BusinessAlert describes a newly listed business awaiting church verification.
type BusinessAlert struct {
	BusinessID   string
	BusinessName string
	OwnerName    string
	OwnerPhone   string
	OwnerEmail   string
	Address      string
}

// NotifyNewBusiness tells admins a business needs verification.
func (s *TelegramService) NotifyNewBusiness(ctx context.Context, alert BusinessAlert) error {
	if s.adminChatID == "" {
		return nil
	}

	contact := alert.OwnerPhone
	if contact == "" {
		contact = alert.OwnerEmail
	}

	message := fmt.Sprintf(`<b>🏪 NEW BUSINESS LISTED</b>
<b>📋 Business:</b> %s
<b>👤 Owner:</b> %s
<b>📞 Contact:</b> %s
<b>📍 Address:</b> %s
<b>🆔 ID:</b> %s
━━━━━━━━━━━━━━━━━━
<i>Awaiting church verification</i>`,
		html.EscapeString(alert.BusinessName),
		html.EscapeString(alert.OwnerName),
		html.EscapeString(contact),
		html.EscapeString(alert.Address),
		alert.BusinessID,
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// FeaturedAlert describes a featured placement earned through a campaign.
type FeaturedAlert struct {
	BusinessName string
	CampaignName string
	RewardName   string
	EndsAt       time.Time
}

// NotifyFeaturedGrant tells admins a business earned a featured placement.
func (s *TelegramService) NotifyFeaturedGrant(ctx context.Context, alert FeaturedAlert) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>⭐ FEATURED PLACEMENT EARNED</b>
<b>📋 Business:</b> %s
<b>🎯 Campaign:</b> %s
<b>🏆 Reward:</b> %s
<b>📅 Until:</b> %s`,
		html.EscapeString(alert.BusinessName),
		html.EscapeString(alert.CampaignName),
		html.EscapeString(alert.RewardName),
		alert.EndsAt.Format("2006-01-02"),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}
