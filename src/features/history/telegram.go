package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the history feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the history feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes history-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	limit := 5
	if n, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && n > 0 {
		limit = min(n, DefaultLimit)
	}
	records, err := h.service.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	totals, err := h.service.Totals(context.Background())
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*📬 Dispatch history*\n\nSent: %d · Failed: %d\n\n", totals.Sent, totals.Failed)
	if len(records) == 0 {
		b.WriteString("No files have been sent yet.")
	}
	for _, r := range records {
		icon := "✅"
		if r.Status == StatusFailed {
			icon = "❌"
		}
		fmt.Fprintf(&b, "%s %s → %s\n`%s`\n", icon, r.SentAt.Format("2006-01-02 15:04"), r.Recipient, strings.Join(r.Files, ", "))
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = bot.Send(msg)
	return err
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"history": "Show the latest dispatches (optional: how many)",
	}
}

// HandleCallback handles callback queries for this feature (history has no callbacks)
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	return false
}
