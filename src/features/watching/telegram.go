package watching

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the watching feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the watching feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes watch-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "watch":
		return h.send(bot, chatID, h.statusText())
	case "watch_start":
		return h.handleStart(bot, chatID, args)
	case "watch_pause":
		return h.handlePause(bot, chatID)
	default:
		return h.send(bot, chatID, "❌ Unknown watch command. Use /watch, /watch_start or /watch_pause")
	}
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"watch":       "Show watch status",
		"watch_start": "Start watching (optional: directory, defaults to the configured one)",
		"watch_pause": "Pause watching",
	}
}

// HandleCallback handles callback queries for this feature
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	switch callback.Data {
	case "watch_start":
		h.handleStart(bot, callback.Message.Chat.ID, "")
		return true
	case "watch_pause":
		h.handlePause(bot, callback.Message.Chat.ID)
		return true
	}
	return false
}

func (h *TelegramHandler) handleStart(bot *tgbotapi.BotAPI, chatID int64, args string) error {
	req := h.service.RequestFromConfig()
	if dir := strings.TrimSpace(args); dir != "" {
		req.Directory = dir
	}
	if err := h.service.Start(req); err != nil {
		return h.send(bot, chatID, "❌ "+startErrorMessage(err))
	}
	return h.send(bot, chatID, fmt.Sprintf("👀 Watching `%s` every %s", req.Directory, req.Interval))
}

func (h *TelegramHandler) handlePause(bot *tgbotapi.BotAPI, chatID int64) error {
	if err := h.service.Pause(); err != nil {
		return h.send(bot, chatID, "ℹ️ "+err.Error())
	}
	return h.send(bot, chatID, "⏸️ Watch paused")
}

func (h *TelegramHandler) statusText() string {
	status := h.service.Status()
	var b strings.Builder
	b.WriteString("*👀 Watch status*\n\n")
	fmt.Fprintf(&b, "State: `%s`\n", status.State)
	fmt.Fprintf(&b, "Status: %s\n", status.Board.Message)
	if status.Running {
		fmt.Fprintf(&b, "Next scan: %d%%\n", status.Board.Progress)
	}
	if status.Session != nil {
		fmt.Fprintf(&b, "Directory: `%s`\n", status.Session.Settings.Directory)
		fmt.Fprintf(&b, "Recipient: `%s`\n", status.Session.Settings.Recipient)
		fmt.Fprintf(&b, "Interval: %s\n", status.Interval)
		fmt.Fprintf(&b, "Since: %s\n", status.Session.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if a := status.Board.Activity; a != nil {
		fmt.Fprintf(&b, "Last change: `%s` at %s\n", a.Path, a.Timestamp.Format("15:04:05"))
	}
	return b.String()
}

func (h *TelegramHandler) send(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}
