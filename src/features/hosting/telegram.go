package hosting

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/contre95/mailwatch/src/features/history"
	"github.com/contre95/mailwatch/src/features/watching"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramCommandHandler interface that each feature implements
type TelegramCommandHandler interface {
	HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error
	GetCommands() map[string]string                                             // Returns command -> description mapping
	HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool // Handle feature-specific callbacks
}

// TelegramBot handles Telegram bot operations
type TelegramBot struct {
	bot           *tgbotapi.BotAPI
	config        *config.Manager
	handlers      map[string]TelegramCommandHandler
	updates       tgbotapi.UpdatesChannel
	stopChan      chan struct{}
	pendingMu     sync.Mutex
	pendingInputs map[string]string // chatID_messageID -> callbackData
}

// NewTelegramBot creates a new Telegram bot instance
func NewTelegramBot(cfg *config.Manager, watchService *watching.Service, historyService *history.Service) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}

	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	// Set up update configuration
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := bot.GetUpdatesChan(updateConfig)

	telegramBot := newTelegramBot(bot, cfg, updates)

	// Register feature handlers
	telegramBot.RegisterHandler("watching", watching.NewTelegramHandler(watchService))
	telegramBot.RegisterHandler("history", history.NewTelegramHandler(historyService))
	telegramBot.RegisterHandler("config", config.NewTelegramHandler(cfg))

	return telegramBot, nil
}

func newTelegramBot(bot *tgbotapi.BotAPI, cfg *config.Manager, updates tgbotapi.UpdatesChannel) *TelegramBot {
	return &TelegramBot{
		bot:           bot,
		config:        cfg,
		handlers:      make(map[string]TelegramCommandHandler),
		updates:       updates,
		stopChan:      make(chan struct{}),
		pendingInputs: make(map[string]string),
	}
}

// RegisterHandler registers a feature's command handler
func (t *TelegramBot) RegisterHandler(feature string, handler TelegramCommandHandler) {
	t.handlers[feature] = handler
	slog.Debug("Registered Telegram handler", "feature", feature)
}

// Start begins listening for Telegram updates
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update := <-t.updates:
			if update.Message != nil {
				go t.handleMessage(update)
			}
			if update.CallbackQuery != nil {
				go t.handleCallbackQuery(update)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			return
		}
	}
}

// Stop gracefully stops the bot
func (t *TelegramBot) Stop() {
	t.bot.StopReceivingUpdates()
	close(t.stopChan)
}

// commandMap maps every bot command to the feature handling it
var commandMap = map[string]string{
	"watch":       "watching",
	"watch_start": "watching",
	"watch_pause": "watching",
	"history":     "history",
	"config":      "config",
}

// isAllowed reports whether username may control the watcher
func isAllowed(allowedUsers []string, username string) bool {
	return username != "" && slices.Contains(allowedUsers, username)
}

// displayName returns the username, or the full name when the user has none
func displayName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}

// handleMessage processes incoming messages
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	// Check if message is from authorized user
	allowedUsers := t.config.Get().Telegram.AllowedUsers
	if len(allowedUsers) == 0 {
		slog.Warn("No allowed users configured", "chat_id", chatID)
		t.sendMessage(chatID, "❌ Access denied: No users configured. Please add users to the config.")
		return
	}

	username := displayName(message.From)
	if !isAllowed(allowedUsers, username) {
		slog.Warn("Unauthorized user", "username", username, "chat_id", chatID)
		t.sendMessage(chatID, "Unknown user, please add your user to the config")
		return
	}

	// Handle commands
	if message.IsCommand() {
		t.handleCommand(update)
		return
	}

	// Check if this is a reply to one of our prompts
	if message.ReplyToMessage != nil {
		if t.handleReplyInput(message) {
			return // Reply was handled
		}
	}

	// Handle non-command messages
	t.sendMessage(chatID, "🤖 Send /menu or /help to see available options")
}

// handleCommand processes bot commands
func (t *TelegramBot) handleCommand(update tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID
	command := message.Command()
	args := message.CommandArguments()

	slog.Debug("Processing command", "command", command, "args", args, "chat_id", chatID)

	switch command {
	case "help", "start", "menu":
		t.handleHelp(chatID)
	default:
		// Route command to appropriate feature handler
		if err := t.routeCommand(command, args, chatID); err != nil {
			slog.Error("Failed to handle command", "command", command, "error", err)
			t.sendMessage(chatID, "❌ Failed to process command")
		}
	}
}

// routeCommand routes commands to the appropriate feature handler
func (t *TelegramBot) routeCommand(command, args string, chatID int64) error {
	feature, exists := commandMap[command]
	if !exists {
		t.sendMessage(chatID, "❌ Unknown command. Send /help to see available commands.")
		return nil
	}

	handler, exists := t.handlers[feature]
	if !exists {
		escapedFeature := escapeMarkdown(feature)
		t.sendMessage(chatID, fmt.Sprintf("❌ %s feature not available", escapedFeature))
		return nil
	}

	return handler.HandleCommand(t.bot, chatID, command, args)
}

// escapeMarkdown escapes special characters for safe Markdown usage
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"`", "\\`", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]",
	)
	return replacer.Replace(text)
}

// sendMessage sends a message to the specified chat
func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.bot.Send(msg)
	if err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}

// handleCallbackQuery handles callback queries from inline keyboards
func (t *TelegramBot) handleCallbackQuery(update tgbotapi.Update) {
	callback := update.CallbackQuery

	if !isAllowed(t.config.Get().Telegram.AllowedUsers, displayName(callback.From)) {
		slog.Warn("Unauthorized callback", "username", displayName(callback.From))
		t.bot.Request(tgbotapi.NewCallback(callback.ID, "Unknown user"))
		return
	}

	// Handle menu callbacks first
	if strings.HasPrefix(callback.Data, "menu_") {
		t.handleMenuCallback(callback)
		return
	}

	// Route callback to appropriate feature handler
	for _, handler := range t.handlers {
		if handler.HandleCallback(t.bot, callback) {
			break // Callback was handled
		}
	}

	// Answer callback to remove loading state
	callbackResp := tgbotapi.NewCallback(callback.ID, "")
	t.bot.Request(callbackResp)
}

// helpText lists every registered command, sorted
func (t *TelegramBot) helpText() string {
	var lines []string
	for _, handler := range t.handlers {
		for cmd, desc := range handler.GetCommands() {
			lines = append(lines, fmt.Sprintf("/%s - %s", escapeMarkdown(cmd), desc))
		}
	}
	slices.Sort(lines)
	return "*🤖 Mailwatch Main Menu*\n\n" + strings.Join(lines, "\n") + "\n\nChoose an action below or use commands directly:"
}

// handleHelp shows main menu with inline keyboard
func (t *TelegramBot) handleHelp(chatID int64) {
	buttons := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("👀 Status", "menu_watch"),
			tgbotapi.NewInlineKeyboardButtonData("📬 History", "menu_history"),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("▶️ Start", "watch_start"),
			tgbotapi.NewInlineKeyboardButtonData("📁 Start in...", "menu_watch_dir"),
			tgbotapi.NewInlineKeyboardButtonData("⏸️ Pause", "watch_pause"),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Config", "menu_config"),
		},
	}

	msg := tgbotapi.NewMessage(chatID, t.helpText())
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err := t.bot.Send(msg)
	if err != nil {
		slog.Error("Failed to send menu", "error", err, "chat_id", chatID)
	}
}

// handleMenuCallback handles main menu callback queries
func (t *TelegramBot) handleMenuCallback(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID

	// Answer callback to remove loading state
	callbackResp := tgbotapi.NewCallback(callback.ID, "")
	t.bot.Request(callbackResp)

	switch callback.Data {
	case "menu_watch":
		t.routeMenuCommand("watch", "", chatID)
	case "menu_history":
		t.routeMenuCommand("history", "", chatID)
	case "menu_config":
		t.routeMenuCommand("config", "", chatID)
	case "menu_back":
		t.handleHelp(chatID)
	case "menu_watch_dir":
		t.promptForInput(chatID, "📁 *Start watching*\n\nPlease reply with the directory to watch, like `/srv/drop`.\nRecipient, sender and interval come from the config.", "menu_watch_dir")
	}
}

// promptForInput sends a message that forces user to reply with input
func (t *TelegramBot) promptForInput(chatID int64, promptText, callbackData string) {
	msg := tgbotapi.NewMessage(chatID, promptText)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}

	sentMsg, err := t.bot.Send(msg)
	if err != nil {
		slog.Error("Failed to send prompt", "error", err)
		return
	}

	t.storePendingInput(chatID, sentMsg.MessageID, callbackData)
}

// storePendingInput stores information about pending user input
func (t *TelegramBot) storePendingInput(chatID int64, messageID int, callbackData string) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	key := fmt.Sprintf("%d_%d", chatID, messageID)
	t.pendingInputs[key] = callbackData
}

// takePendingInput returns and forgets the prompt a reply answers
func (t *TelegramBot) takePendingInput(chatID int64, messageID int) (string, bool) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	key := fmt.Sprintf("%d_%d", chatID, messageID)
	callbackData, exists := t.pendingInputs[key]
	delete(t.pendingInputs, key)
	return callbackData, exists
}

// handleReplyInput handles replies to our input prompts
func (t *TelegramBot) handleReplyInput(message *tgbotapi.Message) bool {
	callbackData, exists := t.takePendingInput(message.Chat.ID, message.ReplyToMessage.MessageID)
	if !exists {
		return false // Not a reply to our prompt
	}

	switch callbackData {
	case "menu_watch_dir":
		t.routeMenuCommand("watch_start", strings.TrimSpace(message.Text), message.Chat.ID)
	default:
		return false
	}
	return true
}

// routeMenuCommand routes menu selections to appropriate feature handlers
func (t *TelegramBot) routeMenuCommand(command, args string, chatID int64) {
	if err := t.routeCommand(command, args, chatID); err != nil {
		slog.Error("Failed to handle menu command", "command", command, "error", err)
		t.sendMessage(chatID, "❌ Failed to process menu selection")
	}
}
