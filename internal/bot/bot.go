package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/digest-bot/internal/archive"
	"github.com/xaenox/digest-bot/internal/briefing"
	"github.com/xaenox/digest-bot/internal/models"
	"github.com/xaenox/digest-bot/internal/storage"
	"github.com/xaenox/digest-bot/internal/tracker"
	"go.uber.org/zap"
)

// Callback data is routed on "_" tokens: "toggle_<chatID>",
// "submit_selection" and "brief_<mode>_<chatID>". Chat IDs rather
// than titles go into callback data because titles may contain the
// delimiter; no escaping is performed.
const (
	actionToggle = "toggle"
	actionSubmit = "submit"
	actionBrief  = "brief"
)

type Bot struct {
	api           *tgbotapi.BotAPI
	store         storage.Storage
	archiver      *archive.Archiver
	briefings     *briefing.Engine
	tracker       *tracker.Tracker
	logger        *zap.Logger
	updateTimeout time.Duration
}

func New(token string, store storage.Storage, archiver *archive.Archiver, briefings *briefing.Engine, tr *tracker.Tracker, updateTimeout time.Duration, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	if updateTimeout <= 0 {
		updateTimeout = 60 * time.Second
	}

	return &Bot{
		api:           api,
		store:         store,
		archiver:      archiver,
		briefings:     briefings,
		tracker:       tr,
		logger:        logger,
		updateTimeout: updateTimeout,
	}, nil
}

// Start runs the long-poll loop. Updates are handled strictly one at
// a time so the propose/consolidate tagging sequence never interleaves.
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "channel_post", "callback_query", "my_chat_member"}

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))

	for update := range updates {
		b.handleUpdate(update)
	}

	return nil
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), b.updateTimeout)
	defer cancel()

	switch {
	case update.MyChatMember != nil:
		b.tracker.HandleMembershipUpdate(update.MyChatMember)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	default:
		b.archiver.HandleUpdate(ctx, update)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "chats":
		b.handleChats(message)
	case "selected":
		b.handleSelected(message)
	case "tags":
		b.handleTags(ctx, message)
	case "briefing":
		b.handleBriefing(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to DigestBot! 🗞
Add me to your groups, or make me an admin of your channels, and I'll archive their messages with topic tags.

Use /chats to pick which chats to follow, then /briefing for a summary of recent activity.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/chats - Select which tracked chats to follow
/selected - Show your current selection
/tags - Show topic tags seen in your selected chats
/briefing - Summarize recent activity in a selected chat

I archive every message from groups I'm in and channels I administrate, and tag each one by topic.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) selectionKeyboard(userID int64) tgbotapi.InlineKeyboardMarkup {
	chats := b.tracker.Chats()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(chats)+1)
	for _, chat := range chats {
		mark := "➖"
		if b.tracker.IsSelected(userID, chat.ID) {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", mark, chat.Title),
				fmt.Sprintf("%s_%d", actionToggle, chat.ID),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Submit", actionSubmit+"_selection"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleChats(message *tgbotapi.Message) {
	if len(b.tracker.Chats()) == 0 {
		b.sendMessage(message.Chat.ID, "No chats available. Add me to a group or channel first.")
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "Select chats:")
	msg.ReplyMarkup = b.selectionKeyboard(message.From.ID)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send chat selection",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleSelected(message *tgbotapi.Message) {
	selected := b.tracker.Selected(message.From.ID)
	if len(selected) == 0 {
		b.sendMessage(message.Chat.ID, "Woops, no chats selected. Use /chats first.")
		return
	}

	titles := make([]string, len(selected))
	for i, chat := range selected {
		titles[i] = chat.Title
	}
	b.sendMessage(message.Chat.ID, "Selected chats:\n"+strings.Join(titles, "\n"))
}

func (b *Bot) handleTags(ctx context.Context, message *tgbotapi.Message) {
	selected := b.tracker.Selected(message.From.ID)
	if len(selected) == 0 {
		b.sendMessage(message.Chat.ID, "Woops, no chats selected. Use /chats first.")
		return
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, chat := range selected {
		messages, err := b.store.FindMessages(ctx, storage.MessageFilter{ChatName: chat.Title})
		if err != nil {
			b.logger.Error("Failed to fetch messages for tags",
				zap.Error(err),
				zap.String("chat", chat.Title))
			b.sendMessage(message.Chat.ID, "Sorry, failed to retrieve tags. Please try again later.")
			return
		}
		for _, msg := range messages {
			if _, ok := seen[msg.Label]; ok {
				continue
			}
			seen[msg.Label] = struct{}{}
			tags = append(tags, msg.Label)
		}
	}

	if len(tags) == 0 {
		b.sendMessage(message.Chat.ID, "No tags yet in your selected chats.")
		return
	}

	response := "*Tags in your selected chats:*\n"
	for _, tag := range tags {
		formattedTag := "#" + strings.ReplaceAll(tag, " ", "_")
		response += escapeMarkdown(formattedTag) + "\n"
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, response)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send tags",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleBriefing(message *tgbotapi.Message) {
	selected := b.tracker.Selected(message.From.ID)
	if len(selected) == 0 {
		b.sendMessage(message.Chat.ID, "Woops, no chats selected. Use /chats first.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(selected))
	for _, chat := range selected {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s · last 24h", chat.Title),
				fmt.Sprintf("%s_%s_%d", actionBrief, models.ModeWindow24h, chat.ID),
			),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s · last 100", chat.Title),
				fmt.Sprintf("%s_%s_%d", actionBrief, models.ModeLast100, chat.ID),
			),
		))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "What should I summarize?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send briefing menu",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Error("Failed to answer callback query", zap.Error(err))
		}
	}()

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	action, value, _ := strings.Cut(query.Data, "_")
	switch action {
	case actionToggle:
		targetID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			b.logger.Warn("Bad toggle callback", zap.String("data", query.Data))
			return
		}
		b.tracker.Toggle(query.From.ID, targetID)

		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, query.Message.MessageID, b.selectionKeyboard(query.From.ID))
		if _, err := b.api.Send(edit); err != nil {
			b.logger.Error("Failed to update selection keyboard", zap.Error(err))
		}

	case actionSubmit:
		selected := b.tracker.Selected(query.From.ID)
		if len(selected) == 0 {
			b.editMessage(chatID, query.Message.MessageID, "No chats selected!")
			return
		}
		titles := make([]string, len(selected))
		for i, chat := range selected {
			titles[i] = chat.Title
		}
		b.editMessage(chatID, query.Message.MessageID, "✅ Selected chats:\n"+strings.Join(titles, "\n"))

	case actionBrief:
		modeStr, idStr, ok := strings.Cut(value, "_")
		if !ok {
			b.logger.Warn("Bad briefing callback", zap.String("data", query.Data))
			return
		}
		targetID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			b.logger.Warn("Bad briefing callback", zap.String("data", query.Data))
			return
		}
		chat, found := b.tracker.Chat(targetID)
		if !found {
			b.sendMessage(chatID, "I'm no longer tracking that chat.")
			return
		}

		mode := models.ModeWindow24h
		if models.BriefingMode(modeStr) == models.ModeLast100 {
			mode = models.ModeLast100
		}

		summary := b.briefings.Brief(ctx, chat.Title, mode)
		b.sendMessage(chatID, fmt.Sprintf("📋 %s:\n%s", chat.Title, summary))
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
