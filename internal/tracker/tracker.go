package tracker

import (
	"sort"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/digest-bot/internal/models"
	"go.uber.org/zap"
)

// Tracker maintains the set of chats the bot currently participates
// in, fed by my_chat_member updates, plus each user's ephemeral
// selection of chats for briefings and tag browsing.
type Tracker struct {
	mu         sync.RWMutex
	chats      map[int64]models.Chat
	selections map[int64]map[int64]struct{}
	logger     *zap.Logger
}

func New(logger *zap.Logger) *Tracker {
	return &Tracker{
		chats:      make(map[int64]models.Chat),
		selections: make(map[int64]map[int64]struct{}),
		logger:     logger,
	}
}

// memberStatuses that count as "in the chat".
func isMember(member tgbotapi.ChatMember) bool {
	switch member.Status {
	case "member", "administrator", "creator":
		return true
	case "restricted":
		return member.IsMember
	}
	return false
}

// HandleMembershipUpdate registers or forgets a chat based on the
// bot's own membership transition. Private chats are ignored.
func (t *Tracker) HandleMembershipUpdate(update *tgbotapi.ChatMemberUpdated) {
	if update == nil || update.Chat.IsPrivate() {
		return
	}

	was := isMember(update.OldChatMember)
	is := isMember(update.NewChatMember)
	if was == is {
		return
	}

	kind := models.ChatKindGroup
	if update.Chat.IsChannel() {
		kind = models.ChatKindChannel
	}

	if is {
		t.Register(models.Chat{ID: update.Chat.ID, Title: update.Chat.Title, Kind: kind})
		t.logger.Info("Bot added to chat",
			zap.Int64("chat_id", update.Chat.ID),
			zap.String("title", update.Chat.Title),
			zap.String("kind", string(kind)))
		return
	}

	t.mu.Lock()
	delete(t.chats, update.Chat.ID)
	for _, sel := range t.selections {
		delete(sel, update.Chat.ID)
	}
	t.mu.Unlock()
	t.logger.Info("Bot removed from chat",
		zap.Int64("chat_id", update.Chat.ID),
		zap.String("title", update.Chat.Title))
}

// Register adds a chat to the known set, refreshing the stored title.
// Channel posts arrive without a membership update when the bot was
// made admin before startup, so the archiver also registers chats it
// sees posts from.
func (t *Tracker) Register(chat models.Chat) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chats[chat.ID] = chat
}

// Chats returns the known chats ordered by title.
func (t *Tracker) Chats() []models.Chat {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Chat, 0, len(t.chats))
	for _, chat := range t.chats {
		out = append(out, chat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (t *Tracker) Chat(id int64) (models.Chat, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	chat, ok := t.chats[id]
	return chat, ok
}

// Toggle flips a chat in the user's selection set and reports whether
// it is selected afterwards.
func (t *Tracker) Toggle(userID, chatID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	sel, ok := t.selections[userID]
	if !ok {
		sel = make(map[int64]struct{})
		t.selections[userID] = sel
	}
	if _, selected := sel[chatID]; selected {
		delete(sel, chatID)
		return false
	}
	sel[chatID] = struct{}{}
	return true
}

func (t *Tracker) IsSelected(userID, chatID int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.selections[userID][chatID]
	return ok
}

// Selected returns the user's selected chats ordered by title,
// silently skipping chats the bot has since left.
func (t *Tracker) Selected(userID int64) []models.Chat {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Chat, 0, len(t.selections[userID]))
	for chatID := range t.selections[userID] {
		if chat, ok := t.chats[chatID]; ok {
			out = append(out, chat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}
