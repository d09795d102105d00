package archive

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/xaenox/digest-bot/internal/models"
	"github.com/xaenox/digest-bot/internal/storage"
	"github.com/xaenox/digest-bot/internal/tracker"
	"go.uber.org/zap"
)

// UnknownSender is stored when no sender name can be resolved from
// the event.
const UnknownSender = "Unknown"

// Labeler assigns a topic label to a message body. It never fails;
// see the tagger package for the fallback semantics.
type Labeler interface {
	Assign(ctx context.Context, body string) string
}

// Archiver consumes inbound updates from tracked chats, labels them
// and writes message records. Everything that is not a channel post
// or a group/supergroup message is silently ignored.
type Archiver struct {
	store   storage.Storage
	labeler Labeler
	tracker *tracker.Tracker
	logger  *zap.Logger
}

func New(store storage.Storage, labeler Labeler, tr *tracker.Tracker, logger *zap.Logger) *Archiver {
	return &Archiver{
		store:   store,
		labeler: labeler,
		tracker: tr,
		logger:  logger,
	}
}

// eligible extracts the archivable message from an update, if any.
func eligible(update tgbotapi.Update) (*tgbotapi.Message, models.ChatKind, bool) {
	if post := update.ChannelPost; post != nil {
		return post, models.ChatKindChannel, true
	}
	if msg := update.Message; msg != nil && (msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()) {
		return msg, models.ChatKindGroup, true
	}
	return nil, "", false
}

func senderName(msg *tgbotapi.Message, kind models.ChatKind) string {
	if msg.From != nil {
		name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		if name != "" {
			return name
		}
		if msg.From.UserName != "" {
			return msg.From.UserName
		}
	}
	if kind == models.ChatKindChannel && msg.Chat.Title != "" {
		return msg.Chat.Title
	}
	return UnknownSender
}

func content(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	// Media messages carry their text as a caption; a bare media
	// message archives with empty content but still gets a label.
	return msg.Caption
}

// HandleUpdate archives a single inbound update. A store failure is
// logged and dropped so the event loop keeps going.
func (a *Archiver) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg, kind, ok := eligible(update)
	if !ok {
		return
	}

	a.tracker.Register(models.Chat{
		ID:    msg.Chat.ID,
		Title: msg.Chat.Title,
		Kind:  kind,
	})

	body := content(msg)
	label := a.labeler.Assign(ctx, body)

	record := &models.Message{
		ID:        uuid.New().String(),
		ChatName:  msg.Chat.Title,
		ChatID:    msg.Chat.ID,
		ChatKind:  kind,
		Sender:    senderName(msg, kind),
		Content:   body,
		Label:     label,
		CreatedAt: msg.Time().UTC(),
	}
	if record.CreatedAt.IsZero() || record.CreatedAt.Unix() <= 0 {
		record.CreatedAt = time.Now().UTC()
	}

	if err := a.store.SaveMessage(ctx, record); err != nil {
		a.logger.Error("Failed to archive message",
			zap.Error(err),
			zap.Int64("chat_id", record.ChatID),
			zap.String("chat", record.ChatName))
		return
	}

	a.logger.Debug("Archived message",
		zap.String("chat", record.ChatName),
		zap.String("label", record.Label))
}
