package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/digest-bot/internal/models"
	"github.com/xaenox/digest-bot/internal/storage"
	"github.com/xaenox/digest-bot/internal/tracker"
	"go.uber.org/zap"
)

type stubLabeler struct {
	label  string
	bodies []string
}

func (l *stubLabeler) Assign(ctx context.Context, body string) string {
	l.bodies = append(l.bodies, body)
	return l.label
}

func newTestArchiver(store storage.Storage) (*Archiver, *stubLabeler, *tracker.Tracker) {
	labeler := &stubLabeler{label: "events"}
	tr := tracker.New(zap.NewNop())
	return New(store, labeler, tr, zap.NewNop()), labeler, tr
}

func channelPost(chatID int64, title, text, caption string) tgbotapi.Update {
	return tgbotapi.Update{
		ChannelPost: &tgbotapi.Message{
			Chat:    &tgbotapi.Chat{ID: chatID, Title: title, Type: "channel"},
			Text:    text,
			Caption: caption,
			Date:    int(time.Now().Unix()),
		},
	}
}

func groupMessage(chatID int64, title, text string, from *tgbotapi.User) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID, Title: title, Type: "supergroup"},
			From: from,
			Text: text,
			Date: int(time.Now().Unix()),
		},
	}
}

func TestArchiveGroupMessage(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, labeler, _ := newTestArchiver(store)

	a.HandleUpdate(context.Background(), groupMessage(-100, "CS101", "Quiz Friday", &tgbotapi.User{FirstName: "Alice", LastName: "Smith"}))

	got, err := store.FindMessages(context.Background(), storage.MessageFilter{ChatName: "CS101"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ChatKindGroup, got[0].ChatKind)
	assert.Equal(t, "Alice Smith", got[0].Sender)
	assert.Equal(t, "Quiz Friday", got[0].Content)
	assert.Equal(t, "events", got[0].Label)
	assert.Equal(t, int64(-100), got[0].ChatID)
	assert.Equal(t, []string{"Quiz Friday"}, labeler.bodies)
}

func TestArchiveChannelPostUsesChannelTitleAsSender(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, _, _ := newTestArchiver(store)

	a.HandleUpdate(context.Background(), channelPost(-200, "Announcements", "Holiday schedule", ""))

	got, err := store.FindMessages(context.Background(), storage.MessageFilter{ChatName: "Announcements"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ChatKindChannel, got[0].ChatKind)
	assert.Equal(t, "Announcements", got[0].Sender)
}

func TestArchiveMediaOnlyPostStillLabeled(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, labeler, _ := newTestArchiver(store)

	a.HandleUpdate(context.Background(), channelPost(-200, "Announcements", "", ""))

	got, err := store.FindMessages(context.Background(), storage.MessageFilter{ChatName: "Announcements"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Content)
	assert.Equal(t, "events", got[0].Label)
	assert.Equal(t, []string{""}, labeler.bodies)
}

func TestArchiveCaptionFallback(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, _, _ := newTestArchiver(store)

	a.HandleUpdate(context.Background(), channelPost(-200, "Announcements", "", "Poster for the open day"))

	got, err := store.FindMessages(context.Background(), storage.MessageFilter{ChatName: "Announcements"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Poster for the open day", got[0].Content)
}

func TestArchiveIgnoresPrivateMessages(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, labeler, _ := newTestArchiver(store)

	a.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: 42, Type: "private"},
			From: &tgbotapi.User{FirstName: "Alice"},
			Text: "hello bot",
			Date: int(time.Now().Unix()),
		},
	})

	assert.Empty(t, labeler.bodies)
}

func TestArchiveIgnoresNonMessageUpdates(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, labeler, _ := newTestArchiver(store)

	a.HandleUpdate(context.Background(), tgbotapi.Update{})

	assert.Empty(t, labeler.bodies)
}

func TestArchiveRegistersChatWithTracker(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, _, tr := newTestArchiver(store)

	a.HandleUpdate(context.Background(), channelPost(-200, "Announcements", "hi", ""))

	chat, ok := tr.Chat(-200)
	require.True(t, ok)
	assert.Equal(t, "Announcements", chat.Title)
	assert.Equal(t, models.ChatKindChannel, chat.Kind)
}

func TestArchiveUnknownSender(t *testing.T) {
	store := storage.NewMemoryStorage()
	a, _, _ := newTestArchiver(store)

	a.HandleUpdate(context.Background(), groupMessage(-100, "CS101", "anonymous note", nil))

	got, err := store.FindMessages(context.Background(), storage.MessageFilter{ChatName: "CS101"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, UnknownSender, got[0].Sender)
}

type failingStore struct{}

func (failingStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	return errors.New("connection refused")
}

func (failingStore) FindMessages(ctx context.Context, filter storage.MessageFilter) ([]models.Message, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Close() error { return nil }

func TestArchiveStoreFailureDoesNotPanic(t *testing.T) {
	a, labeler, _ := newTestArchiver(failingStore{})

	a.HandleUpdate(context.Background(), groupMessage(-100, "CS101", "Quiz Friday", &tgbotapi.User{FirstName: "Alice"}))

	// Tagging ran; the failed insert is logged and dropped.
	assert.Equal(t, []string{"Quiz Friday"}, labeler.bodies)
}
