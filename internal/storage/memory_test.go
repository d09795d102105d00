package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/digest-bot/internal/models"
)

func save(t *testing.T, s Storage, chat, content, label string, createdAt time.Time) {
	t.Helper()
	err := s.SaveMessage(context.Background(), &models.Message{
		ChatName:  chat,
		ChatKind:  models.ChatKindGroup,
		Sender:    "Bob",
		Content:   content,
		Label:     label,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
}

func TestSaveMessageFillsIDAndTimestamp(t *testing.T) {
	s := NewMemoryStorage()
	msg := &models.Message{ChatName: "CS101", Label: "general"}

	require.NoError(t, s.SaveMessage(context.Background(), msg))

	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestFindMessagesFiltersByChatName(t *testing.T) {
	s := NewMemoryStorage()
	now := time.Now().UTC()
	save(t, s, "CS101", "quiz friday", "exams", now)
	save(t, s, "MATH200", "problem set", "homework", now)

	got, err := s.FindMessages(context.Background(), MessageFilter{ChatName: "CS101"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "quiz friday", got[0].Content)
}

func TestFindMessagesSortsNewestFirst(t *testing.T) {
	s := NewMemoryStorage()
	now := time.Now().UTC()
	save(t, s, "CS101", "oldest", "general", now.Add(-2*time.Hour))
	save(t, s, "CS101", "newest", "general", now)
	save(t, s, "CS101", "middle", "general", now.Add(-time.Hour))

	got, err := s.FindMessages(context.Background(), MessageFilter{ChatName: "CS101"})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "newest", got[0].Content)
	assert.Equal(t, "middle", got[1].Content)
	assert.Equal(t, "oldest", got[2].Content)
}

func TestFindMessagesSinceBound(t *testing.T) {
	s := NewMemoryStorage()
	now := time.Now().UTC()
	save(t, s, "CS101", "recent", "general", now.Add(-time.Hour))
	save(t, s, "CS101", "old", "general", now.Add(-25*time.Hour))

	got, err := s.FindMessages(context.Background(), MessageFilter{
		ChatName: "CS101",
		Since:    now.Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "recent", got[0].Content)
}

func TestFindMessagesLimitTakesNewest(t *testing.T) {
	s := NewMemoryStorage()
	now := time.Now().UTC()
	for i := 0; i < 10; i++ {
		save(t, s, "CS101", fmt.Sprintf("msg-%d", i), "general", now.Add(time.Duration(i)*time.Minute))
	}

	got, err := s.FindMessages(context.Background(), MessageFilter{ChatName: "CS101", Limit: 3})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "msg-9", got[0].Content)
	assert.Equal(t, "msg-7", got[2].Content)
}

func TestFindMessagesByLabel(t *testing.T) {
	s := NewMemoryStorage()
	now := time.Now().UTC()
	save(t, s, "CS101", "quiz friday", "exams", now)
	save(t, s, "CS101", "problem set", "homework", now)

	got, err := s.FindMessages(context.Background(), MessageFilter{ChatName: "CS101", Label: "exams"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "quiz friday", got[0].Content)
}
