package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/digest-bot/internal/models"
)

type MemoryStorage struct {
	mu       sync.RWMutex
	messages []models.Message
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MemoryStorage) FindMessages(ctx context.Context, filter MessageFilter) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Message
	for _, msg := range s.messages {
		if msg.ChatName != filter.ChatName {
			continue
		}
		if filter.Label != "" && msg.Label != filter.Label {
			continue
		}
		if !filter.Since.IsZero() && msg.CreatedAt.Before(filter.Since) {
			continue
		}
		result = append(result, msg)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
