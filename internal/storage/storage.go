package storage

import (
	"context"
	"time"

	"github.com/xaenox/digest-bot/internal/models"
)

// MessageFilter narrows a FindMessages query. ChatName is matched by
// equality and is the only required field. A zero Since means no time
// bound, an empty Label means any label, and Limit 0 means unbounded.
type MessageFilter struct {
	ChatName string
	Label    string
	Since    time.Time
	Limit    int
}

// Storage persists archived messages. Implementations return results
// from FindMessages sorted newest first.
type Storage interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	FindMessages(ctx context.Context, filter MessageFilter) ([]models.Message, error)
	Close() error
}
