package briefing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/digest-bot/internal/llm"
	"github.com/xaenox/digest-bot/internal/models"
	"github.com/xaenox/digest-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	// NoDataMessage is returned when no messages with text matched
	// the requested window.
	NoDataMessage = "Nothing to summarize yet for this chat."
	// FailureMessage is returned when the generative service fails
	// or produces an empty summary.
	FailureMessage = "Sorry, I could not generate a summary. Please try again later."
)

const summaryPrompt = `Summarize the key points of the following chat messages in a few concise sentences.
Messages are listed newest first, one per line.

%s`

// Engine produces on-demand briefings of a chat's recent history.
type Engine struct {
	store     storage.Storage
	generator llm.Generator
	window    time.Duration
	limit     int
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(store storage.Storage, generator llm.Generator, window time.Duration, limit int, logger *zap.Logger) *Engine {
	if window <= 0 {
		window = models.BriefingWindow
	}
	if limit <= 0 {
		limit = models.BriefingLimit
	}
	return &Engine{
		store:     store,
		generator: generator,
		window:    window,
		limit:     limit,
		logger:    logger,
		now:       time.Now,
	}
}

// Brief summarizes the chat's recent messages. ModeWindow24h takes
// everything from the configured window with no count cap; ModeLast100
// takes the most recent messages with no time cap. The whole history
// goes into a single prompt with no chunking, so a very busy window
// can exceed the model's context; that is a known scaling limit.
func (e *Engine) Brief(ctx context.Context, chatName string, mode models.BriefingMode) string {
	filter := storage.MessageFilter{ChatName: chatName}
	switch mode {
	case models.ModeLast100:
		filter.Limit = e.limit
	default:
		filter.Since = e.now().Add(-e.window)
	}

	messages, err := e.store.FindMessages(ctx, filter)
	if err != nil {
		e.logger.Error("Failed to fetch messages for briefing",
			zap.Error(err),
			zap.String("chat", chatName),
			zap.String("mode", string(mode)))
		return FailureMessage
	}

	bodies := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		bodies = append(bodies, msg.Content)
	}

	if len(bodies) == 0 {
		return NoDataMessage
	}

	prompt := fmt.Sprintf(summaryPrompt, strings.Join(bodies, "\n"))
	summary, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Error("Failed to generate briefing",
			zap.Error(err),
			zap.String("chat", chatName),
			zap.Int("messages", len(bodies)))
		return FailureMessage
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		e.logger.Warn("Generator returned empty briefing",
			zap.String("chat", chatName))
		return FailureMessage
	}
	return summary
}
