package tagger

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/digest-bot/internal/llm"
	"go.uber.org/zap"
)

// FallbackLabel is assigned when the generative service fails or
// returns nothing usable. Tagging never reports an error to the
// caller: archiving must not be blocked by a tagging fault.
const FallbackLabel = "unknown"

const proposePrompt = `You are labeling chat messages by topic.
Reply with a single short topic tag (one or two words, lowercase) that best describes the following message.
Reply with the tag only, no punctuation or explanation.

Message: %s`

const consolidatePrompt = `You are consolidating topic tags for chat messages.
A new message was tagged %q. The existing tags are: %s.
If one of the existing tags means essentially the same topic, reply with that existing tag exactly as written.
Otherwise reply with %q unchanged.
Reply with the tag only, no punctuation or explanation.`

// Consolidator maps a freshly proposed label onto a semantically
// equivalent existing one, or returns the candidate unchanged. The
// default implementation delegates the similarity judgment to the
// generative service; a local embedding-based matcher can replace it
// without touching the Tagger contract.
type Consolidator interface {
	Consolidate(ctx context.Context, candidate string, vocabulary []string) (string, error)
}

type llmConsolidator struct {
	generator llm.Generator
}

func (c *llmConsolidator) Consolidate(ctx context.Context, candidate string, vocabulary []string) (string, error) {
	prompt := fmt.Sprintf(consolidatePrompt, candidate, strings.Join(vocabulary, ", "), candidate)
	return c.generator.Generate(ctx, prompt)
}

// Tagger assigns a single topic label to a message body, reusing
// labels from the shared vocabulary where the consolidator judges a
// new candidate to mean the same topic.
type Tagger struct {
	generator    llm.Generator
	consolidator Consolidator
	vocabulary   *Vocabulary
	logger       *zap.Logger
}

func New(generator llm.Generator, vocabulary *Vocabulary, logger *zap.Logger) *Tagger {
	return &Tagger{
		generator:    generator,
		consolidator: &llmConsolidator{generator: generator},
		vocabulary:   vocabulary,
		logger:       logger,
	}
}

// NewWithConsolidator swaps in a custom consolidation policy.
func NewWithConsolidator(generator llm.Generator, consolidator Consolidator, vocabulary *Vocabulary, logger *zap.Logger) *Tagger {
	return &Tagger{
		generator:    generator,
		consolidator: consolidator,
		vocabulary:   vocabulary,
		logger:       logger,
	}
}

// Assign runs the two-stage propose/consolidate sequence and records
// the final label in the vocabulary. Each stage gets exactly one
// attempt; any fault yields FallbackLabel.
func (t *Tagger) Assign(ctx context.Context, body string) string {
	candidate, err := t.generator.Generate(ctx, fmt.Sprintf(proposePrompt, body))
	if err != nil {
		t.logger.Error("Failed to propose label", zap.Error(err))
		return FallbackLabel
	}
	candidate = Canonical(candidate)
	if candidate == "" {
		t.logger.Warn("Propose stage returned empty label")
		return FallbackLabel
	}

	label := candidate
	if vocab := t.vocabulary.Snapshot(); len(vocab) > 0 {
		consolidated, err := t.consolidator.Consolidate(ctx, candidate, vocab)
		if err != nil {
			t.logger.Error("Failed to consolidate label",
				zap.Error(err),
				zap.String("candidate", candidate))
			return FallbackLabel
		}
		consolidated = Canonical(consolidated)
		if consolidated == "" {
			t.logger.Warn("Consolidate stage returned empty label",
				zap.String("candidate", candidate))
			return FallbackLabel
		}
		label = consolidated
	}

	if t.vocabulary.Add(label) {
		t.logger.Info("New label minted",
			zap.String("label", label),
			zap.Int("vocabulary_size", t.vocabulary.Len()))
	}
	return label
}
