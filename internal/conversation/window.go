package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/exitgpt/linerelay/internal/chat"
)

// DefaultWindowSize bounds how many stored turns seed a completion request.
const DefaultWindowSize = 10

// HistoryReader reads the recent conversation window for a user.
type HistoryReader interface {
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
}

// WindowBuilder assembles the ordered message list for a completion request:
// one system entry followed by the user's recent turns, oldest first.
type WindowBuilder struct {
	store        HistoryReader
	systemPrompt string
	limit        int
	logger       *slog.Logger
}

// NewWindowBuilder creates a WindowBuilder over the given history reader.
func NewWindowBuilder(log *slog.Logger, store HistoryReader, systemPrompt string, limit int) *WindowBuilder {
	if log == nil {
		log = slog.Default()
	}
	if limit <= 0 {
		limit = DefaultWindowSize
	}
	return &WindowBuilder{
		store:        store,
		systemPrompt: systemPrompt,
		limit:        limit,
		logger:       log.With(slog.String("service", "conversation_window")),
	}
}

// Build loads the user's recent turns and returns them as completion
// messages behind the system prompt. A store failure is returned to the
// caller; silently answering with no history would hide the degradation.
func (b *WindowBuilder) Build(ctx context.Context, userID string) ([]chat.Message, error) {
	turns, err := b.store.RecentTurns(ctx, userID, b.limit)
	if err != nil {
		return nil, fmt.Errorf("history unavailable: %w", err)
	}
	b.logger.Debug("loaded conversation window",
		slog.String("user_id", userID),
		slog.Int("turns", len(turns)),
	)

	messages := make([]chat.Message, 0, len(turns)+1)
	messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: b.systemPrompt})
	for _, t := range turns {
		messages = append(messages, chat.Message{Role: t.Role, Content: t.Content})
	}
	return messages, nil
}
