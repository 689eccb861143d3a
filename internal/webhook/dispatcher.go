package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/exitgpt/linerelay/internal/chat"
	"github.com/exitgpt/linerelay/internal/conversation"
)

// Fixed sampling parameters for reply generation.
const (
	completionTemperature float32 = 0.7
	completionMaxTokens           = 500
)

// Store calls get their own deadline: the per-event context is detached from
// the request and otherwise unbounded, and the pgx pool adds none of its own.
const storeOpTimeout = 30 * time.Second

// Completer generates a model reply for an ordered message list.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (chat.Result, error)
}

// ContextBuilder assembles the completion context for a user.
type ContextBuilder interface {
	Build(ctx context.Context, userID string) ([]chat.Message, error)
}

// TurnWriter appends finished turns to the conversation store.
type TurnWriter interface {
	AppendTurn(ctx context.Context, userID, role, content string) (conversation.Turn, error)
}

// ReplySender delivers a reply for a single-use reply token.
type ReplySender interface {
	ReplyMessage(ctx context.Context, replyToken, text string) error
}

// Dispatcher runs one actionable message end to end: build context, call the
// completion endpoint, persist the turn pair, send the reply. Failures never
// escape Dispatch; they are answered with a fixed apology on the same reply
// token, and a failed apology is only logged.
type Dispatcher struct {
	logger    *slog.Logger
	completer Completer
	contexts  ContextBuilder
	store     TurnWriter
	sender    ReplySender

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewDispatcher creates a Dispatcher over the given collaborators.
func NewDispatcher(log *slog.Logger, completer Completer, contexts ContextBuilder, store TurnWriter, sender ReplySender) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		logger:    log.With(slog.String("service", "dispatcher")),
		completer: completer,
		contexts:  contexts,
		store:     store,
		sender:    sender,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Dispatch handles one actionable message. Exactly one reply call is made
// per message: the generated text on success, the fixed apology otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, msg TextMessage) {
	if err := d.reply(ctx, msg); err != nil {
		d.logger.Error("dispatch failed",
			slog.String("user_id", msg.UserID),
			slog.Any("error", err),
		)
		if err := d.sender.ReplyMessage(ctx, msg.ReplyToken, chat.ErrorReply); err != nil {
			// The reply token may already be consumed or expired; nothing
			// further can be delivered to this user.
			d.logger.Error("fallback reply failed",
				slog.String("user_id", msg.UserID),
				slog.Any("error", err),
			)
		}
	}
}

func (d *Dispatcher) reply(ctx context.Context, msg TextMessage) error {
	buildCtx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	messages, err := d.contexts.Build(buildCtx, msg.UserID)
	cancel()
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	messages = append(messages, chat.Message{Role: chat.RoleUser, Content: msg.Text})

	temperature := completionTemperature
	maxTokens := completionMaxTokens
	result, err := d.completer.Complete(ctx, chat.Request{
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}

	replyText := strings.TrimSpace(result.Message.Content)
	if replyText == "" {
		replyText = chat.EmptyCompletionReply
	}

	if err := d.persistPair(ctx, msg.UserID, msg.Text, replyText); err != nil {
		return fmt.Errorf("persist turns: %w", err)
	}
	if err := d.sender.ReplyMessage(ctx, msg.ReplyToken, replyText); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// persistPair appends the user turn then the assistant turn under a per-user
// lock, so two racing requests for the same user cannot interleave their
// pairs. Distinct users never contend.
func (d *Dispatcher) persistPair(ctx context.Context, userID, userText, assistantText string) error {
	lock := d.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	if _, err := d.store.AppendTurn(ctx, userID, conversation.RoleUser, userText); err != nil {
		return err
	}
	if _, err := d.store.AppendTurn(ctx, userID, conversation.RoleAssistant, assistantText); err != nil {
		return err
	}
	return nil
}

// userLock returns the pair lock for a user id. Entries are never evicted;
// the map holds one lock per distinct user for the process lifetime, bounded
// by the channel's user base.
func (d *Dispatcher) userLock(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.userLocks[userID] = lock
	}
	return lock
}
