package webhook

import (
	"context"
	"sync"

	"github.com/exitgpt/linerelay/internal/chat"
	"github.com/exitgpt/linerelay/internal/conversation"
)

type fakeCompleter struct {
	mu      sync.Mutex
	results map[string]string // keyed by last user message content
	content string
	err     error
	errFor  map[string]bool
	calls   []chat.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req chat.Request) (chat.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	if f.err != nil {
		return chat.Result{}, f.err
	}
	if f.errFor != nil && f.errFor[last] {
		return chat.Result{}, errFailedCompletion
	}
	content := f.content
	if f.results != nil {
		if c, ok := f.results[last]; ok {
			content = c
		}
	}
	return chat.Result{Message: chat.Message{Role: chat.RoleAssistant, Content: content}}, nil
}

type fakeContextBuilder struct {
	mu        sync.Mutex
	messages  []chat.Message
	err       error
	deadlines []bool // per call: whether ctx carried a deadline
}

func (f *fakeContextBuilder) Build(ctx context.Context, userID string) ([]chat.Message, error) {
	f.mu.Lock()
	_, hasDeadline := ctx.Deadline()
	f.deadlines = append(f.deadlines, hasDeadline)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.messages != nil {
		return f.messages, nil
	}
	return []chat.Message{{Role: chat.RoleSystem, Content: chat.SystemPrompt}}, nil
}

type appendedTurn struct {
	userID      string
	role        string
	content     string
	hadDeadline bool
}

type fakeTurnWriter struct {
	mu    sync.Mutex
	turns []appendedTurn
	err   error
}

func (f *fakeTurnWriter) AppendTurn(ctx context.Context, userID, role, content string) (conversation.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return conversation.Turn{}, f.err
	}
	_, hasDeadline := ctx.Deadline()
	f.turns = append(f.turns, appendedTurn{userID: userID, role: role, content: content, hadDeadline: hasDeadline})
	return conversation.Turn{UserID: userID, Role: role, Content: content}, nil
}

type sentReply struct {
	replyToken string
	text       string
}

type fakeReplySender struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
	failN   int // fail the first N calls
}

func (f *fakeReplySender) ReplyMessage(ctx context.Context, replyToken, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.failN > 0 {
		f.failN--
		return errFailedReply
	}
	f.replies = append(f.replies, sentReply{replyToken: replyToken, text: text})
	return nil
}
