package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/exitgpt/linerelay/internal/config"
	"github.com/exitgpt/linerelay/internal/line"
)

const testSecret = "test-channel-secret"

func signedRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(SignatureHeader, line.Sign(testSecret, []byte(body)))
	return req
}

func newTestHandler(completer *fakeCompleter, store *fakeTurnWriter, sender *fakeReplySender) *Handler {
	dispatcher := NewDispatcher(nil, completer, &fakeContextBuilder{}, store, sender)
	return NewHandler(nil, config.LineConfig{
		ChannelSecret:      testSecret,
		ChannelAccessToken: "test-token",
	}, dispatcher)
}

func TestHandler_ActionableEvent(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{content: "generated text"}
	store := &fakeTurnWriter{}
	sender := &fakeReplySender{}
	h := newTestHandler(completer, store, sender)

	body := `{"events":[{"type":"message","replyToken":"rt-1","source":{"type":"user","userId":"U1"},"message":{"id":"m1","type":"text","text":"hello"}}]}`
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(body), rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	if len(store.turns) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(store.turns))
	}
	if store.turns[0].userID != "U1" || store.turns[0].content != "hello" {
		t.Fatalf("unexpected user turn: %+v", store.turns[0])
	}
	if store.turns[1].content != "generated text" {
		t.Fatalf("unexpected assistant turn: %+v", store.turns[1])
	}
	if len(sender.replies) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(sender.replies))
	}
	if sender.replies[0].replyToken != "rt-1" || sender.replies[0].text != "generated text" {
		t.Fatalf("unexpected reply: %+v", sender.replies[0])
	}
}

func TestHandler_CompletionFailure(t *testing.T) {
	t.Parallel()

	store := &fakeTurnWriter{}
	sender := &fakeReplySender{}
	h := newTestHandler(&fakeCompleter{err: errFailedCompletion}, store, sender)

	body := `{"events":[{"type":"message","replyToken":"rt-1","source":{"userId":"U1"},"message":{"type":"text","text":"hello"}}]}`
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(body), rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Downstream failure is invisible to the platform.
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(store.turns) != 0 {
		t.Fatalf("expected no persisted turns, got %d", len(store.turns))
	}
	if len(sender.replies) != 1 || !strings.Contains(sender.replies[0].text, "申し訳ございません") {
		t.Fatalf("expected one apology reply, got %+v", sender.replies)
	}
}

func TestHandler_InvalidSignature(t *testing.T) {
	t.Parallel()

	store := &fakeTurnWriter{}
	sender := &fakeReplySender{}
	h := newTestHandler(&fakeCompleter{content: "x"}, store, sender)

	body := `{"events":[]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(SignatureHeader, "bogus-signature")
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Handle(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if len(store.turns) != 0 || len(sender.replies) != 0 {
		t.Fatal("rejected request must have no side effects")
	}
}

func TestHandler_InvalidJSON(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeCompleter{content: "x"}, &fakeTurnWriter{}, &fakeReplySender{})

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest("{not json"), rec)

	err := h.Handle(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_EmptyEventList(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeCompleter{content: "x"}, &fakeTurnWriter{}, &fakeReplySender{})

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(`{"events":[]}`), rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestHandler_IgnoredEventsProduceNoCalls(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{content: "x"}
	store := &fakeTurnWriter{}
	sender := &fakeReplySender{}
	h := newTestHandler(completer, store, sender)

	body := `{"events":[
		{"type":"follow","replyToken":"rt-1","source":{"userId":"U1"}},
		{"type":"message","replyToken":"rt-2","source":{"userId":"U1"},"message":{"type":"sticker"}},
		{"type":"message","replyToken":"","source":{"userId":"U1"},"message":{"type":"text","text":"hi"}}
	]}`
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(body), rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(completer.calls) != 0 || len(store.turns) != 0 || len(sender.replies) != 0 {
		t.Fatal("ignored events must trigger no downstream calls")
	}
}

func TestHandler_PartialBatchFailure(t *testing.T) {
	t.Parallel()

	// Two actionable events for different users; the second one's completion
	// fails. Both users still get exactly one reply each.
	completer := &fakeCompleter{
		results: map[string]string{"q-alice": "a-alice"},
		errFor:  map[string]bool{"q-bob": true},
	}
	store := &fakeTurnWriter{}
	sender := &fakeReplySender{}
	h := newTestHandler(completer, store, sender)

	body := `{"events":[
		{"type":"message","replyToken":"rt-alice","source":{"userId":"U-alice"},"message":{"type":"text","text":"q-alice"}},
		{"type":"message","replyToken":"rt-bob","source":{"userId":"U-bob"},"message":{"type":"text","text":"q-bob"}}
	]}`
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(signedRequest(body), rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	if len(sender.replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(sender.replies))
	}
	byToken := map[string]string{}
	for _, r := range sender.replies {
		byToken[r.replyToken] = r.text
	}
	if byToken["rt-alice"] != "a-alice" {
		t.Fatalf("alice should get the generated text, got %q", byToken["rt-alice"])
	}
	if !strings.Contains(byToken["rt-bob"], "申し訳ございません") {
		t.Fatalf("bob should get the apology, got %q", byToken["rt-bob"])
	}
	// Only the successful event persisted its pair.
	if len(store.turns) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(store.turns))
	}
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  config.LineConfig
		want string
	}{
		{
			name: "nothing configured",
			cfg:  config.LineConfig{},
			want: `"channel_secret_configured":false,"access_token_configured":false`,
		},
		{
			name: "fully configured",
			cfg:  config.LineConfig{ChannelSecret: "s", ChannelAccessToken: "t"},
			want: `"channel_secret_configured":true,"access_token_configured":true`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(nil, tc.cfg, nil)
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

			if err := h.Health(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status: %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `"status":"ok"`) || !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}

func TestHandler_NoSecretAcceptsUnsigned(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{content: "answer"}
	store := &fakeTurnWriter{}
	sender := &fakeReplySender{}
	dispatcher := NewDispatcher(nil, completer, &fakeContextBuilder{}, store, sender)
	h := NewHandler(nil, config.LineConfig{ChannelAccessToken: "t"}, dispatcher)

	body := `{"events":[{"type":"message","replyToken":"rt-1","source":{"userId":"U1"},"message":{"type":"text","text":"hello"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if len(sender.replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(sender.replies))
	}
}
