package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client sends messages through the LINE Messaging API.
type Client struct {
	logger             *slog.Logger
	apiBase            string
	channelAccessToken string
	httpClient         *http.Client
}

// NewClient creates a Messaging API client authenticated with the channel
// access token.
func NewClient(log *slog.Logger, apiBase, channelAccessToken string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if apiBase == "" {
		apiBase = "https://api.line.me/v2/bot"
	}
	apiBase = strings.TrimRight(apiBase, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:             log.With(slog.String("service", "line")),
		apiBase:            apiBase,
		channelAccessToken: channelAccessToken,
		httpClient:         &http.Client{Timeout: timeout},
	}
}

// Profile is a LINE user profile.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
	Language      string `json:"language,omitempty"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type flexMessage struct {
	Type     string         `json:"type"`
	AltText  string         `json:"altText"`
	Contents map[string]any `json:"contents"`
}

type templateAction struct {
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
	URI   string `json:"uri,omitempty"`
	Text  string `json:"text,omitempty"`
}

type buttonsTemplate struct {
	Type    string           `json:"type"`
	Text    string           `json:"text"`
	Actions []templateAction `json:"actions"`
}

type templateMessage struct {
	Type     string          `json:"type"`
	AltText  string          `json:"altText"`
	Template buttonsTemplate `json:"template"`
}

type replyPayload struct {
	ReplyToken string `json:"replyToken"`
	Messages   []any  `json:"messages"`
}

type pushPayload struct {
	To       string `json:"to"`
	Messages []any  `json:"messages"`
}

// ReplyMessage sends a text reply for a single-use reply token.
func (c *Client) ReplyMessage(ctx context.Context, replyToken, text string) error {
	return c.post(ctx, "/message/reply", replyPayload{
		ReplyToken: replyToken,
		Messages:   []any{textMessage{Type: "text", Text: text}},
	}, nil)
}

// PushMessage sends a text message directly to a user, outside the
// reply-token flow.
func (c *Client) PushMessage(ctx context.Context, userID, text string) error {
	return c.post(ctx, "/message/push", pushPayload{
		To:       userID,
		Messages: []any{textMessage{Type: "text", Text: text}},
	}, nil)
}

// PushFlexMessage pushes a flex message with the given contents to a user.
func (c *Client) PushFlexMessage(ctx context.Context, userID, altText string, contents map[string]any) error {
	return c.post(ctx, "/message/push", pushPayload{
		To:       userID,
		Messages: []any{flexMessage{Type: "flex", AltText: altText, Contents: contents}},
	}, nil)
}

// ReplyButtonTemplate replies with a buttons template containing a single
// URI action, used to open the LIFF app from a chat message.
func (c *Client) ReplyButtonTemplate(ctx context.Context, replyToken, text, buttonLabel, uri string) error {
	return c.post(ctx, "/message/reply", replyPayload{
		ReplyToken: replyToken,
		Messages: []any{templateMessage{
			Type:    "template",
			AltText: text,
			Template: buttonsTemplate{
				Type:    "buttons",
				Text:    text,
				Actions: []templateAction{{Type: "uri", Label: buttonLabel, URI: uri}},
			},
		}},
	}, nil)
}

// GetProfile fetches a user's profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/profile/"+url.PathEscape(userID), &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.channelAccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line api %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("line api %s: read response: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("line api %s: status %d: %s", req.URL.Path, resp.StatusCode, truncate(string(raw), 200))
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("line api %s: decode response: %w", req.URL.Path, err)
		}
	}
	return nil
}
