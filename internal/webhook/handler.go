package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/exitgpt/linerelay/internal/config"
	"github.com/exitgpt/linerelay/internal/line"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Line-Signature"

const maxBodyBytes int64 = 1 << 20 // 1 MiB

// EventDispatcher handles one actionable message without surfacing errors.
type EventDispatcher interface {
	Dispatch(ctx context.Context, msg TextMessage)
}

// Handler receives LINE webhook callbacks. Unauthenticated or malformed
// requests are rejected with 400; everything else is acknowledged with
// {"status":"ok"} regardless of per-event outcomes, so the platform never
// retry-storms on transient downstream failures.
type Handler struct {
	logger     *slog.Logger
	verifier   *line.SignatureVerifier
	dispatcher EventDispatcher

	secretConfigured bool
	tokenConfigured  bool
}

// NewHandler creates the webhook handler for the given channel credentials.
func NewHandler(log *slog.Logger, cfg config.LineConfig, dispatcher EventDispatcher) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		logger:           log.With(slog.String("handler", "webhook")),
		verifier:         line.NewSignatureVerifier(log, cfg.ChannelSecret),
		dispatcher:       dispatcher,
		secretConfigured: cfg.ChannelSecret != "",
		tokenConfigured:  cfg.ChannelAccessToken != "",
	}
}

// Register registers the webhook and health routes.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/webhook", h.Handle)
	e.GET("/health", h.Health)
}

// Handle processes one webhook request.
func (h *Handler) Handle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(body)) > maxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", maxBodyBytes))
	}

	if !h.verifier.Verify(body, c.Request().Header.Get(SignatureHeader)) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}

	// Downstream calls carry their own timeouts and should complete even if
	// the platform drops the connection; an unanswered reply token is wasted.
	ctx := context.WithoutCancel(c.Request().Context())
	for _, ev := range envelope.Events {
		msg, ok := classify(ev)
		if !ok {
			h.logger.Debug("event ignored",
				slog.String("event_type", ev.Type),
				slog.String("message_type", ev.Message.Type),
			)
			continue
		}
		h.dispatcher.Dispatch(ctx, msg)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type healthResponse struct {
	Status                  string `json:"status"`
	ChannelSecretConfigured bool   `json:"channel_secret_configured"`
	AccessTokenConfigured   bool   `json:"access_token_configured"`
}

// Health reports whether the channel credentials are configured. No auth, no
// side effects.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:                  "ok",
		ChannelSecretConfigured: h.secretConfigured,
		AccessTokenConfigured:   h.tokenConfigured,
	})
}
