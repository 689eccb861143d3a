// Package webhook receives LINE Messaging API callbacks and dispatches
// actionable text messages to the completion pipeline.
package webhook

// Envelope is the webhook request body: an ordered list of platform events.
type Envelope struct {
	Destination string  `json:"destination,omitempty"`
	Events      []Event `json:"events"`
}

// Event is one entry of the webhook envelope. Only text message events are
// acted on; every other variant is dropped.
type Event struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken,omitempty"`
	Timestamp  int64        `json:"timestamp,omitempty"`
	Source     EventSource  `json:"source,omitempty"`
	Message    EventMessage `json:"message,omitempty"`
}

// EventSource identifies the sender of an event.
type EventSource struct {
	Type    string `json:"type,omitempty"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

// EventMessage is the message part of a message event.
type EventMessage struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// TextMessage is an inbound event that requires a reply: a plain text
// message with sender, single-use reply token, and non-empty text.
type TextMessage struct {
	UserID     string
	ReplyToken string
	Text       string
}

// classify extracts the actionable text message from an event. Events of
// other types, non-text messages, and message events with a missing user id,
// reply token, or text are all dropped rather than treated as errors; a
// reply token is single-use, so half-formed events must never reach the
// reply path.
func classify(ev Event) (TextMessage, bool) {
	if ev.Type != "message" || ev.Message.Type != "text" {
		return TextMessage{}, false
	}
	msg := TextMessage{
		UserID:     ev.Source.UserID,
		ReplyToken: ev.ReplyToken,
		Text:       ev.Message.Text,
	}
	if msg.UserID == "" || msg.ReplyToken == "" || msg.Text == "" {
		return TextMessage{}, false
	}
	return msg, true
}
