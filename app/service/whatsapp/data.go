package whatsapp

import "context"

// Status describes what the WhatsApp Web surface currently shows.
type Status string

const (
	StatusNotRunning Status = "NOT_RUNNING" // Chrome debug endpoint unreachable
	StatusNoTab      Status = "NO_TAB"      // no WhatsApp Web tab open
	StatusQRRequired Status = "QR_REQUIRED"
	StatusLoading    Status = "LOADING"
	StatusOffline    Status = "OFFLINE"
	StatusConnected  Status = "CONNECTED"
	StatusUnknown    Status = "UNKNOWN"
)

// Unread is one chat with pending messages, as scraped from the chat list.
type Unread struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Message is the latest message of the open chat.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Direction string `json:"direction"` // "incoming" or "outgoing"
	Media     bool   `json:"media"`
}

// Browser is the coarse automation surface over WhatsApp Web. The DOM
// mechanics behind it are a collaborator concern; every caller must hold
// the Gate while using it.
type Browser interface {
	Status(ctx context.Context) (Status, error)
	UnreadChats(ctx context.Context) ([]Unread, error)
	ChatNames(ctx context.Context) ([]string, error)
	OpenChat(ctx context.Context, name string) error
	LatestMessage(ctx context.Context) (*Message, error)
}
