package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sam/app/ui"

	"github.com/elliotchance/pie/v2"
	"github.com/sahilm/fuzzy"
	"github.com/samber/do"
)

const setupSettleDelay = 2 * time.Second

// Assistant exposes the coarse WhatsApp operations: summarize unread, open a
// chat by fuzzy name, read the open chat, stage a reply target. Callers hold
// the Gate for the duration of each operation.
type Assistant struct {
	browser Browser
	voice   ui.Voice

	mu          sync.Mutex
	unreadCache []Unread
	currentChat string
}

func NewAssistant(di *do.Injector) (*Assistant, error) {
	return &Assistant{
		browser: do.MustInvoke[Browser](di),
		voice:   do.MustInvoke[ui.Voice](di),
	}, nil
}

// SummarizeUnread walks the setup staircase (Chrome running, tab present,
// logged in) and then reads out the unread chats.
func (a *Assistant) SummarizeUnread(ctx context.Context, sink ui.Sink) error {
	status, err := a.browser.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to check WhatsApp state: %w", err)
	}

	switch status {
	case StatusNotRunning:
		a.voice.Say(ctx, "Sir, I need Chrome running with remote debugging to access WhatsApp Web. Please start it and tell me when you're ready.", sink)
		return nil
	case StatusNoTab:
		a.voice.Say(ctx, "Sir, I cannot find the WhatsApp Web tab. Please open web.whatsapp.com and scan the QR code if needed.", sink)
		return nil
	case StatusQRRequired:
		a.voice.Say(ctx, "Sir, WhatsApp Web is asking for a QR scan. Please scan it, then tell me when you're ready.", sink)
		return nil
	case StatusLoading:
		a.voice.Say(ctx, "Sir, WhatsApp Web is still loading. Give it a moment and tell me when you're ready.", sink)
		return nil
	case StatusOffline, StatusUnknown:
		a.voice.Say(ctx, "Sir, I encountered an issue accessing WhatsApp Web. Please ensure you're logged in and try again.", sink)
		return nil
	}

	a.voice.Say(ctx, "Sir, checking your WhatsApp messages...", sink)

	unread, err := a.browser.UnreadChats(ctx)
	if err != nil {
		a.voice.Say(ctx, "Sir, I encountered an issue accessing WhatsApp Web. Please ensure you're logged in and try again.", sink)
		return nil
	}

	a.mu.Lock()
	a.unreadCache = unread
	a.mu.Unlock()

	count := len(unread)
	switch {
	case count == 0:
		a.voice.Say(ctx, "Sir, you have no unread messages.", sink)
	case count == 1:
		item := unread[0]
		a.voice.Say(ctx, fmt.Sprintf("Sir, you have 1 unread message from %s: %s", item.Name, item.Message), sink)
	default:
		a.voice.Say(ctx, fmt.Sprintf("Sir, you have %d unread messages. Here are the most recent:", count), sink)

		shown := unread
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for i, item := range shown {
			a.voice.Say(ctx, fmt.Sprintf("%d. %s says: %s", i+1, item.Name, item.Message), sink)
		}

		if remaining := count - len(shown); remaining > 0 {
			a.voice.Say(ctx, fmt.Sprintf("And %d more. Say 'reply to a name' to continue.", remaining), sink)
		} else {
			a.voice.Say(ctx, "Would you like me to reply to any of these?", sink)
		}
	}

	return nil
}

// ContinueAfterSetup resumes the unread check once the user confirms the QR
// scan is done.
func (a *Assistant) ContinueAfterSetup(ctx context.Context, sink ui.Sink) error {
	a.voice.Say(ctx, "Sir, let me check your messages now...", sink)

	// give WhatsApp Web a moment to finish loading after the scan
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(setupSettleDelay):
	}

	return a.SummarizeUnread(ctx, sink)
}

// OpenChat opens the chat best matching query, suggesting alternatives when
// the match is ambiguous.
func (a *Assistant) OpenChat(ctx context.Context, query string, sink ui.Sink) (bool, error) {
	names, err := a.browser.ChatNames(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list chats: %w", err)
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		a.voice.Say(ctx, "Sir, I could not find that chat.", sink)
		return false, nil
	}

	best := names[matches[0].Index]

	if err = a.browser.OpenChat(ctx, best); err != nil {
		slog.Warn("Failed to open chat", "chat", best, "error", err)

		if len(matches) > 1 {
			options := make([]string, 0, 3)
			for _, m := range matches[1:] {
				options = append(options, names[m.Index])
				if len(options) == 3 {
					break
				}
			}
			a.voice.Say(ctx, "Sir, I found multiple similar names. Did you mean: "+strings.Join(options, ", ")+"?", sink)
			return false, nil
		}

		a.voice.Say(ctx, "Sir, I could not find that chat.", sink)
		return false, nil
	}

	a.mu.Lock()
	a.currentChat = best
	a.mu.Unlock()

	a.voice.Say(ctx, fmt.Sprintf("Opening %s, Sir.", best), sink)

	return true, nil
}

// ReadCurrentChat reads the latest message of the open chat aloud.
func (a *Assistant) ReadCurrentChat(ctx context.Context, sink ui.Sink) (*Message, error) {
	message, err := a.browser.LatestMessage(ctx)
	if err != nil || message == nil {
		a.voice.Say(ctx, "Sir, I could not read the message.", sink)
		return nil, err
	}

	switch {
	case message.Direction == "outgoing":
		a.voice.Say(ctx, "Sir, the last message in this chat was sent by you.", sink)
	case message.Media:
		a.voice.Say(ctx, fmt.Sprintf("Sir, the last message from %s was media content.", message.Sender), sink)
	default:
		a.voice.Say(ctx, fmt.Sprintf("Sir, %s says: %s", message.Sender, message.Text), sink)
	}

	return message, nil
}

// ReplyToContact locates an unread message from the named contact, opens the
// chat, and returns the message for drafting. Nil means nothing to reply to
// (already reported to the user).
func (a *Assistant) ReplyToContact(ctx context.Context, contactName string, sink ui.Sink) (*Message, error) {
	a.mu.Lock()
	cache := a.unreadCache
	a.mu.Unlock()

	if len(cache) == 0 {
		a.voice.Say(ctx, "Sir, there are no unread messages to reply to.", sink)
		return nil, nil
	}

	idx := pie.FindFirstUsing(cache, func(item Unread) bool {
		return strings.Contains(strings.ToLower(item.Name), strings.ToLower(contactName))
	})
	if idx < 0 {
		a.voice.Say(ctx, fmt.Sprintf("Sir, I could not find an unread message from %s.", contactName), sink)
		return nil, nil
	}

	target := cache[idx]

	if err := a.browser.OpenChat(ctx, target.Name); err != nil {
		a.voice.Say(ctx, fmt.Sprintf("Sir, I could not open the chat with %s.", target.Name), sink)
		return nil, nil
	}

	a.mu.Lock()
	a.currentChat = target.Name
	a.mu.Unlock()

	return &Message{
		Sender:    target.Name,
		Text:      target.Message,
		Direction: "incoming",
	}, nil
}

func (a *Assistant) CurrentChat() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.currentChat
}
