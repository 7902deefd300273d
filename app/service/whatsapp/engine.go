package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sam/app/config"
	"sam/app/ui"

	"github.com/atotto/clipboard"
	"github.com/samber/do"
)

// ReplyEngine runs the draft-and-confirm flow: read the incoming message,
// propose a reply, and wait for the user to send, edit, or cancel it.
// Confirmed drafts land on the clipboard for manual pasting; the engine never
// sends on its own.
type ReplyEngine struct {
	browser Browser
	drafter Drafter
	voice   ui.Voice

	drafts DraftController
}

func NewReplyEngine(di *do.Injector) (*ReplyEngine, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &ReplyEngine{
		browser: do.MustInvoke[Browser](di),
		drafter: NewDrafter(cfg),
		voice:   do.MustInvoke[ui.Voice](di),
	}, nil
}

// HandleReplyFlow drafts a reply to the latest message of the open chat.
func (e *ReplyEngine) HandleReplyFlow(ctx context.Context, sink ui.Sink) error {
	message, err := e.browser.LatestMessage(ctx)
	if err != nil || message == nil {
		e.voice.Say(ctx, "Sir, I could not detect a message.", sink)
		return err
	}

	if message.Direction == "outgoing" {
		e.voice.Say(ctx, "Sir, the latest message was sent by you.", sink)
		return nil
	}

	if message.Text == "" {
		e.voice.Say(ctx, "Sir, the last message is media content.", sink)
		return nil
	}

	e.voice.Say(ctx, fmt.Sprintf("Sir, %s says: %s", message.Sender, message.Text), sink)

	return e.ProposeReply(ctx, message, sink)
}

// ProposeReply drafts a reply for the message and announces it for
// confirmation.
func (e *ReplyEngine) ProposeReply(ctx context.Context, message *Message, sink ui.Sink) error {
	draft, err := e.drafter.Draft(ctx, message.Sender, message.Text)
	if err != nil {
		slog.Error("Reply drafting failed", "error", err)
		e.voice.Say(ctx, "Sir, I could not generate a reply.", sink)
		return nil
	}

	if draft == "" {
		draft = "Understood. I will respond shortly."
	}

	e.drafts.Set(message.Sender, draft)

	if IsSensitive(message.Text) || IsSensitive(draft) {
		e.voice.Say(ctx, fmt.Sprintf("Sir, this appears to be a sensitive message. Here is my proposed reply: %s. Say 'send it', 'edit', or 'cancel'.", draft), sink)
	} else {
		e.voice.Say(ctx, fmt.Sprintf("Sir, here is my proposed reply to %s: %s. Say 'send it', 'edit', or 'cancel'.", message.Sender, draft), sink)
	}

	return nil
}

// ConfirmSend copies the pending draft to the clipboard for manual pasting.
func (e *ReplyEngine) ConfirmSend(ctx context.Context, sink ui.Sink) error {
	draft := e.drafts.Get()
	if draft == nil {
		e.voice.Say(ctx, "Sir, there is no pending reply to send.", sink)
		return nil
	}

	if err := clipboard.WriteAll(draft.Text); err != nil {
		slog.Error("Failed to copy draft to clipboard", "error", err)
		e.voice.Say(ctx, "Sir, I failed to copy the reply to clipboard.", sink)
		return nil
	}

	e.voice.Say(ctx, fmt.Sprintf("Sir, reply to %s copied to clipboard. You may paste and send manually.", draft.Receiver), sink)
	e.drafts.Clear()

	return nil
}

// CancelReply discards the pending draft.
func (e *ReplyEngine) CancelReply(ctx context.Context, sink ui.Sink) error {
	if !e.drafts.HasPending() {
		e.voice.Say(ctx, "Sir, there is no pending reply to cancel.", sink)
		return nil
	}

	e.drafts.Clear()
	e.voice.Say(ctx, "Understood, Sir. Draft discarded.", sink)

	return nil
}

// EditReply replaces the draft text, or re-announces it when no new text was
// provided.
func (e *ReplyEngine) EditReply(ctx context.Context, newText string, sink ui.Sink) error {
	draft := e.drafts.Get()
	if draft == nil {
		e.voice.Say(ctx, "Sir, there is no pending reply to edit.", sink)
		return nil
	}

	newText = strings.TrimSpace(newText)
	if newText == "" {
		e.voice.Say(ctx, fmt.Sprintf("Sir, current draft is: %s. Please provide new text, or say 'send it' or 'cancel'.", draft.Text), sink)
		return nil
	}

	e.drafts.Set(draft.Receiver, newText)
	e.voice.Say(ctx, fmt.Sprintf("Sir, reply updated to: %s. Say 'send it' or 'cancel'.", newText), sink)

	return nil
}

// Drafts exposes the controller for staging drafts from other flows.
func (e *ReplyEngine) Drafts() *DraftController {
	return &e.drafts
}
