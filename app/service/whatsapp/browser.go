package whatsapp

import (
	"context"
	"fmt"

	"sam/app/client/chrome"

	"github.com/samber/do"
)

const whatsappURL = "web.whatsapp.com"

// cdpBrowser drives WhatsApp Web through Chrome's remote debugging protocol.
type cdpBrowser struct {
	chrome *chrome.Client
}

func NewBrowser(di *do.Injector) (Browser, error) {
	return &cdpBrowser{
		chrome: do.MustInvoke[*chrome.Client](di),
	}, nil
}

type domChecks struct {
	NavigatorOnline bool `json:"navigatorOnline"`
	QRCanvas        bool `json:"qrCanvas"`
	IntroAny        bool `json:"introAny"`
	ChatList        bool `json:"chatList"`
	RoleGrid        bool `json:"roleGrid"`
	HasSearchText   bool `json:"hasSearchText"`
	HasTypeAMessage bool `json:"hasTypeAMessage"`
}

const checksJS = `(function(){
	const bodyText = document.body ? document.body.innerText || '' : '';
	return JSON.stringify({
		navigatorOnline: navigator.onLine,
		qrCanvas: !!document.querySelector('canvas[aria-label="Scan me!"]'),
		introAny: !!document.querySelector('[data-testid^="intro"]'),
		chatList: !!document.querySelector('[data-testid="chat-list"]'),
		roleGrid: !!document.querySelector('[role="grid"]'),
		hasSearchText: bodyText.indexOf('Search or start new chat') !== -1,
		hasTypeAMessage: bodyText.indexOf('Type a message') !== -1
	});
})()`

func (b *cdpBrowser) Status(ctx context.Context) (Status, error) {
	if !b.chrome.Running(ctx) {
		return StatusNotRunning, nil
	}

	tab, err := b.chrome.FindTab(ctx, whatsappURL)
	if err != nil {
		return StatusUnknown, err
	}
	if tab == nil {
		return StatusNoTab, nil
	}

	var checks domChecks
	if err = b.chrome.EvalInto(ctx, tab, checksJS, &checks); err != nil {
		return StatusOffline, nil
	}

	switch {
	case checks.QRCanvas:
		return StatusQRRequired, nil
	case checks.IntroAny, checks.HasSearchText && !checks.ChatList:
		return StatusLoading, nil
	case !checks.NavigatorOnline:
		return StatusOffline, nil
	case checks.ChatList, checks.RoleGrid, checks.HasTypeAMessage:
		return StatusConnected, nil
	default:
		return StatusUnknown, nil
	}
}

const unreadJS = `(function(){
	const rows = document.querySelectorAll('[data-testid="chat-list"] [role="row"]');
	const result = [];
	rows.forEach(function(row){
		const badge = row.querySelector('[aria-label*="unread"]');
		if (!badge) return;
		const name = row.querySelector('span[title]');
		const preview = row.querySelector('[data-testid="last-msg-status"], span[dir="ltr"]');
		result.push({
			name: name ? name.getAttribute('title') : '',
			message: preview ? preview.textContent : '',
			count: parseInt(badge.textContent, 10) || 1
		});
	});
	return JSON.stringify(result);
})()`

func (b *cdpBrowser) UnreadChats(ctx context.Context) ([]Unread, error) {
	tab, err := b.requireTab(ctx)
	if err != nil {
		return nil, err
	}

	var result []Unread
	if err = b.chrome.EvalInto(ctx, tab, unreadJS, &result); err != nil {
		return nil, fmt.Errorf("failed to read unread chats: %w", err)
	}

	return result, nil
}

const chatNamesJS = `(function(){
	const names = [];
	document.querySelectorAll('[data-testid="chat-list"] span[title]').forEach(function(el){
		const title = el.getAttribute('title');
		if (title) names.push(title);
	});
	return JSON.stringify(names);
})()`

func (b *cdpBrowser) ChatNames(ctx context.Context) ([]string, error) {
	tab, err := b.requireTab(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	if err = b.chrome.EvalInto(ctx, tab, chatNamesJS, &names); err != nil {
		return nil, fmt.Errorf("failed to read chat names: %w", err)
	}

	return names, nil
}

const openChatJSTemplate = `(function(){
	const target = %q;
	const spans = document.querySelectorAll('[data-testid="chat-list"] span[title]');
	for (const el of spans) {
		if (el.getAttribute('title') === target) {
			el.closest('[role="row"]').dispatchEvent(
				new MouseEvent('mousedown', {bubbles: true}));
			el.closest('[role="row"]').click();
			return JSON.stringify(true);
		}
	}
	return JSON.stringify(false);
})()`

func (b *cdpBrowser) OpenChat(ctx context.Context, name string) error {
	tab, err := b.requireTab(ctx)
	if err != nil {
		return err
	}

	var opened bool
	script := fmt.Sprintf(openChatJSTemplate, name)
	if err = b.chrome.EvalInto(ctx, tab, script, &opened); err != nil {
		return fmt.Errorf("failed to open chat: %w", err)
	}

	if !opened {
		return fmt.Errorf("chat %q not found in chat list", name)
	}

	return nil
}

const latestMessageJS = `(function(){
	const rows = document.querySelectorAll('[data-testid="conversation-panel-messages"] [data-testid="msg-container"]');
	if (!rows.length) return JSON.stringify(null);
	const last = rows[rows.length - 1];
	const textEl = last.querySelector('span.selectable-text');
	const header = document.querySelector('[data-testid="conversation-info-header"] span[title]');
	return JSON.stringify({
		sender: header ? header.getAttribute('title') : '',
		text: textEl ? textEl.textContent : '',
		direction: last.classList.contains('message-out') ? 'outgoing' : 'incoming',
		media: !textEl
	});
})()`

func (b *cdpBrowser) LatestMessage(ctx context.Context) (*Message, error) {
	tab, err := b.requireTab(ctx)
	if err != nil {
		return nil, err
	}

	var msg *Message
	if err = b.chrome.EvalInto(ctx, tab, latestMessageJS, &msg); err != nil {
		return nil, fmt.Errorf("failed to read latest message: %w", err)
	}

	return msg, nil
}

func (b *cdpBrowser) requireTab(ctx context.Context) (*chrome.Tab, error) {
	tab, err := b.chrome.FindTab(ctx, whatsappURL)
	if err != nil {
		return nil, err
	}
	if tab == nil {
		return nil, fmt.Errorf("whatsapp tab not open")
	}

	return tab, nil
}
