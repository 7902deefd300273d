package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sam/app/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVoice struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeVoice) Say(_ context.Context, text string, _ ui.Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lines = append(f.lines, text)
}

func (f *fakeVoice) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.lines...)
}

type nopSink struct{}

func (nopSink) WriteLog(string) {}

type fakeBrowser struct {
	status    Status
	statusErr error
	unread    []Unread
	unreadErr error
	chatNames []string
	openErr   error
	opened    []string
	latest    *Message
	latestErr error
}

func (f *fakeBrowser) Status(context.Context) (Status, error) {
	return f.status, f.statusErr
}

func (f *fakeBrowser) UnreadChats(context.Context) ([]Unread, error) {
	return f.unread, f.unreadErr
}

func (f *fakeBrowser) ChatNames(context.Context) ([]string, error) {
	return f.chatNames, nil
}

func (f *fakeBrowser) OpenChat(_ context.Context, name string) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, name)
	return nil
}

func (f *fakeBrowser) LatestMessage(context.Context) (*Message, error) {
	return f.latest, f.latestErr
}

func TestAssistant_SummarizeUnread_SetupStates(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   string
	}{
		{name: "chrome not running", status: StatusNotRunning, want: "Sir, I need Chrome running with remote debugging to access WhatsApp Web. Please start it and tell me when you're ready."},
		{name: "no tab", status: StatusNoTab, want: "Sir, I cannot find the WhatsApp Web tab. Please open web.whatsapp.com and scan the QR code if needed."},
		{name: "qr required", status: StatusQRRequired, want: "Sir, WhatsApp Web is asking for a QR scan. Please scan it, then tell me when you're ready."},
		{name: "loading", status: StatusLoading, want: "Sir, WhatsApp Web is still loading. Give it a moment and tell me when you're ready."},
		{name: "offline", status: StatusOffline, want: "Sir, I encountered an issue accessing WhatsApp Web. Please ensure you're logged in and try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voice := &fakeVoice{}
			assistant := &Assistant{
				browser: &fakeBrowser{status: tt.status},
				voice:   voice,
			}

			err := assistant.SummarizeUnread(context.Background(), nopSink{})

			require.NoError(t, err)
			require.Len(t, voice.Lines(), 1)
			assert.Equal(t, tt.want, voice.Lines()[0])
		})
	}
}

func TestAssistant_SummarizeUnread_StatusError(t *testing.T) {
	assistant := &Assistant{
		browser: &fakeBrowser{statusErr: errors.New("socket closed")},
		voice:   &fakeVoice{},
	}

	err := assistant.SummarizeUnread(context.Background(), nopSink{})

	assert.Error(t, err)
}

func TestAssistant_SummarizeUnread_NoUnread(t *testing.T) {
	voice := &fakeVoice{}
	assistant := &Assistant{
		browser: &fakeBrowser{status: StatusConnected},
		voice:   voice,
	}

	require.NoError(t, assistant.SummarizeUnread(context.Background(), nopSink{}))

	lines := voice.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Sir, you have no unread messages.", lines[1])
}

func TestAssistant_SummarizeUnread_ManyUnread(t *testing.T) {
	voice := &fakeVoice{}
	assistant := &Assistant{
		browser: &fakeBrowser{
			status: StatusConnected,
			unread: []Unread{
				{Name: "John", Message: "hey"},
				{Name: "Mary", Message: "call me"},
				{Name: "Paul", Message: "thanks"},
				{Name: "Ada", Message: "see attachment"},
				{Name: "Tunde", Message: "lunch?"},
			},
		},
		voice: voice,
	}

	require.NoError(t, assistant.SummarizeUnread(context.Background(), nopSink{}))

	lines := voice.Lines()
	require.Len(t, lines, 6)
	assert.Equal(t, "Sir, you have 5 unread messages. Here are the most recent:", lines[1])
	assert.Equal(t, "1. John says: hey", lines[2])
	assert.Equal(t, "3. Paul says: thanks", lines[4])
	assert.Equal(t, "And 2 more. Say 'reply to a name' to continue.", lines[5])
}

func TestAssistant_OpenChat(t *testing.T) {
	browser := &fakeBrowser{
		status:    StatusConnected,
		chatNames: []string{"John Doe", "Johnny", "Mary"},
	}
	voice := &fakeVoice{}
	assistant := &Assistant{browser: browser, voice: voice}

	opened, err := assistant.OpenChat(context.Background(), "john", nopSink{})

	require.NoError(t, err)
	assert.True(t, opened)
	require.Len(t, browser.opened, 1)
	assert.Contains(t, []string{"John Doe", "Johnny"}, browser.opened[0])
	assert.Equal(t, browser.opened[0], assistant.CurrentChat())
	assert.Contains(t, voice.Lines(), "Opening "+browser.opened[0]+", Sir.")
}

func TestAssistant_OpenChat_NoMatch(t *testing.T) {
	voice := &fakeVoice{}
	assistant := &Assistant{
		browser: &fakeBrowser{chatNames: []string{"Mary", "Paul"}},
		voice:   voice,
	}

	opened, err := assistant.OpenChat(context.Background(), "zzz", nopSink{})

	require.NoError(t, err)
	assert.False(t, opened)
	assert.Contains(t, voice.Lines(), "Sir, I could not find that chat.")
}

func TestAssistant_OpenChat_AmbiguousSuggestions(t *testing.T) {
	voice := &fakeVoice{}
	assistant := &Assistant{
		browser: &fakeBrowser{
			chatNames: []string{"John Doe", "Johnny", "Jon Snow"},
			openErr:   errors.New("chat row not found"),
		},
		voice: voice,
	}

	opened, err := assistant.OpenChat(context.Background(), "john", nopSink{})

	require.NoError(t, err)
	assert.False(t, opened)

	lines := voice.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Did you mean:")
}

func TestAssistant_ReadCurrentChat(t *testing.T) {
	tests := []struct {
		name    string
		message *Message
		want    string
	}{
		{
			name:    "incoming text",
			message: &Message{Sender: "John", Text: "hello", Direction: "incoming"},
			want:    "Sir, John says: hello",
		},
		{
			name:    "outgoing",
			message: &Message{Sender: "John", Text: "hi", Direction: "outgoing"},
			want:    "Sir, the last message in this chat was sent by you.",
		},
		{
			name:    "media",
			message: &Message{Sender: "John", Direction: "incoming", Media: true},
			want:    "Sir, the last message from John was media content.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voice := &fakeVoice{}
			assistant := &Assistant{
				browser: &fakeBrowser{latest: tt.message},
				voice:   voice,
			}

			_, err := assistant.ReadCurrentChat(context.Background(), nopSink{})

			require.NoError(t, err)
			require.Len(t, voice.Lines(), 1)
			assert.Equal(t, tt.want, voice.Lines()[0])
		})
	}
}

func TestAssistant_ReplyToContact(t *testing.T) {
	browser := &fakeBrowser{status: StatusConnected}
	voice := &fakeVoice{}
	assistant := &Assistant{
		browser: browser,
		voice:   voice,
		unreadCache: []Unread{
			{Name: "Mary Jane", Message: "are you coming?"},
			{Name: "Paul", Message: "thanks"},
		},
	}

	message, err := assistant.ReplyToContact(context.Background(), "mary", nopSink{})

	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "Mary Jane", message.Sender)
	assert.Equal(t, "are you coming?", message.Text)
	assert.Equal(t, "Mary Jane", assistant.CurrentChat())
}

func TestAssistant_ReplyToContact_EmptyCache(t *testing.T) {
	voice := &fakeVoice{}
	assistant := &Assistant{browser: &fakeBrowser{}, voice: voice}

	message, err := assistant.ReplyToContact(context.Background(), "mary", nopSink{})

	require.NoError(t, err)
	assert.Nil(t, message)
	assert.Contains(t, voice.Lines(), "Sir, there are no unread messages to reply to.")
}

func TestAssistant_ReplyToContact_UnknownContact(t *testing.T) {
	voice := &fakeVoice{}
	assistant := &Assistant{
		browser:     &fakeBrowser{},
		voice:       voice,
		unreadCache: []Unread{{Name: "Paul", Message: "thanks"}},
	}

	message, err := assistant.ReplyToContact(context.Background(), "mary", nopSink{})

	require.NoError(t, err)
	assert.Nil(t, message)
	assert.Contains(t, voice.Lines(), "Sir, I could not find an unread message from mary.")
}
