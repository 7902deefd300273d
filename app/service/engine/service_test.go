package engine

import (
	"context"
	"errors"
	"testing"

	"sam/app/config"
	"sam/app/service/classify"
	"sam/app/service/memory"
	"sam/app/session"
	"sam/app/state"
	"sam/app/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptRecorder struct {
	texts []string
	next  int
}

func (r *scriptRecorder) RecordVoice(context.Context) (string, error) {
	if r.next >= len(r.texts) {
		return "", nil
	}

	text := r.texts[r.next]
	r.next++
	return text, nil
}

type classifierCall struct {
	userText      string
	memoryContext map[string]any
}

type fakeClassifier struct {
	result  *classify.Result
	err     error
	calls   []classifierCall
	applied []map[string]any
}

func (f *fakeClassifier) Classify(_ context.Context, userText string, memoryContext map[string]any) (*classify.Result, error) {
	f.calls = append(f.calls, classifierCall{userText: userText, memoryContext: memoryContext})

	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &classify.Result{Intent: classify.IntentChat, Parameters: map[string]any{}, Text: "Noted, Sir."}, nil
}

func (f *fakeClassifier) ApplyMemoryUpdate(_ context.Context, payload map[string]any) error {
	f.applied = append(f.applied, payload)
	return nil
}

type fakeSpeaker struct {
	lines   []string
	stopped int
}

func (f *fakeSpeaker) Say(_ context.Context, text string, _ ui.Sink) {
	f.lines = append(f.lines, text)
}

func (f *fakeSpeaker) Stop() {
	f.stopped++
}

type fakeMemoryLoader struct {
	mapping memory.Mapping
	err     error
}

func (f *fakeMemoryLoader) Load() (memory.Mapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.mapping == nil {
		return memory.Mapping{}, nil
	}
	return f.mapping, nil
}

type fakeRouter struct {
	stateCtl *state.Controller
	results  []*classify.Result
}

func (f *fakeRouter) HandleIntent(_ context.Context, result *classify.Result, _ ui.Sink, _ *session.Memory) {
	f.results = append(f.results, result)
	f.stateCtl.Set(state.Idle)
}

type recordSink struct {
	lines []string
}

func (s *recordSink) WriteLog(text string) {
	s.lines = append(s.lines, text)
}

type harness struct {
	svc        *Service
	stateCtl   *state.Controller
	session    *session.Memory
	classifier *fakeClassifier
	speaker    *fakeSpeaker
	router     *fakeRouter
	sink       *recordSink
}

func newHarness(utterances ...string) *harness {
	cfg := &config.Config{}
	cfg.WakeWord.Phrases = []string{"hey sam", "sam"}

	stateCtl := &state.Controller{}
	sessionMem := session.NewMemory()
	classifier := &fakeClassifier{}
	speaker := &fakeSpeaker{}
	routerSvc := &fakeRouter{stateCtl: stateCtl}
	sink := &recordSink{}

	svc := NewWithCollaborators(
		cfg,
		stateCtl,
		sessionMem,
		&scriptRecorder{texts: utterances},
		classifier,
		speaker,
		&fakeMemoryLoader{},
		routerSvc,
		sink,
	)

	return &harness{
		svc:        svc,
		stateCtl:   stateCtl,
		session:    sessionMem,
		classifier: classifier,
		speaker:    speaker,
		router:     routerSvc,
		sink:       sink,
	}
}

func TestIteration_RoutesClassifiedIntent(t *testing.T) {
	h := newHarness("what's the time")
	h.classifier.result = &classify.Result{
		Intent:     classify.IntentChat,
		Parameters: map[string]any{},
		Text:       "It is noon, Sir.",
	}

	require.NoError(t, h.svc.RunIteration(context.Background()))

	require.Len(t, h.classifier.calls, 1)
	assert.Equal(t, "what's the time", h.classifier.calls[0].userText)

	require.Len(t, h.router.results, 1)
	assert.Equal(t, "It is noon, Sir.", h.router.results[0].Text)

	assert.Equal(t, "It is noon, Sir.", h.session.LastAIResponse())
	assert.Contains(t, h.sink.lines, "You: what's the time")

	// the iteration always hands the next one an idle register
	assert.Equal(t, state.Idle, h.stateCtl.Get())
}

func TestIteration_StateIdleBetweenIterations(t *testing.T) {
	h := newHarness("first question", "second question")

	for i := 0; i < 2; i++ {
		require.Equal(t, state.Idle, h.stateCtl.Get())
		require.NoError(t, h.svc.RunIteration(context.Background()))
		require.Equal(t, state.Idle, h.stateCtl.Get())
	}

	assert.Len(t, h.classifier.calls, 2)
}

func TestIteration_InterruptWinsOverSlotFilling(t *testing.T) {
	h := newHarness("please stop now")
	h.session.SetPendingIntent("send_message")
	h.session.SetCurrentQuestion("message_text")
	h.session.SetLastUserText("send a message to John")

	require.NoError(t, h.svc.RunIteration(context.Background()))

	assert.Empty(t, h.classifier.calls)
	assert.Equal(t, 1, h.speaker.stopped)
	assert.Equal(t, state.Idle, h.stateCtl.Get())

	// session fully reset
	assert.False(t, h.session.HasPendingIntent())
	assert.Equal(t, "", h.session.CurrentQuestion())
	assert.Equal(t, "", h.session.LastUserText())
}

func TestIteration_SlotCapturedVerbatim(t *testing.T) {
	h := newHarness("I'll be late")
	h.session.SetPendingIntent("send_message")
	h.session.UpdateParameters(map[string]any{"receiver": "John"})
	h.session.SetCurrentQuestion("message_text")
	h.session.SetLastUserText("send a message to John")

	require.NoError(t, h.svc.RunIteration(context.Background()))

	// the utterance filled the slot instead of being classified directly
	assert.Equal(t, "I'll be late", h.session.Parameter("message_text"))
	assert.Equal(t, "", h.session.CurrentQuestion())

	// the original request was re-attempted with staging markers attached
	require.Len(t, h.classifier.calls, 1)
	call := h.classifier.calls[0]
	assert.Equal(t, "send a message to John", call.userText)
	assert.Equal(t, "send_message", call.memoryContext["_pending_intent"])
	assert.Contains(t, call.memoryContext["_collected_params"], "I'll be late")
}

func TestIteration_ClassifierFailureDegradesTurn(t *testing.T) {
	h := newHarness("hello there", "still alive?")
	h.classifier.err = errors.New("connection refused")

	require.NoError(t, h.svc.RunIteration(context.Background()))

	assert.Equal(t, state.Idle, h.stateCtl.Get())
	assert.Empty(t, h.router.results)
	assert.Contains(t, h.sink.lines, "AI ERROR: connection refused")

	// next turn proceeds normally
	h.classifier.err = nil
	require.NoError(t, h.svc.RunIteration(context.Background()))
	assert.Len(t, h.router.results, 1)
}

func TestIteration_NoiseDiscarded(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
	}{
		{name: "too short", utterance: "hm"},
		{name: "filler some", utterance: "some"},
		{name: "filler you", utterance: "You"},
		{name: "filler from some", utterance: "from some"},
		{name: "empty", utterance: ""},
		{name: "whitespace", utterance: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.utterance)

			require.NoError(t, h.svc.RunIteration(context.Background()))

			assert.Empty(t, h.classifier.calls)
			assert.Empty(t, h.sink.lines)
			assert.Equal(t, state.Idle, h.stateCtl.Get())
		})
	}
}

func TestIteration_BareWakeWordAcknowledged(t *testing.T) {
	h := newHarness("Hey Sam.")

	require.NoError(t, h.svc.RunIteration(context.Background()))

	assert.Empty(t, h.classifier.calls)
	assert.Equal(t, []string{"Yes, Sir?"}, h.speaker.lines)
	assert.Contains(t, h.sink.lines, "You: Hey Sam.")
}

func TestIteration_MemoryUpdateWrittenThrough(t *testing.T) {
	h := newHarness("my name is David")
	h.classifier.result = &classify.Result{
		Intent:     classify.IntentChat,
		Parameters: map[string]any{},
		Text:       "Pleasure to meet you, David.",
		MemoryUpdate: map[string]any{
			"identity": map[string]any{"name": map[string]any{"value": "David"}},
		},
	}

	require.NoError(t, h.svc.RunIteration(context.Background()))

	require.Len(t, h.classifier.applied, 1)
	assert.Contains(t, h.classifier.applied[0], "identity")
}

func TestIteration_HistoryProjectedIntoContext(t *testing.T) {
	h := newHarness("and tomorrow?")
	h.session.AppendHistory("You: what's the weather")
	h.session.AppendHistory("Sam: Sunny, Sir.")

	require.NoError(t, h.svc.RunIteration(context.Background()))

	require.Len(t, h.classifier.calls, 1)
	recent := h.classifier.calls[0].memoryContext["recent_conversation"].(string)
	assert.Contains(t, recent, "You: what's the weather")
	assert.Contains(t, recent, "Sam: Sunny, Sir.")
	assert.Contains(t, recent, "You: and tomorrow?")
}

func TestIteration_CancelledContext(t *testing.T) {
	h := newHarness("hello there")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.stateCtl.Set(state.Speaking)

	err := h.svc.RunIteration(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
