package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sam/app/client/speechd"
	"sam/app/config"
	"sam/app/service/classify"
	"sam/app/service/memory"
	"sam/app/service/router"
	"sam/app/service/tts"
	"sam/app/session"
	"sam/app/state"
	"sam/app/ui"

	"github.com/samber/do"
	"github.com/samber/lo"
)

const speakingPollInterval = 50 * time.Millisecond

const minUtteranceLen = 3

// interruptCommands stop speech and reset the session; matched as
// case-insensitive substrings, they always win over classification.
var interruptCommands = []string{"mute", "quit", "exit", "stop"}

// fillerTokens are recognizer phantoms: single function words the speech
// backend emits on silence. Utterances matching them exactly are dropped
// before any classifier call.
var fillerTokens = []string{"some", "some.", "you", "the", "from", "from some"}

// Recorder blocks until one utterance is captured or the capture times out.
type Recorder interface {
	RecordVoice(ctx context.Context) (string, error)
}

// Classifier turns one utterance plus memory context into a structured
// intent, and writes memory-update payloads through to the durable store.
type Classifier interface {
	Classify(ctx context.Context, userText string, memoryContext map[string]any) (*classify.Result, error)
	ApplyMemoryUpdate(ctx context.Context, payload map[string]any) error
}

// Speaker is the speech surface the loop itself needs: speak a line and
// cancel in-flight synthesis.
type Speaker interface {
	Say(ctx context.Context, text string, sink ui.Sink)
	Stop()
}

// MemoryLoader reads the whole long-term mapping for prompt projection.
type MemoryLoader interface {
	Load() (memory.Mapping, error)
}

// Router dispatches one classified intent.
type Router interface {
	HandleIntent(ctx context.Context, result *classify.Result, sink ui.Sink, mem *session.Memory)
}

// Service is the conversation loop: wait until not speaking, listen, filter
// noise, honor interrupts, classify, route. One utterance per iteration;
// nothing escapes an iteration.
type Service struct {
	cfg        *config.Config
	stateCtl   *state.Controller
	session    *session.Memory
	recorder   Recorder
	classifier Classifier
	speaker    Speaker
	memory     MemoryLoader
	router     Router
	sink       ui.Sink
}

func New(di *do.Injector) (*Service, error) {
	speechSvc := do.MustInvoke[*speechd.Server](di)

	return &Service{
		cfg:        do.MustInvoke[*config.Config](di),
		stateCtl:   do.MustInvoke[*state.Controller](di),
		session:    do.MustInvoke[*session.Memory](di),
		recorder:   speechSvc,
		classifier: do.MustInvoke[*classify.Service](di),
		speaker:    do.MustInvoke[*tts.Service](di),
		memory:     do.MustInvoke[*memory.Service](di),
		router:     do.MustInvoke[*router.Service](di),
		sink:       ui.Multi{ui.LogSink{}, speechSvc},
	}, nil
}

// NewWithCollaborators wires the loop from explicit parts.
func NewWithCollaborators(
	cfg *config.Config,
	stateCtl *state.Controller,
	sessionMem *session.Memory,
	recorder Recorder,
	classifier Classifier,
	speaker Speaker,
	memorySvc MemoryLoader,
	routerSvc Router,
	sink ui.Sink,
) *Service {
	return &Service{
		cfg:        cfg,
		stateCtl:   stateCtl,
		session:    sessionMem,
		recorder:   recorder,
		classifier: classifier,
		speaker:    speaker,
		memory:     memorySvc,
		router:     routerSvc,
		sink:       sink,
	}
}

func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.RunIteration(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Error running iteration", "error", err)
		}
	}
}

// RunIteration processes exactly one utterance. Collaborator failures degrade
// the turn and leave the state register at IDLE; only context cancellation is
// returned as an error worth stopping for.
func (s *Service) RunIteration(ctx context.Context) error {
	userText, err := s.listen(ctx)
	if err != nil {
		return err
	}
	if userText == "" {
		return nil
	}

	if s.isInterrupt(userText) {
		s.speaker.Stop()
		s.stateCtl.Set(state.Idle)
		s.session.Reset()
		slog.Debug("Interrupt received", slog.String("text", userText))
		return nil
	}

	s.sink.WriteLog("You: " + userText)

	if s.isWakeWordOnly(userText) {
		s.speaker.Say(ctx, "Yes, Sir?", s.sink)
		return nil
	}

	// An open slot question captures the raw utterance verbatim; the
	// original request text is restored so it can be re-attempted with the
	// now-complete parameter set.
	if question := s.session.CurrentQuestion(); question != "" {
		s.session.UpdateParameters(map[string]any{question: userText})
		s.session.ClearCurrentQuestion()
		userText = s.session.LastUserText()
	}

	s.session.SetLastUserText(userText)
	s.session.AppendHistory("You: " + userText)

	memoryContext := s.buildMemoryContext()

	s.stateCtl.Set(state.Thinking)
	result, err := s.classifier.Classify(ctx, userText, memoryContext)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		slog.Error("Classification failed", slog.Any("error", err))
		s.sink.WriteLog(fmt.Sprintf("AI ERROR: %v", err))
		s.stateCtl.Set(state.Idle)
		return nil
	}

	if len(result.MemoryUpdate) > 0 {
		if err := s.classifier.ApplyMemoryUpdate(ctx, result.MemoryUpdate); err != nil {
			slog.Warn("Memory update failed", slog.Any("error", err))
		}
	}

	s.session.SetLastAIResponse(result.Text)
	if result.Text != "" {
		s.session.AppendHistory("Sam: " + result.Text)
	}

	s.router.HandleIntent(ctx, result, s.sink, s.session)
	return nil
}

// listen waits out any in-flight speech, captures one utterance and drops
// recognizer noise. The state register passes through LISTENING and lands on
// IDLE before classification begins.
func (s *Service) listen(ctx context.Context) (string, error) {
	for s.stateCtl.IsSpeaking() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(speakingPollInterval):
		}
	}

	s.stateCtl.Set(state.Listening)
	userText, err := s.recorder.RecordVoice(ctx)
	s.stateCtl.Set(state.Idle)
	if err != nil {
		return "", err
	}

	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", nil
	}

	if isNoise(userText) {
		slog.Debug("Filtered phantom input", slog.String("text", userText))
		return "", nil
	}

	return userText, nil
}

func (s *Service) buildMemoryContext() map[string]any {
	longTerm, err := s.memory.Load()
	if err != nil {
		slog.Warn("Failed to load long-term memory", slog.Any("error", err))
		longTerm = memory.Mapping{}
	}

	memoryContext := memory.ProjectForPrompt(longTerm)

	if recent := s.session.HistoryForPrompt(); recent != "" {
		memoryContext["recent_conversation"] = recent
	}

	if s.session.HasPendingIntent() {
		memoryContext["_pending_intent"] = s.session.PendingIntent()
		memoryContext["_collected_params"] = fmt.Sprint(s.session.Parameters())
	}

	return memoryContext
}

func (s *Service) isInterrupt(userText string) bool {
	lowered := strings.ToLower(userText)
	return lo.SomeBy(interruptCommands, func(cmd string) bool {
		return strings.Contains(lowered, cmd)
	})
}

// isWakeWordOnly reports a bare wake phrase with no request attached: it is
// acknowledged conversationally instead of being sent to the classifier.
func (s *Service) isWakeWordOnly(userText string) bool {
	normalized := strings.ToLower(strings.Trim(userText, " .,!?"))
	return lo.Contains(s.cfg.WakeWord.Phrases, normalized)
}

func isNoise(userText string) bool {
	if len(userText) < minUtteranceLen {
		return true
	}
	return lo.Contains(fillerTokens, strings.ToLower(userText))
}
