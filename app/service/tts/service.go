package tts

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"sam/app/client/speechd"
	"sam/app/config"
	"sam/app/service/classify"
	"sam/app/state"
	"sam/app/ui"

	"github.com/samber/do"
)

// activeModeDelay gives the speech client a moment to resume before it is
// told to stay in active conversation mode (no wake phrase needed).
const activeModeDelay = 300 * time.Millisecond

// Service speaks text through the synthesizer and player while pausing the
// speech client, and supports cooperative cancellation between audio chunks.
type Service struct {
	cfg      *config.Config
	stateCtl *state.Controller
	speech   *speechd.Server

	synth  Synthesizer
	player Player

	stop atomic.Bool
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:      cfg,
		stateCtl: do.MustInvoke[*state.Controller](di),
		speech:   do.MustInvoke[*speechd.Server](di),
		synth:    newOpenAISynthesizer(cfg, classify.NewClient(cfg.OpenAI.Drafter)),
		player:   newBeepPlayer(),
	}, nil
}

// NewWithCollaborators builds a service around explicit collaborators.
func NewWithCollaborators(cfg *config.Config, stateCtl *state.Controller, speech *speechd.Server, synth Synthesizer, player Player) *Service {
	return &Service{
		cfg:      cfg,
		stateCtl: stateCtl,
		speech:   speech,
		synth:    synth,
		player:   player,
	}
}

// Speak plays text aloud. With blocking=true it returns once playback ends
// (or is stopped); otherwise it returns immediately.
func (s *Service) Speak(ctx context.Context, text string, sink ui.Sink, blocking bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	finished := make(chan struct{})

	go func() {
		defer close(finished)

		s.stop.Store(false)

		if s.speech != nil {
			s.speech.Broadcast("sam_speaking")
		}

		defer func() {
			if s.speech != nil {
				s.speech.Broadcast("sam_done")
				time.Sleep(activeModeDelay)
				// keep the conversation open without a wake phrase
				s.speech.Broadcast("set_active")
			}
		}()

		if s.cfg.Voice.Mute {
			slog.Info("Spoke (muted)", "text", text)
			return
		}

		audio, err := s.synth.Synthesize(ctx, text)
		if err != nil {
			slog.Error("Speech synthesis failed", "error", err)
			return
		}
		defer audio.Close()

		if s.stop.Load() {
			return
		}

		if err = s.player.Play(ctx, audio, &s.stop); err != nil {
			slog.Error("Speech playback failed", "error", err)
		}
	}()

	if blocking {
		<-finished
	}
}

// Say is the handler-facing wrapper: log the line, move through
// SPEAKING, and land on IDLE.
func (s *Service) Say(ctx context.Context, text string, sink ui.Sink) {
	if sink != nil {
		sink.WriteLog("AI: " + text)
	}

	s.stateCtl.Set(state.Speaking)
	s.Speak(ctx, text, sink, true)
	s.stateCtl.Set(state.Idle)
}

// Stop requests cooperative cancellation of any in-flight playback.
func (s *Service) Stop() {
	s.stop.Store(true)
}
