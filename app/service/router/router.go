package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sam/app/service/actions"
	"sam/app/service/classify"
	"sam/app/service/sysmon"
	"sam/app/service/whatsapp"
	"sam/app/session"
	"sam/app/state"
	"sam/app/ui"

	"github.com/samber/do"
)

// busyMessage is the one user-facing line for gate contention. Contended
// handlers never queue: they speak this and abandon the operation.
const busyMessage = "Sir, I am already handling a WhatsApp task. One moment, please."

const heavyProcessLimit = 5

var sendMessageParams = []string{"receiver", "message_text", "platform"}

var slotQuestions = map[string]string{
	"receiver":     "Sir, who should receive the message?",
	"message_text": "Sir, what should the message say?",
	"platform":     "Sir, on which platform should I send it?",
	"chat_name":    "Sir, which chat should I open?",
	"contact_name": "Sir, which contact should I reply to?",
	"process_name": "Sir, which process should I terminate?",
}

// Service dispatches one classified intent to exactly one handler. Handlers
// run detached; each one restores the IDLE state on every exit path, and the
// router itself drops back to IDLE right after spawning.
type Service struct {
	stateCtl  *state.Controller
	voice     ui.Voice
	gate      *whatsapp.Gate
	assistant *whatsapp.Assistant
	replies   *whatsapp.ReplyEngine
	watcher   *sysmon.Watcher
	opener    *actions.Opener
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		stateCtl:  do.MustInvoke[*state.Controller](di),
		voice:     do.MustInvoke[ui.Voice](di),
		gate:      do.MustInvoke[*whatsapp.Gate](di),
		assistant: do.MustInvoke[*whatsapp.Assistant](di),
		replies:   do.MustInvoke[*whatsapp.ReplyEngine](di),
		watcher:   do.MustInvoke[*sysmon.Watcher](di),
		opener:    do.MustInvoke[*actions.Opener](di),
	}, nil
}

func (s *Service) HandleIntent(ctx context.Context, result *classify.Result, sink ui.Sink, mem *session.Memory) {
	intent := result.Intent
	slog.Debug("Routing intent",
		slog.String("intent", intent),
		slog.Int("responseLen", len(result.Text)))

	switch intent {
	case "send_message":
		s.handleSendMessage(ctx, result, sink, mem)

	case "open_app":
		appName := s.paramOr(result, mem, "app_name")
		s.spawn(ctx, sink, "Sir, I encountered an error opening the application.", func(ctx context.Context) error {
			s.opener.Open(ctx, appName, sink, mem)
			return nil
		})

	case "read_messages", "whatsapp_summary", "check_whatsapp":
		s.spawnGated(ctx, sink, "Sir, I encountered an error checking your messages.", func(ctx context.Context) error {
			return s.assistant.SummarizeUnread(ctx, sink)
		})

	case "whatsapp_ready":
		s.spawnGated(ctx, sink, "Sir, I encountered an error continuing with WhatsApp.", func(ctx context.Context) error {
			return s.assistant.ContinueAfterSetup(ctx, sink)
		})

	case "open_whatsapp_chat":
		chatName := s.paramOr(result, mem, "chat_name")
		if chatName == "" {
			chatName = s.paramOr(result, mem, "contact_name")
		}
		if chatName == "" {
			s.askForSlot(ctx, intent, "chat_name", sink, mem)
			return
		}
		mem.ClearPendingIntent()
		s.spawnGated(ctx, sink, "Sir, I could not open that chat.", func(ctx context.Context) error {
			_, err := s.assistant.OpenChat(ctx, chatName, sink)
			return err
		})

	case "read_whatsapp":
		s.spawnGated(ctx, sink, "Sir, I could not read the message.", func(ctx context.Context) error {
			_, err := s.assistant.ReadCurrentChat(ctx, sink)
			return err
		})

	case "reply_whatsapp":
		s.spawnGated(ctx, sink, "Sir, I encountered an error generating the reply.", func(ctx context.Context) error {
			return s.replies.HandleReplyFlow(ctx, sink)
		})

	case "reply_to_contact":
		contactName := s.paramOr(result, mem, "contact_name")
		if contactName == "" {
			s.askForSlot(ctx, intent, "contact_name", sink, mem)
			return
		}
		mem.ClearPendingIntent()
		s.spawnGated(ctx, sink, "Sir, I encountered an error generating the reply.", func(ctx context.Context) error {
			message, err := s.assistant.ReplyToContact(ctx, contactName, sink)
			if err != nil || message == nil {
				return err
			}
			return s.replies.ProposeReply(ctx, message, sink)
		})

	case "confirm_send":
		s.spawn(ctx, sink, "Sir, I encountered an error sending the reply.", func(ctx context.Context) error {
			return s.replies.ConfirmSend(ctx, sink)
		})

	case "cancel_reply":
		s.spawn(ctx, sink, "Sir, I encountered an error cancelling the reply.", func(ctx context.Context) error {
			return s.replies.CancelReply(ctx, sink)
		})

	case "edit_reply":
		newText := s.paramOr(result, mem, "new_text")
		s.spawn(ctx, sink, "Sir, I encountered an error editing the reply.", func(ctx context.Context) error {
			return s.replies.EditReply(ctx, newText, sink)
		})

	case "system_status":
		s.spawn(ctx, sink, "Sir, I encountered an error checking system status.", func(ctx context.Context) error {
			report, err := sysmon.GetReport()
			if err != nil {
				return err
			}
			s.voice.Say(ctx, report.Describe(), sink)
			return nil
		})

	case "kill_process":
		processName := s.paramOr(result, mem, "process_name")
		if processName == "" {
			s.askForSlot(ctx, intent, "process_name", sink, mem)
			return
		}
		mem.ClearPendingIntent()
		s.spawn(ctx, sink, "Sir, I encountered an error terminating the process.", func(ctx context.Context) error {
			killed, err := sysmon.KillProcessByName(processName)
			if err != nil {
				return err
			}
			if len(killed) > 0 {
				s.voice.Say(ctx, fmt.Sprintf("Sir, I have terminated %s.", strings.Join(killed, ", ")), sink)
			} else {
				s.voice.Say(ctx, fmt.Sprintf("Sir, I could not find a running process named %s.", processName), sink)
			}
			return nil
		})

	case "performance_mode":
		s.spawn(ctx, sink, "Sir, I encountered an error analyzing performance.", func(ctx context.Context) error {
			heavy, err := sysmon.HeavyProcesses(heavyProcessLimit)
			if err != nil {
				return err
			}
			if len(heavy) == 0 || heavy[0].CPUPercent <= 0 {
				s.voice.Say(ctx, "Sir, system load appears normal.", sink)
				return nil
			}
			message := fmt.Sprintf("Sir, the heaviest process is %s using %.1f percent CPU.", heavy[0].Name, heavy[0].CPUPercent)
			if len(heavy) > 1 && heavy[1].CPUPercent > 0 {
				message += fmt.Sprintf(" Next is %s at %.1f percent.", heavy[1].Name, heavy[1].CPUPercent)
			}
			s.voice.Say(ctx, message, sink)
			return nil
		})

	case "auto_mode":
		s.spawn(ctx, sink, "Sir, I encountered an error enabling auto mode.", func(ctx context.Context) error {
			s.watcher.EnableAutoMode()
			s.voice.Say(ctx, "Sir, autonomous performance mode enabled. I will monitor and manage system load automatically.", sink)
			return nil
		})

	case "system_trend":
		s.spawn(ctx, sink, "Sir, I encountered an error checking system trends.", func(ctx context.Context) error {
			avgCPU, avgRAM := s.watcher.AverageLoad()
			if avgCPU == 0 && avgRAM == 0 {
				s.voice.Say(ctx, "Sir, I need a few moments to collect system data. Please try again shortly.", sink)
				return nil
			}
			s.voice.Say(ctx, fmt.Sprintf("Sir, average CPU load is %.1f percent and RAM usage is %.1f percent over the past monitoring period.", avgCPU, avgRAM), sink)
			return nil
		})

	default:
		if result.Text == "" {
			slog.Warn("Chat handler reached with empty response", slog.String("intent", intent))
			s.stateCtl.Set(state.Idle)
			return
		}
		s.voice.Say(ctx, result.Text, sink)
		s.stateCtl.Set(state.Idle)
	}
}

// handleSendMessage stages parameters across turns and only fires once all
// three are collected. Direct sending stays disabled: the completed intent is
// redirected to the draft and confirmation flow.
func (s *Service) handleSendMessage(ctx context.Context, result *classify.Result, sink ui.Sink, mem *session.Memory) {
	mem.SetPendingIntent("send_message")
	mem.UpdateParameters(result.Parameters)

	for _, name := range sendMessageParams {
		if !mem.HasParameter(name) {
			s.askForSlot(ctx, "send_message", name, sink, mem)
			return
		}
	}

	mem.ClearPendingIntent()
	s.spawn(ctx, sink, "Sir, I encountered an error with the message.", func(ctx context.Context) error {
		s.voice.Say(ctx, "Sir, direct message sending has been disabled. I now use the draft and confirmation system for your safety.", sink)
		return nil
	})
}

// askForSlot marks one missing parameter as the open question so the next
// utterance is captured into it verbatim, then asks the user for it.
func (s *Service) askForSlot(ctx context.Context, intent, param string, sink ui.Sink, mem *session.Memory) {
	mem.SetPendingIntent(intent)
	mem.SetCurrentQuestion(param)

	question, ok := slotQuestions[param]
	if !ok {
		question = fmt.Sprintf("Sir, I need to know the %s.", strings.ReplaceAll(param, "_", " "))
	}

	s.voice.Say(ctx, question, sink)
	s.stateCtl.Set(state.Idle)
}

// paramOr prefers the classifier's extraction and falls back to the slot
// values collected in session memory.
func (s *Service) paramOr(result *classify.Result, mem *session.Memory, name string) string {
	if raw, ok := result.Parameters[name]; ok {
		if text, ok := raw.(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	if raw := mem.Parameter(name); raw != nil {
		if text, ok := raw.(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// spawn runs one handler detached. The recover boundary converts a panic or
// error into a spoken apology, and IDLE is restored unconditionally.
func (s *Service) spawn(ctx context.Context, sink ui.Sink, apology string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)

	go func() {
		defer s.stateCtl.Set(state.Idle)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Handler panicked", slog.Any("panic", r))
				s.voice.Say(detached, apology, sink)
			}
		}()

		if err := fn(detached); err != nil {
			slog.Error("Handler failed", slog.Any("error", err))
			s.voice.Say(detached, apology, sink)
		}
	}()

	s.stateCtl.Set(state.Idle)
}

// spawnGated is spawn behind the WhatsApp automation lock. On contention the
// operation is abandoned immediately with the busy line; it never queues.
func (s *Service) spawnGated(ctx context.Context, sink ui.Sink, apology string, fn func(ctx context.Context) error) {
	if !s.gate.TryAcquire() {
		s.voice.Say(ctx, busyMessage, sink)
		s.stateCtl.Set(state.Idle)
		return
	}

	s.spawn(ctx, sink, apology, func(ctx context.Context) error {
		defer s.gate.Release()
		return fn(ctx)
	})
}
