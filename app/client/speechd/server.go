package speechd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"sam/app/config"

	"github.com/gorilla/websocket"
	"github.com/samber/do"
)

const (
	transcriptBuffer   = 32
	clientWriteTimeout = 2 * time.Second
)

var _ do.Shutdownable = (*Server)(nil)

// Server hosts the websocket the browser speech client connects to. Final
// transcripts flow in; control commands (sam_speaking, sam_done, set_active)
// and transcript log lines flow out to every connected client.
type Server struct {
	cfg      *config.Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	httpSrv *http.Server

	writeTimeout time.Duration
	transcripts  chan string
}

type inboundFrame struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

type outboundFrame struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Text   string `json:"text,omitempty"`
}

func New(di *do.Injector) (*Server, error) {
	return &Server{
		cfg:          do.MustInvoke[*config.Config](di),
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:      make(map[*websocket.Conn]struct{}),
		writeTimeout: clientWriteTimeout,
		transcripts:  make(chan string, transcriptBuffer),
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/speech", s.handleWS)

	srv := &http.Server{
		Addr:    s.cfg.Speech.Addr,
		Handler: mux,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	slog.Info("Speech server listening", "addr", s.cfg.Speech.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade speech client", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	total := len(s.clients)
	s.mu.Unlock()

	slog.Info("Speech client connected", "clients", total)

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				slog.Info("Speech client disconnected")
			} else {
				slog.Warn("Speech client read failed", "error", err)
			}
			return
		}

		var frame inboundFrame
		if err = json.Unmarshal(msg, &frame); err != nil {
			slog.Warn("Invalid speech frame", "raw", string(msg))
			continue
		}

		if frame.Type != "transcript" {
			continue
		}

		if !frame.IsFinal {
			slog.Debug("Interim transcript", "text", frame.Text)
			continue
		}

		s.addTranscript(frame.Text)
	}
}

func (s *Server) addTranscript(text string) {
	select {
	case s.transcripts <- text:
	default:
		slog.Warn("transcript queue is full")
	}
}

// RecordVoice blocks until the speech client delivers a final transcript,
// returning "" on timeout or silence.
func (s *Server) RecordVoice(ctx context.Context) (string, error) {
	timeout := time.Duration(s.cfg.Speech.RecordTimeoutSec) * time.Second

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text := <-s.transcripts:
		return text, nil
	case <-time.After(timeout):
		slog.Debug("Transcription timeout")
		return "", nil
	}
}

// Broadcast sends a control command to every connected speech client.
func (s *Server) Broadcast(action string) {
	s.send(outboundFrame{Type: "command", Action: action})
}

// WriteLog mirrors a transcript line to connected clients, fire-and-forget.
func (s *Server) WriteLog(text string) {
	s.send(outboundFrame{Type: "log", Text: text})
}

func (s *Server) send(frame outboundFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		// a client that stopped reading must not wedge the speaking loop
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Debug("Dropping stalled speech client", "error", err)
			delete(s.clients, conn)
			_ = conn.Close()
		}
	}
}

func (s *Server) Shutdown() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()

	if srv != nil {
		return srv.Close()
	}

	return nil
}
