package ui

import (
	"context"
	"log/slog"
)

// Sink is the transcript surface handlers write to. Implementations must be
// fire-and-forget: the core never blocks on UI acknowledgment.
type Sink interface {
	WriteLog(text string)
}

// LogSink mirrors the transcript into the process log.
type LogSink struct{}

func (LogSink) WriteLog(text string) {
	slog.Info("Transcript", "line", text)
}

// Voice speaks a line to the user and mirrors it into the transcript.
type Voice interface {
	Say(ctx context.Context, text string, sink Sink)
}

// Multi fans a transcript line out to several sinks.
type Multi []Sink

func (m Multi) WriteLog(text string) {
	for _, s := range m {
		s.WriteLog(text)
	}
}
