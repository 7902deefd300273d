package state

import (
	"log/slog"
	"sync"

	"github.com/samber/do"
)

// Value is the conversation phase shared by every component. The register is
// the single synchronization point that keeps listening and speaking from
// overlapping.
type Value int

const (
	Idle Value = iota
	Listening
	Thinking
	Speaking
)

func (v Value) String() string {
	switch v {
	case Idle:
		return "IDLE"
	case Listening:
		return "LISTENING"
	case Thinking:
		return "THINKING"
	case Speaking:
		return "SPEAKING"
	default:
		return "UNKNOWN"
	}
}

type Controller struct {
	mu    sync.Mutex
	value Value
}

func New(_ *do.Injector) (*Controller, error) {
	return &Controller{}, nil
}

func (c *Controller) Set(next Value) {
	c.mu.Lock()
	prev := c.value
	c.value = next
	c.mu.Unlock()

	if prev != next {
		slog.Debug("Conversation state changed",
			"from", prev.String(),
			"to", next.String())
	}
}

func (c *Controller) Get() Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value
}

func (c *Controller) IsSpeaking() bool {
	return c.Get() == Speaking
}

func (c *Controller) IsListening() bool {
	return c.Get() == Listening
}
