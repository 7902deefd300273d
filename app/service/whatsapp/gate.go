package whatsapp

import (
	"sync/atomic"

	"github.com/samber/do"
)

// Gate serializes access to the single browser-automation surface. It is
// advisory and fail-fast: a handler that loses the race abandons its
// operation instead of queuing, because queued commands would race on DOM
// state.
type Gate struct {
	busy atomic.Bool
}

func NewGate(_ *do.Injector) (*Gate, error) {
	return &Gate{}, nil
}

// TryAcquire claims the surface without blocking.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *Gate) Release() {
	g.busy.Store(false)
}
