package whatsapp

import "sync"

// Draft is the single outstanding reply awaiting confirmation.
type Draft struct {
	Receiver string
	Text     string
}

// DraftController holds at most one pending draft; a new draft replaces the
// old one wholesale.
type DraftController struct {
	mu      sync.Mutex
	pending *Draft
}

func (c *DraftController) Set(receiver, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = &Draft{Receiver: receiver, Text: text}
}

func (c *DraftController) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil
}

func (c *DraftController) HasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pending != nil
}

// Get returns a copy of the pending draft, or nil.
func (c *DraftController) Get() *Draft {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return nil
	}

	copy := *c.pending
	return &copy
}
