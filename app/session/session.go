package session

import (
	"strings"
	"sync"

	"github.com/samber/do"
)

const historyPromptLines = 5

// Memory holds per-run conversational state: an in-flight multi-turn intent,
// its collected parameters, the slot currently being asked about, and a
// rolling transcript. It is never persisted; interrupt commands reset it.
type Memory struct {
	mu sync.Mutex

	pendingIntent   string
	parameters      map[string]any
	currentQuestion string
	lastUserText    string
	lastAIResponse  string
	lastOpenedApp   string
	history         []string
}

func New(_ *do.Injector) (*Memory, error) {
	return NewMemory(), nil
}

func NewMemory() *Memory {
	return &Memory{
		parameters: make(map[string]any),
	}
}

func (m *Memory) SetPendingIntent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pendingIntent = name
}

func (m *Memory) PendingIntent() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pendingIntent
}

func (m *Memory) HasPendingIntent() bool {
	return m.PendingIntent() != ""
}

func (m *Memory) ClearPendingIntent() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pendingIntent = ""
	m.parameters = make(map[string]any)
}

// UpdateParameters merges new slot values over the collected set. Keys absent
// from partial stay untouched.
func (m *Memory) UpdateParameters(partial map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range partial {
		m.parameters[k] = v
	}
}

func (m *Memory) Parameter(name string) any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.parameters[name]
}

// HasParameter reports whether the slot holds a non-empty value.
func (m *Memory) HasParameter(name string) bool {
	v := m.Parameter(name)
	if v == nil {
		return false
	}

	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}

	return true
}

func (m *Memory) Parameters() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]any, len(m.parameters))
	for k, v := range m.parameters {
		result[k] = v
	}

	return result
}

func (m *Memory) SetCurrentQuestion(param string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentQuestion = param
}

func (m *Memory) CurrentQuestion() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.currentQuestion
}

func (m *Memory) ClearCurrentQuestion() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentQuestion = ""
}

func (m *Memory) SetLastUserText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastUserText = text
}

func (m *Memory) LastUserText() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastUserText
}

func (m *Memory) SetLastAIResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastAIResponse = text
}

func (m *Memory) LastAIResponse() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastAIResponse
}

func (m *Memory) SetLastOpenedApp(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastOpenedApp = name
}

func (m *Memory) LastOpenedApp() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastOpenedApp
}

func (m *Memory) AppendHistory(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, line)
}

// HistoryForPrompt renders the last few exchanges for classifier context.
func (m *Memory) HistoryForPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.history
	if len(lines) > historyPromptLines {
		lines = lines[len(lines)-historyPromptLines:]
	}

	return strings.Join(lines, "\n")
}

func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pendingIntent = ""
	m.parameters = make(map[string]any)
	m.currentQuestion = ""
	m.lastUserText = ""
	m.lastAIResponse = ""
	m.history = nil
}
