package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"sam/app/config"

	"github.com/gorilla/websocket"
	"github.com/samber/do"
)

// Client talks to a Chrome instance started with --remote-debugging-port.
// Page scripting goes through Runtime.evaluate on the tab's debugger socket.
type Client struct {
	cfg  *config.Config
	http *http.Client

	mu     sync.Mutex
	nextID int
}

type Tab struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

// Running reports whether the debugging endpoint answers at all.
func (c *Client) Running(ctx context.Context) bool {
	_, err := c.Tabs(ctx)
	return err == nil
}

func (c *Client) Tabs(ctx context.Context) ([]Tab, error) {
	url := fmt.Sprintf("http://localhost:%d/json", c.cfg.Chrome.DebugPort)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tabs request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	defer resp.Body.Close()

	var tabs []Tab
	if err = json.NewDecoder(resp.Body).Decode(&tabs); err != nil {
		return nil, fmt.Errorf("failed to decode tab list: %w", err)
	}

	return tabs, nil
}

// FindTab returns the first tab whose URL contains urlPart, or nil.
func (c *Client) FindTab(ctx context.Context, urlPart string) (*Tab, error) {
	tabs, err := c.Tabs(ctx)
	if err != nil {
		return nil, err
	}

	for i := range tabs {
		if strings.Contains(tabs[i].URL, urlPart) {
			return &tabs[i], nil
		}
	}

	return nil, nil
}

type evaluateRequest struct {
	ID     int            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type evaluateResponse struct {
	ID     int `json:"id"`
	Result struct {
		Result struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	} `json:"result"`
}

// Eval runs a JS expression in the tab and returns the JSON-encoded value.
// Expressions are expected to return a JSON string (the page side serializes).
func (c *Client) Eval(ctx context.Context, tab *Tab, expression string) (json.RawMessage, error) {
	if tab == nil || tab.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("tab has no debugger url")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.DialContext(ctx, tab.WebSocketDebuggerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial debugger socket: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	req := evaluateRequest{
		ID:     id,
		Method: "Runtime.evaluate",
		Params: map[string]any{
			"expression":    expression,
			"returnByValue": true,
		},
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluate request: %w", err)
	}

	if err = conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, fmt.Errorf("failed to send evaluate request: %w", err)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read evaluate response: %w", err)
		}

		var resp evaluateResponse
		if err = json.Unmarshal(msg, &resp); err != nil {
			continue
		}

		// events carry no id; wait for our reply
		if resp.ID != id {
			continue
		}

		if resp.Result.ExceptionDetails != nil {
			return nil, fmt.Errorf("page script failed: %s", resp.Result.ExceptionDetails.Text)
		}

		return resp.Result.Result.Value, nil
	}
}

// EvalInto evaluates an expression that returns a JSON string and decodes it.
func (c *Client) EvalInto(ctx context.Context, tab *Tab, expression string, out any) error {
	value, err := c.Eval(ctx, tab, expression)
	if err != nil {
		return err
	}

	var encoded string
	if err = json.Unmarshal(value, &encoded); err != nil {
		return fmt.Errorf("expression did not return a JSON string: %w", err)
	}

	if err = json.Unmarshal([]byte(encoded), out); err != nil {
		return fmt.Errorf("failed to decode page result: %w", err)
	}

	return nil
}
