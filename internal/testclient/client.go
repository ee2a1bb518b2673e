// Package testclient drives a running inspector over WebSocket. It is used by
// integration tests and scripted sessions.
package testclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/steamtunnels/internal/command"
)

// Response is one message from the inspector.
type Response struct {
	Session string `json:"session"`
	command.Result
}

// TestClient represents a test client connection to the inspector
type TestClient struct {
	Name      string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	responses []Response
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to an inspector WebSocket URL such as ws://host:8420/ws,
// retrying with exponential backoff while the server starts up.
func Dial(ctx context.Context, name, url string) (*TestClient, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil && resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Refused by policy; retrying won't help.
			return nil, backoff.Permanent(fmt.Errorf("dial %s: %s", url, resp.Status))
		}
		return conn, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(8))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name: name,
		conn: conn,
		done: make(chan struct{}),
	}

	// Start reading messages in background
	go client.readMessages()

	return client, nil
}

// readMessages continuously reads responses from the server
func (c *TestClient) readMessages() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.closeOnce.Do(func() { close(c.done) })
			return
		}
		var r Response
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		c.mu.Lock()
		c.responses = append(c.responses, r)
		c.mu.Unlock()
	}
}

// SendCommand sends a command line to the server
func (c *TestClient) SendCommand(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// Do sends a command and waits for its response.
func (c *TestClient) Do(line string, timeout time.Duration) (Response, error) {
	seen := len(c.Responses())
	if err := c.SendCommand(line); err != nil {
		return Response{}, err
	}

	name := command.ParseCommand(line).Name
	r, ok := c.waitFrom(seen, timeout, func(r Response) bool { return r.Command == name })
	if !ok {
		return Response{}, fmt.Errorf("no response to %q within %s", line, timeout)
	}
	return r, nil
}

// Responses returns all responses received so far
func (c *TestClient) Responses() []Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy
	result := make([]Response, len(c.responses))
	copy(result, c.responses)
	return result
}

// Last returns the most recent response
func (c *TestClient) Last() (Response, bool) {
	responses := c.Responses()
	if len(responses) == 0 {
		return Response{}, false
	}
	return responses[len(responses)-1], true
}

// Session returns the session id from the hello message, if it has arrived.
func (c *TestClient) Session() string {
	for _, r := range c.Responses() {
		if r.Command == "hello" {
			return r.Session
		}
	}
	return ""
}

// ClearResponses clears the response buffer
func (c *TestClient) ClearResponses() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = nil
}

// WaitFor waits for a response to the named command (with timeout)
func (c *TestClient) WaitFor(name string, timeout time.Duration) (Response, bool) {
	return c.waitFrom(0, timeout, func(r Response) bool { return r.Command == name })
}

// WaitForMessage waits for a response whose message or error contains text
func (c *TestClient) WaitForMessage(text string, timeout time.Duration) bool {
	_, ok := c.waitFrom(0, timeout, func(r Response) bool {
		return strings.Contains(r.Message, text) || strings.Contains(r.Error, text)
	})
	return ok
}

func (c *TestClient) waitFrom(start int, timeout time.Duration, match func(Response) bool) (Response, bool) {
	deadline := time.Now().Add(timeout)

	for {
		responses := c.Responses()
		for i := start; i < len(responses); i++ {
			if match(responses[i]) {
				return responses[i], true
			}
		}
		if time.Now().After(deadline) {
			return Response{}, false
		}
		select {
		case <-c.done:
			// Check anything that arrived before the close.
			for i, r := range c.Responses() {
				if i >= start && match(r) {
					return r, true
				}
			}
			return Response{}, false
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Closed reports whether the server has closed the connection.
func (c *TestClient) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close closes the client connection
func (c *TestClient) Close() error {
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// PrintResponses prints all responses (for debugging)
func (c *TestClient) PrintResponses() {
	fmt.Printf("\n=== Responses for %s ===\n", c.Name)
	for i, r := range c.Responses() {
		status := "ok"
		if !r.OK {
			status = r.Error
		}
		fmt.Printf("[%d] %s wave=%d %s %s\n", i, r.Command, r.Wave, status, r.Message)
	}
	fmt.Println("======================")
}
