// Package chattest provides an in-memory chat.Conn for tests.
package chattest

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
)

// Received is a decoded event captured by a Conn.
type Received struct {
	Type    chat.EventType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Conn records every event sent to it.
type Conn struct {
	id string

	mu        sync.Mutex
	events    []Received
	closed    bool
	closeCode int
	reject    bool
}

// NewConn returns a Conn with the given ID.
func NewConn(id string) *Conn {
	return &Conn{id: id}
}

// ID implements chat.Conn.
func (c *Conn) ID() string { return c.id }

// Send implements chat.Conn.
func (c *Conn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.reject {
		return false
	}

	var r Received
	if err := json.Unmarshal(data, &r); err != nil {
		return false
	}
	c.events = append(c.events, r)
	return true
}

// Close implements chat.Conn.
func (c *Conn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
}

// Reject makes every following Send fail, like a full queue.
func (c *Conn) Reject() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reject = true
}

// Closed reports whether Close was called and with which code.
func (c *Conn) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

// Events returns a copy of everything received so far.
func (c *Conn) Events() []Received {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Received(nil), c.events...)
}

// OfType returns the received events of type t.
func (c *Conn) OfType(t chat.EventType) []Received {
	var out []Received
	for _, e := range c.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets received events.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// Decode unmarshals the payload of r into a T.
func Decode[T any](t *testing.T, r Received) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(r.Payload, &v))
	return v
}
