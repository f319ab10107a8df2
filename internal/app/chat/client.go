/*
Package chat contains the real-time core: authentication of connections, room subscriptions,
message relay, typing signals and the connection lifecycle.

This file defines the Client struct, the WebSocket transport of a connection. It runs the read
and write loops, keeps the heartbeat, and hands every inbound frame to the Manager.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
	"github.com/ahmadjilani1/chathub/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384

	// DefaultSendQueueSize is the outbound buffer of a connection.
	DefaultSendQueueSize = 256
)

// Client struct represents an active WebSocket connection. It implements Conn.
type Client struct {
	id string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// done is closed exactly once, when the connection is closed.
	done      chan struct{}
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient wraps wsConn with an outbound queue of queueSize messages.
func NewClient(wsConn *websocket.Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}

	id := randx.ConnID()

	return &Client{
		id:     id,
		conn:   wsConn,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
		logger: logx.Component("client").With().Str("conn_id", id).Logger(),
	}
}

// ID implements Conn.
func (c *Client) ID() string { return c.id }

// Send implements Conn. A client whose queue is full is too slow to keep up and is closed.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		// The write pump is stuck holding the write lock; closing inline would block the
		// sender for up to writeWait.
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, closing connection.")
		go c.Close(CloseTryAgainLater, "send queue full")
		return false
	}
}

// Close implements Conn. It sends a close frame with code and reason and tears the socket down.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.logger.Info().Int("close_code", code).Str("reason", reason).Msg("Closing connection.")

		// Stop accepting sends before the close frame, which may wait on a stuck write.
		close(c.done)

		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to write close frame.")
		}

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	})
}

// Run drives the connection until it closes. A non-empty token authenticates immediately;
// otherwise the client must send an authenticate event before the auth timeout.
func (c *Client) Run(ctx context.Context, m *Manager, token string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := m.Connect(c)

	go c.writePump()

	if token != "" {
		_ = m.Authenticate(ctx, session, token)
	}

	c.readPump(func(frame []byte) {
		m.HandleEvent(ctx, session, frame)
	})

	m.Disconnect(session)
	c.Close(websocket.CloseNormalClosure, "")
}

// readPump handles reading frames from the WebSocket connection until it fails or closes.
func (c *Client) readPump(handle func([]byte)) {
	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		handle(frame)
	}
}

// writePump handles writing queued messages and heartbeats to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			if !c.write(websocket.TextMessage, message) {
				c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				c.Close(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		}
	}
}

// write sends one frame with a write deadline. It returns false if the pump should stop.
func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing message")
		return false
	}

	return true
}
