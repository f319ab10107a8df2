package chat

import "github.com/gorilla/websocket"

// Close codes sent to clients.
const (
	// CloseSessionKicked tells the client its session was replaced by a newer connection.
	CloseSessionKicked = 4001

	// ClosePolicyViolation is used for failed or missing authentication.
	ClosePolicyViolation = websocket.ClosePolicyViolation

	// CloseTryAgainLater is used when a client cannot keep up with its outbound queue.
	CloseTryAgainLater = websocket.CloseTryAgainLater

	// CloseGoingAway is used on server shutdown.
	CloseGoingAway = websocket.CloseGoingAway
)

// Conn is a live client connection as seen by the core.
type Conn interface {
	// ID is unique per connection, not per user.
	ID() string

	// Send enqueues an encoded event without blocking and reports whether it was accepted.
	Send(data []byte) bool

	// Close terminates the connection with a close code. It is idempotent.
	Close(code int, reason string)
}

// sendEvent encodes evt and enqueues it on conn.
func sendEvent(conn Conn, evt Event) bool {
	data, err := evt.Encode()
	if err != nil {
		return false
	}
	return conn.Send(data)
}
