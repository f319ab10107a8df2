package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newStalledClient returns a server-side Client whose peer never reads.
func newStalledClient(t *testing.T, queueSize int) *Client {
	t.Helper()

	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })

	select {
	case conn := <-accepted:
		return NewClient(conn, queueSize)
	case <-time.After(2 * time.Second):
		t.Fatal("upgrade did not complete")
		return nil
	}
}

func TestClient_FullQueueDoesNotBlockSender(t *testing.T) {
	req := require.New(t)
	c := newStalledClient(t, 1)
	go c.writePump()

	payload := []byte(`"` + strings.Repeat("x", 1<<20) + `"`)

	// Keep sending until the socket buffers fill and the queue overflows
	rejected := false
	for i := 0; i < 512 && !rejected; i++ {
		start := time.Now()
		rejected = !c.Send(payload)
		req.Less(time.Since(start), time.Second, "send %d blocked the caller", i)
	}
	req.True(rejected, "queue never overflowed")

	// Once rejected, the client is marked closed immediately and later sends fail fast
	start := time.Now()
	req.Eventually(func() bool {
		select {
		case <-c.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	req.False(c.Send(payload))
	req.Less(time.Since(start), 2*time.Second)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := newStalledClient(t, 4)

	c.Close(CloseGoingAway, "bye")
	c.Close(CloseSessionKicked, "again")

	require.False(t, c.Send([]byte(`{}`)))
}
