package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/chat/chattest"
	"github.com/ahmadjilani1/chathub/internal/app/chat/mocks"
	"github.com/ahmadjilani1/chathub/internal/app/memstore"
	"github.com/ahmadjilani1/chathub/internal/app/notify"
	"github.com/ahmadjilani1/chathub/internal/app/user"
	"github.com/ahmadjilani1/chathub/internal/pkg/auth/jwt"
	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
)

const testSecret = "manager-test-secret"

// newManager seeds Alice, Bob and Carol with group c1 (all three) and direct c2 (Alice and Bob).
func newManager(t *testing.T, timeout time.Duration) (*chat.Manager, *memstore.Store, *offlineRecorder) {
	t.Helper()

	store := memstore.New()
	for _, u := range []user.Identity{alice, bob, carol} {
		store.AddUser(u)
	}
	store.AddChat(chat.Membership{ChatID: "c1", IsGroup: true, Name: "Team", Members: []string{alice.ID, bob.ID, carol.ID}})
	store.AddChat(chat.Membership{ChatID: "c2", Members: []string{alice.ID, bob.ID}})
	store.AddChat(chat.Membership{ChatID: "c3", IsGroup: true, Name: "Other", Members: []string{carol.ID}})

	offline := &offlineRecorder{}
	m := chat.NewManager(store, offline, chat.ManagerConfig{JWTSecret: testSecret, AuthTimeout: timeout})
	t.Cleanup(m.Shutdown)

	return m, store, offline
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()

	token, err := jwt.GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func connect(t *testing.T, m *chat.Manager, connID, userID string) (*chat.Session, *chattest.Conn) {
	t.Helper()

	conn := chattest.NewConn(connID)
	s := m.Connect(conn)
	require.NoError(t, m.Authenticate(context.Background(), s, tokenFor(t, userID)))
	return s, conn
}

func event(t *testing.T, typ chat.EventType, payload any, tempID string) []byte {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(chat.Inbound{Type: typ, Payload: raw, TempID: tempID})
	require.NoError(t, err)
	return data
}

func TestManager_AuthenticateJoinsChatsAndAnnounces(t *testing.T) {
	req := require.New(t)
	m, _, _ := newManager(t, time.Minute)

	_, b := connect(t, m, "conn-b", bob.ID)
	b.Reset()

	s, a := connect(t, m, "conn-a", alice.ID)

	req.Equal(chat.StateAuthenticated, s.State())
	req.Equal("Alice", s.Identity().Name)
	req.True(m.Presence().IsOnline(alice.ID))
	req.ElementsMatch([]string{"c1", "c2"}, m.Rooms().ChatsOf("conn-a"))

	snapshots := a.OfType(chat.EventOnlineUsersSnapshot)
	req.Len(snapshots, 1)
	req.Equal([]string{alice.ID, bob.ID}, chattest.Decode[chat.OnlineUsersSnapshotPayload](t, snapshots[0]).UserIDs)
	req.Empty(a.OfType(chat.EventUserStatus))

	statuses := b.OfType(chat.EventUserStatus)
	req.Len(statuses, 1)
	req.Equal(chat.UserStatusPayload{UserID: alice.ID, Status: chat.StatusOnline}, chattest.Decode[chat.UserStatusPayload](t, statuses[0]))
}

func TestManager_AuthenticationFailureCloses(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: func() string {
			tok, _ := jwt.GenerateToken(alice.ID, "other-secret", time.Hour)
			return tok
		}()},
		{name: "unknown user", token: func() string {
			tok, _ := jwt.GenerateToken("u-ghost", testSecret, time.Hour)
			return tok
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			m, _, _ := newManager(t, time.Minute)
			_, b := connect(t, m, "conn-b", bob.ID)
			b.Reset()

			conn := chattest.NewConn("conn-x")
			s := m.Connect(conn)
			err := m.Authenticate(context.Background(), s, tt.token)

			req.True(errs.HasCode(err, errs.ErrAuthFailed))
			req.Equal(chat.StateDisconnected, s.State())
			closed, code := conn.Closed()
			req.True(closed)
			req.Equal(chat.ClosePolicyViolation, code)
			req.Equal([]string{bob.ID}, m.OnlineUsers())
			req.Empty(b.Events())
		})
	}
}

func TestManager_IgnoresEventsBeforeAuthentication(t *testing.T) {
	req := require.New(t)
	m, store, _ := newManager(t, time.Minute)

	conn := chattest.NewConn("conn-a")
	s := m.Connect(conn)

	m.HandleEvent(context.Background(), s, event(t, chat.EventSendMessage, chat.SendMessagePayload{ChatID: "c1", Content: "hi"}, "t1"))
	m.HandleEvent(context.Background(), s, []byte("{nope"))

	req.Empty(conn.Events())
	req.Empty(store.Messages("c1"))
	req.Equal(chat.StateUnauthenticated, s.State())
}

func TestManager_InBandAuthentication(t *testing.T) {
	req := require.New(t)
	m, _, _ := newManager(t, time.Minute)

	conn := chattest.NewConn("conn-a")
	s := m.Connect(conn)
	m.HandleEvent(context.Background(), s, event(t, chat.EventAuthenticate, chat.AuthenticatePayload{Token: tokenFor(t, alice.ID)}, ""))

	req.Equal(chat.StateAuthenticated, s.State())
	req.Len(conn.OfType(chat.EventOnlineUsersSnapshot), 1)

	// A second authenticate is ignored
	m.HandleEvent(context.Background(), s, event(t, chat.EventAuthenticate, chat.AuthenticatePayload{Token: "bogus"}, ""))
	req.Equal(chat.StateAuthenticated, s.State())
	closed, _ := conn.Closed()
	req.False(closed)
}

func TestManager_AuthenticationTimeout(t *testing.T) {
	m, _, _ := newManager(t, 20*time.Millisecond)

	conn := chattest.NewConn("conn-a")
	s := m.Connect(conn)

	require.Eventually(t, func() bool {
		closed, code := conn.Closed()
		return closed && code == chat.ClosePolicyViolation
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, chat.StateDisconnected, s.State())

	// Too late now
	m.HandleEvent(context.Background(), s, event(t, chat.EventAuthenticate, chat.AuthenticatePayload{Token: tokenFor(t, alice.ID)}, ""))
	require.False(t, m.Presence().IsOnline(alice.ID))
}

func TestManager_SecondConnectionKicksFirst(t *testing.T) {
	req := require.New(t)
	m, _, _ := newManager(t, time.Minute)

	_, b := connect(t, m, "conn-b", bob.ID)
	s1, a1 := connect(t, m, "conn-a1", alice.ID)
	b.Reset()

	_, a2 := connect(t, m, "conn-a2", alice.ID)

	closed, code := a1.Closed()
	req.True(closed)
	req.Equal(chat.CloseSessionKicked, code)

	conn, ok := m.Presence().Lookup(alice.ID)
	req.True(ok)
	req.Equal("conn-a2", conn.ID())

	// The old connection's cleanup must not mark Alice offline
	m.Disconnect(s1)
	req.True(m.Presence().IsOnline(alice.ID))
	req.Len(b.OfType(chat.EventUserStatus), 1)
	req.ElementsMatch([]string{"c1", "c2"}, m.Rooms().ChatsOf("conn-a2"))
	req.Empty(m.Rooms().ChatsOf("conn-a1"))
	req.Len(a2.OfType(chat.EventOnlineUsersSnapshot), 1)
}

func TestManager_DisconnectAnnouncesOfflineAndClearsTyping(t *testing.T) {
	req := require.New(t)
	m, _, _ := newManager(t, time.Minute)

	_, b := connect(t, m, "conn-b", bob.ID)
	sa, _ := connect(t, m, "conn-a", alice.ID)

	m.HandleEvent(context.Background(), sa, event(t, chat.EventSetTyping, map[string]any{"chatId": "c1", "isTyping": true}, ""))
	req.True(m.Typing().IsTyping("c1", alice.ID))
	b.Reset()

	m.Disconnect(sa)

	req.False(m.Presence().IsOnline(alice.ID))
	req.Empty(m.Rooms().ChatsOf("conn-a"))
	req.False(m.Typing().IsTyping("c1", alice.ID))

	typing := b.OfType(chat.EventTypingStatus)
	req.Len(typing, 1)
	req.Equal(chat.TypingStatusPayload{ChatID: "c1", UserID: alice.ID, IsTyping: false}, chattest.Decode[chat.TypingStatusPayload](t, typing[0]))

	statuses := b.OfType(chat.EventUserStatus)
	req.Len(statuses, 1)
	req.Equal(chat.StatusOffline, chattest.Decode[chat.UserStatusPayload](t, statuses[0]).Status)

	// Disconnected is terminal
	m.HandleEvent(context.Background(), sa, event(t, chat.EventSendMessage, chat.SendMessagePayload{ChatID: "c1", Content: "ghost"}, "t"))
	req.Equal(chat.StateDisconnected, sa.State())
	req.Empty(b.OfType(chat.EventNewMessage))
}

func TestManager_SendMessageEndToEnd(t *testing.T) {
	req := require.New(t)
	m, store, offline := newManager(t, time.Minute)

	_, b := connect(t, m, "conn-b", bob.ID)
	sa, a := connect(t, m, "conn-a", alice.ID)
	a.Reset()
	b.Reset()

	m.HandleEvent(context.Background(), sa, event(t, chat.EventSendMessage, chat.SendMessagePayload{ChatID: "c1", Content: "hello team"}, "tmp-42"))

	stored := store.Messages("c1")
	req.Len(stored, 1)
	req.Equal(stored[0].ID, store.LatestMessage("c1"))

	acks := a.OfType(chat.EventMessageAck)
	req.Len(acks, 1)
	ack := chattest.Decode[chat.MessageAckPayload](t, acks[0])
	req.Equal("tmp-42", ack.TempID)
	req.Equal(stored[0].ID, ack.ID)

	msgs := b.OfType(chat.EventNewMessage)
	req.Len(msgs, 1)
	got := chattest.Decode[chat.NewMessagePayload](t, msgs[0]).Message
	req.Equal("hello team", got.Content)
	req.Equal("Alice", got.Sender.Name)
	req.Len(b.OfType(chat.EventNotification), 1)

	req.Len(offline.jobs, 1)
	req.Equal(carol.ID, offline.jobs[0].UserID)
}

func TestManager_SendMessageRejections(t *testing.T) {
	req := require.New(t)
	m, store, _ := newManager(t, time.Minute)
	sa, a := connect(t, m, "conn-a", alice.ID)
	a.Reset()

	// Not a member of c3: silent
	m.HandleEvent(context.Background(), sa, event(t, chat.EventSendMessage, chat.SendMessagePayload{ChatID: "c3", Content: "hi"}, "t1"))
	req.Empty(a.Events())
	req.Empty(store.Messages("c3"))

	// Empty message
	m.HandleEvent(context.Background(), sa, event(t, chat.EventSendMessage, chat.SendMessagePayload{ChatID: "c1", Content: "   "}, "t2"))
	errsGot := a.OfType(chat.EventError)
	req.Len(errsGot, 1)
	p := chattest.Decode[chat.ErrorPayload](t, errsGot[0])
	req.Equal(errs.ErrMessageEmpty, p.Code)
	req.Equal("t2", p.TempID)
	req.Empty(store.Messages("c1"))
}

func TestManager_MalformedAndUnsupportedEvents(t *testing.T) {
	req := require.New(t)
	m, _, _ := newManager(t, time.Minute)
	sa, a := connect(t, m, "conn-a", alice.ID)
	a.Reset()

	m.HandleEvent(context.Background(), sa, []byte("{nope"))
	m.HandleEvent(context.Background(), sa, []byte(`{"type":"joinChat","payload":{"chatId":"c1","extra":1}}`))
	m.HandleEvent(context.Background(), sa, []byte(`{"type":"dance","payload":{}}`))

	got := a.OfType(chat.EventError)
	req.Len(got, 3)
	req.Equal(errs.ErrMalformedEvent, chattest.Decode[chat.ErrorPayload](t, got[0]).Code)
	req.Equal(errs.ErrMalformedEvent, chattest.Decode[chat.ErrorPayload](t, got[1]).Code)
	req.Equal(errs.ErrUnsupportedEvent, chattest.Decode[chat.ErrorPayload](t, got[2]).Code)
	req.Equal(chat.StateAuthenticated, sa.State())
}

func TestManager_JoinChatAfterMembershipChange(t *testing.T) {
	req := require.New(t)
	m, store, _ := newManager(t, time.Minute)
	sa, a := connect(t, m, "conn-a", alice.ID)
	a.Reset()

	join := event(t, chat.EventJoinChat, chat.JoinChatPayload{ChatID: "c3"}, "")

	m.HandleEvent(context.Background(), sa, join)
	req.False(m.Rooms().IsSubscribed("c3", "conn-a"))
	req.Empty(a.Events())

	store.AddMember("c3", alice.ID)
	m.HandleEvent(context.Background(), sa, join)
	req.True(m.Rooms().IsSubscribed("c3", "conn-a"))
}

func TestManager_TypingRequiresSubscription(t *testing.T) {
	req := require.New(t)
	m, _, _ := newManager(t, time.Minute)
	_, b := connect(t, m, "conn-b", bob.ID)
	sa, a := connect(t, m, "conn-a", alice.ID)
	a.Reset()
	b.Reset()

	m.HandleEvent(context.Background(), sa, event(t, chat.EventSetTyping, map[string]any{"chatId": "c3", "isTyping": true}, ""))
	req.Empty(a.Events())
	req.False(m.Typing().IsTyping("c3", alice.ID))

	m.HandleEvent(context.Background(), sa, event(t, chat.EventSetTyping, map[string]any{"chatId": "c2", "isTyping": true}, ""))
	req.Len(b.OfType(chat.EventTypingStatus), 1)
	req.Empty(a.OfType(chat.EventTypingStatus))
}

func TestManager_ShutdownClosesConnections(t *testing.T) {
	m, _, _ := newManager(t, time.Minute)
	_, a := connect(t, m, "conn-a", alice.ID)
	pending := chattest.NewConn("conn-p")
	m.Connect(pending)

	m.Shutdown()

	// Connections arriving after shutdown are turned away
	late := chattest.NewConn("conn-late")
	s := m.Connect(late)
	require.Equal(t, chat.StateDisconnected, s.State())

	for _, c := range []*chattest.Conn{a, pending, late} {
		closed, code := c.Closed()
		require.True(t, closed)
		require.Equal(t, chat.CloseGoingAway, code)
	}
}

func TestManager_ShutdownWaitsForMessageBeingPersisted(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)
	offline := &offlineRecorder{}

	m := chat.NewManager(dir, offline, chat.ManagerConfig{JWTSecret: testSecret, AuthTimeout: time.Minute},
		chat.WithPointerBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))

	pair := chat.Membership{ChatID: "c1", Members: []string{alice.ID, bob.ID}}
	dir.EXPECT().ResolveIdentity(gomock.Any(), alice.ID).Return(alice, nil)
	dir.EXPECT().GetChatsForUser(gomock.Any(), alice.ID).Return([]chat.Membership{pair}, nil)
	sa, _ := connect(t, m, "conn-a", alice.ID)

	persisting := make(chan struct{})
	release := make(chan struct{})
	var pointerAttempts atomic.Int32

	dir.EXPECT().GetChat(gomock.Any(), "c1").Return(pair, nil)
	dir.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg chat.NewMessage) (chat.Message, error) {
		close(persisting)
		<-release
		return storedFrom(msg), nil
	})
	dir.EXPECT().ResolveSenderMetadata(gomock.Any(), gomock.Any()).DoAndReturn(withSender(alice))
	dir.EXPECT().UpdateLatestMessage(gomock.Any(), "c1", gomock.Any()).DoAndReturn(func(context.Context, string, string) error {
		pointerAttempts.Add(1)
		return errors.New("connection refused")
	}).AnyTimes()

	go m.HandleEvent(context.Background(), sa, event(t, chat.EventSendMessage, chat.SendMessagePayload{ChatID: "c1", Content: "last words"}, "tmp-9"))
	<-persisting

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		m.Shutdown()
	}()

	// Shutdown must not return while the message is still being stored
	req.Never(func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 5*time.Millisecond)

	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return")
	}

	// One inline attempt plus every background retry finished before Shutdown returned
	req.EqualValues(6, pointerAttempts.Load())
	req.Equal([]notify.Job{{UserID: bob.ID, ChatID: "c1", Summary: "New message from Alice"}}, offline.jobs)

	// Nothing else runs afterwards
	time.Sleep(20 * time.Millisecond)
	req.EqualValues(6, pointerAttempts.Load())
}
