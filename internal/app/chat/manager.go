/*
Package chat contains the real-time core: authentication of connections, room subscriptions,
message relay, typing signals and the connection lifecycle.

This file defines the Manager, which owns the shared state (presence, rooms, typing) and drives
each connection through Unauthenticated -> Authenticated -> Disconnected.
*/
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahmadjilani1/chathub/internal/app/presence"
	"github.com/ahmadjilani1/chathub/internal/app/user"
	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

const defaultAuthTimeout = 10 * time.Second

// State is the lifecycle state of a connection.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the lifecycle of one connection.
type Session struct {
	conn Conn

	mu        sync.Mutex
	state     State
	identity  user.Identity
	authTimer *time.Timer
}

// Conn returns the connection of the session.
func (s *Session) Conn() Conn { return s.conn }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the authenticated user; it is zero before authentication.
func (s *Session) Identity() user.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// ManagerConfig tunes a Manager.
type ManagerConfig struct {
	JWTSecret   string
	AuthTimeout time.Duration
}

// Manager coordinates presence, rooms, typing and message relay for all connections.
// Events of one connection must be passed in from a single goroutine, in arrival order.
type Manager struct {
	auth     *Authenticator
	presence *presence.Registry[Conn]
	rooms    *Rooms
	typing   *Typing
	relay    *Relay

	authTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	closing  bool

	// inflight counts event handlers and authentications still running.
	inflight sync.WaitGroup

	logger zerolog.Logger
}

// NewManager wires the core components over dir. Relay options configure message delivery.
func NewManager(dir Directory, offline OfflineNotifier, cfg ManagerConfig, opts ...RelayOption) *Manager {
	reg := presence.NewRegistry[Conn]()
	rooms := NewRooms(dir)

	timeout := cfg.AuthTimeout
	if timeout <= 0 {
		timeout = defaultAuthTimeout
	}

	return &Manager{
		auth:        NewAuthenticator(dir, cfg.JWTSecret),
		presence:    reg,
		rooms:       rooms,
		typing:      NewTyping(rooms),
		relay:       NewRelay(dir, rooms, reg, offline, opts...),
		authTimeout: timeout,
		sessions:    make(map[string]*Session),
		logger:      logx.Component("manager"),
	}
}

// Presence exposes the online registry for read-only queries.
func (m *Manager) Presence() *presence.Registry[Conn] { return m.presence }

// Rooms exposes the subscription index.
func (m *Manager) Rooms() *Rooms { return m.rooms }

// Typing exposes the typing broadcaster.
func (m *Manager) Typing() *Typing { return m.typing }

// OnlineUsers returns the IDs of all online users.
func (m *Manager) OnlineUsers() []string { return m.presence.Snapshot() }

// Connect starts the lifecycle of conn. If it is not authenticated within the auth timeout
// it is closed.
func (m *Manager) Connect(conn Conn) *Session {
	s := &Session{conn: conn, state: StateUnauthenticated}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		s.state = StateDisconnected
		conn.Close(CloseGoingAway, "server shutting down")
		return s
	}
	m.sessions[conn.ID()] = s
	m.mu.Unlock()

	s.mu.Lock()
	s.authTimer = time.AfterFunc(m.authTimeout, func() { m.expire(s) })
	s.mu.Unlock()

	m.logger.Debug().Str("conn_id", conn.ID()).Msg("Connection opened.")
	return s
}

// expire closes a session still unauthenticated after the auth timeout.
func (m *Manager) expire(s *Session) {
	s.mu.Lock()
	if s.state != StateUnauthenticated {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	m.logger.Info().Str("conn_id", s.conn.ID()).Msg("Authentication timeout, closing connection.")
	s.conn.Close(ClosePolicyViolation, "authentication timeout")
}

// Authenticate verifies token for an unauthenticated session. On failure the connection is
// closed and nothing else changes. On success the user is registered as online, a replaced
// connection is kicked, the user's chats are joined and the online snapshot is sent.
// Calls on a session that is not unauthenticated are ignored.
func (m *Manager) Authenticate(ctx context.Context, s *Session, token string) error {
	if !m.enter() {
		return errs.NewError(errs.ErrAuthFailed)
	}
	defer m.inflight.Done()

	return m.authenticate(ctx, s, token)
}

// enter registers a running handler. It returns false once Shutdown has begun.
func (m *Manager) enter() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		return false
	}
	m.inflight.Add(1)
	return true
}

func (m *Manager) authenticate(ctx context.Context, s *Session, token string) error {
	if s.State() != StateUnauthenticated {
		return nil
	}

	identity, err := m.auth.Authenticate(ctx, token)

	s.mu.Lock()
	if s.state != StateUnauthenticated {
		// Expired or disconnected while the directory was consulted.
		s.mu.Unlock()
		return errs.NewError(errs.ErrAuthFailed)
	}
	if s.authTimer != nil {
		s.authTimer.Stop()
	}
	if err != nil {
		s.state = StateDisconnected
		s.mu.Unlock()

		s.conn.Close(ClosePolicyViolation, "authentication failed")
		return err
	}
	s.state = StateAuthenticated
	s.identity = identity
	s.mu.Unlock()

	logger := m.logger.With().Str("conn_id", s.conn.ID()).Str("user_id", identity.ID).Logger()

	if prev, replaced := m.presence.Register(identity.ID, s.conn); replaced {
		logger.Info().Str("replaced_conn_id", prev.ID()).Msg("Session replaced, kicking previous connection.")
		prev.Close(CloseSessionKicked, errs.NewError(errs.ErrSessionKicked).Message)
	}

	m.broadcastStatus(identity.ID, StatusOnline, s.conn.ID())

	chats, err := m.rooms.JoinAll(ctx, s.conn, identity.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to join chats.")
		sendEvent(s.conn, ErrorEvent(err))
	}

	sendEvent(s.conn, NewEvent(EventOnlineUsersSnapshot, OnlineUsersSnapshotPayload{
		UserIDs: m.presence.Snapshot(),
	}))

	logger.Info().Int("chats", len(chats)).Msg("Connection authenticated.")
	return nil
}

// broadcastStatus tells every online connection except exceptConnID about userID.
func (m *Manager) broadcastStatus(userID, status, exceptConnID string) {
	data, err := NewEvent(EventUserStatus, UserStatusPayload{UserID: userID, Status: status}).Encode()
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to encode status event.")
		return
	}

	for _, c := range m.presence.Handles() {
		if c.ID() != exceptConnID {
			c.Send(data)
		}
	}
}

// HandleEvent dispatches one raw client event. It never panics; failures are reported to the
// client as error events where appropriate.
func (m *Manager) HandleEvent(ctx context.Context, s *Session, raw []byte) {
	if !m.enter() {
		m.logger.Debug().Str("conn_id", s.conn.ID()).Msg("Dropping event during shutdown.")
		return
	}
	defer m.inflight.Done()

	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error().
				Str("conn_id", s.conn.ID()).
				Interface("panic", rec).
				Msg("Recovered from panic while handling event.")
			sendEvent(s.conn, ErrorEvent(errs.NewError(errs.ErrUnknown)))
		}
	}()

	state := s.State()
	if state == StateDisconnected {
		return
	}

	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		if state == StateAuthenticated {
			sendEvent(s.conn, ErrorEvent(errs.NewError(errs.ErrMalformedEvent, "invalid JSON")))
		}
		return
	}

	if state == StateUnauthenticated {
		if in.Type != EventAuthenticate {
			m.logger.Debug().Str("conn_id", s.conn.ID()).Str("event", string(in.Type)).Msg("Ignoring event before authentication.")
			return
		}

		p, perr := DecodePayload[AuthenticatePayload](in.Payload)
		if perr != nil {
			_ = m.authenticate(ctx, s, "")
			return
		}
		_ = m.authenticate(ctx, s, p.Token)
		return
	}

	identity := s.Identity()
	logger := m.logger.With().
		Str("conn_id", s.conn.ID()).
		Str("user_id", identity.ID).
		Str("event", string(in.Type)).
		Logger()

	var err error
	switch in.Type {
	case EventAuthenticate:
		return

	case EventJoinChat:
		err = m.handleJoin(ctx, s, identity, in.Payload)

	case EventSendMessage:
		err = m.handleSend(ctx, s, identity, in)

	case EventSetTyping:
		err = m.handleTyping(s, identity, in.Payload)

	default:
		err = errs.NewError(errs.ErrUnsupportedEvent, string(in.Type))
	}

	if err == nil {
		return
	}

	if errs.HasCode(err, errs.ErrNotMember) {
		logger.Debug().Msg("Operation rejected: not a member.")
		return
	}

	logger.Warn().Err(err).Msg("Event failed.")

	evt := ErrorEvent(err)
	if p, ok := evt.Payload.(ErrorPayload); ok && in.TempID != "" {
		p.TempID = in.TempID
		evt.Payload = p
	}
	sendEvent(s.conn, evt)
}

func (m *Manager) handleJoin(ctx context.Context, s *Session, identity user.Identity, raw json.RawMessage) error {
	p, perr := DecodePayload[JoinChatPayload](raw)
	if perr != nil {
		return perr
	}

	if err := m.rooms.Join(ctx, s.conn, identity.ID, p.ChatID); err != nil {
		return err
	}

	m.typing.Forget(p.ChatID, identity.ID)
	return nil
}

func (m *Manager) handleSend(ctx context.Context, s *Session, identity user.Identity, in Inbound) error {
	p, perr := DecodePayload[SendMessagePayload](in.Payload)
	if perr != nil {
		return perr
	}
	if verr := p.Validate(); verr != nil {
		return verr
	}

	_, err := m.relay.Send(ctx, s.conn, identity, p, in.TempID)
	return err
}

func (m *Manager) handleTyping(s *Session, identity user.Identity, raw json.RawMessage) error {
	p, perr := DecodePayload[SetTypingPayload](raw)
	if perr != nil {
		return perr
	}

	if !m.typing.Set(s.conn, identity.ID, p.ChatID, *p.IsTyping) {
		return errs.NewError(errs.ErrNotMember)
	}
	return nil
}

// Disconnect ends the session. For an authenticated session it clears typing indicators,
// leaves all rooms and, unless a newer connection has replaced it, marks the user offline.
func (m *Manager) Disconnect(s *Session) {
	s.mu.Lock()
	prev := s.state
	s.state = StateDisconnected
	if s.authTimer != nil {
		s.authTimer.Stop()
	}
	identity := s.identity
	s.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, s.conn.ID())
	m.mu.Unlock()

	if prev != StateAuthenticated {
		return
	}

	logger := m.logger.With().Str("conn_id", s.conn.ID()).Str("user_id", identity.ID).Logger()

	m.typing.Clear(s.conn, identity.ID)
	m.rooms.LeaveAll(s.conn.ID())

	if !m.presence.Unregister(identity.ID, s.conn) {
		logger.Debug().Msg("Stale registration: user already reconnected elsewhere.")
		return
	}

	m.broadcastStatus(identity.ID, StatusOffline, s.conn.ID())
	logger.Info().Msg("Connection disconnected.")
}

// Shutdown closes every open connection, waits for handlers already running (a message being
// persisted is delivered in full) and then for background message work. Events arriving after
// Shutdown has begun are dropped.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	m.mu.Lock()
	m.closing = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.conn.Close(CloseGoingAway, "server shutting down")
	}

	m.inflight.Wait()
	m.relay.Wait()

	m.logger.Info().Int("closed", len(sessions)).Msg("Manager shutdown complete.")
}
