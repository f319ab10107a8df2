/*
Package chat contains the real-time core: authentication of connections, room subscriptions,
message relay, typing signals and the connection lifecycle.

This file defines Rooms, the index of which connections are subscribed to which chat.
A connection is only ever subscribed after the directory confirmed membership; the index is
kept independent of the transport so it can be driven and observed directly.
*/
package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

// Rooms maps chat IDs to subscribed connections and back.
// Directory lookups happen before the lock is taken; the lock only guards the maps.
type Rooms struct {
	dir Directory

	mu sync.RWMutex

	// subscribers is chatID -> connID -> Conn.
	subscribers map[string]map[string]Conn

	// chats is connID -> set of chatIDs, used to unsubscribe on disconnect.
	chats map[string]map[string]struct{}

	logger zerolog.Logger
}

// NewRooms creates an empty index backed by dir for membership checks.
func NewRooms(dir Directory) *Rooms {
	return &Rooms{
		dir:         dir,
		subscribers: make(map[string]map[string]Conn),
		chats:       make(map[string]map[string]struct{}),
		logger:      logx.Component("rooms"),
	}
}

// JoinAll subscribes conn to every chat userID belongs to and returns their IDs.
func (r *Rooms) JoinAll(ctx context.Context, conn Conn, userID string) ([]string, error) {
	memberships, err := r.dir.GetChatsForUser(ctx, userID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrStorage, err)
	}

	chatIDs := make([]string, 0, len(memberships))

	r.mu.Lock()
	for _, m := range memberships {
		r.subscribeLocked(conn, m.ChatID)
		chatIDs = append(chatIDs, m.ChatID)
	}
	r.mu.Unlock()

	r.logger.Debug().
		Str("conn_id", conn.ID()).
		Str("user_id", userID).
		Int("chats", len(chatIDs)).
		Msg("Connection joined its chats.")

	return chatIDs, nil
}

// Join re-checks membership and subscribes conn to chatID. A non-member gets ErrNotMember,
// and nothing is subscribed or broadcast. On success the room is told userID stopped typing,
// clearing any indicator left over from an earlier session.
func (r *Rooms) Join(ctx context.Context, conn Conn, userID, chatID string) error {
	ok, err := r.dir.IsMember(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errs.NewError(errs.ErrNotMember)
		}
		return errs.Wrap(errs.ErrStorage, err)
	}
	if !ok {
		return errs.NewError(errs.ErrNotMember)
	}

	r.mu.Lock()
	r.subscribeLocked(conn, chatID)
	r.mu.Unlock()

	r.Broadcast(chatID, NewEvent(EventTypingStatus, TypingStatusPayload{
		ChatID:   chatID,
		UserID:   userID,
		IsTyping: false,
	}), conn.ID())

	return nil
}

func (r *Rooms) subscribeLocked(conn Conn, chatID string) {
	subs, ok := r.subscribers[chatID]
	if !ok {
		subs = make(map[string]Conn)
		r.subscribers[chatID] = subs
	}
	subs[conn.ID()] = conn

	joined, ok := r.chats[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		r.chats[conn.ID()] = joined
	}
	joined[chatID] = struct{}{}
}

// Leave unsubscribes connID from chatID.
func (r *Rooms) Leave(connID, chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connID, chatID)
}

// LeaveAll unsubscribes connID from every room and returns the chats it left.
func (r *Rooms) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.chats[connID]
	left := make([]string, 0, len(joined))
	for chatID := range joined {
		r.leaveLocked(connID, chatID)
		left = append(left, chatID)
	}

	return left
}

func (r *Rooms) leaveLocked(connID, chatID string) {
	if subs, ok := r.subscribers[chatID]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.subscribers, chatID)
		}
	}

	if joined, ok := r.chats[connID]; ok {
		delete(joined, chatID)
		if len(joined) == 0 {
			delete(r.chats, connID)
		}
	}
}

// IsSubscribed reports whether connID is subscribed to chatID.
func (r *Rooms) IsSubscribed(connID, chatID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.subscribers[chatID][connID]
	return ok
}

// Subscribers returns the connections currently subscribed to chatID.
func (r *Rooms) Subscribers(chatID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.subscribers[chatID]
	conns := make([]Conn, 0, len(subs))
	for _, c := range subs {
		conns = append(conns, c)
	}
	return conns
}

// ChatsOf returns the chats connID is subscribed to.
func (r *Rooms) ChatsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.chats[connID]
	ids := make([]string, 0, len(joined))
	for id := range joined {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast sends evt to every subscriber of chatID except exceptConnID and returns how many
// connections accepted it. The event is encoded once; sends never block.
func (r *Rooms) Broadcast(chatID string, evt Event, exceptConnID string) int {
	data, err := evt.Encode()
	if err != nil {
		r.logger.Error().Err(err).Str("chat_id", chatID).Str("event", string(evt.Type)).Msg("Failed to encode broadcast event.")
		return 0
	}

	delivered := 0
	for _, c := range r.Subscribers(chatID) {
		if c.ID() == exceptConnID {
			continue
		}
		if c.Send(data) {
			delivered++
		}
	}

	return delivered
}
