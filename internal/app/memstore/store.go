/*
Package memstore is an in-process chat.Directory.

It backs the development STORE_DRIVER=memory mode and tests. Data lives only as long as the
process; every returned value is a copy.
*/
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/user"
)

type chatRecord struct {
	membership chat.Membership
	latest     string
	messages   []chat.Message
}

// Store implements chat.Directory in memory.
type Store struct {
	mu    sync.RWMutex
	users map[string]user.Identity
	chats map[string]*chatRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string]user.Identity),
		chats: make(map[string]*chatRecord),
	}
}

// AddUser inserts or replaces a user.
func (s *Store) AddUser(u user.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID] = u
}

// AddChat inserts or replaces a chat and its members.
func (s *Store) AddChat(m chat.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Members = slices.Clone(m.Members)
	if rec, ok := s.chats[m.ChatID]; ok {
		rec.membership = m
		return
	}
	s.chats[m.ChatID] = &chatRecord{membership: m}
}

// AddMember adds userID to an existing chat.
func (s *Store) AddMember(chatID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.chats[chatID]; ok && !rec.membership.HasMember(userID) {
		rec.membership.Members = append(rec.membership.Members, userID)
	}
}

// Messages returns the stored messages of chatID in creation order.
func (s *Store) Messages(chatID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	return slices.Clone(rec.messages)
}

// LatestMessage returns the latest-message pointer of chatID.
func (s *Store) LatestMessage(chatID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.chats[chatID]; ok {
		return rec.latest
	}
	return ""
}

// ResolveIdentity implements chat.Directory.
func (s *Store) ResolveIdentity(_ context.Context, userID string) (user.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return user.Identity{}, chat.ErrNotFound
	}
	return u, nil
}

// GetChatsForUser implements chat.Directory.
func (s *Store) GetChatsForUser(_ context.Context, userID string) ([]chat.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Membership
	for _, rec := range s.chats {
		if rec.membership.HasMember(userID) {
			out = append(out, cloneMembership(rec.membership))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

// GetChat implements chat.Directory.
func (s *Store) GetChat(_ context.Context, chatID string) (chat.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.chats[chatID]
	if !ok {
		return chat.Membership{}, chat.ErrNotFound
	}
	return cloneMembership(rec.membership), nil
}

// IsMember implements chat.Directory.
func (s *Store) IsMember(_ context.Context, userID, chatID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.chats[chatID]
	return ok && rec.membership.HasMember(userID), nil
}

// CreateMessage implements chat.Directory.
func (s *Store) CreateMessage(_ context.Context, msg chat.NewMessage) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.chats[msg.ChatID]
	if !ok {
		return chat.Message{}, chat.ErrNotFound
	}

	stored := chat.Message{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		Content:     msg.Content,
		Attachments: slices.Clone(msg.Attachments),
		CreatedAt:   msg.CreatedAt,
	}
	rec.messages = append(rec.messages, stored)

	return stored, nil
}

// UpdateLatestMessage implements chat.Directory.
func (s *Store) UpdateLatestMessage(_ context.Context, chatID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.chats[chatID]
	if !ok {
		return chat.ErrNotFound
	}

	if !lo.ContainsBy(rec.messages, func(m chat.Message) bool { return m.ID == messageID }) {
		return chat.ErrNotFound
	}

	rec.latest = messageID
	return nil
}

// ResolveSenderMetadata implements chat.Directory.
func (s *Store) ResolveSenderMetadata(_ context.Context, msg chat.Message) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[msg.SenderID]
	if !ok {
		return msg, chat.ErrNotFound
	}

	msg.Sender = &u
	return msg, nil
}

func cloneMembership(m chat.Membership) chat.Membership {
	m.Members = slices.Clone(m.Members)
	return m
}
