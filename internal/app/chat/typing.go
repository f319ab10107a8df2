package chat

import "sync"

type typingKey struct {
	chatID string
	userID string
}

// Typing relays typing indicators to rooms. Only the last value per (chat, user) is kept,
// together with the connection that set it, so a disconnect can clear exactly its own state.
type Typing struct {
	rooms *Rooms

	mu     sync.Mutex
	active map[typingKey]string
}

// NewTyping creates a Typing broadcaster over rooms.
func NewTyping(rooms *Rooms) *Typing {
	return &Typing{
		rooms:  rooms,
		active: make(map[typingKey]string),
	}
}

// Set records the indicator and relays it to the other subscribers of chatID.
// It reports false, doing nothing, when conn is not subscribed to the chat.
func (t *Typing) Set(conn Conn, userID, chatID string, isTyping bool) bool {
	if !t.rooms.IsSubscribed(conn.ID(), chatID) {
		return false
	}

	key := typingKey{chatID: chatID, userID: userID}

	t.mu.Lock()
	if isTyping {
		t.active[key] = conn.ID()
	} else {
		delete(t.active, key)
	}
	t.mu.Unlock()

	t.rooms.Broadcast(chatID, NewEvent(EventTypingStatus, TypingStatusPayload{
		ChatID:   chatID,
		UserID:   userID,
		IsTyping: isTyping,
	}), conn.ID())

	return true
}

// IsTyping reports the last recorded value for userID in chatID.
func (t *Typing) IsTyping(chatID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.active[typingKey{chatID: chatID, userID: userID}]
	return ok
}

// Forget drops any recorded indicator for userID in chatID without broadcasting.
func (t *Typing) Forget(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.active, typingKey{chatID: chatID, userID: userID})
}

// Clear removes every indicator conn set for userID and tells each room the user stopped typing.
// It returns the affected chats.
func (t *Typing) Clear(conn Conn, userID string) []string {
	t.mu.Lock()
	var chats []string
	for key, connID := range t.active {
		if key.userID == userID && connID == conn.ID() {
			delete(t.active, key)
			chats = append(chats, key.chatID)
		}
	}
	t.mu.Unlock()

	for _, chatID := range chats {
		t.rooms.Broadcast(chatID, NewEvent(EventTypingStatus, TypingStatusPayload{
			ChatID:   chatID,
			UserID:   userID,
			IsTyping: false,
		}), conn.ID())
	}

	return chats
}
