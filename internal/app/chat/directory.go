//go:generate go run go.uber.org/mock/mockgen -source=directory.go -destination=mocks/mock_directory.go -package=mocks
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/ahmadjilani1/chathub/internal/app/user"
)

// ErrNotFound is returned by a Directory when a user or chat does not exist.
var ErrNotFound = errors.New("directory: not found")

// Membership is a chat and the IDs of its members.
type Membership struct {
	ChatID  string   `json:"chatId"`
	IsGroup bool     `json:"isGroup"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members"`
}

// HasMember reports whether userID belongs to the chat.
func (m Membership) HasMember(userID string) bool {
	return lo.Contains(m.Members, userID)
}

// Message is a persisted chat message. It is never modified after creation.
type Message struct {
	ID          string         `json:"id"`
	ChatID      string         `json:"chatId"`
	SenderID    string         `json:"senderId"`
	Sender      *user.Identity `json:"sender,omitempty"`
	Content     string         `json:"content"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// NewMessage holds the fields of a message about to be persisted.
type NewMessage struct {
	ID          string
	ChatID      string
	SenderID    string
	Content     string
	Attachments []Attachment
	CreatedAt   time.Time
}

// Directory is the persisted store of users, chats and messages.
// Implementations must be safe for concurrent use; every method may block on I/O.
type Directory interface {
	// ResolveIdentity returns the user with userID, or ErrNotFound.
	ResolveIdentity(ctx context.Context, userID string) (user.Identity, error)

	// GetChatsForUser returns every chat userID is a member of.
	GetChatsForUser(ctx context.Context, userID string) ([]Membership, error)

	// GetChat returns a chat with its members, or ErrNotFound.
	GetChat(ctx context.Context, chatID string) (Membership, error)

	// IsMember reports whether userID belongs to chatID. An unknown chat is not an error.
	IsMember(ctx context.Context, userID, chatID string) (bool, error)

	// CreateMessage persists msg and returns the stored message.
	CreateMessage(ctx context.Context, msg NewMessage) (Message, error)

	// UpdateLatestMessage points chatID's latest-message reference at messageID.
	UpdateLatestMessage(ctx context.Context, chatID, messageID string) error

	// ResolveSenderMetadata returns msg with Sender filled in.
	ResolveSenderMetadata(ctx context.Context, msg Message) (Message, error)
}
