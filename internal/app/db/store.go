package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/user"
	"github.com/ahmadjilani1/chathub/internal/pkg/randx"
)

const (
	selectUser = `
SELECT id::text, nickname, COALESCE(avatar_url, '')
FROM users
WHERE id = $1::uuid`

	selectChatsForUser = `
SELECT c.id::text, c.is_group, COALESCE(c.name, ''), array_agg(m.user_id::text ORDER BY m.joined_at, m.user_id)
FROM chats c
JOIN chat_members self ON self.chat_id = c.id AND self.user_id = $1::uuid
JOIN chat_members m ON m.chat_id = c.id
GROUP BY c.id
ORDER BY c.id`

	selectChat = `
SELECT c.id::text, c.is_group, COALESCE(c.name, ''), array_agg(m.user_id::text ORDER BY m.joined_at, m.user_id)
FROM chats c
JOIN chat_members m ON m.chat_id = c.id
WHERE c.id = $1::uuid
GROUP BY c.id`

	selectIsMember = `
SELECT EXISTS (SELECT 1 FROM chat_members WHERE user_id = $1::uuid AND chat_id = $2::uuid)`

	insertMessage = `
INSERT INTO messages (id, chat_id, sender_id, content, attachments, created_at)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5::jsonb, $6)
RETURNING created_at`

	updateLatestMessage = `
UPDATE chats SET latest_message_id = $2::uuid, updated_at = now()
WHERE id = $1::uuid`
)

// Store implements chat.Directory on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store using pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// notFound maps "no such row" conditions to chat.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || IsInvalidInput(err) {
		return chat.ErrNotFound
	}
	return err
}

// ResolveIdentity implements chat.Directory.
func (s *Store) ResolveIdentity(ctx context.Context, userID string) (user.Identity, error) {
	if !randx.IsUUID(userID) {
		return user.Identity{}, chat.ErrNotFound
	}

	var u user.Identity
	if err := s.pool.QueryRow(ctx, selectUser, userID).Scan(&u.ID, &u.Name, &u.Avatar); err != nil {
		return user.Identity{}, fmt.Errorf("resolve identity %s: %w", userID, notFound(err))
	}
	return u, nil
}

// GetChatsForUser implements chat.Directory.
func (s *Store) GetChatsForUser(ctx context.Context, userID string) ([]chat.Membership, error) {
	if !randx.IsUUID(userID) {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, selectChatsForUser, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats for %s: %w", userID, err)
	}

	chats, err := pgx.CollectRows(rows, scanMembership)
	if err != nil {
		return nil, fmt.Errorf("list chats for %s: %w", userID, err)
	}
	return chats, nil
}

// GetChat implements chat.Directory.
func (s *Store) GetChat(ctx context.Context, chatID string) (chat.Membership, error) {
	if !randx.IsUUID(chatID) {
		return chat.Membership{}, chat.ErrNotFound
	}

	rows, err := s.pool.Query(ctx, selectChat, chatID)
	if err != nil {
		return chat.Membership{}, fmt.Errorf("get chat %s: %w", chatID, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMembership)
	if err != nil {
		return chat.Membership{}, fmt.Errorf("get chat %s: %w", chatID, notFound(err))
	}
	return m, nil
}

func scanMembership(row pgx.CollectableRow) (chat.Membership, error) {
	var m chat.Membership
	err := row.Scan(&m.ChatID, &m.IsGroup, &m.Name, &m.Members)
	return m, err
}

// IsMember implements chat.Directory.
func (s *Store) IsMember(ctx context.Context, userID, chatID string) (bool, error) {
	if !randx.IsUUID(userID) || !randx.IsUUID(chatID) {
		return false, nil
	}

	var ok bool
	if err := s.pool.QueryRow(ctx, selectIsMember, userID, chatID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check membership %s/%s: %w", chatID, userID, err)
	}
	return ok, nil
}

// CreateMessage implements chat.Directory.
func (s *Store) CreateMessage(ctx context.Context, msg chat.NewMessage) (chat.Message, error) {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []chat.Attachment{}
	}

	raw, err := json.Marshal(attachments)
	if err != nil {
		return chat.Message{}, fmt.Errorf("encode attachments: %w", err)
	}

	stored := chat.Message{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		Content:     msg.Content,
		Attachments: msg.Attachments,
	}

	err = s.pool.QueryRow(ctx, insertMessage,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, string(raw), msg.CreatedAt,
	).Scan(&stored.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			err = errors.Join(chat.ErrNotFound, err)
		}
		return chat.Message{}, fmt.Errorf("insert message %s: %w", msg.ID, err)
	}

	return stored, nil
}

// UpdateLatestMessage implements chat.Directory.
func (s *Store) UpdateLatestMessage(ctx context.Context, chatID, messageID string) error {
	tag, err := s.pool.Exec(ctx, updateLatestMessage, chatID, messageID)
	if err != nil {
		return fmt.Errorf("update latest message of %s: %w", chatID, notFound(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update latest message of %s: %w", chatID, chat.ErrNotFound)
	}
	return nil
}

// ResolveSenderMetadata implements chat.Directory.
func (s *Store) ResolveSenderMetadata(ctx context.Context, msg chat.Message) (chat.Message, error) {
	sender, err := s.ResolveIdentity(ctx, msg.SenderID)
	if err != nil {
		return msg, err
	}

	msg.Sender = &sender
	return msg, nil
}

var _ chat.Directory = (*Store)(nil)
