package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/user"
)

func TestStore_Directory(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	s := New()
	s.AddUser(user.Identity{ID: "a", Name: "Alice"})
	s.AddChat(chat.Membership{ChatID: "c2", Members: []string{"a"}})
	s.AddChat(chat.Membership{ChatID: "c1", Members: []string{"a", "b"}})

	_, err := s.ResolveIdentity(ctx, "ghost")
	req.ErrorIs(err, chat.ErrNotFound)

	chats, err := s.GetChatsForUser(ctx, "a")
	req.NoError(err)
	req.Len(chats, 2)
	req.Equal("c1", chats[0].ChatID)

	ok, err := s.IsMember(ctx, "b", "c2")
	req.NoError(err)
	req.False(ok)

	s.AddMember("c2", "b")
	ok, _ = s.IsMember(ctx, "b", "c2")
	req.True(ok)

	_, err = s.GetChat(ctx, "missing")
	req.ErrorIs(err, chat.ErrNotFound)

	msg, err := s.CreateMessage(ctx, chat.NewMessage{ID: "m1", ChatID: "c1", SenderID: "a", Content: "hi", CreatedAt: time.Now()})
	req.NoError(err)
	req.Nil(msg.Sender)

	req.ErrorIs(s.UpdateLatestMessage(ctx, "c1", "unknown"), chat.ErrNotFound)
	req.NoError(s.UpdateLatestMessage(ctx, "c1", "m1"))
	req.Equal("m1", s.LatestMessage("c1"))

	resolved, err := s.ResolveSenderMetadata(ctx, msg)
	req.NoError(err)
	req.Equal("Alice", resolved.Sender.Name)
	req.Len(s.Messages("c1"), 1)
}
