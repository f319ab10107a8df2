package chat_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/chat/chattest"
	"github.com/ahmadjilani1/chathub/internal/app/chat/mocks"
)

func newTypingFixture(t *testing.T) (*chat.Typing, *chattest.Conn, *chattest.Conn) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)
	rooms := chat.NewRooms(dir)

	c1 := chat.Membership{ChatID: "c1", Members: []string{alice.ID, bob.ID}}
	a := chattest.NewConn("conn-a")
	b := chattest.NewConn("conn-b")
	subscribe(t, dir, rooms, a, alice.ID, c1)
	subscribe(t, dir, rooms, b, bob.ID, c1)

	return chat.NewTyping(rooms), a, b
}

func TestTyping_LastWriteWins(t *testing.T) {
	req := require.New(t)
	typing, a, b := newTypingFixture(t)

	// When Alice toggles typing on then off rapidly
	req.True(typing.Set(a, alice.ID, "c1", true))
	req.True(typing.Set(a, alice.ID, "c1", false))

	// Then Bob's final observed state is false, and Alice hears nothing back
	events := b.OfType(chat.EventTypingStatus)
	req.Len(events, 2)
	last := chattest.Decode[chat.TypingStatusPayload](t, events[len(events)-1])
	req.False(last.IsTyping)
	req.Equal(alice.ID, last.UserID)

	req.Empty(a.Events())
	req.False(typing.IsTyping("c1", alice.ID))
}

func TestTyping_RequiresSubscription(t *testing.T) {
	req := require.New(t)
	typing, _, b := newTypingFixture(t)

	outsider := chattest.NewConn("conn-z")
	req.False(typing.Set(outsider, "u-z", "c1", true))
	req.Empty(b.Events())
	req.False(typing.IsTyping("c1", "u-z"))
}

func TestTyping_ClearOnDisconnect(t *testing.T) {
	req := require.New(t)
	typing, a, b := newTypingFixture(t)

	req.True(typing.Set(a, alice.ID, "c1", true))
	req.True(typing.IsTyping("c1", alice.ID))
	b.Reset()

	// A different connection of the same user does not clear Alice's indicator
	req.Empty(typing.Clear(chattest.NewConn("conn-a2"), alice.ID))
	req.Empty(b.Events())

	req.Equal([]string{"c1"}, typing.Clear(a, alice.ID))
	events := b.OfType(chat.EventTypingStatus)
	req.Len(events, 1)
	req.False(chattest.Decode[chat.TypingStatusPayload](t, events[0]).IsTyping)
	req.False(typing.IsTyping("c1", alice.ID))
}

func TestTyping_Forget(t *testing.T) {
	req := require.New(t)
	typing, a, b := newTypingFixture(t)

	typing.Set(a, alice.ID, "c1", true)
	b.Reset()

	typing.Forget("c1", alice.ID)
	req.False(typing.IsTyping("c1", alice.ID))
	req.Empty(b.Events())
}
