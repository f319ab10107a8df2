package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
	"github.com/ahmadjilani1/chathub/internal/app/chat/chattest"
	"github.com/ahmadjilani1/chathub/internal/app/chat/mocks"
	"github.com/ahmadjilani1/chathub/internal/app/user"
)

var (
	alice = user.Identity{ID: "u-a", Name: "Alice"}
	bob   = user.Identity{ID: "u-b", Name: "Bob"}
	carol = user.Identity{ID: "u-c", Name: "Carol"}
)

// subscribe joins conn to chats through the mocked directory.
func subscribe(t *testing.T, dir *mocks.MockDirectory, rooms *chat.Rooms, conn *chattest.Conn, userID string, chats ...chat.Membership) {
	t.Helper()

	dir.EXPECT().GetChatsForUser(gomock.Any(), userID).Return(chats, nil).Times(1)
	_, err := rooms.JoinAll(context.Background(), conn, userID)
	require.NoError(t, err)
}
