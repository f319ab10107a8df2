/*
Package chat contains the real-time core: authentication of connections, room subscriptions,
message relay, typing signals and the connection lifecycle.

This file defines the event envelope exchanged over a connection and the closed set of
payloads. Inbound payloads are decoded strictly and validated; anything that fails is rejected
with ErrMalformedEvent before reaching a component.
*/
package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/req"
)

// MaxContentBytes is the maximum size in bytes of a message's text content.
const MaxContentBytes = 5000

// EventType names an event on the wire.
type EventType string

// Inbound events.
const (
	EventAuthenticate EventType = "authenticate"
	EventJoinChat     EventType = "joinChat"
	EventSendMessage  EventType = "sendMessage"
	EventSetTyping    EventType = "setTyping"
)

// Outbound events.
const (
	EventOnlineUsersSnapshot EventType = "onlineUsersSnapshot"
	EventUserStatus          EventType = "userStatus"
	EventNewMessage          EventType = "newMessage"
	EventTypingStatus        EventType = "typingStatus"
	EventNotification        EventType = "notification"
	EventMessageAck          EventType = "messageAck"
	EventError               EventType = "error"
)

// User status values carried by userStatus events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// NotificationNewMessage is the notification type for a message in a chat.
const NotificationNewMessage = "newMessage"

// Inbound is the envelope of every client event.
type Inbound struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TempID  string          `json:"tempId,omitempty"`
}

// Event is the envelope of every server event.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp int64     `json:"timestamp"`
}

// NewEvent stamps payload with the current server time.
func NewEvent(t EventType, payload any) Event {
	return Event{Type: t, Payload: payload, Timestamp: time.Now().UnixMilli()}
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// ErrorEvent builds the error event for err. Errors that are not CustomErrors are reported
// as ErrUnknown so internal detail never reaches the client.
func ErrorEvent(err error) Event {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		customErr = errs.NewError(errs.ErrUnknown)
	}
	return NewEvent(EventError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
}

// AuthenticatePayload carries the credential of an in-band authentication.
type AuthenticatePayload struct {
	Token string `json:"token" validate:"required,max=4096"`
}

// JoinChatPayload requests a subscription to one more chat.
type JoinChatPayload struct {
	ChatID string `json:"chatId" validate:"required,max=64"`
}

// SendMessagePayload is a message submitted by a client.
type SendMessagePayload struct {
	ChatID      string       `json:"chatId" validate:"required,max=64"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments" validate:"dive"`
}

// Validate checks the fields the struct tags cannot express.
func (p *SendMessagePayload) Validate() *errs.CustomError {
	if len(p.Content) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	if strings.TrimSpace(p.Content) == "" && len(p.Attachments) == 0 {
		return errs.NewError(errs.ErrMessageEmpty)
	}

	return ValidateAttachments(p.ChatID, p.Attachments)
}

// SetTypingPayload toggles the sender's typing indicator in a chat.
type SetTypingPayload struct {
	ChatID   string `json:"chatId" validate:"required,max=64"`
	IsTyping *bool  `json:"isTyping" validate:"required"`
}

// OnlineUsersSnapshotPayload seeds a new connection's view of who is online.
type OnlineUsersSnapshotPayload struct {
	UserIDs []string `json:"userIds"`
}

// UserStatusPayload announces a user going online or offline.
type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// NewMessagePayload delivers a persisted message to a room.
type NewMessagePayload struct {
	Message Message `json:"message"`
}

// TypingStatusPayload relays a typing indicator.
type TypingStatusPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// NotificationPayload tells a member that something happened in one of their chats.
type NotificationPayload struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId"`
	Summary string `json:"summary"`
}

// MessageAckPayload confirms to the sender that a message was stored.
type MessageAckPayload struct {
	TempID    string    `json:"tempId"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrorPayload reports a failed operation to the client that triggered it.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodePayload decodes raw into T and validates its struct tags.
func DecodePayload[T any](raw json.RawMessage) (T, *errs.CustomError) {
	var payload T

	if err := req.DecodeStrict(raw, &payload); err != nil {
		return payload, err
	}

	if err := validate.Struct(&payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return payload, errs.NewError(errs.ErrMalformedEvent, verrs[0].Field()+" is "+verrs[0].Tag())
		}
		return payload, errs.NewError(errs.ErrMalformedEvent, "invalid payload")
	}

	return payload, nil
}
