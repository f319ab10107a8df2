package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahmadjilani1/chathub/internal/app/presence"
	"github.com/ahmadjilani1/chathub/internal/app/storage"
	"github.com/ahmadjilani1/chathub/internal/app/user"
	"github.com/ahmadjilani1/chathub/internal/pkg/censor"
	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
	"github.com/ahmadjilani1/chathub/internal/pkg/randx"
)

const (
	defaultStorageTimeout = 5 * time.Second

	pointerRetryTries   = 5
	pointerRetryElapsed = time.Minute
)

// OfflineNotifier accepts notifications for members without a live connection.
// Enqueue must not block.
type OfflineNotifier interface {
	Enqueue(userID, chatID, summary string) bool
}

// Relay validates, persists and delivers chat messages.
type Relay struct {
	dir      Directory
	rooms    *Rooms
	presence *presence.Registry[Conn]
	offline  OfflineNotifier

	files          storage.StorageService
	censor         *censor.Censor
	storageTimeout time.Duration
	pointerBackOff func() backoff.BackOff
	now            func() time.Time

	// retries tracks background latest-pointer updates.
	retries sync.WaitGroup

	tracer trace.Tracer
	logger zerolog.Logger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithFileStorage signs attachment download URLs on delivery.
func WithFileStorage(s storage.StorageService) RelayOption {
	return func(r *Relay) { r.files = s }
}

// WithCensor masks content before it is stored.
func WithCensor(c *censor.Censor) RelayOption {
	return func(r *Relay) { r.censor = c }
}

// WithStorageTimeout bounds each directory call made on behalf of a message.
func WithStorageTimeout(d time.Duration) RelayOption {
	return func(r *Relay) { r.storageTimeout = d }
}

// WithPointerBackOff sets the retry policy for failed latest-pointer updates.
func WithPointerBackOff(f func() backoff.BackOff) RelayOption {
	return func(r *Relay) { r.pointerBackOff = f }
}

// WithClock replaces the server clock used to timestamp messages.
func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

// NewRelay creates a Relay delivering through rooms and routing notifications by presence.
func NewRelay(dir Directory, rooms *Rooms, reg *presence.Registry[Conn], offline OfflineNotifier, opts ...RelayOption) *Relay {
	r := &Relay{
		dir:            dir,
		rooms:          rooms,
		presence:       reg,
		offline:        offline,
		storageTimeout: defaultStorageTimeout,
		pointerBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:            time.Now,
		tracer:         otel.Tracer("github.com/ahmadjilani1/chathub/internal/app/chat"),
		logger:         logx.Component("relay"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Send delivers a message from sender over conn. The steps are strictly ordered:
// membership check, persistence, sender metadata, latest pointer, room broadcast, member fan-out.
// Nothing is broadcast unless persistence succeeded. Once accepted for persistence the message
// is stored even if ctx is cancelled.
func (r *Relay) Send(ctx context.Context, conn Conn, sender user.Identity, p SendMessagePayload, tempID string) (Message, error) {
	ctx, span := r.tracer.Start(ctx, "chat.Relay.Send", trace.WithAttributes(
		attribute.String("chat.id", p.ChatID),
		attribute.String("user.id", sender.ID),
	))
	defer span.End()

	logger := r.logger.With().
		Str("conn_id", conn.ID()).
		Str("user_id", sender.ID).
		Str("chat_id", p.ChatID).
		Logger()

	chat, err := r.membership(ctx, sender.ID, p.ChatID)
	if err != nil {
		if errs.HasCode(err, errs.ErrStorage) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "membership lookup failed")
			logger.Error().Err(err).Msg("Membership lookup failed.")
		} else {
			logger.Debug().Msg("Send rejected: not a member.")
		}
		return Message{}, err
	}

	// Persistence and everything after it must survive the connection going away.
	detached := context.WithoutCancel(ctx)

	msg, err := r.persist(detached, sender.ID, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		logger.Error().Err(err).Msg("Message persistence failed; nothing was broadcast.")
		return Message{}, errs.Wrap(errs.ErrStorage, err)
	}
	span.SetAttributes(attribute.String("message.id", msg.ID))

	msg = r.resolveSender(detached, msg, sender, logger)
	msg = r.signAttachments(detached, msg, logger)

	r.updatePointer(detached, msg, logger)

	delivered := r.rooms.Broadcast(msg.ChatID, NewEvent(EventNewMessage, NewMessagePayload{Message: msg}), "")
	span.SetAttributes(attribute.Int("message.delivered", delivered))

	if tempID != "" {
		sendEvent(conn, NewEvent(EventMessageAck, MessageAckPayload{
			TempID:    tempID,
			ID:        msg.ID,
			CreatedAt: msg.CreatedAt,
		}))
	}

	r.fanOut(chat, msg, logger)

	return msg, nil
}

// membership loads the chat and checks the sender belongs to it.
// A missing chat is reported as ErrNotMember so existence is not disclosed.
func (r *Relay) membership(ctx context.Context, userID, chatID string) (Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storageTimeout)
	defer cancel()

	chat, err := r.dir.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Membership{}, errs.NewError(errs.ErrNotMember)
		}
		return Membership{}, errs.Wrap(errs.ErrStorage, err)
	}

	if !chat.HasMember(userID) {
		return Membership{}, errs.NewError(errs.ErrNotMember)
	}

	return chat, nil
}

func (r *Relay) persist(ctx context.Context, senderID string, p SendMessagePayload) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storageTimeout)
	defer cancel()

	return r.dir.CreateMessage(ctx, NewMessage{
		ID:          randx.MessageID(),
		ChatID:      p.ChatID,
		SenderID:    senderID,
		Content:     r.censor.Mask(p.Content),
		Attachments: p.Attachments,
		CreatedAt:   r.now().UTC(),
	})
}

// resolveSender embeds sender metadata, falling back to the connection's identity snapshot.
func (r *Relay) resolveSender(ctx context.Context, msg Message, sender user.Identity, logger zerolog.Logger) Message {
	ctx, cancel := context.WithTimeout(ctx, r.storageTimeout)
	defer cancel()

	resolved, err := r.dir.ResolveSenderMetadata(ctx, msg)
	if err != nil || resolved.Sender == nil {
		if err != nil {
			logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Sender metadata lookup failed, using session identity.")
		}
		snapshot := sender
		msg.Sender = &snapshot
		return msg
	}

	return resolved
}

// signAttachments fills download URLs on a copy of the attachments.
func (r *Relay) signAttachments(ctx context.Context, msg Message, logger zerolog.Logger) Message {
	if r.files == nil || len(msg.Attachments) == 0 {
		return msg
	}

	signed := make([]Attachment, len(msg.Attachments))
	copy(signed, msg.Attachments)

	for i := range signed {
		url, err := r.files.PresignDownload(ctx, signed[i].Key, PresignedURLDuration)
		if err != nil {
			logger.Warn().Err(err).Str("file_key", signed[i].Key).Msg("Failed to sign attachment URL.")
			continue
		}
		signed[i].URL = url
	}

	msg.Attachments = signed
	return msg
}

// updatePointer moves the chat's latest-message pointer. A failure never undoes delivery;
// the update is retried in the background.
func (r *Relay) updatePointer(ctx context.Context, msg Message, logger zerolog.Logger) {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.storageTimeout)
		defer cancel()
		return r.dir.UpdateLatestMessage(callCtx, msg.ChatID, msg.ID)
	}

	err := attempt()
	if err == nil {
		return
	}

	logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Latest message pointer update failed, retrying in background.")

	r.retries.Add(1)
	go func() {
		defer r.retries.Done()

		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, attempt()
		},
			backoff.WithBackOff(r.pointerBackOff()),
			backoff.WithMaxTries(pointerRetryTries),
			backoff.WithMaxElapsedTime(pointerRetryElapsed),
		)
		if err != nil {
			logger.Error().Err(err).Str("message_id", msg.ID).Msg("Giving up on latest message pointer update.")
		}
	}()
}

// fanOut notifies every member except the sender: online members on their own connection,
// offline members through the offline notifier.
func (r *Relay) fanOut(chat Membership, msg Message, logger zerolog.Logger) {
	summary := notificationSummary(chat, msg)

	evt := NewEvent(EventNotification, NotificationPayload{
		Type:    NotificationNewMessage,
		ChatID:  chat.ChatID,
		Summary: summary,
	})
	data, err := evt.Encode()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode notification.")
		return
	}

	recipients := lo.Uniq(lo.Without(chat.Members, msg.SenderID))

	for _, memberID := range recipients {
		if conn, ok := r.presence.Lookup(memberID); ok {
			conn.Send(data)
			continue
		}

		if r.offline == nil {
			continue
		}
		if !r.offline.Enqueue(memberID, chat.ChatID, summary) {
			logger.Warn().Str("recipient_id", memberID).Msg("Offline notification dropped.")
		}
	}
}

func notificationSummary(chat Membership, msg Message) string {
	from := ""
	if chat.IsGroup && chat.Name != "" {
		from = chat.Name
	} else if msg.Sender != nil {
		from = msg.Sender.Name
	}

	if from == "" {
		return "New message"
	}
	return "New message from " + from
}

// Wait blocks until background pointer retries have finished. Call it only once no further
// Send can start; Manager.Shutdown guarantees that by waiting for running handlers first.
func (r *Relay) Wait() {
	r.retries.Wait()
}
