/*
Package notify hands offline notifications to an external Notifier without blocking the sender.

The Dispatcher owns a bounded queue drained by a fixed pool of workers. Each notification is
retried with exponential backoff, giving at-least-once delivery while the process is up.
*/
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

const (
	defaultMaxTries    = 5
	defaultCallTimeout = 5 * time.Second
)

// Job is one pending offline notification.
type Job struct {
	UserID  string
	ChatID  string
	Summary string
}

// Dispatcher queues offline notifications and delivers them from a worker pool.
type Dispatcher struct {
	notifier Notifier
	queue    chan Job
	workers  int

	maxTries    uint
	callTimeout time.Duration
	newBackOff  func() backoff.BackOff

	// mu guards stopped so Enqueue never sends on the closed queue.
	mu      sync.Mutex
	stopped bool

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxTries bounds the delivery attempts per notification.
func WithMaxTries(n uint) Option {
	return func(d *Dispatcher) { d.maxTries = n }
}

// WithBackOff sets the retry policy; f is called once per notification.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(d *Dispatcher) { d.newBackOff = f }
}

// WithCallTimeout bounds a single NotifyOffline call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.callTimeout = timeout }
}

// NewDispatcher creates a Dispatcher. Call Start before Enqueue has any effect beyond queueing.
func NewDispatcher(notifier Notifier, queueSize, workers int, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier:    notifier,
		queue:       make(chan Job, queueSize),
		workers:     workers,
		maxTries:    defaultMaxTries,
		callTimeout: defaultCallTimeout,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		logger: logx.Component("notify"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start launches the workers. They exit once the queue is closed by Stop and drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for range d.workers {
		d.wg.Add(1)
		go d.work(ctx)
	}

	d.logger.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("Notification dispatcher started.")
}

// Enqueue schedules a notification and reports whether it was accepted.
// It never blocks: a full queue or a stopped dispatcher drops the notification.
func (d *Dispatcher) Enqueue(userID, chatID, summary string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}

	select {
	case d.queue <- Job{UserID: userID, ChatID: chatID, Summary: summary}:
		return true
	default:
		d.logger.Warn().
			Str("user_id", userID).
			Str("chat_id", chatID).
			Msg("Notification queue full, dropping notification.")
		return false
	}
}

// Stop closes the queue and waits for the workers to finish what was already queued.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info().Msg("Notification dispatcher stopped.")
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()

	for job := range d.queue {
		d.deliver(ctx, job)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) {
	attempts := 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()

		return struct{}{}, d.notifier.NotifyOffline(callCtx, job.UserID, job.ChatID, job.Summary)
	},
		backoff.WithBackOff(d.newBackOff()),
		backoff.WithMaxTries(d.maxTries),
	)

	if err != nil {
		d.logger.Error().Err(err).
			Str("user_id", job.UserID).
			Str("chat_id", job.ChatID).
			Int("attempts", attempts).
			Msg("Offline notification failed.")
		return
	}

	if attempts > 1 {
		d.logger.Debug().
			Str("user_id", job.UserID).
			Int("attempts", attempts).
			Msg("Offline notification delivered after retry.")
	}
}
