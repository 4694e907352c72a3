/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/acronis/go-prefetch/log"
)

// Opts represents options for the Limiter.
// Zero values are replaced with defaults.
type Opts struct {
	// MailboxSize is a capacity of the limiter's request queue. Default is DefaultMailboxSize.
	MailboxSize int

	// CanSendTimeout bounds the time CanSend waits for the limiter's answer. Default is DefaultCanSendTimeout.
	CanSendTimeout time.Duration

	// ConfirmTimeout bounds the time the limiter waits for Queue.RequestUnblock. Default is DefaultConfirmTimeout.
	ConfirmTimeout time.Duration

	// InitialPrefetchCount is a prefetch limit the limiter starts with (0 means unlimited).
	InitialPrefetchCount int

	// Rand is a source of randomness for choosing which blocked queues are unblocked
	// when there is not enough capacity for all of them. Default is a math/rand generator seeded with the current time.
	Rand RandomSource

	// MetricsCollector is a collector of limiter metrics. Metrics are disabled if it's nil.
	MetricsCollector MetricsCollector
}

func (o Opts) withDefaults() Opts {
	if o.MailboxSize <= 0 {
		o.MailboxSize = DefaultMailboxSize
	}
	if o.CanSendTimeout <= 0 {
		o.CanSendTimeout = DefaultCanSendTimeout
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = DefaultConfirmTimeout
	}
	if o.InitialPrefetchCount < 0 {
		o.InitialPrefetchCount = 0
	}
	if o.Rand == nil {
		o.Rand = newDefaultRandomSource()
	}
	if o.MetricsCollector == nil {
		o.MetricsCollector = disabledMetrics{}
	}
	return o
}

// Limiter is a handle of a running prefetch limiter.
//
// A nil *Limiter is a valid value meaning that flow control is disabled.
// All methods are safe for concurrent use.
type Limiter struct {
	id             string
	mailbox        chan interface{}
	cancel         context.CancelFunc
	done           chan struct{}
	err            atomic.Error
	callbacks      callbackGuard
	canSendTimeout time.Duration
	logger         log.FieldLogger
}

// Snapshot is a copy of the limiter's state.
type Snapshot struct {
	PrefetchCount int
	Volume        int
	LimitReached  bool
	Queues        map[string]QueueSnapshot
}

// QueueSnapshot is a copy of the state of a registered queue.
type QueueSnapshot struct {
	Blocked bool
	Length  int
}

// Start starts a new prefetch limiter for the channel with default options.
// The limiter starts with no limit (prefetch count is 0).
func Start(channel ChannelID, logger log.FieldLogger) *Limiter {
	return StartWithOpts(channel, logger, Opts{})
}

// StartWithOpts starts a new prefetch limiter for the channel.
func StartWithOpts(channel ChannelID, logger log.FieldLogger, opts Opts) *Limiter {
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	id := xid.New().String()
	logger = logger.With(log.String("channel", string(channel)), log.String("limiter_id", id))

	ctx, cancel := context.WithCancel(context.Background())
	l := &Limiter{
		id:             id,
		mailbox:        make(chan interface{}, opts.MailboxSize),
		cancel:         cancel,
		done:           make(chan struct{}),
		canSendTimeout: opts.CanSendTimeout,
		logger:         logger,
	}
	a := newActor(channel, l.mailbox, &l.callbacks, logger, opts)
	go l.run(ctx, a)

	logger.Info("prefetch limiter started",
		log.Int("mailbox_size", opts.MailboxSize), log.Int("prefetch_count", opts.InitialPrefetchCount))
	return l
}

func (l *Limiter) run(ctx context.Context, a *actor) {
	defer close(l.done)
	err := a.run(ctx)
	a.releaseMonitors()
	if err != nil {
		l.err.Store(err)
		l.logger.Error("prefetch limiter terminated", log.Error(err))
		return
	}
	l.logger.Info("prefetch limiter stopped")
}

// ID returns a unique identifier of the limiter. It's empty for the nil limiter.
func (l *Limiter) ID() string {
	if l == nil {
		return ""
	}
	return l.id
}

// Shutdown terminates the limiter and waits until its goroutine exits.
// Requests that are not processed yet are discarded. Calling Shutdown more than once is safe.
// It must not be called from Queue methods.
func (l *Limiter) Shutdown() {
	if l == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Done returns a channel that is closed when the limiter terminates (after Shutdown or because of a fault).
// For the nil limiter it returns a closed channel.
func (l *Limiter) Done() <-chan struct{} {
	if l == nil {
		return closedChan
	}
	return l.done
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Err returns the error the limiter terminated with. It's nil while the limiter is running or after Shutdown.
func (l *Limiter) Err() error {
	if l == nil {
		return nil
	}
	return l.err.Load()
}

// IsEnabled reports whether flow control is enabled, i.e. the limiter exists and is running.
func (l *Limiter) IsEnabled() bool {
	if l == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// SetLimit sets the prefetch count (0 means unlimited).
// If the limit stops being reached, blocked queues are unblocked.
func (l *Limiter) SetLimit(prefetchCount int) {
	if l == nil {
		return
	}
	if prefetchCount < 0 {
		l.logger.Warn("negative prefetch count is ignored", log.Int("prefetch_count", prefetchCount))
		return
	}
	l.send(setLimitMsg{count: prefetchCount})
}

// RecordAck reports that count messages were acknowledged.
// If the limit stops being reached, blocked queues are unblocked.
func (l *Limiter) RecordAck(count int) {
	if l == nil {
		return
	}
	if count < 0 {
		l.logger.Warn("negative ack count is ignored", log.Int("count", count))
		return
	}
	l.send(recordAckMsg{count: count})
}

// RegisterQueue registers the queue in the limiter and starts watching for its termination.
// Registering the same queue again has no effect.
func (l *Limiter) RegisterQueue(q Queue) {
	if l == nil {
		return
	}
	l.send(registerMsg{queue: q})
}

// UnregisterQueue removes the queue from the limiter. The queue is notified that it's unblocked.
// Unregistering an unknown queue has no effect.
func (l *Limiter) UnregisterQueue(q Queue) {
	if l == nil {
		return
	}
	l.send(unregisterMsg{name: q.Name()})
}

// CanSend is like CanSendContext but uses the background context.
func (l *Limiter) CanSend(q Queue, ackRequired bool, length int) bool {
	return l.CanSendContext(context.Background(), q, ackRequired, length)
}

// CanSendContext asks whether the queue may deliver one more message to the channel.
// ackRequired tells whether the message must be acknowledged (only such messages consume credit),
// length is the current backlog of the queue.
//
// If the limit is reached, the queue is marked as blocked and false is returned.
// The queue must be registered before asking.
// If the limiter doesn't answer within the configured timeout, or terminated, or ctx is done, true is returned.
// A negative length is treated as 0. Asking from the queue's own callback is refused (see Queue).
func (l *Limiter) CanSendContext(ctx context.Context, q Queue, ackRequired bool, length int) bool {
	if l == nil {
		return true
	}
	if l.callbacks.runningFor(q.Name()) {
		l.logger.Warn("queue asked for permission to send from its own callback, refused", log.String("queue", q.Name()))
		return false
	}
	if length < 0 {
		l.logger.Warn("negative queue length is treated as 0", log.String("queue", q.Name()), log.Int("length", length))
		length = 0
	}
	ctx, cancel := context.WithTimeout(ctx, l.canSendTimeout)
	defer cancel()
	allowed, err := call(ctx, l, func(reply chan<- bool) interface{} {
		return canSendMsg{name: q.Name(), ackRequired: ackRequired, length: length, reply: reply}
	})
	if err != nil {
		l.logger.Debug("prefetch limiter is unavailable, sending is permitted",
			log.String("queue", q.Name()), log.Error(err))
		return true
	}
	return allowed
}

// Limit returns the current prefetch count. It returns 0 if the limiter is nil or unavailable.
func (l *Limiter) Limit(ctx context.Context) int {
	if l == nil {
		return 0
	}
	prefetchCount, err := call(ctx, l, func(reply chan<- int) interface{} {
		return limitMsg{reply: reply}
	})
	if err != nil {
		return 0
	}
	return prefetchCount
}

// Snapshot returns a copy of the limiter's state.
func (l *Limiter) Snapshot(ctx context.Context) (Snapshot, error) {
	if l == nil {
		return Snapshot{}, ErrLimiterStopped
	}
	return call(ctx, l, func(reply chan<- Snapshot) interface{} {
		return snapshotMsg{reply: reply}
	})
}

// send puts an asynchronous request into the mailbox. The request is dropped if the limiter has terminated.
func (l *Limiter) send(msg interface{}) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.mailbox <- msg:
	case <-l.done:
	}
}

// call puts a synchronous request into the mailbox and waits for the reply.
func call[T any](ctx context.Context, l *Limiter, newRequest func(reply chan<- T) interface{}) (T, error) {
	var zero T
	select {
	case <-l.done:
		return zero, ErrLimiterStopped
	default:
	}

	reply := make(chan T, 1)
	select {
	case l.mailbox <- newRequest(reply):
	case <-l.done:
		return zero, ErrLimiterStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case res := <-reply:
		return res, nil
	case <-l.done:
		// The reply is written before the limiter terminates, so it's either already here or will never come.
		select {
		case res := <-reply:
			return res, nil
		default:
			return zero, ErrLimiterStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
