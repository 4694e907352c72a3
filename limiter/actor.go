/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/acronis/go-prefetch/log"
)

const panicStackSize = 8192

type setLimitMsg struct {
	count int
}

type recordAckMsg struct {
	count int
}

type registerMsg struct {
	queue Queue
}

type unregisterMsg struct {
	name string
}

type queueDownMsg struct {
	name    string
	monitor *monitor
}

type canSendMsg struct {
	name        string
	ackRequired bool
	length      int
	reply       chan<- bool
}

type limitMsg struct {
	reply chan<- int
}

type snapshotMsg struct {
	reply chan<- Snapshot
}

// callbackGuard tracks the queue whose callback is running on the limiter goroutine.
type callbackGuard struct {
	running atomic.Bool
	queue   atomic.String
}

func (g *callbackGuard) run(queueName string, fn func()) {
	g.queue.Store(queueName)
	g.running.Store(true)
	defer g.running.Store(false)
	fn()
}

func (g *callbackGuard) runningFor(queueName string) bool {
	return g.running.Load() && g.queue.Load() == queueName
}

// actor owns the limiter's state. All its methods are called from the limiter goroutine only.
type actor struct {
	channel ChannelID
	mailbox chan interface{}
	logger  log.FieldLogger
	metrics MetricsCollector
	rand    RandomSource

	callbacks *callbackGuard

	ctx            context.Context
	confirmTimeout time.Duration

	prefetchCount int
	volume        int
	queues        map[string]*queueEntry
	blockedCount  int

	limitReachedLog rate.Sometimes
}

func newActor(
	channel ChannelID, mailbox chan interface{}, callbacks *callbackGuard, logger log.FieldLogger, opts Opts,
) *actor {
	return &actor{
		callbacks:       callbacks,
		channel:         channel,
		mailbox:         mailbox,
		logger:          logger,
		metrics:         opts.MetricsCollector,
		rand:            opts.Rand,
		ctx:             context.Background(),
		confirmTimeout:  opts.ConfirmTimeout,
		prefetchCount:   opts.InitialPrefetchCount,
		queues:          make(map[string]*queueEntry),
		limitReachedLog: rate.Sometimes{Interval: time.Second},
	}
}

// run processes requests until ctx is done or a request fails.
func (a *actor) run(ctx context.Context) error {
	a.ctx = ctx
	a.reportMetrics()
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case msg := <-a.mailbox:
			if err := a.safeHandle(msg); err != nil {
				return err
			}
		}
	}
}

func (a *actor) safeHandle(msg interface{}) (err error) {
	defer func() {
		if p := recover(); p != nil {
			stack := make([]byte, panicStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			a.logger.Error(fmt.Sprintf("panic while handling %T: %+v", msg, p), log.Bytes("stack", stack))
			err = fmt.Errorf("%w: panic: %v", ErrActorFault, p)
		}
	}()
	if err = a.handle(msg); err != nil {
		return err
	}
	a.reportMetrics()
	return nil
}

func (a *actor) handle(msg interface{}) error {
	switch m := msg.(type) {
	case setLimitMsg:
		a.setLimit(m.count)
	case recordAckMsg:
		a.recordAck(m.count)
	case registerMsg:
		a.register(m.queue)
	case unregisterMsg:
		a.unregister(m.name)
	case queueDownMsg:
		a.queueDown(m.name, m.monitor)
	case canSendMsg:
		allowed, err := a.canSend(m.name, m.ackRequired, m.length)
		if err != nil {
			return err
		}
		m.reply <- allowed
	case limitMsg:
		m.reply <- a.prefetchCount
	case snapshotMsg:
		m.reply <- a.snapshot()
	default:
		return fmt.Errorf("%w: unexpected request %T", ErrActorFault, msg)
	}
	return nil
}

func (a *actor) limitReached() bool {
	return a.prefetchCount != 0 && a.volume >= a.prefetchCount
}

func (a *actor) canSend(name string, ackRequired bool, length int) (bool, error) {
	entry, ok := a.queues[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownQueue, name)
	}
	entry.length = length

	if a.limitReached() {
		a.setBlocked(entry, true)
		a.metrics.IncRefusals()
		a.limitReachedLog.Do(func() {
			a.logger.Debug("prefetch limit reached, queue is blocked",
				log.String("queue", name), log.Int("prefetch_count", a.prefetchCount), log.Int("volume", a.volume))
		})
		return false, nil
	}

	if ackRequired {
		a.volume++
	}
	return true, nil
}

func (a *actor) recordAck(count int) {
	a.updateCredit(func() {
		a.volume -= count
		if a.volume < 0 {
			a.volume = 0
		}
	})
}

func (a *actor) setLimit(count int) {
	a.updateCredit(func() {
		a.prefetchCount = count
	})
}

// updateCredit applies the change and unblocks queues if the limit is not reached anymore.
func (a *actor) updateCredit(change func()) {
	wasReached := a.limitReached()
	change()
	if wasReached && !a.limitReached() {
		a.logger.Debug("prefetch limit released",
			log.Int("prefetch_count", a.prefetchCount), log.Int("volume", a.volume),
			log.Int("blocked_queues", a.blockedCount))
		a.unblockQueues()
	}
}

func (a *actor) setBlocked(entry *queueEntry, blocked bool) {
	if entry.blocked == blocked {
		return
	}
	entry.blocked = blocked
	if blocked {
		a.blockedCount++
	} else {
		a.blockedCount--
	}
}

func (a *actor) snapshot() Snapshot {
	s := Snapshot{
		PrefetchCount: a.prefetchCount,
		Volume:        a.volume,
		LimitReached:  a.limitReached(),
		Queues:        make(map[string]QueueSnapshot, len(a.queues)),
	}
	for name, entry := range a.queues {
		s.Queues[name] = QueueSnapshot{Blocked: entry.blocked, Length: entry.length}
	}
	return s
}

func (a *actor) reportMetrics() {
	a.metrics.SetPrefetchCount(a.prefetchCount)
	a.metrics.SetVolume(a.volume)
	a.metrics.SetQueues(len(a.queues), a.blockedCount)
}
