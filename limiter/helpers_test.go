/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-prefetch/log"
)

const testChannel ChannelID = "test-channel"

type testQueue struct {
	name string
	done chan struct{}

	mu            sync.Mutex
	notifications []ChannelID
	requests      []ChannelID
	requestFn     func(ctx context.Context) (bool, error)
	notifiedCh    chan struct{}
}

func newTestQueue(name string) *testQueue {
	return &testQueue{name: name, notifiedCh: make(chan struct{}, 100)}
}

func newTerminableTestQueue(name string) *testQueue {
	q := newTestQueue(name)
	q.done = make(chan struct{})
	return q
}

func (q *testQueue) Name() string {
	return q.name
}

func (q *testQueue) Done() <-chan struct{} {
	if q.done == nil {
		return nil
	}
	return q.done
}

func (q *testQueue) NotifyUnblocked(channel ChannelID) {
	q.mu.Lock()
	q.notifications = append(q.notifications, channel)
	q.mu.Unlock()
	select {
	case q.notifiedCh <- struct{}{}:
	default:
	}
}

func (q *testQueue) RequestUnblock(ctx context.Context, channel ChannelID) (bool, error) {
	q.mu.Lock()
	q.requests = append(q.requests, channel)
	requestFn := q.requestFn
	q.mu.Unlock()
	if requestFn == nil {
		return true, nil
	}
	return requestFn(ctx)
}

func (q *testQueue) setRequestFn(fn func(ctx context.Context) (bool, error)) {
	q.mu.Lock()
	q.requestFn = fn
	q.mu.Unlock()
}

func (q *testQueue) terminate() {
	close(q.done)
}

func (q *testQueue) Notifications() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.notifications)
}

func (q *testQueue) Requests() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// fakeRand returns the prepared numbers in order and remembers the bounds it was called with.
// When the prepared numbers are exhausted, it returns the maximum possible value.
type fakeRand struct {
	draws  []int
	bounds []int
}

func (r *fakeRand) Intn(n int) int {
	r.bounds = append(r.bounds, n)
	if len(r.draws) == 0 {
		return n - 1
	}
	d := r.draws[0]
	r.draws = r.draws[1:]
	return d
}

func newTestActor(t *testing.T, opts Opts) *actor {
	t.Helper()
	return newTestActorWithLogger(t, opts, log.NewDisabledLogger())
}

func newTestActorWithLogger(t *testing.T, opts Opts, logger log.FieldLogger) *actor {
	t.Helper()
	if opts.MailboxSize == 0 {
		opts.MailboxSize = 16
	}
	opts = opts.withDefaults()
	a := newActor(testChannel, make(chan interface{}, opts.MailboxSize), &callbackGuard{}, logger, opts)
	t.Cleanup(a.releaseMonitors)
	return a
}

func requireHandle(t *testing.T, a *actor, msg interface{}) {
	t.Helper()
	require.NoError(t, a.safeHandle(msg))
}

func requireCanSend(t *testing.T, a *actor, q Queue, ackRequired bool, length int) bool {
	t.Helper()
	reply := make(chan bool, 1)
	requireHandle(t, a, canSendMsg{name: q.Name(), ackRequired: ackRequired, length: length, reply: reply})
	return <-reply
}

func registerQueues(t *testing.T, a *actor, queues ...Queue) {
	t.Helper()
	for _, q := range queues {
		requireHandle(t, a, registerMsg{queue: q})
	}
}

// saturate consumes the whole credit on behalf of the producer queue.
func saturate(t *testing.T, a *actor, producer Queue, prefetchCount int) {
	t.Helper()
	requireHandle(t, a, setLimitMsg{count: prefetchCount})
	for i := 0; i < prefetchCount; i++ {
		require.True(t, requireCanSend(t, a, producer, true, 1))
	}
	require.True(t, a.limitReached())
}

func requireBlocked(t *testing.T, a *actor, blocked bool, names ...string) {
	t.Helper()
	for _, name := range names {
		entry, ok := a.queues[name]
		require.True(t, ok, "queue %q is not registered", name)
		require.Equal(t, blocked, entry.blocked, "queue %q", name)
	}
}
