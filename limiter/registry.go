/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"sync"

	"github.com/acronis/go-prefetch/log"
)

type queueEntry struct {
	queue   Queue
	monitor *monitor
	blocked bool
	length  int
}

func (a *actor) register(q Queue) {
	name := q.Name()
	if _, ok := a.queues[name]; ok {
		return
	}
	a.queues[name] = &queueEntry{queue: q, monitor: a.monitorQueue(q)}
	a.logger.Debug("queue registered", log.String("queue", name))
}

func (a *actor) unregister(name string) {
	if a.removeQueue(name) {
		a.logger.Debug("queue unregistered", log.String("queue", name))
	}
}

func (a *actor) queueDown(name string, m *monitor) {
	entry, ok := a.queues[name]
	if !ok || entry.monitor != m {
		return
	}
	if a.removeQueue(name) {
		a.logger.Debug("registered queue terminated", log.String("queue", name))
	}
}

// removeQueue stops watching the queue, tells it that it's not blocked anymore and forgets it.
func (a *actor) removeQueue(name string) bool {
	entry, ok := a.queues[name]
	if !ok {
		return false
	}
	entry.monitor.release()
	a.setBlocked(entry, false)
	delete(a.queues, name)
	a.notifyUnblocked(entry.queue)
	return true
}

func (a *actor) releaseMonitors() {
	for _, entry := range a.queues {
		entry.monitor.release()
	}
}

// monitor watches for termination of a registered queue.
type monitor struct {
	stop     chan struct{}
	stopOnce sync.Once
}

// monitorQueue starts watching the queue. When it terminates, queueDownMsg is posted to the mailbox.
func (a *actor) monitorQueue(q Queue) *monitor {
	m := &monitor{stop: make(chan struct{})}
	queueDone := q.Done()
	if queueDone == nil {
		return m
	}
	name := q.Name()
	go func() {
		select {
		case <-queueDone:
		case <-m.stop:
			return
		}
		select {
		case a.mailbox <- queueDownMsg{name: name, monitor: m}:
		case <-m.stop:
		}
	}()
	return m
}

func (m *monitor) release() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}
