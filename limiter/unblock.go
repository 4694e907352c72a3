/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"
	"math"

	"github.com/acronis/go-prefetch/internal/backlog"
	"github.com/acronis/go-prefetch/log"
)

// unblockQueues decides which blocked queues may resume delivering after the limit stopped being reached.
//
// If the free credit is enough for every blocked queue with a non-empty backlog, all blocked queues are notified.
// Otherwise, queues are picked one by one (longest backlog first) with a probability proportional to their backlog,
// and each picked queue has to confirm that it resumes. Credit left after the pass is given to all remaining blocked queues.
func (a *actor) unblockQueues() {
	blocked := a.blockedBacklog()
	if blocked.Len() == 0 {
		return
	}

	capacity := math.MaxInt
	if a.prefetchCount != 0 {
		capacity = a.prefetchCount - a.volume
	}

	if capacity >= blocked.NonZeroCount() {
		a.notifyBlocked(blocked)
		return
	}

	quota := capacity
	lengthSum := blocked.WeightSum()
	confirmed, declined := 0, 0
	for quota > 0 {
		item, ok := blocked.Pop()
		if !ok || item.Length == 0 {
			break
		}
		entry, ok := a.queues[item.Name]
		if !ok || !entry.blocked {
			continue
		}
		if lengthSum <= 1 || item.Length >= a.rand.Intn(lengthSum)+1 {
			if a.requestUnblock(entry) {
				a.setBlocked(entry, false)
				quota--
				confirmed++
			} else {
				declined++
			}
		}
		lengthSum -= item.Length
	}

	a.metrics.AddUnblocks(UnblockModeConfirmed, confirmed)
	a.logger.Debug("blocked queues partially released",
		log.Int("capacity", capacity), log.Int("confirmed", confirmed), log.Int("declined", declined))

	if quota > 0 {
		a.notifyBlocked(a.blockedBacklog())
	}
}

// blockedBacklog collects all blocked queues into a heap ordered by backlog length.
func (a *actor) blockedBacklog() *backlog.Heap {
	h := backlog.NewHeap()
	for name, entry := range a.queues {
		if entry.blocked {
			h.Push(backlog.Item{Name: name, Length: entry.length})
		}
	}
	return h
}

// notifyBlocked unblocks all queues from the heap without waiting for confirmation.
func (a *actor) notifyBlocked(h *backlog.Heap) {
	notified := 0
	for item, ok := h.Pop(); ok; item, ok = h.Pop() {
		entry, exists := a.queues[item.Name]
		if !exists || !entry.blocked {
			continue
		}
		a.notifyUnblocked(entry.queue)
		a.setBlocked(entry, false)
		notified++
	}
	if notified == 0 {
		return
	}
	a.metrics.AddUnblocks(UnblockModeNotify, notified)
	a.logger.Debug("blocked queues released", log.Int("queues", notified))
}

// requestUnblock asks the queue to resume and waits for its answer. Errors and timeouts are treated as a decline.
func (a *actor) requestUnblock(entry *queueEntry) bool {
	ctx, cancel := context.WithTimeout(a.ctx, a.confirmTimeout)
	defer cancel()
	var accepted bool
	var err error
	a.callbacks.run(entry.queue.Name(), func() {
		accepted, err = entry.queue.RequestUnblock(ctx, a.channel)
	})
	if err != nil {
		a.metrics.IncDeclines()
		a.logger.Warn("queue failed to confirm unblock request",
			log.String("queue", entry.queue.Name()), log.Error(err))
		return false
	}
	if !accepted {
		a.metrics.IncDeclines()
		a.logger.Debug("queue declined unblock request", log.String("queue", entry.queue.Name()))
		return false
	}
	return true
}

func (a *actor) notifyUnblocked(q Queue) {
	a.callbacks.run(q.Name(), func() {
		q.NotifyUnblocked(a.channel)
	})
}
