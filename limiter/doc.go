/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package limiter provides a per-channel prefetch limiter for a message-queueing broker.
//
// A Limiter bounds the number of unacknowledged messages a channel may have in flight (the prefetch count)
// and decides which subscribed queues may keep delivering to the channel. All state is owned by a single
// goroutine that is reached only through the Limiter's mailbox, so callers (the owning channel and any number
// of queues) never share mutable state with it.
//
// When the prefetch limit is reached, queues asking for permission to send are refused and remembered as blocked
// together with their reported backlog length. When capacity frees up again (acknowledgements arrive or the limit
// is raised), blocked queues are told they may resume:
//   - if the free capacity covers every blocked queue with a non-empty backlog, all of them are notified;
//   - otherwise, queues are visited from the longest backlog to the shortest and each one is accepted with
//     a probability proportional to its backlog, and accepted queues are asked to confirm they resume.
//     Only confirmed resumptions consume capacity. If capacity is left after the pass, the remaining blocked
//     queues are notified as well.
//
// A nil *Limiter means that flow control is disabled: every method is a no-op that returns the permissive default.
//
// Example:
//
//	lim := limiter.Start("channel-1", logger)
//	defer lim.Shutdown()
//
//	lim.SetLimit(10)
//	lim.RegisterQueue(queue)
//	if lim.CanSend(queue, true, queue.Len()) {
//		// deliver a message
//	}
//	lim.RecordAck(1)
package limiter
