/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import "context"

// ChannelID identifies the channel that owns a limiter.
// It is passed to queues in unblock notifications, so they know which channel they may resume delivering to.
type ChannelID string

// Queue is a queue subscribed to the channel.
//
// NotifyUnblocked and RequestUnblock are called from the limiter goroutine. They must not call Limiter methods:
// a queue resumes delivering (and asks CanSend again) after the call returns.
// CanSend called by a queue from its own callback returns false immediately.
type Queue interface {
	// Name uniquely identifies the queue within a limiter.
	Name() string

	// Done returns a channel that is closed when the queue terminates.
	// Nil means that the queue never terminates on its own.
	Done() <-chan struct{}

	// NotifyUnblocked tells the queue that it may resume delivering to the channel.
	// It must not block. Queues must tolerate notifications they were not waiting for.
	NotifyUnblocked(channel ChannelID)

	// RequestUnblock asks the queue whether it resumes delivering to the channel.
	// The queue may decline (e.g. it has nothing to deliver anymore). Errors are treated as a decline.
	RequestUnblock(ctx context.Context, channel ChannelID) (bool, error)
}

// QueueFuncs is an adapter to allow building Queue from ordinary functions.
// Nil functions are replaced with defaults: the queue never terminates, ignores notifications,
// and accepts unblock requests.
type QueueFuncs struct {
	QueueName        string
	DoneChan         <-chan struct{}
	NotifyFunc       func(channel ChannelID)
	RequestUnblockFn func(ctx context.Context, channel ChannelID) (bool, error)
}

var _ Queue = QueueFuncs{}

// Name implements Queue interface.
func (q QueueFuncs) Name() string {
	return q.QueueName
}

// Done implements Queue interface.
func (q QueueFuncs) Done() <-chan struct{} {
	return q.DoneChan
}

// NotifyUnblocked implements Queue interface.
func (q QueueFuncs) NotifyUnblocked(channel ChannelID) {
	if q.NotifyFunc != nil {
		q.NotifyFunc(channel)
	}
}

// RequestUnblock implements Queue interface.
func (q QueueFuncs) RequestUnblock(ctx context.Context, channel ChannelID) (bool, error) {
	if q.RequestUnblockFn == nil {
		return true, nil
	}
	return q.RequestUnblockFn(ctx, channel)
}
