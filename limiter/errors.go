/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import "errors"

// ErrLimiterStopped is returned by synchronous calls when the limiter goroutine has terminated.
var ErrLimiterStopped = errors.New("prefetch limiter is stopped")

// ErrUnknownQueue is a terminal error of the limiter that occurs
// when a queue asks for permission to send without being registered first.
var ErrUnknownQueue = errors.New("queue is not registered in prefetch limiter")

// ErrActorFault is a terminal error of the limiter that occurs when processing of a request fails unexpectedly.
var ErrActorFault = errors.New("prefetch limiter fault")
