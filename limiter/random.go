/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"math/rand"
	"time"
)

// RandomSource is a source of uniformly distributed pseudo-random numbers.
// It is used only from the limiter goroutine and does not need to be safe for concurrent use.
// *rand.Rand satisfies this interface.
type RandomSource interface {
	// Intn returns a pseudo-random number in [0, n). n is always positive.
	Intn(n int) int
}

func newDefaultRandomSource() RandomSource {
	return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // not used for security purposes
}
