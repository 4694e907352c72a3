/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-prefetch/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	logger := recorder.With(log.String("channel", "ch-1"))

	logger.Info("limiter started", log.Int("mailbox_size", 16))
	logger.Debugf("volume is %d", 3)
	logger.Error("limiter failed")

	entries := recorder.Entries()
	require.Len(t, entries, 3)

	entry, found := recorder.FindEntry("limiter started")
	require.True(t, found)
	require.Equal(t, log.LevelInfo, entry.Level)
	field, found := entry.FindField("channel")
	require.True(t, found)
	require.Equal(t, "ch-1", string(field.Bytes))
	field, found = entry.FindField("mailbox_size")
	require.True(t, found)
	require.EqualValues(t, 16, field.Int)

	entry, found = recorder.FindEntry("volume is 3")
	require.True(t, found)
	require.Equal(t, log.LevelDebug, entry.Level)

	require.Len(t, recorder.FindAllEntries("limiter failed"), 1)

	recorder.Reset()
	require.Empty(t, recorder.Entries())
}
