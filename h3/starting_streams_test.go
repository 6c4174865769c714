package h3

import (
	"sync"
	"testing"
	"time"

	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/quic-go/quic-go/http3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartingStreams_TryRemove(t *testing.T) {
	ss := newStartingStreams()
	s := newStartingStream(0, RequestStream, testEpoch, time.Second, nil)
	require.True(t, ss.insert(s))

	got, ok := ss.tryRemove(0)
	assert.True(t, ok)
	assert.Same(t, s, got)

	got, ok = ss.tryRemove(0)
	assert.False(t, ok)
	assert.Nil(t, got)

	assert.Equal(t, 0, ss.len())
}

func TestStartingStreams_TryRemoveExactlyOnce(t *testing.T) {
	const callers = 16

	ss := newStartingStreams()
	require.True(t, ss.insert(newStartingStream(0, ControlStream, testEpoch, time.Second, nil)))

	var (
		mu   sync.Mutex
		wins int
		wg   sync.WaitGroup
	)
	for range callers {
		wg.Go(func() {
			if _, ok := ss.tryRemove(0); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestStartingStreams_DuplicateInsertPanics(t *testing.T) {
	ss := newStartingStreams()
	require.True(t, ss.insert(newStartingStream(4, RequestStream, testEpoch, time.Second, nil)))

	assert.PanicsWithValue(t, "h3: duplicate starting stream 4", func() {
		ss.insert(newStartingStream(4, RequestStream, testEpoch, time.Second, nil))
	})
}

func TestStartingStreams_Snapshot(t *testing.T) {
	ss := newStartingStreams()
	for i := range 3 {
		require.True(t, ss.insert(newStartingStream(quic.StreamID(i*4), RequestStream, testEpoch, time.Second, nil)))
	}

	snap := ss.snapshot()
	assert.Len(t, snap, 3)

	// Mutations after the snapshot do not affect it
	ss.tryRemove(0)
	require.True(t, ss.insert(newStartingStream(12, RequestStream, testEpoch, time.Second, nil)))
	assert.Len(t, snap, 3)

	ids := make([]quic.StreamID, 0, len(snap))
	for _, s := range snap {
		ids = append(ids, s.StreamID())
	}
	assert.ElementsMatch(t, []quic.StreamID{0, 4, 8}, ids)
}

func TestStartingStreams_Close(t *testing.T) {
	ss := newStartingStreams()
	require.True(t, ss.insert(newStartingStream(0, RequestStream, testEpoch, time.Second, nil)))

	ss.close()

	assert.False(t, ss.insert(newStartingStream(4, RequestStream, testEpoch, time.Second, nil)))
	assert.Equal(t, 1, ss.len(), "close does not drop existing members")
}

func TestStartingStream(t *testing.T) {
	tests := map[string]struct {
		kind        StreamKind
		wantRequest bool
	}{
		"request stream": {kind: RequestStream, wantRequest: true},
		"control stream": {kind: ControlStream, wantRequest: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStartingStream(8, tt.kind, testEpoch, 3*time.Second, nil)

			assert.Equal(t, quic.StreamID(8), s.StreamID())
			assert.Equal(t, tt.kind, s.Kind())
			assert.Equal(t, tt.wantRequest, s.IsRequestStream())
			assert.Equal(t, testEpoch.Add(3*time.Second), s.StartExpiration())
			assert.False(t, s.HasStarted())
			assert.Nil(t, s.AbortReason())

			assert.False(t, s.expired(testEpoch.Add(3*time.Second)))
			assert.True(t, s.expired(testEpoch.Add(3*time.Second+time.Nanosecond)))
		})
	}
}

func TestStartingStream_TerminalTransitions(t *testing.T) {
	t.Run("start then abort", func(t *testing.T) {
		reset := &resetRecorder{}
		s := newStartingStream(0, RequestStream, testEpoch, time.Second, reset.reset)

		assert.True(t, s.markStarted())
		assert.True(t, s.HasStarted())
		assert.False(t, s.markStarted(), "second start is a no-op")

		assert.Nil(t, s.abort(&StreamStartTimeoutError{Kind: RequestStream}, http3.ErrCodeRequestRejected))
		assert.Empty(t, reset.Codes())
		assert.True(t, s.HasStarted(), "started never reverts")
	})

	t.Run("abort then start", func(t *testing.T) {
		reset := &resetRecorder{}
		s := newStartingStream(0, ControlStream, testEpoch, time.Second, reset.reset)

		abortErr := s.abort(&StreamStartTimeoutError{Kind: ControlStream}, http3.ErrCodeStreamCreationError)
		require.NotNil(t, abortErr)
		assert.Same(t, abortErr, s.AbortReason())
		assert.True(t, s.aborted())

		assert.Nil(t, s.abort(&StreamStartTimeoutError{Kind: ControlStream}, http3.ErrCodeStreamCreationError))
		assert.False(t, s.markStarted())
		assert.False(t, s.HasStarted())
		assert.Equal(t, []quic.StreamErrorCode{quic.StreamErrorCode(http3.ErrCodeStreamCreationError)}, reset.Codes())
	})
}
