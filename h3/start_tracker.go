package h3

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/quic-go/quic-go/http3"
)

// StartTracker bounds how long streams on one connection may stay silent
// before they are classified. Streams are registered on acceptance, leave on
// start or close, and are aborted by the heartbeat once their deadline passes.
//
// StartTracker performs no timing of its own: time only advances through
// OnHeartbeat.
type StartTracker struct {
	streams *startingStreams

	timeout atomic.Int64 // time.Duration

	logger *slog.Logger
	tracer *Tracer
}

// NewStartTracker returns a tracker giving each stream timeout to start.
func NewStartTracker(timeout time.Duration, logger *slog.Logger, tracer *Tracer) *StartTracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t := &StartTracker{
		streams: newStartingStreams(),
		logger:  logger,
		tracer:  tracer,
	}
	t.SetTimeout(timeout)

	return t
}

// SetTimeout changes the timeout of streams tracked from now on.
// Deadlines of streams already tracked are not changed. A non-positive
// timeout means DefaultRequestHeadersTimeout.
func (t *StartTracker) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultRequestHeadersTimeout
	}
	t.timeout.Store(int64(timeout))
}

// Timeout returns the timeout applied to newly tracked streams.
func (t *StartTracker) Timeout() time.Duration {
	return time.Duration(t.timeout.Load())
}

// Track registers a newly accepted stream created at created.
// reset is invoked with the error code if the stream is aborted.
// Track returns ErrConnClosed, without calling reset, once the tracker is closed.
func (t *StartTracker) Track(id quic.StreamID, kind StreamKind, created time.Time, reset func(quic.StreamErrorCode)) error {
	s := newStartingStream(id, kind, created, t.Timeout(), reset)
	if !t.streams.insert(s) {
		return ErrConnClosed
	}

	t.logger.Debug("tracking starting stream",
		"stream_id", id,
		"kind", kind,
		"start_expiration", s.deadline,
	)
	t.tracer.streamTracked(id, kind)

	return nil
}

// Started records that the stream has read enough to classify itself.
// It reports false if the stream was already aborted or is unknown, in which
// case the caller must stop processing it.
func (t *StartTracker) Started(id quic.StreamID) bool {
	s, ok := t.streams.tryRemove(id)
	if !ok {
		return false
	}
	if !s.markStarted() {
		return false
	}

	t.logger.Debug("stream started",
		"stream_id", id,
		"kind", s.kind,
	)
	t.tracer.streamStarted(id, s.kind)

	return true
}

// Closed removes a stream that completed before it started, without
// resetting it. It reports whether the stream was still pending.
func (t *StartTracker) Closed(id quic.StreamID) bool {
	s, ok := t.streams.tryRemove(id)
	if !ok {
		return false
	}

	t.logger.Debug("stream closed before start",
		"stream_id", id,
		"kind", s.kind,
	)
	t.tracer.streamClosed(id, s.kind)

	return true
}

// Abort resets a pending stream with code, for example after a protocol
// violation in its first bytes. It reports whether this call aborted it.
func (t *StartTracker) Abort(id quic.StreamID, reason error, code http3.ErrCode) bool {
	s, ok := t.streams.tryRemove(id)
	if !ok {
		return false
	}
	return t.abort(s, reason, code)
}

// OnHeartbeat aborts every pending stream whose deadline is strictly
// before now. Streams of different kinds are reset with their own codes.
func (t *StartTracker) OnHeartbeat(now time.Time) {
	for _, s := range t.streams.snapshot() {
		if s.HasStarted() {
			continue
		}

		if !s.expired(now) {
			continue
		}

		if _, ok := t.streams.tryRemove(s.id); !ok {
			// Started, closed or aborted since the snapshot.
			continue
		}

		t.abort(s, &StreamStartTimeoutError{Kind: s.kind}, s.kind.ErrorCode())
	}
}

// Close aborts every pending stream with reason and rejects later Track calls.
// It is safe to call concurrently with OnHeartbeat and more than once.
func (t *StartTracker) Close(reason *ConnectionAbortedError) {
	if reason == nil {
		reason = &ConnectionAbortedError{Code: http3.ErrCodeNoError}
	}

	t.streams.close()

	for _, s := range t.streams.snapshot() {
		if _, ok := t.streams.tryRemove(s.id); !ok {
			continue
		}
		t.abort(s, reason, reason.Code)
	}
}

// Len returns the number of streams awaiting start.
func (t *StartTracker) Len() int {
	return t.streams.len()
}

// abort resets s. A panic raised by the transport is logged and swallowed
// so that one stream cannot stop a sweep over the others.
func (t *StartTracker) abort(s *startingStream, reason error, code http3.ErrCode) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("failed to reset stream",
				"stream_id", s.id,
				"kind", s.kind,
				"code", code,
				"panic", r,
			)
			if abortErr := s.AbortReason(); abortErr != nil {
				t.tracer.streamAborted(abortErr)
				ok = true
			}
		}
	}()

	abortErr := s.abort(reason, code)
	if abortErr == nil {
		return false
	}

	t.logger.Warn("aborted starting stream",
		"stream_id", s.id,
		"kind", s.kind,
		"code", code,
		"reason", reason,
	)
	t.tracer.streamAborted(abortErr)

	return true
}
