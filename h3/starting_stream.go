package h3

import (
	"sync/atomic"
	"time"

	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/quic-go/quic-go/http3"
)

const (
	streamCreated uint32 = iota
	streamStarted
	streamAborted
)

// startingStream is the start-timeout record of a stream that has been
// accepted but not yet classified.
type startingStream struct {
	id       quic.StreamID
	kind     StreamKind
	deadline time.Time

	// reset hands the error code to the transport. It may be asynchronous.
	reset func(quic.StreamErrorCode)

	state       atomic.Uint32
	abortReason atomic.Pointer[StreamAbortedError]
}

func newStartingStream(id quic.StreamID, kind StreamKind, created time.Time, timeout time.Duration, reset func(quic.StreamErrorCode)) *startingStream {
	return &startingStream{
		id:       id,
		kind:     kind,
		deadline: created.Add(timeout),
		reset:    reset,
	}
}

func (s *startingStream) StreamID() quic.StreamID {
	return s.id
}

func (s *startingStream) Kind() StreamKind {
	return s.kind
}

func (s *startingStream) IsRequestStream() bool {
	return s.kind.IsRequestStream()
}

// StartExpiration returns the instant after which the stream is aborted.
func (s *startingStream) StartExpiration() time.Time {
	return s.deadline
}

func (s *startingStream) HasStarted() bool {
	return s.state.Load() == streamStarted
}

func (s *startingStream) aborted() bool {
	return s.state.Load() == streamAborted
}

// expired reports whether now is strictly past the deadline.
// A tick landing exactly on the deadline does not expire the stream.
func (s *startingStream) expired(now time.Time) bool {
	return now.After(s.deadline)
}

// markStarted moves the stream to its started state.
// It returns false when the stream already reached a terminal state.
func (s *startingStream) markStarted() bool {
	return s.state.CompareAndSwap(streamCreated, streamStarted)
}

// abort resets the stream with code and records reason.
// Only the first call on a stream that has not started has any effect.
func (s *startingStream) abort(reason error, code http3.ErrCode) *StreamAbortedError {
	if !s.state.CompareAndSwap(streamCreated, streamAborted) {
		return nil
	}

	abortErr := &StreamAbortedError{
		StreamID: s.id,
		Kind:     s.kind,
		Code:     code,
		Reason:   reason,
	}
	s.abortReason.Store(abortErr)

	if s.reset != nil {
		s.reset(quic.StreamErrorCode(code))
	}

	return abortErr
}

// AbortReason returns the reason recorded by abort, or nil.
func (s *startingStream) AbortReason() *StreamAbortedError {
	return s.abortReason.Load()
}
