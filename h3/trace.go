package h3

import (
	"github.com/OkutaniDaichi0106/goh3/quic"
)

// Tracer receives stream start events. Any field may be nil.
// Callbacks run on the goroutine that caused the event and must not block.
type Tracer struct {
	// StreamTracked is called when a stream starts waiting for its first bytes.
	StreamTracked func(id quic.StreamID, kind StreamKind)

	// StreamStarted is called when a stream started before its deadline.
	StreamStarted func(id quic.StreamID, kind StreamKind)

	// StreamAborted is called when the server reset a stream that had not started.
	StreamAborted func(err *StreamAbortedError)

	// StreamClosed is called when a stream finished before it started.
	StreamClosed func(id quic.StreamID, kind StreamKind)
}

func (t *Tracer) streamTracked(id quic.StreamID, kind StreamKind) {
	if t != nil && t.StreamTracked != nil {
		t.StreamTracked(id, kind)
	}
}

func (t *Tracer) streamStarted(id quic.StreamID, kind StreamKind) {
	if t != nil && t.StreamStarted != nil {
		t.StreamStarted(id, kind)
	}
}

func (t *Tracer) streamAborted(err *StreamAbortedError) {
	if t != nil && t.StreamAborted != nil {
		t.StreamAborted(err)
	}
}

func (t *Tracer) streamClosed(id quic.StreamID, kind StreamKind) {
	if t != nil && t.StreamClosed != nil {
		t.StreamClosed(id, kind)
	}
}
