package h3

import (
	"fmt"

	"github.com/quic-go/quic-go/http3"
)

// StreamKind classifies a stream opened by the peer for start-timeout purposes.
type StreamKind int

const (
	// ControlStream covers every unidirectional stream opened by the peer.
	// It has started once its stream type has been read.
	ControlStream StreamKind = iota

	// RequestStream is a bidirectional stream carrying one request.
	// It has started once its first HEADERS frame has been read in full.
	RequestStream
)

type kindAbort struct {
	code    http3.ErrCode
	message string
}

var kindAborts = map[StreamKind]kindAbort{
	ControlStream: {
		code:    http3.ErrCodeStreamCreationError,
		message: "control stream header not received within timeout",
	},
	RequestStream: {
		code:    http3.ErrCodeRequestRejected,
		message: "request headers not received within timeout",
	},
}

func (k StreamKind) String() string {
	switch k {
	case ControlStream:
		return "control"
	case RequestStream:
		return "request"
	default:
		return fmt.Sprintf("StreamKind(%d)", int(k))
	}
}

// IsRequestStream reports whether k is RequestStream.
func (k StreamKind) IsRequestStream() bool {
	return k == RequestStream
}

// ErrorCode returns the code a stream of this kind is reset with when it
// fails to start in time.
func (k StreamKind) ErrorCode() http3.ErrCode {
	if a, ok := kindAborts[k]; ok {
		return a.code
	}
	return http3.ErrCodeInternalError
}

func (k StreamKind) timeoutMessage() string {
	if a, ok := kindAborts[k]; ok {
		return a.message
	}
	return "stream not started within timeout"
}
