package h3

import (
	"errors"
	"fmt"

	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/quic-go/quic-go/http3"
)

var (
	// ErrServerClosed is returned when the server has been closed.
	ErrServerClosed = errors.New("h3: server closed")

	// ErrConnClosed is returned when a stream arrives on a connection that is being torn down.
	ErrConnClosed = errors.New("h3: connection closed")

	// ErrMissingTLSConfig is returned by ListenAndServe without a TLS configuration.
	ErrMissingTLSConfig = errors.New("h3: missing TLS config")
)

// StreamStartTimeoutError is the abort reason of a stream that did not start
// before its deadline.
type StreamStartTimeoutError struct {
	Kind StreamKind
}

func (err *StreamStartTimeoutError) Error() string {
	return err.Kind.timeoutMessage()
}

// ErrorCode returns the code the stream is reset with.
func (err *StreamStartTimeoutError) ErrorCode() http3.ErrCode {
	return err.Kind.ErrorCode()
}

// ConnectionAbortedError is the abort reason of streams that were still
// pending when their connection was torn down.
type ConnectionAbortedError struct {
	Code    http3.ErrCode
	Message string
}

func (err *ConnectionAbortedError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("h3: connection aborted (%s)", err.Code)
	}
	return fmt.Sprintf("h3: connection aborted: %s (%s)", err.Message, err.Code)
}

// StreamProtocolError is the abort reason of a stream whose first bytes
// violated the protocol before it could start.
type StreamProtocolError struct {
	Code http3.ErrCode
	Err  error
}

func (err *StreamProtocolError) Error() string {
	return fmt.Sprintf("h3: %s: %v", err.Code, err.Err)
}

func (err *StreamProtocolError) Unwrap() error {
	return err.Err
}

// StreamAbortedError describes a stream reset by the server before it started.
type StreamAbortedError struct {
	StreamID quic.StreamID
	Kind     StreamKind
	Code     http3.ErrCode
	Reason   error
}

func (err *StreamAbortedError) Error() string {
	return fmt.Sprintf("h3: %s stream %d aborted with %s: %v", err.Kind, err.StreamID, err.Code, err.Reason)
}

func (err *StreamAbortedError) Unwrap() error {
	return err.Reason
}
