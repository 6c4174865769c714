package quic

import (
	"io"

	"github.com/quic-go/quic-go"
)

// StreamID identifies a stream within a connection. Its two low bits encode
// the initiator and the directionality (RFC 9000 §2.1).
type StreamID = quic.StreamID

// Stream is a peer-initiated bidirectional stream. HTTP/3 carries one
// request and its response on each.
type Stream interface {
	SendStream
	ReceiveStream
}

// SendStream is the half of a stream the server writes to.
type SendStream interface {
	io.Writer

	// Close sends FIN once buffered data is written.
	io.Closer

	StreamID() StreamID

	// CancelWrite sends RESET_STREAM with code.
	CancelWrite(StreamErrorCode)
}

// ReceiveStream is the half of a stream the server reads from.
type ReceiveStream interface {
	io.Reader

	StreamID() StreamID

	// CancelRead sends STOP_SENDING with code and discards unread data.
	CancelRead(StreamErrorCode)
}
