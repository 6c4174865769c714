package quicgo

import (
	"github.com/OkutaniDaichi0106/goh3/quic"
	quicgo_quicgo "github.com/quic-go/quic-go"
)

var _ quic.Stream = (*rawQuicStream)(nil)

type rawQuicStream struct {
	stream *quicgo_quicgo.Stream
}

func (wrapper rawQuicStream) StreamID() quic.StreamID {
	return wrapper.stream.StreamID()
}

func (wrapper rawQuicStream) Read(b []byte) (int, error) {
	return wrapper.stream.Read(b)
}

func (wrapper rawQuicStream) Write(b []byte) (int, error) {
	return wrapper.stream.Write(b)
}

func (wrapper rawQuicStream) CancelRead(code quic.StreamErrorCode) {
	wrapper.stream.CancelRead(code)
}

func (wrapper rawQuicStream) CancelWrite(code quic.StreamErrorCode) {
	wrapper.stream.CancelWrite(code)
}

func (wrapper rawQuicStream) Close() error {
	return wrapper.stream.Close()
}

/*
 *
 */
var _ quic.ReceiveStream = (*rawQuicReceiveStream)(nil)

type rawQuicReceiveStream struct {
	stream *quicgo_quicgo.ReceiveStream
}

func (wrapper rawQuicReceiveStream) StreamID() quic.StreamID {
	return wrapper.stream.StreamID()
}

func (wrapper rawQuicReceiveStream) Read(b []byte) (int, error) {
	return wrapper.stream.Read(b)
}

func (wrapper rawQuicReceiveStream) CancelRead(code quic.StreamErrorCode) {
	wrapper.stream.CancelRead(code)
}
