// Package quic provides the QUIC transport abstraction used by the goh3 library.
//
// The h3 package never talks to a QUIC implementation directly. It accepts
// streams through the interfaces defined here, and it resets streams through
// CancelRead and CancelWrite, which carry an application error code onto the
// wire as RESET_STREAM and STOP_SENDING frames.
//
// # Interfaces
//
//   - Connection: accepts bidirectional (request) and unidirectional
//     (control, QPACK, push) streams opened by the peer
//   - Stream: bidirectional QUIC stream for reading and writing
//   - SendStream: the sending half of a stream
//   - ReceiveStream: the receiving half of a stream
//   - Listener: accepts incoming QUIC connections
//
// # Implementations
//
// The quicgo subpackage wraps github.com/quic-go/quic-go:
//
//	ln, err := quicgo.ListenAddrEarly("localhost:4433", tlsConfig, quicConfig)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ln.Close()
//
//	for {
//	    conn, err := ln.Accept(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    go handleConnection(conn)
//	}
//
// For more information about QUIC, see RFC 9000:
// https://datatracker.ietf.org/doc/html/rfc9000
package quic
