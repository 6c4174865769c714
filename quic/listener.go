package quic

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/quic-go/quic-go"
)

// Config configures the QUIC layer under the HTTP/3 server, such as stream
// limits and idle timeouts.
type Config = quic.Config

// ListenAddrFunc opens a Listener on addr. The TLS config must offer the
// HTTP/3 ALPN.
type ListenAddrFunc func(addr string, tlsConfig *tls.Config, quicConfig *Config) (Listener, error)

// Listener hands out connections whose handshake has completed far enough to
// know the negotiated protocol.
type Listener interface {
	// Accept blocks until a connection arrives, ctx is canceled or the
	// listener is closed.
	Accept(ctx context.Context) (Connection, error)

	Addr() net.Addr

	// Close stops accepting. Connections already returned stay open.
	Close() error
}
