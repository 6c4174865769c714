package h3

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/OkutaniDaichi0106/goh3/quic/quicgo"
	"github.com/quic-go/quic-go/http3"
)

type Server struct {
	/*
	 * Server's Address
	 */
	Addr string

	/*
	 * TLS configuration
	 */
	TLSConfig *tls.Config

	/*
	 * QUIC configuration
	 */
	QUICConfig *quic.Config

	/*
	 * HTTP/3 Configuration
	 */
	Config *Config

	/*
	 * Handler serves requests once their headers arrived in time.
	 * If nil, every request is rejected with H3_REQUEST_REJECTED.
	 */
	Handler Handler

	/*
	 * Logger
	 */
	Logger *slog.Logger

	/*
	 * Tracer receives stream start events of every connection
	 */
	Tracer *Tracer

	/*
	 * Clock drives the heartbeat. If nil, the system clock is used.
	 */
	Clock Clock

	/*
	 * ListenFunc creates the QUIC listener in ListenAndServe.
	 * If nil, quic-go is used.
	 */
	ListenFunc quic.ListenAddrFunc

	mu            sync.RWMutex
	listeners     map[quic.Listener]struct{}
	listenerGroup sync.WaitGroup
	activeConns   map[*Conn]struct{}

	initOnce sync.Once
	logger   *slog.Logger

	heartbeat     *Heartbeat
	stopHeartbeat context.CancelFunc

	// requestHeadersTimeout overrides Config.RequestHeadersTimeout once set.
	requestHeadersTimeout atomic.Int64

	inShutdown atomic.Bool
}

// init runs once before any other use of the server's state, including Close.
func (s *Server) init() {
	s.initOnce.Do(func() {
		logger := s.Logger
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		logger = logger.With("address", s.Addr)

		ctx, cancel := context.WithCancel(context.Background())
		heartbeat := NewHeartbeat(s.Config.heartbeatInterval(), s.Clock, logger)

		s.mu.Lock()
		s.listeners = make(map[quic.Listener]struct{})
		s.activeConns = make(map[*Conn]struct{})
		s.logger = logger
		s.heartbeat = heartbeat
		s.stopHeartbeat = cancel
		s.mu.Unlock()

		go heartbeat.Run(ctx)

		logger.Debug("initialized server")
	})
}

// Serve accepts QUIC connections on ln and serves each in its own goroutine.
// It returns ErrServerClosed after Close, closing ln if Close ran first.
func (s *Server) Serve(ln quic.Listener) error {
	s.init()

	if !s.addListener(ln) {
		ln.Close()
		return ErrServerClosed
	}
	defer s.removeListener(ln)

	logger := s.logger
	logger.Debug("listening for QUIC connections")

	// This context is canceled when Serve returns
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		if s.shuttingDown() {
			return ErrServerClosed
		}

		conn, err := ln.Accept(ctx)
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			logger.Error("failed to accept QUIC connection",
				"error", err,
			)
			return err
		}

		// Handle connection in a goroutine
		go func(conn quic.Connection) {
			if err := s.ServeQUICConn(conn); err != nil {
				logger.Debug("failed to handle connection",
					"remote_address", conn.RemoteAddr(),
					"error", err,
				)
			}
		}(conn)
	}
}

// ServeQUICConn serves an established connection until it is closed.
func (s *Server) ServeQUICConn(conn quic.Connection) error {
	if s.shuttingDown() {
		return ErrServerClosed
	}

	s.init()

	logger := s.logger.With(
		"remote_address", conn.RemoteAddr(),
	)

	if protocol := conn.ConnectionState().TLS.NegotiatedProtocol; protocol != http3.NextProtoH3 {
		logger.Error("unsupported negotiated protocol",
			"protocol", protocol,
		)
		conn.CloseWithError(quic.ApplicationErrorCode(http3.ErrCodeGeneralProtocolError), "unsupported protocol")
		return fmt.Errorf("unsupported protocol: %s", protocol)
	}

	config := s.Config.Clone()
	if config == nil {
		config = &Config{}
	}
	config.RequestHeadersTimeout = s.RequestHeadersTimeout()

	c := newConn(conn, config, s.Handler, s.Clock, s.logger, s.Tracer)

	if !s.addConn(c) {
		c.CloseWithError(http3.ErrCodeNoError, "server closed")
		return ErrServerClosed
	}
	defer s.removeConn(c)

	logger.Debug("serving HTTP/3 connection")

	<-c.Context().Done()

	logger.Debug("HTTP/3 connection ended",
		"reason", context.Cause(c.Context()),
	)

	return nil
}

// ListenAndServe listens on s.Addr and serves HTTP/3 connections.
func (s *Server) ListenAndServe() error {
	s.init()

	if s.TLSConfig == nil {
		return ErrMissingTLSConfig
	}

	// Clone the TLS config to avoid modifying the original
	tlsConfig := s.TLSConfig.Clone()

	// Make sure we have NextProtos set for ALPN negotiation
	if len(tlsConfig.NextProtos) == 0 {
		tlsConfig.NextProtos = []string{http3.NextProtoH3}
	}

	listen := s.ListenFunc
	if listen == nil {
		listen = quicgo.ListenAddrEarly
	}

	ln, err := listen(s.Addr, tlsConfig, s.QUICConfig)
	if err != nil {
		s.logger.Error("failed to start QUIC listener",
			"error", err,
		)
		return err
	}

	return s.Serve(ln)
}

// ListenAndServeTLS is like ListenAndServe with a certificate loaded from files.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load X509 key pair: %w", err)
	}

	s.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{http3.NextProtoH3},
	}

	return s.ListenAndServe()
}

// RequestHeadersTimeout returns the timeout given to newly accepted streams.
// It is always positive.
func (s *Server) RequestHeadersTimeout() time.Duration {
	if d := time.Duration(s.requestHeadersTimeout.Load()); d > 0 {
		return d
	}
	return s.Config.requestHeadersTimeout()
}

// SetRequestHeadersTimeout changes the timeout of streams accepted from now
// on, on both current and future connections. Streams already waiting keep
// their deadline. A non-positive timeout restores Config.RequestHeadersTimeout.
func (s *Server) SetRequestHeadersTimeout(timeout time.Duration) {
	s.init()

	if timeout < 0 {
		timeout = 0
	}
	s.requestHeadersTimeout.Store(int64(timeout))
	timeout = s.RequestHeadersTimeout()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.activeConns {
		c.SetRequestHeadersTimeout(timeout)
	}

	s.logger.Info("updated request headers timeout",
		"timeout", timeout,
	)
}

// Close closes all listeners and connections. Streams still waiting for
// their first bytes are aborted with H3_NO_ERROR.
func (s *Server) Close() error {
	s.init()

	s.inShutdown.Store(true)

	s.mu.Lock()
	s.logger.Info("closing server")

	for ln := range s.listeners {
		ln.Close()
	}

	conns := make([]*Conn, 0, len(s.activeConns))
	for c := range s.activeConns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Go(func() {
			c.CloseWithError(http3.ErrCodeNoError, "server closed")
		})
	}
	wg.Wait()

	s.listenerGroup.Wait()

	s.stopHeartbeat()

	return nil
}

// addListener reports false once Close has started; Close would not see ln.
func (s *Server) addListener(ln quic.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown() {
		return false
	}

	s.listeners[ln] = struct{}{}
	s.listenerGroup.Add(1)
	return true
}

func (s *Server) removeListener(ln quic.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listeners, ln)
	s.listenerGroup.Done()
}

// addConn reports false once Close has started.
func (s *Server) addConn(c *Conn) bool {
	s.mu.Lock()
	if s.shuttingDown() {
		s.mu.Unlock()
		return false
	}
	s.activeConns[c] = struct{}{}
	// Catch up with a SetRequestHeadersTimeout that ran after c was created.
	c.SetRequestHeadersTimeout(s.RequestHeadersTimeout())
	s.mu.Unlock()

	s.heartbeat.Register(c)
	return true
}

func (s *Server) removeConn(c *Conn) {
	s.heartbeat.Unregister(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.activeConns, c)
}

func (s *Server) shuttingDown() bool {
	return s.inShutdown.Load()
}
