package h3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OkutaniDaichi0106/goh3/h3/internal/frame"
	"github.com/OkutaniDaichi0106/goh3/internal/clock"
	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/quic-go/qpack"
	"github.com/quic-go/quic-go/http3"
	"github.com/rs/xid"
)

func newConn(conn quic.Connection, config *Config, handler Handler, c Clock, logger *slog.Logger, tracer *Tracer) *Conn {
	if c == nil {
		c = clock.Real{}
	}

	var connLogger *slog.Logger
	if logger == nil {
		connLogger = slog.New(slog.DiscardHandler)
	} else {
		connLogger = logger.With(
			"connection_id", xid.New().String(),
			"remote_address", conn.RemoteAddr(),
		)
	}

	hc := &Conn{
		ctx:     conn.Context(),
		conn:    conn,
		config:  config.Clone(),
		handler: handler,
		clock:   c,
		logger:  connLogger,
	}
	hc.tracker = NewStartTracker(config.requestHeadersTimeout(), connLogger, tracer)

	// Abort pending streams once the connection is gone, whichever side closed it.
	context.AfterFunc(hc.ctx, func() {
		hc.tracker.Close(connectionAbortReason(context.Cause(hc.ctx)))
	})

	// Listen bidirectional streams
	hc.wg.Go(func() {
		hc.handleBiStreams()
	})

	// Listen unidirectional streams
	hc.wg.Go(func() {
		hc.handleUniStreams()
	})

	return hc
}

// Conn is the server side of one HTTP/3 connection. It classifies the
// streams opened by the peer and aborts those that stay silent past the
// request headers timeout.
type Conn struct {
	ctx context.Context

	// accept loops and per-stream goroutines
	wg sync.WaitGroup

	conn    quic.Connection
	config  *Config
	handler Handler
	clock   Clock
	tracker *StartTracker

	logger *slog.Logger

	isClosing atomic.Bool
}

func (c *Conn) closing() bool {
	return c.isClosing.Load()
}

// Context returns the connection's context, canceled when the connection is closed.
func (c *Conn) Context() context.Context {
	return c.ctx
}

// OnHeartbeat aborts the streams whose start deadline is before now.
func (c *Conn) OnHeartbeat(now time.Time) {
	c.tracker.OnHeartbeat(now)
}

// SetRequestHeadersTimeout changes the timeout of streams accepted from now on.
func (c *Conn) SetRequestHeadersTimeout(timeout time.Duration) {
	c.tracker.SetTimeout(timeout)
}

// PendingStreams returns the number of streams that have not started yet.
func (c *Conn) PendingStreams() int {
	return c.tracker.Len()
}

// CloseWithError aborts every pending stream with code, closes the
// connection and waits for the accept loops and running handlers to return.
func (c *Conn) CloseWithError(code http3.ErrCode, msg string) error {
	if !c.isClosing.CompareAndSwap(false, true) {
		c.logger.Debug("close already in progress")
		return nil
	}

	c.logger.Info("closing connection",
		"code", code,
		"message", msg,
	)

	c.tracker.Close(&ConnectionAbortedError{Code: code, Message: msg})

	err := c.conn.CloseWithError(quic.ApplicationErrorCode(code), msg)

	// Wait for the accept loops and stream goroutines
	c.wg.Wait()

	if err != nil {
		c.logger.Error("failed to close connection",
			"error", err,
		)
		return err
	}

	c.logger.Info("connection closed")

	return nil
}

func (c *Conn) handleBiStreams() {
	for {
		stream, err := c.conn.AcceptStream(c.ctx)
		if err != nil {
			c.logger.Debug("failed to accept bidirectional stream, handler stopping",
				"error", err,
			)
			return
		}

		created := c.clock.Now()
		streamLogger := c.logger.With("stream_id", stream.StreamID())

		err = c.tracker.Track(stream.StreamID(), RequestStream, created, func(code quic.StreamErrorCode) {
			cancelStreamWithError(stream, code)
		})
		if err != nil {
			streamLogger.Debug("rejecting request stream",
				"error", err,
			)
			cancelStreamWithError(stream, quic.StreamErrorCode(http3.ErrCodeRequestRejected))
			continue
		}

		// Handle the stream
		c.wg.Go(func() {
			c.processBiStream(stream, streamLogger)
		})
	}
}

func (c *Conn) processBiStream(stream quic.Stream, streamLogger *slog.Logger) {
	id := stream.StreamID()

	req, err := c.readRequest(stream)
	if err != nil {
		var protoErr *StreamProtocolError
		if errors.As(err, &protoErr) {
			streamLogger.Debug("malformed request headers",
				"error", err,
			)
			c.tracker.Abort(id, protoErr, protoErr.Code)
			return
		}

		// The peer finished or reset the stream, or it was aborted meanwhile.
		streamLogger.Debug("request stream ended before its headers",
			"error", err,
		)
		c.tracker.Closed(id)
		return
	}

	if !c.tracker.Started(id) {
		streamLogger.Debug("request stream aborted while reading its headers")
		return
	}

	if c.handler == nil {
		streamLogger.Warn("no handler for request",
			"method", req.Method,
			"path", req.Path,
		)
		cancelStreamWithError(stream, quic.StreamErrorCode(http3.ErrCodeRequestRejected))
		return
	}

	streamLogger.Debug("serving request",
		"method", req.Method,
		"authority", req.Authority,
		"path", req.Path,
	)

	c.handler.ServeRequest(req)

	// Ensure the response side is closed when done
	stream.Close()
}

// readRequest reads frames up to and including the first HEADERS frame.
// Reserved and extension frames before it are skipped.
func (c *Conn) readRequest(stream quic.Stream) (*Request, error) {
	var hdr frame.Header
	for {
		if err := hdr.Decode(stream); err != nil {
			return nil, err
		}

		if hdr.Type == frame.TypeHeaders {
			break
		}

		if hdr.Type.Known() {
			return nil, &StreamProtocolError{
				Code: http3.ErrCodeFrameUnexpected,
				Err:  fmt.Errorf("%s frame before HEADERS", hdr.Type),
			}
		}

		if _, err := io.CopyN(io.Discard, stream, int64(hdr.Length)); err != nil {
			return nil, err
		}
	}

	payload, err := frame.ReadPayload(stream, hdr, c.config.maxRequestHeaderBytes())
	if err != nil {
		if errors.Is(err, frame.ErrFrameTooLarge) {
			return nil, &StreamProtocolError{
				Code: http3.ErrCodeExcessiveLoad,
				Err:  fmt.Errorf("%w: %d bytes", err, hdr.Length),
			}
		}
		return nil, err
	}

	fields, err := qpack.NewDecoder(nil).DecodeFull(payload)
	if err != nil {
		return nil, &StreamProtocolError{Code: http3.ErrCodeMessageError, Err: err}
	}

	req, err := newRequest(stream, fields)
	if err != nil {
		return nil, &StreamProtocolError{Code: http3.ErrCodeMessageError, Err: err}
	}

	return req, nil
}

func (c *Conn) handleUniStreams() {
	for {
		/*
		 * Accept a unidirectional stream
		 */
		stream, err := c.conn.AcceptUniStream(c.ctx)
		if err != nil {
			c.logger.Debug("failed to accept unidirectional stream, handler stopping",
				"error", err,
			)
			return
		}

		created := c.clock.Now()
		streamLogger := c.logger.With("stream_id", stream.StreamID())

		err = c.tracker.Track(stream.StreamID(), ControlStream, created, func(code quic.StreamErrorCode) {
			stream.CancelRead(code)
		})
		if err != nil {
			streamLogger.Debug("rejecting unidirectional stream",
				"error", err,
			)
			stream.CancelRead(quic.StreamErrorCode(http3.ErrCodeStreamCreationError))
			continue
		}

		// Handle the stream
		c.wg.Go(func() {
			c.processUniStream(stream, streamLogger)
		})
	}
}

func (c *Conn) processUniStream(stream quic.ReceiveStream, streamLogger *slog.Logger) {
	id := stream.StreamID()

	/*
	 * Get a Stream Type
	 */
	var streamType frame.StreamType
	if err := streamType.Decode(stream); err != nil {
		streamLogger.Debug("unidirectional stream ended before its type",
			"error", err,
		)
		c.tracker.Closed(id)
		return
	}

	if !c.tracker.Started(id) {
		streamLogger.Debug("unidirectional stream aborted while reading its type")
		return
	}

	streamLogger = streamLogger.With("stream_type", streamType)

	if !streamType.Known() {
		streamLogger.Debug("ignoring unidirectional stream of unknown type")
		stream.CancelRead(quic.StreamErrorCode(http3.ErrCodeStreamCreationError))
		return
	}

	// Settings and QPACK instructions are not interpreted; the stream is
	// consumed so that the peer is not blocked by flow control.
	n, err := io.Copy(io.Discard, stream)
	streamLogger.Debug("unidirectional stream finished",
		"bytes", n,
		"error", err,
	)
}

func connectionAbortReason(cause error) *ConnectionAbortedError {
	var appErr *quic.ApplicationError
	if errors.As(cause, &appErr) {
		return &ConnectionAbortedError{
			Code:    http3.ErrCode(appErr.ErrorCode),
			Message: appErr.ErrorMessage,
		}
	}

	reason := &ConnectionAbortedError{Code: http3.ErrCodeNoError}
	if cause != nil {
		reason.Message = cause.Error()
	}
	return reason
}

func cancelStreamWithError(stream quic.Stream, code quic.StreamErrorCode) {
	stream.CancelRead(code)
	stream.CancelWrite(code)
}
