package h3

import (
	"time"
)

const (
	// DefaultRequestHeadersTimeout is used when Config.RequestHeadersTimeout is zero.
	DefaultRequestHeadersTimeout = 30 * time.Second

	// DefaultHeartbeatInterval is used when Config.HeartbeatInterval is zero.
	DefaultHeartbeatInterval = time.Second

	// DefaultMaxRequestHeaderBytes is used when Config.MaxRequestHeaderBytes is zero.
	DefaultMaxRequestHeaderBytes = 16 << 10
)

// Config contains configuration options for HTTP/3 connections.
type Config struct {
	// RequestHeadersTimeout is how long a new stream may take to deliver the
	// bytes that classify it: the stream type of a unidirectional stream or
	// the complete first HEADERS frame of a request stream.
	// If zero, DefaultRequestHeadersTimeout is used.
	RequestHeadersTimeout time.Duration

	// HeartbeatInterval is the cadence at which pending streams are checked.
	// A stream is aborted on the first heartbeat after its deadline, so the
	// effective timeout is up to one interval longer than RequestHeadersTimeout.
	// If zero, DefaultHeartbeatInterval is used.
	HeartbeatInterval time.Duration

	// MaxRequestHeaderBytes limits the payload of the first HEADERS frame.
	// If zero, DefaultMaxRequestHeaderBytes is used.
	MaxRequestHeaderBytes uint64
}

func (c *Config) requestHeadersTimeout() time.Duration {
	if c != nil && c.RequestHeadersTimeout > 0 {
		return c.RequestHeadersTimeout
	}
	return DefaultRequestHeadersTimeout
}

func (c *Config) heartbeatInterval() time.Duration {
	if c != nil && c.HeartbeatInterval > 0 {
		return c.HeartbeatInterval
	}
	return DefaultHeartbeatInterval
}

func (c *Config) maxRequestHeaderBytes() uint64 {
	if c != nil && c.MaxRequestHeaderBytes > 0 {
		return c.MaxRequestHeaderBytes
	}
	return DefaultMaxRequestHeaderBytes
}

// Clone creates a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	return &Config{
		RequestHeadersTimeout: c.RequestHeadersTimeout,
		HeartbeatInterval:     c.HeartbeatInterval,
		MaxRequestHeaderBytes: c.MaxRequestHeaderBytes,
	}
}
