// Package config loads the h3server configuration file.
//
// Files are TOML or JSON. The format follows the file extension; files with
// any other extension are detected from their content.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/OkutaniDaichi0106/goh3/h3"
)

// Format is a configuration file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

const (
	DefaultAddress   = ":4433"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config is the top-level configuration of h3server.
type Config struct {
	Server  ServerConfig  `json:"server" toml:"server"`
	HTTP3   HTTP3Config   `json:"http3" toml:"http3"`
	Logging LoggingConfig `json:"logging" toml:"logging"`
	Metrics MetricsConfig `json:"metrics" toml:"metrics"`
}

type ServerConfig struct {
	Address  string `json:"address" toml:"address"`
	CertFile string `json:"cert_file" toml:"cert_file"`
	KeyFile  string `json:"key_file" toml:"key_file"`
}

type HTTP3Config struct {
	RequestHeadersTimeout Duration `json:"request_headers_timeout" toml:"request_headers_timeout"` // e.g., "10s"
	HeartbeatInterval     Duration `json:"heartbeat_interval" toml:"heartbeat_interval"`
	MaxRequestHeaderBytes uint64   `json:"max_request_header_bytes" toml:"max_request_header_bytes"`
}

type LoggingConfig struct {
	Level  string `json:"level" toml:"level"`   // debug, info, warn or error
	Format string `json:"format" toml:"format"` // text or json
}

// MetricsConfig configures the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Address string `json:"address" toml:"address"`
}

// Duration is a time.Duration written as a string such as "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("configuration file path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	c, err := Parse(data, detectFormat(path, data))
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return c, nil
}

// Parse decodes data in the given format, applies defaults and validates the result.
func Parse(data []byte, format Format) (*Config, error) {
	c := &Config{}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown TOML keys: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration format %q", format)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func detectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatTOML
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.HTTP3.RequestHeadersTimeout.Duration == 0 {
		c.HTTP3.RequestHeadersTimeout.Duration = h3.DefaultRequestHeadersTimeout
	}
	if c.HTTP3.HeartbeatInterval.Duration == 0 {
		c.HTTP3.HeartbeatInterval.Duration = h3.DefaultHeartbeatInterval
	}
	if c.HTTP3.MaxRequestHeaderBytes == 0 {
		c.HTTP3.MaxRequestHeaderBytes = h3.DefaultMaxRequestHeaderBytes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP3.RequestHeadersTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("http3.request_headers_timeout must be positive, got %s", c.HTTP3.RequestHeadersTimeout))
	}
	if c.HTTP3.HeartbeatInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("http3.heartbeat_interval must be positive, got %s", c.HTTP3.HeartbeatInterval))
	}
	if c.HTTP3.HeartbeatInterval.Duration > c.HTTP3.RequestHeadersTimeout.Duration {
		errs = append(errs, fmt.Errorf("http3.heartbeat_interval %s exceeds http3.request_headers_timeout %s",
			c.HTTP3.HeartbeatInterval, c.HTTP3.RequestHeadersTimeout))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		errs = append(errs, errors.New("server.cert_file and server.key_file must be set together"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// H3Config returns the library configuration for the server.
func (c *Config) H3Config() *h3.Config {
	return &h3.Config{
		RequestHeadersTimeout: c.HTTP3.RequestHeadersTimeout.Duration,
		HeartbeatInterval:     c.HTTP3.HeartbeatInterval.Duration,
		MaxRequestHeaderBytes: c.HTTP3.MaxRequestHeaderBytes,
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("unknown logging.level %q", level)
	}
	return l, nil
}
