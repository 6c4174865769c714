package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OkutaniDaichi0106/goh3/h3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTempFile writes content to a file named name in a fresh directory
// and returns its path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		name    string
		content string
		check   func(t *testing.T, c *Config)
	}{
		"TOML": {
			name: "h3server.toml",
			content: `
[server]
address = ":8443"
cert_file = "cert.pem"
key_file = "key.pem"

[http3]
request_headers_timeout = "10s"
heartbeat_interval = "500ms"
max_request_header_bytes = 4096

[logging]
level = "debug"
format = "json"

[metrics]
address = ":9090"
`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, ":8443", c.Server.Address)
				assert.Equal(t, "cert.pem", c.Server.CertFile)
				assert.Equal(t, "key.pem", c.Server.KeyFile)
				assert.Equal(t, 10*time.Second, c.HTTP3.RequestHeadersTimeout.Duration)
				assert.Equal(t, 500*time.Millisecond, c.HTTP3.HeartbeatInterval.Duration)
				assert.Equal(t, uint64(4096), c.HTTP3.MaxRequestHeaderBytes)
				assert.Equal(t, "debug", c.Logging.Level)
				assert.Equal(t, "json", c.Logging.Format)
				assert.Equal(t, ":9090", c.Metrics.Address)
			},
		},
		"JSON": {
			name:    "h3server.json",
			content: `{"http3": {"request_headers_timeout": "5s"}}`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 5*time.Second, c.HTTP3.RequestHeadersTimeout.Duration)
				assert.Equal(t, DefaultAddress, c.Server.Address)
			},
		},
		"auto-detect JSON": {
			name:    "h3server.conf",
			content: "\n  {\"logging\": {\"level\": \"warn\"}}",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "warn", c.Logging.Level)
			},
		},
		"auto-detect TOML": {
			name:    "h3server.conf",
			content: "[logging]\nlevel = \"error\"\n",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "error", c.Logging.Level)
			},
		},
		"empty file gets defaults": {
			name:    "h3server.toml",
			content: "",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, Default(), c)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeTempFile(t, tt.name, tt.content)

			c, err := Load(path)
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]struct {
		name    string
		content string
		wantErr string
	}{
		"invalid TOML": {
			name:    "bad.toml",
			content: "[server\naddress = ",
			wantErr: "failed to parse TOML",
		},
		"invalid JSON": {
			name:    "bad.json",
			content: `{"server": `,
			wantErr: "failed to parse JSON",
		},
		"unknown TOML key": {
			name:    "unknown.toml",
			content: "[server]\nport = 443\n",
			wantErr: "unknown TOML keys",
		},
		"unknown JSON key": {
			name:    "unknown.json",
			content: `{"server": {"port": 443}}`,
			wantErr: "unknown field",
		},
		"invalid duration": {
			name:    "duration.toml",
			content: "[http3]\nrequest_headers_timeout = \"soon\"\n",
			wantErr: "failed to parse TOML",
		},
		"negative timeout": {
			name:    "negative.json",
			content: `{"http3": {"request_headers_timeout": "-1s"}}`,
			wantErr: "request_headers_timeout must be positive",
		},
		"heartbeat slower than timeout": {
			name:    "slow.toml",
			content: "[http3]\nrequest_headers_timeout = \"1s\"\nheartbeat_interval = \"2s\"\n",
			wantErr: "exceeds http3.request_headers_timeout",
		},
		"cert without key": {
			name:    "tls.toml",
			content: "[server]\ncert_file = \"cert.pem\"\n",
			wantErr: "must be set together",
		},
		"unknown log level": {
			name:    "level.toml",
			content: "[logging]\nlevel = \"verbose\"\n",
			wantErr: "unknown logging.level",
		},
		"unknown log format": {
			name:    "format.toml",
			content: "[logging]\nformat = \"xml\"\n",
			wantErr: "unknown logging.format",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeTempFile(t, tt.name, tt.content)

			c, err := Load(path)
			assert.Nil(t, c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Path(t *testing.T) {
	_, err := Load("")
	assert.EqualError(t, err, "configuration file path cannot be empty")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read configuration file")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("server:\n  address: :443\n"), Format("yaml"))
	assert.EqualError(t, err, `unsupported configuration format "yaml"`)
}

func TestConfig_H3Config(t *testing.T) {
	c := Default()
	c.HTTP3.RequestHeadersTimeout.Duration = 7 * time.Second

	assert.Equal(t, &h3.Config{
		RequestHeadersTimeout: 7 * time.Second,
		HeartbeatInterval:     h3.DefaultHeartbeatInterval,
		MaxRequestHeaderBytes: h3.DefaultMaxRequestHeaderBytes,
	}, c.H3Config())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		"debug":      {level: "debug", want: slog.LevelDebug},
		"upper case": {level: "WARN", want: slog.LevelWarn},
		"offset":     {level: "info+2", want: slog.LevelInfo + 2},
		"unknown":    {level: "loud", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	text, err := Duration{90 * time.Second}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
