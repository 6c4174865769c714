package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/OkutaniDaichi0106/goh3/h3"
	"github.com/OkutaniDaichi0106/goh3/internal/config"
	"github.com/OkutaniDaichi0106/goh3/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quic-go/quic-go/http3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	configPath            string
	addr                  string
	certFile              string
	keyFile               string
	metricsAddr           string
	logLevel              string
	logFormat             string
	requestHeadersTimeout time.Duration
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "h3server",
		Short:         "HTTP/3 server that resets streams which never start",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags(), &opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.Flags(), &opts, cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML or JSON configuration file, reloaded on change")
	flags.StringVar(&opts.addr, "addr", config.DefaultAddress, "UDP address to listen on")
	flags.StringVar(&opts.certFile, "cert", "", "TLS certificate file (self-signed if empty)")
	flags.StringVar(&opts.keyFile, "key", "", "TLS private key file")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "TCP address serving /metrics (disabled if empty)")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", config.DefaultLogFormat, "log format: text or json")
	flags.DurationVar(&opts.requestHeadersTimeout, "request-headers-timeout", h3.DefaultRequestHeadersTimeout,
		"time a peer stream may stay silent before it is reset")

	return cmd
}

// resolveConfig loads the configuration file, if any, and applies the flags
// set on the command line on top of it.
func resolveConfig(flags *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyFlags(cfg, flags, opts)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet, opts *options) {
	if flags.Changed("addr") {
		cfg.Server.Address = opts.addr
	}
	if flags.Changed("cert") {
		cfg.Server.CertFile = opts.certFile
	}
	if flags.Changed("key") {
		cfg.Server.KeyFile = opts.keyFile
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Address = opts.metricsAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	if flags.Changed("request-headers-timeout") {
		cfg.HTTP3.RequestHeadersTimeout.Duration = opts.requestHeadersTimeout
	}
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func run(ctx context.Context, cfg *config.Config, flags *pflag.FlagSet, opts *options, logOutput io.Writer) error {
	level := new(slog.LevelVar)
	l, _ := config.ParseLevel(cfg.Logging.Level) // validated by resolveConfig
	level.Set(l)

	logger := newLogger(logOutput, cfg.Logging.Format, level).With("app", "h3server")
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	server := &h3.Server{
		Addr:    cfg.Server.Address,
		Config:  cfg.H3Config(),
		Handler: h3.HandlerFunc(serveStatus),
		Logger:  logger,
		Tracer:  m.Tracer(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := listenAndServe(server, cfg.Server)
		if errors.Is(err, h3.ErrServerClosed) {
			return nil
		}
		return err
	})

	var metricsServer *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("serving metrics", "address", cfg.Metrics.Address)
			err := metricsServer.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	if opts.configPath != "" {
		g.Go(func() error {
			return config.Watch(ctx, opts.configPath, logger, func(reloaded *config.Config) {
				applyFlags(reloaded, flags, opts)
				if err := reloaded.Validate(); err != nil {
					logger.Error("ignoring reloaded configuration", "error", err)
					return
				}
				if l, err := config.ParseLevel(reloaded.Logging.Level); err == nil {
					level.Set(l)
				}
				server.SetRequestHeadersTimeout(reloaded.HTTP3.RequestHeadersTimeout.Duration)
			})
		})
	}

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down")

		if err := server.Close(); err != nil {
			logger.Error("failed to close HTTP/3 server", "error", err)
		}

		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down metrics server", "error", err)
			}
		}
		return nil
	})

	logger.Info("serving HTTP/3",
		"address", cfg.Server.Address,
		"request_headers_timeout", cfg.HTTP3.RequestHeadersTimeout,
	)

	return g.Wait()
}

func listenAndServe(server *h3.Server, cfg config.ServerConfig) error {
	if cfg.CertFile != "" {
		return server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	}

	cert, err := selfSignedCertificate(hostname())
	if err != nil {
		return err
	}
	server.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{http3.NextProtoH3},
	}
	return server.ListenAndServe()
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return name
}

// serveStatus answers every request with a short plain text body.
func serveStatus(r *h3.Request) {
	body := fmt.Sprintf("%s %s\n", r.Method, r.Path)
	header := http.Header{"Content-Type": {"text/plain; charset=utf-8"}}

	if err := h3.WriteResponse(r.Stream(), http.StatusOK, header, []byte(body)); err != nil {
		slog.Debug("failed to write response",
			"stream_id", r.StreamID,
			"error", err,
		)
	}
}
