package h3

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OkutaniDaichi0106/goh3/internal/clock"
)

// Clock supplies the current time to the heartbeat.
// Now should carry a monotonic reading.
type Clock = clock.Clock

// HeartbeatHandler is notified on every heartbeat tick.
type HeartbeatHandler interface {
	OnHeartbeat(now time.Time)
}

// Heartbeat delivers the current time to its handlers at a fixed interval.
// It is the only place where time advances for stream start tracking.
type Heartbeat struct {
	interval time.Duration
	clock    Clock
	logger   *slog.Logger

	mu       sync.Mutex
	handlers map[HeartbeatHandler]struct{}
}

// NewHeartbeat creates a heartbeat ticking every interval on clock.
// A nil clock uses the system clock.
func NewHeartbeat(interval time.Duration, c Clock, logger *slog.Logger) *Heartbeat {
	if c == nil {
		c = clock.Real{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Heartbeat{
		interval: interval,
		clock:    c,
		logger:   logger,
		handlers: make(map[HeartbeatHandler]struct{}),
	}
}

func (h *Heartbeat) Register(handler HeartbeatHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handlers[handler] = struct{}{}
}

func (h *Heartbeat) Unregister(handler HeartbeatHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.handlers, handler)
}

// Run ticks until ctx is canceled and returns ctx's error.
func (h *Heartbeat) Run(ctx context.Context) error {
	h.logger.Debug("heartbeat started",
		"interval", h.interval,
	)

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("heartbeat stopped")
			return ctx.Err()
		case <-h.clock.After(h.interval):
			h.Tick(h.clock.Now())
		}
	}
}

// Tick delivers now to every registered handler.
// A handler that panics is logged and does not affect the others.
func (h *Heartbeat) Tick(now time.Time) {
	h.mu.Lock()
	handlers := make([]HeartbeatHandler, 0, len(h.handlers))
	for handler := range h.handlers {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()

	for _, handler := range handlers {
		h.onHeartbeat(handler, now)
	}
}

func (h *Heartbeat) onHeartbeat(handler HeartbeatHandler, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("heartbeat handler panicked",
				"panic", r,
			)
		}
	}()

	handler.OnHeartbeat(now)
}
