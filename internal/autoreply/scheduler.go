package autoreply

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"arcco/internal/bus"
	"arcco/internal/domain"
	"arcco/internal/gateway"
	"arcco/internal/metrics"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPageSize     = 30
	defaultMaxAge       = time.Hour
)

// Scheduler drives the auto-reply loop: once per interval it pulls a page
// of recent messages from the gateway and feeds unseen, eligible ones to
// the engine, sequentially. A tick-in-progress guard makes single-flight
// an invariant rather than an accident of the interval exceeding
// processing time.
type Scheduler struct {
	gateway  domain.Gateway
	engine   *Engine
	ledger   *Ledger
	events   *bus.EventBus
	logger   *slog.Logger
	interval time.Duration
	pageSize int
	maxAge   time.Duration
	busy     atomic.Bool
	now      func() time.Time
}

type SchedulerConfig struct {
	Gateway  domain.Gateway
	Engine   *Engine
	Ledger   *Ledger
	Events   *bus.EventBus
	Logger   *slog.Logger
	Interval time.Duration
	PageSize int
	MaxAge   time.Duration // staleness backstop; messages older than this are not replied to
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		gateway:  cfg.Gateway,
		engine:   cfg.Engine,
		ledger:   cfg.Ledger,
		events:   cfg.Events,
		logger:   cfg.Logger,
		interval: cfg.Interval,
		pageSize: cfg.PageSize,
		maxAge:   cfg.MaxAge,
		now:      time.Now,
	}
}

// Run executes the poll loop until the context is cancelled. An in-flight
// tick is never aborted mid-message; cancellation takes effect at the next
// interval boundary.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("auto-reply scheduler started",
		"interval", s.interval,
		"page_size", s.pageSize,
		"max_age", s.maxAge,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-reply scheduler stopped")
			return
		case <-ticker.C:
			// Detached from the shutdown signal so a partial poll is
			// allowed to finish; cancellation stops the loop, not the
			// in-flight tick.
			s.Tick(context.WithoutCancel(ctx))
		}
	}
}

// Tick runs one poll cycle. If a previous tick is still in flight the call
// is skipped entirely; it is not queued.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous poll still running, skipping tick")
		return
	}
	defer s.busy.Store(false)

	state, err := s.gateway.ConnectionState(ctx)
	if err != nil || state != "open" {
		metrics.GatewayConnected.Set(0)
		s.logger.Warn("gateway session not connected, skipping poll", "state", state, "err", err)
		s.emit(bus.EventGatewayOffline, map[string]any{"state": state})
		return
	}
	metrics.GatewayConnected.Set(1)

	raws, err := s.gateway.FetchRecentMessages(ctx, s.pageSize)
	if err != nil {
		metrics.PollErrors.Inc()
		s.logger.Error("fetch recent messages failed", "err", err)
		return
	}

	metrics.PollsTotal.Inc()
	handled := 0
	for i, raw := range raws {
		msg := gateway.Normalize(raw, i)
		if !s.eligible(msg) {
			continue
		}
		// Sequential on purpose: one in-flight completion/send at a time,
		// and no second reply to the same contact within a tick.
		s.engine.HandleMessage(ctx, msg)
		handled++
	}

	s.logger.Debug("poll completed", "fetched", len(raws), "handled", handled)
	s.emit(bus.EventPollCompleted, map[string]any{"fetched": len(raws), "handled": handled})
}

// eligible applies the skip chain for one normalized message. Order
// matters: self and already-seen messages are cheapest to reject, the
// staleness backstop runs last.
func (s *Scheduler) eligible(msg domain.InboundMessage) bool {
	metrics.MessagesSeen.Inc()

	switch {
	case msg.FromSelf:
		return false
	case s.ledger.Has(msg.ID):
		metrics.DedupeSkips.Inc()
		return false
	case strings.TrimSpace(msg.Text) == "":
		s.skip(msg, "empty_text")
		return false
	case msg.IsGroup:
		s.skip(msg, "group")
		return false
	case msg.ContactID == "":
		s.skip(msg, "no_contact")
		return false
	}

	// Unknown timestamps count as just now, not as too old.
	if msg.TimestampSeconds > 0 {
		age := s.now().Sub(time.Unix(msg.TimestampSeconds, 0))
		if age > s.maxAge {
			s.skip(msg, "stale")
			return false
		}
	}
	return true
}

func (s *Scheduler) skip(msg domain.InboundMessage, reason string) {
	s.logger.Debug("message skipped", "message_id", msg.ID, "contact", msg.ContactID, "reason", reason)
	s.emit(bus.EventMessageSkipped, map[string]any{
		"message_id": msg.ID,
		"contact":    msg.ContactID,
		"reason":     reason,
	})
}

func (s *Scheduler) emit(eventType string, payload map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Emit(bus.Event{Type: eventType, Source: "autoreply", Payload: payload})
}
