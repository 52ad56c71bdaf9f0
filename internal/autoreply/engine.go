package autoreply

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"arcco/internal/bus"
	"arcco/internal/domain"
	"arcco/internal/metrics"
	"arcco/internal/profile"
)

const (
	defaultReplyMaxTokens   = 1024
	defaultReplyTemperature = 0.7
)

// Engine is the reply orchestrator: the per-message pipeline that turns
// one unseen inbound message into an outbound reply plus its side effects
// (context update, optional sheet row, transcript event).
type Engine struct {
	gateway  domain.Gateway
	provider domain.Provider
	sheets   domain.SheetStore
	profile  *profile.Profile
	prompt   *PromptBuilder
	ledger   *Ledger
	history  *History
	events   *bus.EventBus
	logger   *slog.Logger
}

// EngineConfig holds all dependencies for the orchestrator. Sheets may be
// nil when no tabular store is configured; Events may be nil when no
// observer is attached.
type EngineConfig struct {
	Gateway  domain.Gateway
	Provider domain.Provider
	Sheets   domain.SheetStore
	Profile  *profile.Profile
	Ledger   *Ledger
	History  *History
	Events   *bus.EventBus
	Logger   *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		gateway:  cfg.Gateway,
		provider: cfg.Provider,
		sheets:   cfg.Sheets,
		profile:  cfg.Profile,
		prompt:   NewPromptBuilder(cfg.Profile),
		ledger:   cfg.Ledger,
		history:  cfg.History,
		events:   cfg.Events,
		logger:   cfg.Logger,
	}
}

// HandleMessage runs the full reply pipeline for one eligible message.
// The message id is marked seen before any work starts: each id gets at
// most one attempt per process lifetime, and a completion or send failure
// is logged and dropped, never retried. Nothing propagates to the caller.
func (e *Engine) HandleMessage(ctx context.Context, msg domain.InboundMessage) {
	e.ledger.Add(msg.ID)

	if err := e.reply(ctx, msg); err != nil {
		metrics.RepliesFailed.Inc()
		e.logger.Error("auto-reply failed, message dropped",
			"contact", msg.ContactID,
			"message_id", msg.ID,
			"err", err,
		)
		e.emit(bus.EventReplyFailed, map[string]any{
			"contact":    msg.ContactID,
			"message_id": msg.ID,
			"error":      err.Error(),
		})
	}
}

func (e *Engine) reply(ctx context.Context, msg domain.InboundMessage) error {
	prior := e.history.Get(msg.ContactID)
	sheet := e.linkedSheet(ctx)

	start := time.Now()
	metrics.LLMRequestsTotal.Inc()
	resp, err := e.provider.Chat(ctx, domain.ChatRequest{
		Model:        e.profile.Model,
		SystemPrompt: e.prompt.System(sheet),
		History:      prior,
		UserText:     msg.Text,
		MaxTokens:    defaultReplyMaxTokens,
		Temperature:  defaultReplyTemperature,
	})
	metrics.LLMLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}

	text := resp.Content
	if sheet != nil {
		if cmd, cleaned, ok := ExtractRowCommand(text); ok {
			text = cleaned
			e.appendRow(ctx, sheet, cmd)
		}
	}

	e.history.Append(msg.ContactID, msg.Text, text)
	metrics.TrackedContacts.Set(int64(e.history.Contacts()))

	if err := e.gateway.SendText(ctx, msg.ContactID, text); err != nil {
		metrics.SendFailures.Inc()
		return fmt.Errorf("send: %w", err)
	}

	metrics.RepliesSent.Inc()
	e.logger.Info("auto-reply sent",
		"contact", msg.ContactID,
		"message_id", msg.ID,
		"reply_len", len(text),
		"latency_ms", resp.LatencyMs,
	)
	e.emit(bus.EventReplySent, map[string]any{
		"contact":   msg.ContactID,
		"inbound":   msg.Text,
		"reply":     text,
		"automated": true,
	})
	return nil
}

// appendRow applies a parsed row command to the linked sheet. Persistence
// failures are logged and swallowed: the reply is still sent, so the store
// and the conversation can diverge.
func (e *Engine) appendRow(ctx context.Context, sheet *domain.Sheet, cmd *RowCommand) {
	row := BuildRow(sheet.Headers, cmd.Values)
	if err := e.sheets.AppendRow(ctx, sheet.ID, row); err != nil {
		e.logger.Error("sheet append failed", "sheet", sheet.ID, "err", err)
		return
	}
	metrics.RowsAppended.Inc()
	e.logger.Info("sheet row appended", "sheet", sheet.ID, "columns", len(row))
	e.emit(bus.EventRowAppended, map[string]any{
		"sheet":  sheet.ID,
		"values": row,
	})
}

// linkedSheet loads the profile's linked sheet, or nil when none is linked
// or the load fails (the reply proceeds without the sheet block).
func (e *Engine) linkedSheet(ctx context.Context) *domain.Sheet {
	if e.profile.SheetID == "" || e.sheets == nil {
		return nil
	}
	sheet, err := e.sheets.GetSheet(ctx, e.profile.SheetID)
	if err != nil {
		e.logger.Warn("cannot load linked sheet, replying without it", "sheet", e.profile.SheetID, "err", err)
		return nil
	}
	return sheet
}

func (e *Engine) emit(eventType string, payload map[string]any) {
	if e.events == nil {
		return
	}
	e.events.Emit(bus.Event{Type: eventType, Source: "autoreply", Payload: payload})
}
