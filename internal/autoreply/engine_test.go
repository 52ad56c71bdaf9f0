package autoreply

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"arcco/internal/domain"
	"arcco/internal/profile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes shared with scheduler_test.go ---

type sentText struct {
	contact string
	text    string
}

type fakeGateway struct {
	state    string
	stateErr error
	raws     []domain.RawMessage
	fetchErr error
	sent     []sentText
	sendErr  error
	fetches  int
}

func (f *fakeGateway) FetchRecentMessages(ctx context.Context, limit int) ([]domain.RawMessage, error) {
	f.fetches++
	return f.raws, f.fetchErr
}

func (f *fakeGateway) SendText(ctx context.Context, contactID, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentText{contact: contactID, text: text})
	return nil
}

func (f *fakeGateway) ConnectionState(ctx context.Context) (string, error) {
	if f.state == "" && f.stateErr == nil {
		return "open", nil
	}
	return f.state, f.stateErr
}

type fakeProvider struct {
	reply    string
	err      error
	requests []domain.ChatRequest
}

func (f *fakeProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChatResponse{Content: f.reply}, nil
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Models() []string { return []string{"fake-model"} }
func (f *fakeProvider) Healthy(ctx context.Context) error { return nil }

type fakeSheets struct {
	sheet     *domain.Sheet
	getErr    error
	appendErr error
	appended  [][]string
}

func (f *fakeSheets) CreateSheet(ctx context.Context, name string, headers []string) (*domain.Sheet, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSheets) GetSheet(ctx context.Context, id string) (*domain.Sheet, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.sheet, nil
}

func (f *fakeSheets) ListSheets(ctx context.Context) ([]domain.Sheet, error) { return nil, nil }

func (f *fakeSheets) AppendRow(ctx context.Context, sheetID string, values []string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, values)
	return nil
}

func (f *fakeSheets) GetRows(ctx context.Context, sheetID string, limit int) ([]domain.Row, error) {
	return nil, nil
}

func (f *fakeSheets) Close() error { return nil }

func newTestEngine(gw *fakeGateway, prov *fakeProvider, store *fakeSheets, prof *profile.Profile) (*Engine, *Ledger, *History) {
	if prof == nil {
		prof = &profile.Profile{Name: "test", Persona: "persona", Model: "fake-model"}
	}
	ledger := NewLedger(100)
	history := NewHistory(20, 50)
	engine := NewEngine(EngineConfig{
		Gateway:  gw,
		Provider: prov,
		Sheets:   store,
		Profile:  prof,
		Ledger:   ledger,
		History:  history,
		Logger:   testLogger(),
	})
	return engine, ledger, history
}

// --- engine tests ---

func TestEngine_ReplyPipeline(t *testing.T) {
	gw := &fakeGateway{}
	prov := &fakeProvider{reply: "Custa R$299/mês."}
	engine, ledger, history := newTestEngine(gw, prov, nil, nil)

	msg := domain.InboundMessage{ID: "m1", ContactID: "5511999", Text: "Quanto custa o plano Pro?"}
	engine.HandleMessage(context.Background(), msg)

	if !ledger.Has("m1") {
		t.Error("message id not recorded in ledger")
	}
	if len(gw.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(gw.sent))
	}
	if gw.sent[0].contact != "5511999" || gw.sent[0].text != "Custa R$299/mês." {
		t.Errorf("sent = %+v", gw.sent[0])
	}

	turns := history.Get("5511999")
	if len(turns) != 2 {
		t.Fatalf("history has %d turns, want 2", len(turns))
	}
	if turns[0].Content != "Quanto custa o plano Pro?" || turns[1].Content != "Custa R$299/mês." {
		t.Errorf("history = %+v", turns)
	}
}

func TestEngine_PriorHistoryFlowsIntoRequest(t *testing.T) {
	gw := &fakeGateway{}
	prov := &fakeProvider{reply: "resposta"}
	engine, _, history := newTestEngine(gw, prov, nil, nil)

	history.Append("c1", "primeira pergunta", "primeira resposta")
	engine.HandleMessage(context.Background(), domain.InboundMessage{ID: "m2", ContactID: "c1", Text: "segunda"})

	if len(prov.requests) != 1 {
		t.Fatalf("provider got %d requests, want 1", len(prov.requests))
	}
	req := prov.requests[0]
	if len(req.History) != 2 {
		t.Errorf("request history has %d turns, want 2", len(req.History))
	}
	if req.UserText != "segunda" {
		t.Errorf("user text = %q", req.UserText)
	}
}

func TestEngine_CompletionFailureIsSwallowed(t *testing.T) {
	gw := &fakeGateway{}
	prov := &fakeProvider{err: errors.New("provider down")}
	engine, ledger, history := newTestEngine(gw, prov, nil, nil)

	msg := domain.InboundMessage{ID: "m1", ContactID: "c1", Text: "oi"}
	engine.HandleMessage(context.Background(), msg)

	// The id stays marked: no retry on a later poll.
	if !ledger.Has("m1") {
		t.Error("failed message should remain in ledger")
	}
	if len(gw.sent) != 0 {
		t.Error("nothing should be sent when completion fails")
	}
	if len(history.Get("c1")) != 0 {
		t.Error("failed cycle must not pollute history")
	}
}

func TestEngine_SendFailureKeepsHistory(t *testing.T) {
	gw := &fakeGateway{sendErr: errors.New("network")}
	prov := &fakeProvider{reply: "resposta"}
	engine, ledger, history := newTestEngine(gw, prov, nil, nil)

	engine.HandleMessage(context.Background(), domain.InboundMessage{ID: "m1", ContactID: "c1", Text: "oi"})

	if !ledger.Has("m1") {
		t.Error("id must stay in ledger after send failure")
	}
	// Context is written before the send, so the pair survives even when
	// delivery fails.
	if len(history.Get("c1")) != 2 {
		t.Errorf("history has %d turns, want 2", len(history.Get("c1")))
	}
}

func TestEngine_RowMarkerAppendsToLinkedSheet(t *testing.T) {
	gw := &fakeGateway{}
	prov := &fakeProvider{reply: "Anotado! [SPREADSHEET_ADD: Alice | 2026-08-29 | Plano Pro]"}
	store := &fakeSheets{sheet: &domain.Sheet{ID: "s1", Name: "Leads", Headers: []string{"Name", "Date", "Plan"}}}
	prof := &profile.Profile{Name: "vendas", Persona: "p", SheetID: "s1"}
	engine, _, _ := newTestEngine(gw, prov, store, prof)

	engine.HandleMessage(context.Background(), domain.InboundMessage{ID: "m1", ContactID: "c1", Text: "Quero o Pro"})

	if len(store.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(store.appended))
	}
	row := store.appended[0]
	if row[0] != "Alice" || row[1] != "2026-08-29" || row[2] != "Plano Pro" {
		t.Errorf("row = %v", row)
	}

	// The marker never reaches the contact.
	if len(gw.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(gw.sent))
	}
	if gw.sent[0].text != "Anotado!" {
		t.Errorf("sent text = %q", gw.sent[0].text)
	}
}

func TestEngine_MarkerIgnoredWithoutLinkedSheet(t *testing.T) {
	gw := &fakeGateway{}
	prov := &fakeProvider{reply: "ok [SPREADSHEET_ADD: x]"}
	engine, _, _ := newTestEngine(gw, prov, nil, nil)

	engine.HandleMessage(context.Background(), domain.InboundMessage{ID: "m1", ContactID: "c1", Text: "oi"})

	// No sheet linked: the reply goes out verbatim, marker and all.
	if len(gw.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(gw.sent))
	}
	if gw.sent[0].text != "ok [SPREADSHEET_ADD: x]" {
		t.Errorf("sent text = %q", gw.sent[0].text)
	}
}

func TestEngine_AppendFailureStillSends(t *testing.T) {
	gw := &fakeGateway{}
	prov := &fakeProvider{reply: "Anotado! [SPREADSHEET_ADD: Alice]"}
	store := &fakeSheets{
		sheet:     &domain.Sheet{ID: "s1", Name: "Leads", Headers: []string{"Name"}},
		appendErr: errors.New("disk full"),
	}
	prof := &profile.Profile{Name: "vendas", Persona: "p", SheetID: "s1"}
	engine, _, _ := newTestEngine(gw, prov, store, prof)

	engine.HandleMessage(context.Background(), domain.InboundMessage{ID: "m1", ContactID: "c1", Text: "oi"})

	if len(gw.sent) != 1 {
		t.Fatalf("reply not sent after append failure")
	}
	if gw.sent[0].text != "Anotado!" {
		t.Errorf("sent text = %q (marker should still be stripped)", gw.sent[0].text)
	}
}

func TestEngine_SheetLoadFailureRepliesWithoutSheet(t *testing.T) {
	gw := &fakeGateway{}
	prov := &fakeProvider{reply: "resposta"}
	store := &fakeSheets{getErr: errors.New("db locked")}
	prof := &profile.Profile{Name: "vendas", Persona: "p", SheetID: "s1"}
	engine, _, _ := newTestEngine(gw, prov, store, prof)

	engine.HandleMessage(context.Background(), domain.InboundMessage{ID: "m1", ContactID: "c1", Text: "oi"})

	if len(gw.sent) != 1 {
		t.Fatalf("reply should still be sent when sheet load fails")
	}
	if len(prov.requests) != 1 {
		t.Fatal("provider not called")
	}
	// No sheet block means no marker instructions in the prompt.
	if strings.Contains(prov.requests[0].SystemPrompt, "SPREADSHEET_ADD") {
		t.Error("prompt should not mention the marker without a sheet")
	}
}
