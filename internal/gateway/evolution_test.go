package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Instance: "main",
		Logger:   testLogger(),
	})
}

func TestFetchRecentMessages_PagedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/findMessages/main" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "test-key" {
			t.Error("apikey header missing")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["limit"] != float64(30) {
			t.Errorf("limit = %v", body["limit"])
		}
		w.Write([]byte(`{"messages":{"records":[{"key":{"id":"m1"}},{"key":{"id":"m2"}}]}}`))
	}))
	defer srv.Close()

	msgs, err := newTestClient(srv).FetchRecentMessages(context.Background(), 30)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("got %d messages, want 2", len(msgs))
	}
}

func TestFetchRecentMessages_BareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"m1"}]`))
	}))
	defer srv.Close()

	msgs, err := newTestClient(srv).FetchRecentMessages(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("got %d messages, want 1", len(msgs))
	}
}

func TestFetchRecentMessages_RetriesServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchRecentMessages(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestSendText_PayloadAndNoRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.URL.Path != "/message/sendText/main" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["number"] != "5511999887766" {
			t.Errorf("number = %v (should be digits only)", body["number"])
		}
		if body["text"] != "Olá!" {
			t.Errorf("text = %v", body["text"])
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestClient(srv).SendText(context.Background(), "+55 11 99988-7766", "Olá!")
	if err == nil {
		t.Fatal("expected error on 500")
	}
	// One attempt only: a retried send could double-message the contact.
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestConnectionState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instance/connectionState/main" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"instance":{"instanceName":"main","state":"open"}}`))
	}))
	defer srv.Close()

	state, err := newTestClient(srv).ConnectionState(context.Background())
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if state != "open" {
		t.Errorf("state = %q, want open", state)
	}
}

func TestConnectionState_FlatEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"connecting"}`))
	}))
	defer srv.Close()

	state, err := newTestClient(srv).ConnectionState(context.Background())
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if state != "connecting" {
		t.Errorf("state = %q, want connecting", state)
	}
}
