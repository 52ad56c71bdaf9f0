package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"arcco/internal/domain"
)

func TestOpenAI_ChatFlattensRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("auth header missing")
		}

		var req oaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		// system + 2 history turns + new user text
		if len(req.Messages) != 4 {
			t.Fatalf("got %d messages, want 4", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != "persona" {
			t.Errorf("message 0 = %+v", req.Messages[0])
		}
		if req.Messages[1].Role != "user" || req.Messages[2].Role != "assistant" {
			t.Errorf("history roles = %q, %q", req.Messages[1].Role, req.Messages[2].Role)
		}
		if req.Messages[3].Content != "nova pergunta" {
			t.Errorf("message 3 = %+v", req.Messages[3])
		}

		json.NewEncoder(w).Encode(oaiResponse{
			Choices: []oaiChoice{{Message: oaiMessage{Role: "assistant", Content: "resposta"}}},
			Usage:   oaiUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", APIBase: srv.URL, Model: "gpt-4o-mini", Logger: testLogger()})
	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		SystemPrompt: "persona",
		History: []domain.Turn{
			{Role: domain.RoleUser, Content: "oi"},
			{Role: domain.RoleAssistant, Content: "olá"},
		},
		UserText: "nova pergunta",
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "resposta" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", APIBase: srv.URL, Logger: testLogger()})
	_, err := p.Chat(context.Background(), domain.ChatRequest{UserText: "oi"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAI_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", APIBase: srv.URL, Logger: testLogger()})
	_, err := p.Chat(context.Background(), domain.ChatRequest{UserText: "oi"})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}
