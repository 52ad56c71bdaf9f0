// Package gateway talks to an Evolution-API-compatible WhatsApp bridge:
// fetching recent messages, probing the session state, and sending text.
// It also owns the payload normalization in decode.go.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"arcco/internal/domain"
	"arcco/internal/httpx"
)

const defaultGatewayTimeout = 30 * time.Second

// Client implements domain.Gateway against one Evolution API instance.
type Client struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
	logger   *slog.Logger
}

type ClientConfig struct {
	BaseURL  string
	APIKey   string
	Instance string
	Logger   *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		instance: cfg.Instance,
		client:   httpx.SharedClient(defaultGatewayTimeout),
		logger:   cfg.Logger,
	}
}

// FetchRecentMessages pulls up to limit recent messages across all
// contacts. Reads are retried on transient errors.
func (c *Client) FetchRecentMessages(ctx context.Context, limit int) ([]domain.RawMessage, error) {
	url := fmt.Sprintf("%s/chat/findMessages/%s", c.baseURL, c.instance)
	payload, err := json.Marshal(map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	resp, err := httpx.DoWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway %d: %s", resp.StatusCode, string(body))
	}

	return decodeMessagePage(resp.Body)
}

// decodeMessagePage accepts the two response envelopes Evolution builds
// use: a paged object {"messages": {"records": [...]}} or a bare array.
func decodeMessagePage(r io.Reader) ([]domain.RawMessage, error) {
	var page struct {
		Messages struct {
			Records []domain.RawMessage `json:"records"`
		} `json:"messages"`
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &page); err == nil && page.Messages.Records != nil {
		return page.Messages.Records, nil
	}
	var list []domain.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return list, nil
}

// SendText delivers text to a contact. Sends are never retried: a retry
// after an ambiguous failure could double-message the contact.
func (c *Client) SendText(ctx context.Context, contactID string, text string) error {
	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)

	payload, err := json.Marshal(map[string]any{
		"number": DigitsOnly(contactID),
		"text":   text,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ConnectionState probes the session state for this instance. "open"
// means the WhatsApp session is connected.
func (c *Client) ConnectionState(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/instance/connectionState/%s", c.baseURL, c.instance)

	resp, err := httpx.DoWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	}, c.logger)
	if err != nil {
		return "", fmt.Errorf("connection state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway %d: %s", resp.StatusCode, string(body))
	}

	var state struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return "", fmt.Errorf("decode state: %w", err)
	}
	if state.Instance.State != "" {
		return state.Instance.State, nil
	}
	return state.State, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
}
