// Package httpx holds the HTTP plumbing shared by the gateway and
// provider clients: a pooled client and a retry helper for idempotent
// requests.
package httpx

import (
	"net"
	"net/http"
	"time"
)

// SharedClient returns an optimized HTTP client with connection pooling.
// Use this instead of creating individual clients per collaborator.
func SharedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
