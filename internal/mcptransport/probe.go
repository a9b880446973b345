// Package mcptransport chooses how to reach the Postgres MCP analysis
// server: the SSE endpoint when it answers a liveness probe, otherwise a
// docker-spawned stdio process.
package mcptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"syscall"
	"time"
)

// ProbeResult is the outcome of one liveness probe.
type ProbeResult struct {
	Endpoint  string
	Reachable bool
	// Status is the HTTP status, or 0 when no response arrived.
	Status  int
	Latency time.Duration
	Err     error
}

// Prober checks whether the SSE endpoint is up without opening a session.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// NewProber creates a prober that gives up after timeout.
func NewProber(timeout time.Duration) *Prober {
	return &Prober{client: &http.Client{}, timeout: timeout}
}

// Probe reports whether endpoint is reachable.
func (p *Prober) Probe(ctx context.Context, endpoint string) bool {
	return p.Check(ctx, endpoint).Reachable
}

// Check issues a GET against endpoint. Statuses 200, 400, 404 and 405 count
// as up and other statuses as down. A refused connection counts as down;
// any other transport error is treated as up.
func (p *Prober) Check(ctx context.Context, endpoint string) ProbeResult {
	res := ProbeResult{Endpoint: endpoint}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		res.Err = err
		res.Reachable = true
		slog.Warn("health check got error", "url", endpoint, "err", err)
		return res
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		if errors.Is(err, syscall.ECONNREFUSED) {
			slog.Warn("health check failed: cannot connect", "url", endpoint)
			return res
		}
		slog.Warn("health check got error, assuming server is up", "url", endpoint, "err", err)
		res.Reachable = true
		return res
	}
	// The SSE stream never ends on its own; only the status line matters.
	resp.Body.Close()

	res.Status = resp.StatusCode
	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed:
		res.Reachable = true
	}
	slog.Debug("health check", "url", endpoint, "status", resp.StatusCode, "reachable", res.Reachable, "latency", res.Latency)
	return res
}
