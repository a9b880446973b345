// Package status reports whether the Postgres MCP Pro server can be
// reached, caching the answer for a short time.
package status

import (
	"context"
	"sync"
	"time"

	"pgagent/internal/dockercheck"
	"pgagent/internal/mcptransport"
)

// DefaultTTL is how long a status stays fresh.
const DefaultTTL = 60 * time.Second

// Status is the server availability shown to users.
type Status struct {
	// Healthy is true when the SSE endpoint answered the probe, or when the
	// docker image can serve the stdio fallback.
	Healthy   bool      `json:"healthy"`
	Transport string    `json:"transport"`
	SSEURL    string    `json:"sse_url"`
	SSE       bool      `json:"sse"`
	Docker    bool      `json:"docker"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Headline is the one-line banner text.
func (s Status) Headline() string {
	if s.SSE {
		return "MCP Pro Server is running and healthy"
	}
	if s.Docker {
		return "MCP Pro Server is not available over SSE; requests will use the docker stdio transport."
	}
	return "MCP Pro Server is not available. Please start it with: docker-compose up -d postgres-mcp"
}

// ImageChecker verifies the docker image. *dockercheck.Checker implements it.
type ImageChecker interface {
	Check(ctx context.Context) dockercheck.Result
}

// Monitor computes and caches Status.
type Monitor struct {
	url     string
	checker mcptransport.Checker
	image   ImageChecker
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	cached *Status
}

// NewMonitor creates a Monitor. image may be nil, in which case only the
// SSE probe decides.
func NewMonitor(sseURL string, checker mcptransport.Checker, image ImageChecker, ttl time.Duration) *Monitor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Monitor{url: sseURL, checker: checker, image: image, ttl: ttl, now: time.Now}
}

// Status returns the cached status, re-checking once it is older than the
// TTL. Concurrent callers during a re-check wait for the same result.
func (m *Monitor) Status(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil && m.now().Sub(m.cached.CheckedAt) < m.ttl {
		return *m.cached
	}
	s := m.check(ctx)
	m.cached = &s
	return s
}

// Invalidate drops the cached status.
func (m *Monitor) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

func (m *Monitor) check(ctx context.Context) Status {
	s := Status{SSEURL: m.url, CheckedAt: m.now()}

	probe := m.checker.Check(ctx, m.url)
	if probe.Reachable {
		s.Healthy, s.SSE = true, true
		s.Transport = string(mcptransport.KindSSE)
		return s
	}
	s.Transport = string(mcptransport.KindStdio)
	if probe.Err != nil {
		s.Detail = probe.Err.Error()
	}

	if m.image == nil {
		return s
	}
	res := m.image.Check(ctx)
	s.Docker = res.Available
	s.Healthy = res.Available
	if res.Err != nil {
		s.Detail = res.Err.Error()
	} else if res.Detail != "" {
		s.Detail = res.Detail
	}
	return s
}
