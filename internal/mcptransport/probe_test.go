package mcptransport

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProber_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusMethodNotAllowed, true},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			res := NewProber(time.Second).Check(context.Background(), srv.URL+"/sse")
			if res.Reachable != tc.want {
				t.Errorf("Reachable = %v, want %v", res.Reachable, tc.want)
			}
			if res.Status != tc.status {
				t.Errorf("Status = %d, want %d", res.Status, tc.status)
			}
		})
	}
}

func TestProber_StreamingEndpoint(t *testing.T) {
	// A real SSE endpoint keeps the body open; the probe must not wait for it.
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	if !NewProber(2*time.Second).Probe(context.Background(), srv.URL) {
		t.Error("streaming endpoint should be reachable")
	}
}

func TestProber_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	res := NewProber(time.Second).Check(context.Background(), "http://"+addr+"/sse")
	if res.Reachable {
		t.Error("refused connection should be unreachable")
	}
	if res.Err == nil {
		t.Error("expected the refusal to be recorded")
	}
}

func TestProber_OtherErrorAssumesUp(t *testing.T) {
	// The server accepts the connection but answers with garbage.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		buf.WriteString("not http at all\r\n\r\n")
		buf.Flush()
		conn.Close()
	}))
	defer srv.Close()

	res := NewProber(time.Second).Check(context.Background(), srv.URL)
	if !res.Reachable {
		t.Errorf("protocol error should be treated as reachable, err=%v", res.Err)
	}
	if res.Err == nil {
		t.Error("expected the protocol error to be recorded")
	}
}

func TestProber_TimeoutAssumesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	if !NewProber(50*time.Millisecond).Probe(context.Background(), srv.URL) {
		t.Error("timeout should be treated as reachable")
	}
}
