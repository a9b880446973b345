package dockercheck

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/containerd/errdefs"
)

type mockInspector struct {
	err   error
	calls int
}

func (m *mockInspector) InspectImage(_ context.Context, _ string) error {
	m.calls++
	return m.err
}

// mockRunner implements CommandRunner for testing.
type mockRunner struct {
	output string
	err    error
	block  bool

	name string
	args []string
}

func (m *mockRunner) Run(ctx context.Context, name string, args []string) (string, error) {
	m.name, m.args = name, args
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.output, m.err
}

func TestCheck(t *testing.T) {
	notFound := fmt.Errorf("no such image: %w", errdefs.ErrNotFound)

	tests := []struct {
		name       string
		inspector  *mockInspector
		runner     *mockRunner
		wantOK     bool
		wantMethod Method
		wantRun    bool
		wantErr    string
	}{
		{
			name:       "present locally",
			inspector:  &mockInspector{},
			runner:     &mockRunner{},
			wantOK:     true,
			wantMethod: MethodSDK,
		},
		{
			name:       "not pulled but runs",
			inspector:  &mockInspector{err: notFound},
			runner:     &mockRunner{output: "usage: postgres-mcp"},
			wantOK:     true,
			wantMethod: MethodCLI,
			wantRun:    true,
		},
		{
			name:       "daemon down and run fails",
			inspector:  &mockInspector{err: errors.New("cannot connect to the docker daemon")},
			runner:     &mockRunner{output: "docker: command not found", err: errors.New("exit status 127")},
			wantMethod: MethodCLI,
			wantRun:    true,
			wantErr:    "command not found",
		},
		{
			name:       "no sdk",
			runner:     &mockRunner{},
			wantOK:     true,
			wantMethod: MethodCLI,
			wantRun:    true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Checker{Image: "crystaldba/postgres-mcp", Runner: tc.runner}
			if tc.inspector != nil {
				c.Inspector = tc.inspector
			}

			res := c.Check(context.Background())
			if res.Available != tc.wantOK {
				t.Errorf("Available = %v, want %v (err %v)", res.Available, tc.wantOK, res.Err)
			}
			if res.Method != tc.wantMethod {
				t.Errorf("Method = %q, want %q", res.Method, tc.wantMethod)
			}
			ran := tc.runner.name != ""
			if ran != tc.wantRun {
				t.Errorf("ran docker = %v, want %v", ran, tc.wantRun)
			}
			if ran {
				want := []string{"run", "--rm", "--network=host", "crystaldba/postgres-mcp", "--help"}
				if tc.runner.name != "docker" || !slices.Equal(tc.runner.args, want) {
					t.Errorf("ran %s %v", tc.runner.name, tc.runner.args)
				}
			}
			if tc.wantErr != "" && (res.Err == nil || !strings.Contains(res.Err.Error(), tc.wantErr)) {
				t.Errorf("Err = %v, want containing %q", res.Err, tc.wantErr)
			}
		})
	}
}

func TestCheck_RunTimeout(t *testing.T) {
	c := &Checker{Image: "img", Runner: &mockRunner{block: true}, RunTimeout: 20 * time.Millisecond}
	res := c.Check(context.Background())
	if res.Available {
		t.Fatal("blocked run reported available")
	}
	if !res.TimedOut {
		t.Error("TimedOut not set")
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", res.Err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("Fehler: ü", 8); got != "Fehler: ..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("Fehler:ü", 8); got != "Fehler:ü" || !utf8.ValidString(got) {
		t.Errorf("truncate = %q", got)
	}
}
