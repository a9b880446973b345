// Package testutil provides fakes and helpers shared by pgagent tests.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// RequireDocker skips t unless a docker daemon answers.
func RequireDocker(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := Docker(ctx, "info", "--format", "{{.ServerVersion}}"); err != nil {
		t.Skipf("docker daemon not reachable: %v", err)
	}
}

// Docker runs a docker CLI command and returns its trimmed output.
func Docker(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %v\n%s", strings.Join(args, " "), err, output)
	}
	return strings.TrimSpace(string(output)), nil
}

// DockerExec runs a command inside a running container.
func DockerExec(ctx context.Context, container string, cmd ...string) (string, error) {
	args := append([]string{"exec", "-i", container}, cmd...)
	return Docker(ctx, args...)
}

// StartContainer runs a detached container and removes it when t ends.
// It returns the container ID.
func StartContainer(t testing.TB, args ...string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	id, err := Docker(ctx, append([]string{"run", "-d", "--rm"}, args...)...)
	if err != nil {
		t.Fatalf("start container: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := Docker(ctx, "rm", "-f", id); err != nil {
			t.Logf("remove container %s: %v", id, err)
		}
	})
	return id
}

// HostPort returns the host address published for a container port,
// e.g. "127.0.0.1:49153" for "5432/tcp".
func HostPort(ctx context.Context, container, port string) (string, error) {
	out, err := Docker(ctx, "port", container, port)
	if err != nil {
		return "", err
	}
	// docker may list an IPv4 and an IPv6 binding; take the first.
	line := strings.SplitN(out, "\n", 2)[0]
	host, p, err := net.SplitHostPort(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("parse docker port output %q: %w", line, err)
	}
	if host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, p), nil
}
