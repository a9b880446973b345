// Package dockercheck verifies that the Postgres MCP Pro docker image can
// serve the stdio transport.
package dockercheck

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/client"
)

// DefaultRunTimeout bounds the `docker run ... --help` fallback.
const DefaultRunTimeout = 10 * time.Second

// Method names how availability was established.
type Method string

const (
	MethodSDK Method = "docker-sdk"
	MethodCLI Method = "docker-cli"
)

// Result is the outcome of Check.
type Result struct {
	Image     string
	Available bool
	Method    Method
	// Detail is a short human-readable explanation.
	Detail string
	// TimedOut is set when the docker run fallback hit its deadline. The
	// image may still work; it was only slow to start or pull.
	TimedOut bool
	Err      error
}

// Inspector looks an image up in the local docker daemon.
type Inspector interface {
	InspectImage(ctx context.Context, ref string) error
}

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) (string, error) {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(output), err
}

// Checker checks one image.
type Checker struct {
	Image      string
	Inspector  Inspector
	Runner     CommandRunner
	RunTimeout time.Duration
}

// New returns a Checker for image. When the docker SDK client cannot be
// created only the CLI fallback is used.
func New(image string) *Checker {
	c := &Checker{Image: image, Runner: execRunner{}, RunTimeout: DefaultRunTimeout}
	if sdk, err := NewSDKInspector(); err == nil {
		c.Inspector = sdk
	} else {
		slog.Debug("docker SDK unavailable, using CLI only", "err", err)
	}
	return c
}

// Check reports whether the image is usable. The local image store is
// consulted first; if that fails for any reason the image is run once with
// --help.
func (c *Checker) Check(ctx context.Context) Result {
	res := Result{Image: c.Image}

	if c.Inspector != nil {
		err := c.Inspector.InspectImage(ctx, c.Image)
		if err == nil {
			res.Available = true
			res.Method = MethodSDK
			res.Detail = "image present in local docker daemon"
			return res
		}
		if errdefs.IsNotFound(err) {
			slog.Debug("image not present locally, trying docker run", "image", c.Image)
		} else {
			slog.Debug("docker image inspect failed, trying docker run", "image", c.Image, "err", err)
		}
	}

	timeout := c.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res.Method = MethodCLI
	output, err := c.Runner.Run(runCtx, "docker", []string{"run", "--rm", "--network=host", c.Image, "--help"})
	if err != nil {
		if runCtx.Err() != nil {
			res.TimedOut = true
			err = fmt.Errorf("docker run timed out after %v: %w", timeout, runCtx.Err())
		} else if output != "" {
			err = fmt.Errorf("%w: %s", err, truncate(output, 200))
		}
		res.Err = err
		res.Detail = "docker run failed"
		return res
	}
	res.Available = true
	res.Detail = "image runs"
	return res
}

// SDKInspector uses the docker engine API.
type SDKInspector struct {
	cli *client.Client
}

// NewSDKInspector connects using the standard DOCKER_* environment.
func NewSDKInspector() (*SDKInspector, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &SDKInspector{cli: cli}, nil
}

// InspectImage implements Inspector.
func (s *SDKInspector) InspectImage(ctx context.Context, ref string) error {
	_, err := s.cli.ImageInspect(ctx, ref)
	return err
}

// Close releases the client.
func (s *SDKInspector) Close() error {
	return s.cli.Close()
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
