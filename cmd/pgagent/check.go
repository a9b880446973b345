package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pgagent/internal/apperr"
	"pgagent/internal/config"
	"pgagent/internal/dbcheck"
	"pgagent/internal/dockercheck"
	"pgagent/internal/mcptransport"
	"pgagent/internal/status"
)

// checks are the probes run by `pgagent check`.
type checks struct {
	db     func(ctx context.Context) dbcheck.Result
	sse    mcptransport.Checker
	sseURL string
	image  status.ImageChecker
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the database, the MCP SSE server and the docker image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The model key is not needed to check the setup.
			cfg, err := config.Load()
			if err != nil && !apperr.Is(err, apperr.KindConfiguration) {
				return err
			}
			c := checks{
				db:     func(ctx context.Context) dbcheck.Result { return dbcheck.Check(ctx, cfg.DB) },
				sse:    mcptransport.NewProber(cfg.MCP.ProbeTimeout),
				sseURL: cfg.MCP.SSEURL,
				image:  dockercheck.New(cfg.MCP.DockerImage),
			}
			if !runChecks(cmd.Context(), cmd.OutOrStdout(), c) {
				return errReported
			}
			return nil
		},
	}
}

// runChecks prints the setup report and reports whether the agent can work:
// the database must answer and at least one MCP path must be usable.
func runChecks(ctx context.Context, w io.Writer, c checks) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(w, "Testing MCP PostgreSQL setup")
	fmt.Fprintln(w, strings.Repeat("=", 40))

	fmt.Fprintln(w, "\n1. Database connection")
	db := c.db(ctx)
	fmt.Fprintf(w, "   %s %s\n", mark(db.OK), db.Summary())

	fmt.Fprintln(w, "\n2. MCP SSE server")
	probe := c.sse.Check(ctx, c.sseURL)
	switch {
	case probe.Reachable && probe.Err != nil:
		fmt.Fprintf(w, "   %s %s answered with an error, assuming it is up: %v\n", mark(true), c.sseURL, probe.Err)
	case probe.Reachable:
		fmt.Fprintf(w, "   %s %s is responding (status %d)\n", mark(true), c.sseURL, probe.Status)
	default:
		fmt.Fprintf(w, "   %s %s is not accessible\n", mark(false), c.sseURL)
	}

	fmt.Fprintln(w, "\n3. Docker MCP image")
	img := c.image.Check(ctx)
	dockerOK := img.Available || img.TimedOut
	switch {
	case img.Available:
		fmt.Fprintf(w, "   %s %s is available (%s)\n", mark(true), img.Image, img.Method)
	case img.TimedOut:
		fmt.Fprintf(w, "   %s %s timed out, but the image might work\n", mark(true), img.Image)
	default:
		fmt.Fprintf(w, "   %s %s: %v\n", mark(false), img.Image, img.Err)
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 40))
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Database connection: %s\n", mark(db.OK))
	fmt.Fprintf(w, "  MCP SSE server:      %s\n", mark(probe.Reachable))
	fmt.Fprintf(w, "  Docker MCP:          %s\n", mark(dockerOK))

	ok := db.OK && (probe.Reachable || dockerOK)
	if ok {
		fmt.Fprintln(w, "\nSetup looks good. Start the UI with: pgagent serve")
		return true
	}
	fmt.Fprintln(w, "\nSetup needs attention:")
	if !db.OK {
		fmt.Fprintln(w, "  - Check that PostgreSQL is running: docker-compose up -d postgres")
	}
	if !probe.Reachable && !dockerOK {
		fmt.Fprintln(w, "  - Check that the MCP server is running: docker-compose up -d postgres-mcp")
	}
	return false
}

func mark(ok bool) string {
	if ok {
		return "[ok]"
	}
	return "[FAIL]"
}
