package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"pgagent/internal/demo"
	"pgagent/internal/mcptransport"
)

func newDemoCommand() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the scripted analysis demo against a running MCP Pro server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if catalogPath == "" {
				catalogPath = a.cfg.DemoCatalog
			}
			cat, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Postgres MCP Pro Demo - Advanced Database Analysis")
			fmt.Fprintln(out, strings.Repeat("=", 60))
			if !a.prober.Probe(ctx, a.cfg.MCP.SSEURL) {
				fmt.Fprintln(cmd.ErrOrStderr(), "MCP Pro server is not running. Start it with: docker-compose up -d postgres-mcp")
				return errReported
			}
			fmt.Fprintln(out, "MCP Pro server is healthy!")

			// The demo runs over SSE only; it never falls back to docker stdio.
			runner := a.newRunner(mcptransport.NewSSEOnly(a.cfg.MCP.SSEURL))
			rep := demo.Run(ctx, cat, runner, out)
			fmt.Fprintf(out, "\n%d of %d demos completed\n", rep.Passed, rep.Passed+rep.Failed)
			if rep.Failed > 0 {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML demo catalog (default PGAGENT_DEMO_CATALOG or the built-in one)")
	return cmd
}

func loadCatalog(path string) (*demo.Catalog, error) {
	if path == "" {
		return demo.Default()
	}
	return demo.LoadFile(path)
}
