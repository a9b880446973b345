package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"pgagent/internal/agentrun"
	"pgagent/internal/apperr"
	"pgagent/internal/config"
	"pgagent/internal/dockercheck"
	"pgagent/internal/journal"
	"pgagent/internal/mcptransport"
	"pgagent/internal/status"
)

// errReported marks failures already shown to the user.
var errReported = errors.New("reported")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pgagent",
		Short: "Ask questions about a PostgreSQL database through Postgres MCP Pro",
		Long: `pgagent connects a language model to the Postgres MCP Pro server and answers
questions about database health, slow queries, indexes and schema.

Configuration is read from the environment and an optional .env file.
The global --log-level flag accepts debug, info, warn or error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(
		newServeCommand(),
		newAskCommand(),
		newChatCommand(),
		newCheckCommand(),
		newDemoCommand(),
		newA2ACommand(),
	)
	return root
}

// app holds the shared wiring built from one configuration snapshot.
type app struct {
	cfg     config.Config
	journal *journal.Store
	runner  *agentrun.Runner
	prober  *mcptransport.Prober
	// runOpts are the runner options shared by every runner of this app.
	runOpts []agentrun.Option
}

// loadApp reads the configuration and builds the runner. Configuration
// errors are printed in their user-facing form.
func loadApp(stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		if apperr.Is(err, apperr.KindConfiguration) {
			fmt.Fprintln(stderr, apperr.UserMessage(err))
			return nil, errReported
		}
		return nil, err
	}
	agentrun.Version = version

	a := &app{cfg: cfg, prober: mcptransport.NewProber(cfg.MCP.ProbeTimeout)}
	if cfg.JournalDSN != "" {
		store, err := journal.Open(cfg.JournalDSN)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal = store
		a.runOpts = append(a.runOpts, agentrun.WithRecorder(agentrun.JournalRecorder{Store: store}))
		slog.Info("journal enabled", "postgres", store.IsPostgres())
	}
	a.runner = a.newRunner(mcptransport.NewSelector(cfg.MCP, cfg.DB, a.prober))
	return a, nil
}

func (a *app) newRunner(sel agentrun.TransportSelector) *agentrun.Runner {
	opts := append([]agentrun.Option{agentrun.WithSelector(sel)}, a.runOpts...)
	return agentrun.New(a.cfg, opts...)
}

func (a *app) statusMonitor() *status.Monitor {
	return status.NewMonitor(a.cfg.MCP.SSEURL, a.prober, dockercheck.New(a.cfg.MCP.DockerImage), a.cfg.StatusTTL)
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			slog.Warn("closing journal", "err", err)
		}
	}
}
