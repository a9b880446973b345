package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pgagent/internal/chat"
	"pgagent/internal/web"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			var turns web.TurnLister
			if a.journal != nil {
				turns = a.journal
			}
			srv := web.NewServer(chat.NewService(a.runner, "web"), a.statusMonitor(), turns, a.runner.Timeout())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default PGAGENT_LISTEN_ADDR or localhost:8501)")
	return cmd
}
