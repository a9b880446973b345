package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pgagent/agentutil"
	"pgagent/internal/chat"
	"pgagent/internal/model"
)

func newA2ACommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "a2a",
		Short: "Serve the agent over the A2A protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.A2AAddr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			llm, err := model.NewLLM(ctx, model.Select(a.cfg.Model.ID, a.cfg.Model.APIKey))
			if err != nil {
				return err
			}
			gw, err := agentutil.NewGatewayAgent(llm, a.runner)
			if err != nil {
				return err
			}

			var examples []string
			for _, qa := range chat.QuickActions() {
				examples = append(examples, qa.Query)
			}
			return agentutil.Serve(ctx, gw, addr, agentutil.DefaultCardOptions(version, examples))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default PGAGENT_A2A_ADDR or localhost:1120)")
	return cmd
}
