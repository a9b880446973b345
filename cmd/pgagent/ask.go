package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pgagent/internal/agentrun"
	"pgagent/internal/apperr"
	"pgagent/internal/tui"
)

func newAskCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer one question and exit",
		Example: `  pgagent ask "Perform a comprehensive database health check"
  pgagent ask --raw What are the top 5 slowest queries?`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			answer, err := a.runner.Ask(ctx, agentrun.Question{Text: strings.Join(args, " "), Source: "cli"})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), apperr.UserMessage(err))
				return errReported
			}

			out := answer.Text
			if !raw && isTerminal(os.Stdout) {
				width := 80
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
					width = w
				}
				out = tui.RenderMarkdown(tui.NewRenderer(width), out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the answer as plain markdown")
	return cmd
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
