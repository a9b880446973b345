package main

import (
	"github.com/spf13/cobra"

	"pgagent/internal/chat"
	"pgagent/internal/tui"
)

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return tui.Run(chat.NewService(a.runner, "tui"), a.statusMonitor(), tui.NewRenderer(100))
		},
	}
}
