// Command pgagent answers natural-language questions about a PostgreSQL
// database through the Postgres MCP Pro server.
package main

import (
	"errors"
	"log/slog"
	"os"

	"pgagent/internal/logging"
)

var version = "dev"

func main() {
	args := logging.InitLogging(os.Args[1:])

	root := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			slog.Error("pgagent failed", "err", err)
		}
		os.Exit(1)
	}
}
