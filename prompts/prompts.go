// Package prompts embeds the agent instruction files and exports them as strings.
package prompts

import _ "embed"

// PostgresPro instructs the agent bound to the Postgres MCP Pro tools.
//
//go:embed postgres_pro.txt
var PostgresPro string

// Gateway instructs the A2A-facing agent that delegates to PostgresPro.
//
//go:embed gateway.txt
var Gateway string
