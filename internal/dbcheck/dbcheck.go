// Package dbcheck connects to PostgreSQL directly, bypassing MCP, to tell
// database problems apart from MCP server problems.
package dbcheck

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"pgagent/internal/config"
)

// DefaultTimeout bounds the whole check.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of Check.
type Result struct {
	OK bool
	// Table and Rows are set when the probe table could be counted.
	Table   string
	Rows    int64
	Counted bool
	// Version is set when the count failed and the server version was
	// queried instead.
	Version string
	Latency time.Duration
	Err     error
}

// Summary is a one-line description of r.
func (r Result) Summary() string {
	switch {
	case !r.OK:
		return fmt.Sprintf("connection failed: %v", r.Err)
	case r.Counted:
		return fmt.Sprintf("connected, %d rows in %s", r.Rows, r.Table)
	default:
		return fmt.Sprintf("connected, %s", truncate(r.Version, 60))
	}
}

// Check connects with db's credentials and counts the rows of
// db.ProbeTable. If the table cannot be counted the server version is
// queried instead; the check still passes.
func Check(ctx context.Context, db config.DBConfig) Result {
	if err := db.Validate(); err != nil {
		return Result{Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	start := time.Now()
	conn, err := pgx.Connect(ctx, db.ConnString())
	if err != nil {
		return Result{Err: fmt.Errorf("connect to %s: %w", db.MaskedConnString(), err), Latency: time.Since(start)}
	}
	defer conn.Close(context.WithoutCancel(ctx))

	res := Result{OK: true, Table: db.ProbeTable}
	if db.ProbeTable != "" {
		query := "SELECT count(*) FROM " + pgx.Identifier{db.ProbeTable}.Sanitize()
		if err := conn.QueryRow(ctx, query).Scan(&res.Rows); err == nil {
			res.Counted = true
			res.Latency = time.Since(start)
			return res
		}
	}

	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&res.Version); err != nil {
		return Result{Err: fmt.Errorf("query server version: %w", err), Latency: time.Since(start)}
	}
	res.Latency = time.Since(start)
	return res
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
